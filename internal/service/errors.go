// Package service implements the booking engine: the booking state
// machine, the session generator, the stale-reservation sweeper and
// the abuse guard. Handlers depend on this package and translate its
// sentinel errors into HTTP responses.
package service

import "errors"

// ErrSessionFull means the session's capacity is exhausted.  This is
// an expected, frequent outcome and is never logged as an error.
var ErrSessionFull = errors.New("session full")

// ErrSessionNotBookable means the session is inactive or already
// started.
var ErrSessionNotBookable = errors.New("session not bookable")

// ErrRateLimited means the origin exceeded its daily new-booking cap.
var ErrRateLimited = errors.New("rate limited")

// ErrTooManyActiveBookings means the member holds too many
// non-terminal future bookings.
var ErrTooManyActiveBookings = errors.New("too many active bookings")

// ErrPaymentFailed means the external card charge was declined or
// timed out; the reservation has been rolled back and the member can
// retry immediately.
var ErrPaymentFailed = errors.New("payment failed")

// ErrNotFound means the requested booking or session does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden means the booking belongs to a different member.
var ErrForbidden = errors.New("forbidden")

// ErrAlreadyCancelled means the booking is already in its terminal
// cancelled state.  Callers may treat it as an idempotency signal.
var ErrAlreadyCancelled = errors.New("booking already cancelled")

// ErrInvalidInput covers malformed booking requests (unknown payment
// method, zero IDs).
var ErrInvalidInput = errors.New("invalid input")
