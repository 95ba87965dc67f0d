// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and handlers to distinguish between different failure
// scenarios without string matching.
package repository

import "errors"

// ErrSessionNotFound indicates that a session row does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrTemplateNotFound indicates that a class template row does not exist.
var ErrTemplateNotFound = errors.New("template not found")

// ErrBookingNotFound indicates that a booking row does not exist.
var ErrBookingNotFound = errors.New("booking not found")

// ErrSessionFull is returned by TryReserve when the session has no
// remaining capacity. This is an expected, frequent condition and is
// not logged as an error.
var ErrSessionFull = errors.New("session full")

// ErrNotReserved is returned by Release when the booked counter is
// already at zero. It signals a reserve/release imbalance (a logic
// error) but must never drive the counter negative.
var ErrNotReserved = errors.New("no reserved seats to release")

// ErrNoChange indicates an UPDATE attempted to set fields equal to
// their current values.
var ErrNoChange = errors.New("no change")
