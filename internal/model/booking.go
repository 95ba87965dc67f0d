package model

import "time"

// Booking status values.  A booking starts PENDING (cash, or card
// before the charge settles) or CONFIRMED (free session), and ends in
// either CONFIRMED or CANCELLED.  CANCELLED is terminal.
const (
	BookingPending   = "PENDING"
	BookingConfirmed = "CONFIRMED"
	BookingCancelled = "CANCELLED"
)

// Payment method values accepted on booking creation.
const (
	PaymentCard = "CARD"
	PaymentCash = "CASH"
)

// Booking records exactly one member's claim on exactly one seat in
// exactly one session.  Bookings are never hard-deleted once they have
// held a seat past payment; cancelled rows are retained for audit.
//
// Fields:
//  ID            – primary key identifier.
//  MemberID      – member who made the booking.
//  SessionID     – session being booked.
//  Status        – PENDING, CONFIRMED or CANCELLED.
//  PaymentMethod – CARD or CASH.
//  PaymentRef    – external charge reference once a card payment settles.
//  IsFreeSession – whether this booking consumed the member's free session.
//  PriceCents    – price at booking time (0 for free sessions).
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – last update timestamp.
type Booking struct {
	ID            uint64    // bookings.id
	MemberID      uint64    // bookings.member_id
	SessionID     uint64    // bookings.session_id
	Status        string    // bookings.status
	PaymentMethod string    // bookings.payment_method
	PaymentRef    *string   // bookings.payment_ref (nullable)
	IsFreeSession bool      // bookings.is_free_session
	PriceCents    uint32    // bookings.price_cents
	CreatedAt     time.Time // bookings.created_at
	UpdatedAt     time.Time // bookings.updated_at
}
