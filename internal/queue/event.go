// Package queue defines message payloads exchanged over the message broker.
package queue

// Queue names used for booking lifecycle events.
const (
	BookingConfirmedQueue = "booking.confirmed"
	BookingCancelledQueue = "booking.cancelled"
)

// BookingEvent is published when a booking is confirmed or cancelled.
// It carries enough information for downstream consumers to log,
// notify members, or feed analytics without querying the primary
// database.
type BookingEvent struct {
	EventID       string `json:"event_id"`
	BookingID     uint64 `json:"booking_id"`
	MemberID      uint64 `json:"member_id"`
	SessionID     uint64 `json:"session_id"`
	SessionTitle  string `json:"session_title"`
	ClassType     string `json:"class_type"`
	SessionDate   string `json:"session_date"`
	StartTime     string `json:"start_time"`
	PaymentMethod string `json:"payment_method"`
	IsFreeSession bool   `json:"is_free_session"`
	PriceCents    uint32 `json:"price_cents"`
	OccurredAt    string `json:"occurred_at"`
}
