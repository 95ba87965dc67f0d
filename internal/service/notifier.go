package service

import (
	"context"
	"log"

	"github.com/soleilfit/class-booking/internal/queue"
)

// Notifier delivers fire-and-forget booking lifecycle notifications.
// Implementations must never fail the booking flow: a notification
// problem is logged and swallowed.
type Notifier interface {
	BookingConfirmed(ctx context.Context, ev queue.BookingEvent)
	BookingCancelled(ctx context.Context, ev queue.BookingEvent)
}

// QueueNotifier publishes booking events to RabbitMQ. Publish errors
// are already logged by the queue package; they are ignored here so
// that a broker outage cannot roll back a booking.
type QueueNotifier struct{}

func (QueueNotifier) BookingConfirmed(ctx context.Context, ev queue.BookingEvent) {
	_ = queue.Publish(ctx, queue.BookingConfirmedQueue, ev)
}

func (QueueNotifier) BookingCancelled(ctx context.Context, ev queue.BookingEvent) {
	_ = queue.Publish(ctx, queue.BookingCancelledQueue, ev)
}

// NopNotifier drops all notifications. Used when the broker is
// disabled.
type NopNotifier struct{}

func (NopNotifier) BookingConfirmed(ctx context.Context, ev queue.BookingEvent) {
	log.Printf("booking confirmed: booking=%d member=%d session=%d", ev.BookingID, ev.MemberID, ev.SessionID)
}

func (NopNotifier) BookingCancelled(ctx context.Context, ev queue.BookingEvent) {
	log.Printf("booking cancelled: booking=%d member=%d session=%d", ev.BookingID, ev.MemberID, ev.SessionID)
}
