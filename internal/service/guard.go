package service

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// activeBookingCounter is the slice of the booking store the guard
// needs: how many non-terminal future bookings a member holds.
type activeBookingCounter interface {
	CountActiveFuture(ctx context.Context, memberID uint64, today time.Time) (int, error)
}

// Guard runs the advisory abuse checks ahead of booking creation: a
// per-member cap on active future bookings and a per-origin cap on new
// bookings within a 24h window. Neither check is part of the capacity
// invariant; their state may lag slightly without corrupting the
// booking model, which is why redis failures degrade to allow.
type Guard struct {
	bookings  activeBookingCounter
	rdb       *redis.Client // nil disables the origin check
	maxActive int
	maxOrigin int
}

// NewGuard builds a Guard. rdb may be nil, in which case the
// per-origin cap is skipped entirely.
func NewGuard(bookings activeBookingCounter, rdb *redis.Client, maxActive, maxOriginPerDay int) *Guard {
	return &Guard{bookings: bookings, rdb: rdb, maxActive: maxActive, maxOrigin: maxOriginPerDay}
}

// Check validates both caps for a prospective booking. It returns
// ErrTooManyActiveBookings or ErrRateLimited on a violated cap, and
// nil otherwise.
func (g *Guard) Check(ctx context.Context, memberID uint64, origin string, now time.Time) error {
	n, err := g.bookings.CountActiveFuture(ctx, memberID, now)
	if err != nil {
		return err
	}
	if n >= g.maxActive {
		return ErrTooManyActiveBookings
	}
	return g.checkOrigin(ctx, origin)
}

// checkOrigin counts new bookings per network origin in a fixed 24h
// redis window (INCR + EXPIRE on first hit).
func (g *Guard) checkOrigin(ctx context.Context, origin string) error {
	if g.rdb == nil || origin == "" {
		return nil
	}
	key := "guard:origin:" + origin
	n, err := g.rdb.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("abuse guard: redis incr failed for %s: %v", key, err)
		return nil // advisory check, fail open
	}
	if n == 1 {
		if err := g.rdb.Expire(ctx, key, 24*time.Hour).Err(); err != nil {
			log.Printf("abuse guard: redis expire failed for %s: %v", key, err)
		}
	}
	if n > int64(g.maxOrigin) {
		return ErrRateLimited
	}
	return nil
}
