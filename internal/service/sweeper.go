package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/soleilfit/class-booking/internal/model"
	"github.com/soleilfit/class-booking/internal/repository"
)

// staleBookingStore is the slice of the booking store the sweeper
// needs.
type staleBookingStore interface {
	ListStalePending(ctx context.Context, cutoff time.Time) ([]model.Booking, error)
	UpdateStatus(ctx context.Context, id uint64, from, to string) (bool, error)
}

// Sweeper reclaims bookings abandoned in PENDING past the deadline:
// cash bookings staff never confirmed and card checkouts that were
// walked away from. Each reclaim is gated on winning the
// PENDING -> CANCELLED compare-and-set, so a sweep overlapping an
// explicit cancellation (or a second sweep after an interruption)
// releases each seat at most once.
type Sweeper struct {
	bookings staleBookingStore
	ledger   capacityLedger
	deadline time.Duration
}

// NewSweeper builds a Sweeper with the given pending deadline.
func NewSweeper(bookings staleBookingStore, ledger capacityLedger, deadline time.Duration) *Sweeper {
	return &Sweeper{bookings: bookings, ledger: ledger, deadline: deadline}
}

// SweepOnce scans for stale pending bookings relative to now and
// reclaims them. Errors on individual bookings are logged and do not
// abort the remainder of the scan. It returns the number of bookings
// reclaimed, which tests call directly instead of waiting for a real
// clock.
func (s *Sweeper) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.bookings.ListStalePending(ctx, now.Add(-s.deadline))
	if err != nil {
		return 0, err
	}
	reclaimed := 0
	for _, b := range stale {
		won, err := s.bookings.UpdateStatus(ctx, b.ID, model.BookingPending, model.BookingCancelled)
		if err != nil {
			log.Printf("sweeper: cancel booking %d failed: %v", b.ID, err)
			continue
		}
		if !won {
			// Someone confirmed or cancelled it since the scan; their
			// transition owns the seat accounting.
			continue
		}
		if err := s.ledger.Release(ctx, b.SessionID); err != nil {
			if errors.Is(err, repository.ErrNotReserved) {
				log.Printf("sweeper: release for booking %d found counter at zero (session %d)", b.ID, b.SessionID)
			} else {
				log.Printf("sweeper: release session %d for booking %d failed: %v", b.SessionID, b.ID, err)
			}
			continue
		}
		reclaimed++
	}
	if reclaimed > 0 {
		log.Printf("sweeper: reclaimed %d stale booking(s)", reclaimed)
	}
	return reclaimed, nil
}

// Run sweeps on every tick until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx, time.Now()); err != nil {
				log.Printf("sweeper: %v", err)
			}
		}
	}
}
