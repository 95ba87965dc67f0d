package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soleilfit/class-booking/internal/model"
	"github.com/soleilfit/class-booking/internal/repository"
)

type stubSweepStore struct {
	stale      []model.Booking
	listErr    error
	lastCutoff time.Time
	statuses   map[uint64]string
}

func (s *stubSweepStore) ListStalePending(_ context.Context, cutoff time.Time) ([]model.Booking, error) {
	s.lastCutoff = cutoff
	return s.stale, s.listErr
}

func (s *stubSweepStore) UpdateStatus(_ context.Context, id uint64, from, to string) (bool, error) {
	if s.statuses[id] != from {
		return false, nil
	}
	s.statuses[id] = to
	return true, nil
}

func pendingBooking(id, sessionID uint64) model.Booking {
	return model.Booking{
		ID:            id,
		MemberID:      1,
		SessionID:     sessionID,
		Status:        model.BookingPending,
		PaymentMethod: model.PaymentCash,
	}
}

func TestSweepOnceReclaimsStalePending(t *testing.T) {
	store := &stubSweepStore{
		stale:    []model.Booking{pendingBooking(1, 7), pendingBooking(2, 8)},
		statuses: map[uint64]string{1: model.BookingPending, 2: model.BookingPending},
	}
	ledger := &stubLedger{}
	sw := NewSweeper(store, ledger, 24*time.Hour)

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.Local)
	n, err := sw.SweepOnce(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []uint64{7, 8}, ledger.released)
	require.Equal(t, now.Add(-24*time.Hour), store.lastCutoff)
	require.Equal(t, model.BookingCancelled, store.statuses[1])
	require.Equal(t, model.BookingCancelled, store.statuses[2])
}

func TestSweepOnceSkipsBookingsThatMovedOn(t *testing.T) {
	// Booking 2 was confirmed after the scan snapshot: the lost CAS
	// means its seat must not be touched.
	store := &stubSweepStore{
		stale:    []model.Booking{pendingBooking(1, 7), pendingBooking(2, 8)},
		statuses: map[uint64]string{1: model.BookingPending, 2: model.BookingConfirmed},
	}
	ledger := &stubLedger{}
	sw := NewSweeper(store, ledger, 24*time.Hour)

	n, err := sw.SweepOnce(context.Background(), time.Now())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []uint64{7}, ledger.released)
	require.Equal(t, model.BookingConfirmed, store.statuses[2])
}

func TestSweepOnceToleratesCounterAtZero(t *testing.T) {
	store := &stubSweepStore{
		stale:    []model.Booking{pendingBooking(1, 7)},
		statuses: map[uint64]string{1: model.BookingPending},
	}
	ledger := &stubLedger{releaseErr: repository.ErrNotReserved}
	sw := NewSweeper(store, ledger, 24*time.Hour)

	n, err := sw.SweepOnce(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, n)
	// The booking is still cancelled even though the counter was
	// already at zero.
	require.Equal(t, model.BookingCancelled, store.statuses[1])
}

func TestSweepOncePropagatesListError(t *testing.T) {
	store := &stubSweepStore{listErr: errors.New("db down"), statuses: map[uint64]string{}}
	sw := NewSweeper(store, &stubLedger{}, 24*time.Hour)

	_, err := sw.SweepOnce(context.Background(), time.Now())
	require.Error(t, err)
}

func TestSweepOnceEmptyScan(t *testing.T) {
	store := &stubSweepStore{statuses: map[uint64]string{}}
	sw := NewSweeper(store, &stubLedger{}, 24*time.Hour)

	n, err := sw.SweepOnce(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, n)
}
