package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soleilfit/class-booking/internal/config"
	"github.com/soleilfit/class-booking/internal/model"
	"github.com/soleilfit/class-booking/internal/queue"
	"github.com/soleilfit/class-booking/internal/repository"
)

// ----- stubs -----

type stubLedger struct {
	reserveErr error
	releaseErr error
	reserved   []uint64
	released   []uint64
}

func (s *stubLedger) TryReserve(_ context.Context, id uint64) error {
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserved = append(s.reserved, id)
	return nil
}

func (s *stubLedger) Release(_ context.Context, id uint64) error {
	if s.releaseErr != nil {
		return s.releaseErr
	}
	s.released = append(s.released, id)
	return nil
}

// countingLedger enforces a real seat budget under concurrent access,
// the way the repository's conditional UPDATE does: reserve fails once
// the count is exhausted, release gives a seat back.
type countingLedger struct {
	mu       sync.Mutex
	free     int
	released int
}

func (l *countingLedger) TryReserve(_ context.Context, _ uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.free == 0 {
		return repository.ErrSessionFull
	}
	l.free--
	return nil
}

func (l *countingLedger) Release(_ context.Context, _ uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.free++
	l.released++
	return nil
}

type stubSessions struct {
	byID map[uint64]*model.Session
}

func (s *stubSessions) GetByID(_ context.Context, id uint64) (*model.Session, error) {
	sess, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

type stubBookings struct {
	mu        sync.Mutex
	nextID    uint64
	byID      map[uint64]*model.Booking
	createErr error

	// casFailuresLeft makes the next UpdateStatus calls lose without
	// changing state, invoking onCASFail first; simulates a concurrent
	// writer slipping in between read and compare-and-set.
	casFailuresLeft int
	onCASFail       func()
}

func newStubBookings() *stubBookings {
	return &stubBookings{nextID: 1, byID: map[uint64]*model.Booking{}}
}

func (s *stubBookings) Create(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	b.ID = s.nextID
	s.nextID++
	cp := *b
	s.byID[b.ID] = &cp
	return nil
}

func (s *stubBookings) GetByID(_ context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *stubBookings) UpdateStatus(_ context.Context, id uint64, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.casFailuresLeft > 0 {
		s.casFailuresLeft--
		if s.onCASFail != nil {
			s.onCASFail()
		}
		return false, nil
	}
	b, ok := s.byID[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (s *stubBookings) ConfirmWithPaymentRef(_ context.Context, id uint64, ref string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.byID[id]
	if !ok || b.Status != model.BookingPending {
		return false, nil
	}
	b.Status = model.BookingConfirmed
	b.PaymentRef = &ref
	return true, nil
}

func (s *stubBookings) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	return nil
}

type stubMembers struct {
	member     model.Member
	claimOK    bool
	claimed    int
	restored   int
	restoreErr error
}

func (s *stubMembers) GetByID(_ context.Context, id uint64) (model.Member, error) {
	m := s.member
	m.ID = id
	return m, nil
}

func (s *stubMembers) ClaimFreeSession(_ context.Context, _ uint64) (bool, error) {
	s.claimed++
	return s.claimOK, nil
}

func (s *stubMembers) RestoreFreeSession(_ context.Context, _ uint64) error {
	if s.restoreErr != nil {
		return s.restoreErr
	}
	s.restored++
	return nil
}

type stubGuard struct {
	mu     sync.Mutex
	err    error
	checks int
}

func (s *stubGuard) Check(_ context.Context, _ uint64, _ string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks++
	return s.err
}

type stubPayments struct {
	mu      sync.Mutex
	ref     string
	err     error
	charges int

	// onCharge runs while the charge is "in flight", before it
	// settles; lets tests interleave a concurrent status change.
	onCharge func()
	delay    time.Duration
}

func (s *stubPayments) Charge(_ context.Context, _ uint32, _, _ string) (string, error) {
	s.mu.Lock()
	s.charges++
	err, ref := s.err, s.ref
	s.mu.Unlock()
	if s.onCharge != nil {
		s.onCharge()
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if err != nil {
		return "", err
	}
	return ref, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []queue.BookingEvent
	cancelled []queue.BookingEvent
}

func (n *recordingNotifier) BookingConfirmed(_ context.Context, ev queue.BookingEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, ev)
}

func (n *recordingNotifier) BookingCancelled(_ context.Context, ev queue.BookingEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, ev)
}

// ----- fixture -----

type fixture struct {
	svc      *BookingService
	ledger   *stubLedger
	sessions *stubSessions
	bookings *stubBookings
	members  *stubMembers
	guard    *stubGuard
	payments *stubPayments
	notifier *recordingNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)
	tomorrow := now.AddDate(0, 0, 1)
	f := &fixture{
		ledger: &stubLedger{},
		sessions: &stubSessions{byID: map[uint64]*model.Session{
			7: {
				ID:         7,
				Date:       tomorrow.Format("2006-01-02"),
				StartTime:  "18:00",
				ClassType:  "YOGA",
				Title:      "Evening Yoga",
				Capacity:   12,
				PriceCents: 1500,
				IsActive:   true,
			},
		}},
		bookings: newStubBookings(),
		members:  &stubMembers{member: model.Member{HasUsedFreeSession: true, IsActive: true}},
		guard:    &stubGuard{},
		payments: &stubPayments{ref: "pay-123"},
		notifier: &recordingNotifier{},
		now:      now,
	}
	cfg := config.BookingConfig{
		PendingDeadline: 24 * time.Hour,
		FreeGrace:       time.Hour,
		ChargeTimeout:   10 * time.Second,
	}
	f.svc = NewBookingService(cfg, f.ledger, f.sessions, f.bookings, f.members, f.guard, f.payments, f.notifier)
	f.svc.now = func() time.Time { return now }
	return f
}

// ----- CreateBooking -----

func TestCreateBookingCashStaysPending(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.CreateBooking(context.Background(), 1, 7, model.PaymentCash, "", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, model.BookingPending, b.Status)
	require.Equal(t, uint32(1500), b.PriceCents)
	require.False(t, b.IsFreeSession)
	require.Equal(t, []uint64{7}, f.ledger.reserved)
	require.Empty(t, f.ledger.released)
	require.Empty(t, f.notifier.confirmed)
	require.Equal(t, 1, f.guard.checks)
}

func TestCreateBookingCardConfirms(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.CreateBooking(context.Background(), 1, 7, model.PaymentCard, "tok_visa", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, b.Status)
	require.NotNil(t, b.PaymentRef)
	require.Equal(t, "pay-123", *b.PaymentRef)
	require.Equal(t, 1, f.payments.charges)
	require.Len(t, f.notifier.confirmed, 1)
	require.Equal(t, b.ID, f.notifier.confirmed[0].BookingID)

	stored, err := f.bookings.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, stored.Status)
}

func TestCreateBookingCardFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	f.payments.err = errors.New("declined")

	_, err := f.svc.CreateBooking(context.Background(), 1, 7, model.PaymentCard, "tok_bad", "10.0.0.1")
	require.ErrorIs(t, err, ErrPaymentFailed)

	// Seat released and no booking row left behind.
	require.Equal(t, []uint64{7}, f.ledger.released)
	require.Empty(t, f.bookings.byID)
	require.Empty(t, f.notifier.confirmed)
}

func TestCreateBookingFreeSessionConfirmsWithoutPayment(t *testing.T) {
	f := newFixture(t)
	f.members.member.HasUsedFreeSession = false
	f.members.claimOK = true

	b, err := f.svc.CreateBooking(context.Background(), 1, 7, model.PaymentCard, "tok_visa", "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, b.Status)
	require.True(t, b.IsFreeSession)
	require.Equal(t, uint32(0), b.PriceCents)
	require.Zero(t, f.payments.charges)
	require.Equal(t, 1, f.members.claimed)
	require.Len(t, f.notifier.confirmed, 1)
}

func TestCreateBookingFreeClaimLostFallsBackToPaid(t *testing.T) {
	// Two concurrent requests from the same unused member: the CAS
	// loser must proceed as an ordinary paid booking.
	f := newFixture(t)
	f.members.member.HasUsedFreeSession = false
	f.members.claimOK = false

	b, err := f.svc.CreateBooking(context.Background(), 1, 7, model.PaymentCash, "", "10.0.0.1")
	require.NoError(t, err)
	require.False(t, b.IsFreeSession)
	require.Equal(t, model.BookingPending, b.Status)
	require.Equal(t, uint32(1500), b.PriceCents)
}

func TestCreateBookingSessionFull(t *testing.T) {
	f := newFixture(t)
	f.ledger.reserveErr = repository.ErrSessionFull

	_, err := f.svc.CreateBooking(context.Background(), 1, 7, model.PaymentCash, "", "10.0.0.1")
	require.ErrorIs(t, err, ErrSessionFull)
	require.Empty(t, f.bookings.byID)
	require.Zero(t, f.members.claimed)
}

func TestCreateBookingInactiveSession(t *testing.T) {
	f := newFixture(t)
	f.sessions.byID[7].IsActive = false

	_, err := f.svc.CreateBooking(context.Background(), 1, 7, model.PaymentCash, "", "10.0.0.1")
	require.ErrorIs(t, err, ErrSessionNotBookable)
	require.Empty(t, f.ledger.reserved)
}

func TestCreateBookingPastSession(t *testing.T) {
	f := newFixture(t)
	f.sessions.byID[7].Date = f.now.AddDate(0, 0, -1).Format("2006-01-02")

	_, err := f.svc.CreateBooking(context.Background(), 1, 7, model.PaymentCash, "", "10.0.0.1")
	require.ErrorIs(t, err, ErrSessionNotBookable)
	require.Empty(t, f.ledger.reserved)
}

func TestCreateBookingUnknownSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(context.Background(), 1, 999, model.PaymentCash, "", "10.0.0.1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateBookingGuardRejects(t *testing.T) {
	f := newFixture(t)
	f.guard.err = ErrTooManyActiveBookings

	_, err := f.svc.CreateBooking(context.Background(), 1, 7, model.PaymentCash, "", "10.0.0.1")
	require.ErrorIs(t, err, ErrTooManyActiveBookings)
	require.Empty(t, f.ledger.reserved)
}

func TestCreateBookingInvalidPaymentMethod(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateBooking(context.Background(), 1, 7, "IOU", "", "10.0.0.1")
	require.ErrorIs(t, err, ErrInvalidInput)
	require.Zero(t, f.guard.checks)
}

func TestCreateBookingRollsBackWhenCreateFails(t *testing.T) {
	f := newFixture(t)
	f.members.member.HasUsedFreeSession = false
	f.members.claimOK = true
	f.bookings.createErr = errors.New("db down")

	_, err := f.svc.CreateBooking(context.Background(), 1, 7, model.PaymentCash, "", "10.0.0.1")
	require.Error(t, err)
	// Both the seat and the free-session claim must be given back.
	require.Equal(t, []uint64{7}, f.ledger.released)
	require.Equal(t, 1, f.members.restored)
}

func TestCreateBookingCardChargeRacingCancel(t *testing.T) {
	// An admin cancel lands while the charge is in flight. The charge
	// settles anyway, so the confirmation compare-and-set loses and the
	// member must see the cancellation, never an unpersisted CONFIRMED.
	f := newFixture(t)
	f.payments.onCharge = func() {
		for _, b := range f.bookings.byID {
			b.Status = model.BookingCancelled
		}
	}

	_, err := f.svc.CreateBooking(context.Background(), 1, 7, model.PaymentCard, "tok_visa", "10.0.0.1")
	require.ErrorIs(t, err, ErrAlreadyCancelled)
	require.Empty(t, f.notifier.confirmed)
	// The cancel that won the status transition owns the seat release.
	require.Empty(t, f.ledger.released)

	stored, getErr := f.bookings.GetByID(context.Background(), 1)
	require.NoError(t, getErr)
	require.Equal(t, model.BookingCancelled, stored.Status)
	require.Nil(t, stored.PaymentRef)
}

// ----- CancelBooking -----

func seedBooking(f *fixture, status string, free bool) *model.Booking {
	b := &model.Booking{
		MemberID:      1,
		SessionID:     7,
		Status:        status,
		PaymentMethod: model.PaymentCash,
		IsFreeSession: free,
		PriceCents:    1500,
	}
	_ = f.bookings.Create(context.Background(), b)
	return b
}

func TestCancelBookingReleasesSeat(t *testing.T) {
	f := newFixture(t)
	b := seedBooking(f, model.BookingConfirmed, false)

	err := f.svc.CancelBooking(context.Background(), b.ID, 1, false, f.now)
	require.NoError(t, err)
	require.Equal(t, []uint64{7}, f.ledger.released)
	require.Len(t, f.notifier.cancelled, 1)

	stored, _ := f.bookings.GetByID(context.Background(), b.ID)
	require.Equal(t, model.BookingCancelled, stored.Status)
}

func TestCancelBookingTwiceReleasesOnce(t *testing.T) {
	f := newFixture(t)
	b := seedBooking(f, model.BookingPending, false)

	require.NoError(t, f.svc.CancelBooking(context.Background(), b.ID, 1, false, f.now))
	err := f.svc.CancelBooking(context.Background(), b.ID, 1, false, f.now)
	require.ErrorIs(t, err, ErrAlreadyCancelled)
	require.Len(t, f.ledger.released, 1)
}

func TestCancelBookingForbiddenForOtherMember(t *testing.T) {
	f := newFixture(t)
	b := seedBooking(f, model.BookingConfirmed, false)

	err := f.svc.CancelBooking(context.Background(), b.ID, 2, false, f.now)
	require.ErrorIs(t, err, ErrForbidden)
	require.Empty(t, f.ledger.released)
}

func TestCancelBookingAdminOverridesOwnership(t *testing.T) {
	f := newFixture(t)
	b := seedBooking(f, model.BookingConfirmed, false)

	err := f.svc.CancelBooking(context.Background(), b.ID, 99, true, f.now)
	require.NoError(t, err)
	require.Equal(t, []uint64{7}, f.ledger.released)
}

func TestCancelBookingNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.svc.CancelBooking(context.Background(), 404, 1, false, f.now)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCancelFreeBookingOutsideGraceRestoresEligibility(t *testing.T) {
	f := newFixture(t)
	b := seedBooking(f, model.BookingConfirmed, true)

	// Session starts tomorrow 18:00, grace is one hour: well outside.
	err := f.svc.CancelBooking(context.Background(), b.ID, 1, false, f.now)
	require.NoError(t, err)
	require.Equal(t, 1, f.members.restored)
}

func TestCancelFreeBookingInsideGraceForfeits(t *testing.T) {
	f := newFixture(t)
	b := seedBooking(f, model.BookingConfirmed, true)

	// 30 minutes before start.
	start := f.sessions.byID[7].StartsAt()
	err := f.svc.CancelBooking(context.Background(), b.ID, 1, false, start.Add(-30*time.Minute))
	require.NoError(t, err)
	// Seat still comes back, eligibility does not.
	require.Equal(t, []uint64{7}, f.ledger.released)
	require.Zero(t, f.members.restored)
}

func TestCancelBookingLostRaceToSweeper(t *testing.T) {
	f := newFixture(t)
	b := seedBooking(f, model.BookingPending, false)

	// Sweeper cancels between our read and our CAS; the sweeper's
	// transition owns the seat release.
	f.bookings.casFailuresLeft = 1
	f.bookings.onCASFail = func() {
		f.bookings.byID[b.ID].Status = model.BookingCancelled
	}

	err := f.svc.CancelBooking(context.Background(), b.ID, 1, false, f.now)
	require.ErrorIs(t, err, ErrAlreadyCancelled)
	require.Empty(t, f.ledger.released)
}

func TestCancelBookingRetriesAfterConcurrentConfirm(t *testing.T) {
	// A pending cash booking confirmed by staff between the cancel's
	// read and its compare-and-set: the cancel retries from the fresh
	// CONFIRMED status and still wins.
	f := newFixture(t)
	b := seedBooking(f, model.BookingPending, false)
	f.bookings.casFailuresLeft = 1
	f.bookings.onCASFail = func() {
		f.bookings.byID[b.ID].Status = model.BookingConfirmed
	}

	err := f.svc.CancelBooking(context.Background(), b.ID, 1, false, f.now)
	require.NoError(t, err)
	require.Len(t, f.ledger.released, 1)
	stored, _ := f.bookings.GetByID(context.Background(), b.ID)
	require.Equal(t, model.BookingCancelled, stored.Status)
}

// ----- ConfirmCashBooking -----

func TestConfirmCashBooking(t *testing.T) {
	f := newFixture(t)
	b := seedBooking(f, model.BookingPending, false)

	require.NoError(t, f.svc.ConfirmCashBooking(context.Background(), b.ID))
	stored, _ := f.bookings.GetByID(context.Background(), b.ID)
	require.Equal(t, model.BookingConfirmed, stored.Status)
	require.Len(t, f.notifier.confirmed, 1)
}

func TestConfirmCashBookingIdempotent(t *testing.T) {
	f := newFixture(t)
	b := seedBooking(f, model.BookingConfirmed, false)

	require.NoError(t, f.svc.ConfirmCashBooking(context.Background(), b.ID))
	require.Empty(t, f.notifier.confirmed)
}

func TestConfirmCashBookingAlreadyCancelled(t *testing.T) {
	f := newFixture(t)
	b := seedBooking(f, model.BookingCancelled, false)

	err := f.svc.ConfirmCashBooking(context.Background(), b.ID)
	require.ErrorIs(t, err, ErrAlreadyCancelled)
}

func TestConfirmCashBookingLostRaceToSweeper(t *testing.T) {
	f := newFixture(t)
	b := seedBooking(f, model.BookingPending, false)
	f.bookings.casFailuresLeft = 1
	f.bookings.onCASFail = func() {
		f.bookings.byID[b.ID].Status = model.BookingCancelled
	}

	err := f.svc.ConfirmCashBooking(context.Background(), b.ID)
	require.ErrorIs(t, err, ErrAlreadyCancelled)
	require.Empty(t, f.notifier.confirmed)
}

func TestConfirmCashBookingNotFound(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ConfirmCashBooking(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmCashBookingRejectsCardBooking(t *testing.T) {
	// Card bookings confirm through their charge; the desk flow must
	// not be able to short-circuit one past the payment step.
	f := newFixture(t)
	b := seedBooking(f, model.BookingPending, false)
	f.bookings.byID[b.ID].PaymentMethod = model.PaymentCard

	err := f.svc.ConfirmCashBooking(context.Background(), b.ID)
	require.ErrorIs(t, err, ErrInvalidInput)
	stored, _ := f.bookings.GetByID(context.Background(), b.ID)
	require.Equal(t, model.BookingPending, stored.Status)
}

// ----- concurrency -----

// newConcurrentService rebuilds the fixture's service around a seat
// ledger with a real budget.
func newConcurrentService(f *fixture, ledger *countingLedger) *BookingService {
	cfg := config.BookingConfig{
		PendingDeadline: 24 * time.Hour,
		FreeGrace:       time.Hour,
		ChargeTimeout:   10 * time.Second,
	}
	svc := NewBookingService(cfg, ledger, f.sessions, f.bookings, f.members, f.guard, f.payments, f.notifier)
	svc.now = func() time.Time { return f.now }
	return svc
}

func TestCreateBookingConcurrentNeverOversells(t *testing.T) {
	// Ten members race for three seats: exactly three bookings exist
	// afterwards and the rest see ErrSessionFull.
	f := newFixture(t)
	ledger := &countingLedger{free: 3}
	svc := newConcurrentService(f, ledger)

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(context.Background(), uint64(i+1), 7, model.PaymentCash, "", "10.0.0.1")
		}(i)
	}
	wg.Wait()

	ok, full := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrSessionFull):
			full++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 3, ok)
	require.Equal(t, n-3, full)
	require.Zero(t, ledger.free)
	require.Zero(t, ledger.released)
	require.Len(t, f.bookings.byID, 3)
}

func TestCreateBookingLastSeatSurvivesSlowCharge(t *testing.T) {
	// Two card bookings race for the last seat. The loser fails at the
	// reserve even while the winner's charge is still in flight; the
	// seat is never released in between.
	f := newFixture(t)
	f.payments.delay = 20 * time.Millisecond
	ledger := &countingLedger{free: 1}
	svc := newConcurrentService(f, ledger)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateBooking(context.Background(), uint64(i+1), 7, model.PaymentCard, "tok_visa", "10.0.0.1")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			require.ErrorIs(t, err, ErrSessionFull)
		}
	}
	require.Equal(t, 1, winners)
	require.Equal(t, 1, f.payments.charges)
	require.Zero(t, ledger.free)
	require.Zero(t, ledger.released)
	require.Len(t, f.notifier.confirmed, 1)
	require.Len(t, f.bookings.byID, 1)
	for _, b := range f.bookings.byID {
		require.Equal(t, model.BookingConfirmed, b.Status)
	}
}
