package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/soleilfit/class-booking/internal/config"
	"github.com/soleilfit/class-booking/internal/model"
	"github.com/soleilfit/class-booking/internal/queue"
	"github.com/soleilfit/class-booking/internal/repository"
)

// capacityLedger is the seat accounting surface of the session store.
// TryReserve must be atomic with respect to Release for the same
// session; both are single conditional UPDATEs in the repository
// implementation.
type capacityLedger interface {
	TryReserve(ctx context.Context, sessionID uint64) error
	Release(ctx context.Context, sessionID uint64) error
}

type sessionReader interface {
	GetByID(ctx context.Context, id uint64) (*model.Session, error)
}

type bookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id uint64, from, to string) (bool, error)
	ConfirmWithPaymentRef(ctx context.Context, id uint64, ref string) (bool, error)
	Delete(ctx context.Context, id uint64) error
}

type memberStore interface {
	GetByID(ctx context.Context, id uint64) (model.Member, error)
	ClaimFreeSession(ctx context.Context, id uint64) (bool, error)
	RestoreFreeSession(ctx context.Context, id uint64) error
}

type abuseGuard interface {
	Check(ctx context.Context, memberID uint64, origin string, now time.Time) error
}

// BookingService drives the booking lifecycle:
//
//	PENDING -> CONFIRMED (terminal)
//	PENDING -> CANCELLED (terminal)
//	CONFIRMED -> CANCELLED (terminal)
//
// Capacity is reserved exactly once per booking that reaches
// CONFIRMED and released exactly once when it is cancelled. All
// mutations of Session.BookedCount go through the ledger and all
// mutations of Member.HasUsedFreeSession go through the member store's
// compare-and-set helpers; no other code path writes either.
type BookingService struct {
	cfg      config.BookingConfig
	ledger   capacityLedger
	sessions sessionReader
	bookings bookingStore
	members  memberStore
	guard    abuseGuard
	payments PaymentProvider
	notifier Notifier
	now      func() time.Time
}

// NewBookingService wires the state machine with its collaborators.
// guard and notifier must be non-nil; pass NopNotifier when the broker
// is disabled.
func NewBookingService(
	cfg config.BookingConfig,
	ledger capacityLedger,
	sessions sessionReader,
	bookings bookingStore,
	members memberStore,
	guard abuseGuard,
	payments PaymentProvider,
	notifier Notifier,
) *BookingService {
	return &BookingService{
		cfg:      cfg,
		ledger:   ledger,
		sessions: sessions,
		bookings: bookings,
		members:  members,
		guard:    guard,
		payments: payments,
		notifier: notifier,
		now:      time.Now,
	}
}

// CreateBooking reserves one seat in the session for the member and
// creates the booking that tracks it.
//
// The seat is reserved before anything else: free sessions confirm
// immediately, cash bookings stay PENDING until staff confirm them,
// and card bookings stay PENDING only for the duration of the
// time-bounded charge call. Any failure after the reserve releases the
// seat again, so callers never observe a half-applied booking: a
// failed card charge leaves no row behind and the member can retry at
// once.
func (s *BookingService) CreateBooking(ctx context.Context, memberID, sessionID uint64, paymentMethod, paymentToken, origin string) (*model.Booking, error) {
	if memberID == 0 || sessionID == 0 {
		return nil, ErrInvalidInput
	}
	if paymentMethod != model.PaymentCard && paymentMethod != model.PaymentCash {
		return nil, ErrInvalidInput
	}
	now := s.now()

	if err := s.guard.Check(ctx, memberID, origin, now); err != nil {
		return nil, err
	}

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !sess.IsActive || !sess.StartsAt().After(now) {
		return nil, ErrSessionNotBookable
	}

	member, err := s.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}

	// Reserve first; every path below either keeps the seat via a
	// surviving booking row or gives it back.
	if err := s.ledger.TryReserve(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionFull) {
			return nil, ErrSessionFull
		}
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !member.HasUsedFreeSession {
		claimed, err := s.members.ClaimFreeSession(ctx, memberID)
		if err != nil {
			s.release(ctx, sessionID)
			return nil, err
		}
		if claimed {
			return s.createFreeBooking(ctx, memberID, sess, paymentMethod)
		}
		// Lost the claim to a concurrent request by the same member;
		// continue as an ordinary paid booking.
	}

	b := &model.Booking{
		MemberID:      memberID,
		SessionID:     sessionID,
		Status:        model.BookingPending,
		PaymentMethod: paymentMethod,
		PriceCents:    sess.PriceCents,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		s.release(ctx, sessionID)
		return nil, err
	}

	if paymentMethod == model.PaymentCash {
		// Awaits staff confirmation; the sweeper reclaims it if that
		// never happens.
		return b, nil
	}

	ref, err := s.charge(ctx, sess.PriceCents, paymentToken)
	if err != nil {
		// Roll the whole booking back: no dangling row, no held seat.
		if delErr := s.bookings.Delete(ctx, b.ID); delErr != nil {
			log.Printf("booking: rollback delete of booking %d failed: %v", b.ID, delErr)
		}
		s.release(ctx, sessionID)
		log.Printf("booking: card charge for member %d session %d failed: %v", memberID, sessionID, err)
		return nil, ErrPaymentFailed
	}
	won, err := s.bookings.ConfirmWithPaymentRef(ctx, b.ID, ref)
	if err != nil {
		return nil, err
	}
	if !won {
		// The booking left PENDING while the charge was in flight,
		// which only a concurrent admin cancel (or the sweeper) can
		// cause. The charge has settled, so record the ref for a
		// manual refund and report the real state instead of a
		// confirmation that was never persisted.
		log.Printf("booking: charge %s settled for booking %d but status moved; manual refund needed", ref, b.ID)
		fresh, err := s.bookings.GetByID(ctx, b.ID)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return nil, ErrAlreadyCancelled
			}
			return nil, err
		}
		if fresh.Status == model.BookingCancelled {
			return nil, ErrAlreadyCancelled
		}
		return fresh, nil
	}
	b.Status = model.BookingConfirmed
	b.PaymentRef = &ref
	s.notifier.BookingConfirmed(ctx, s.event(b, sess))
	return b, nil
}

// createFreeBooking finishes the free-session path: the seat is
// already reserved and the member's flag already claimed, so the
// booking confirms immediately with no payment step.
func (s *BookingService) createFreeBooking(ctx context.Context, memberID uint64, sess *model.Session, paymentMethod string) (*model.Booking, error) {
	b := &model.Booking{
		MemberID:      memberID,
		SessionID:     sess.ID,
		Status:        model.BookingConfirmed,
		PaymentMethod: paymentMethod,
		IsFreeSession: true,
		PriceCents:    0,
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		// Give both the seat and the free session back.
		s.release(ctx, sess.ID)
		if restoreErr := s.members.RestoreFreeSession(ctx, memberID); restoreErr != nil {
			log.Printf("booking: restore free session for member %d failed: %v", memberID, restoreErr)
		}
		return nil, err
	}
	s.notifier.BookingConfirmed(ctx, s.event(b, sess))
	return b, nil
}

// charge invokes the payment provider under the configured timeout.
func (s *BookingService) charge(ctx context.Context, amountCents uint32, token string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ChargeTimeout)
	defer cancel()
	return s.payments.Charge(ctx, amountCents, token, uuid.NewString())
}

// CancelBooking cancels a booking on behalf of the acting member.
// Admins bypass the ownership check. The capacity release happens
// exactly once, gated on winning the status compare-and-set, so a
// cancel racing the sweeper (or a duplicate cancel request) cannot
// double-release.
//
// Free-session restoration: when the cancelled booking consumed the
// member's free session and now is more than the grace window before
// the session start, eligibility is restored; cancelling inside the
// window forfeits it even though the seat is still released.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID uint64, isAdmin bool, now time.Time) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return ErrNotFound
		}
		return err
	}
	if !isAdmin && b.MemberID != actorID {
		return ErrForbidden
	}
	if b.Status == model.BookingCancelled {
		return ErrAlreadyCancelled
	}

	won, err := s.bookings.UpdateStatus(ctx, b.ID, b.Status, model.BookingCancelled)
	if err != nil {
		return err
	}
	if !won {
		// The status moved while we looked: either a concurrent cancel
		// (or the sweeper) got there first, or a pending booking was
		// just confirmed by staff. Retry once from the fresh status.
		fresh, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return ErrNotFound
			}
			return err
		}
		if fresh.Status == model.BookingCancelled {
			return ErrAlreadyCancelled
		}
		won, err = s.bookings.UpdateStatus(ctx, fresh.ID, fresh.Status, model.BookingCancelled)
		if err != nil {
			return err
		}
		if !won {
			return ErrAlreadyCancelled
		}
	}

	s.release(ctx, b.SessionID)

	if b.IsFreeSession {
		sess, err := s.sessions.GetByID(ctx, b.SessionID)
		if err == nil && sess.StartsAt().Sub(now) > s.cfg.FreeGrace {
			if err := s.members.RestoreFreeSession(ctx, b.MemberID); err != nil {
				log.Printf("booking: restore free session for member %d failed: %v", b.MemberID, err)
			}
		} else if err != nil {
			log.Printf("booking: load session %d for free restore failed: %v", b.SessionID, err)
		}
	}

	ev := s.event(b, nil)
	s.notifier.BookingCancelled(ctx, ev)
	return nil
}

// ConfirmCashBooking moves a PENDING cash booking to CONFIRMED without
// a payment call. Staff call it after taking payment at the desk. Only
// cash bookings qualify; card bookings confirm through their charge.
// Confirming an already-confirmed booking is a no-op; confirming a
// cancelled one reports ErrAlreadyCancelled.
func (s *BookingService) ConfirmCashBooking(ctx context.Context, bookingID uint64) error {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return ErrNotFound
		}
		return err
	}
	if b.PaymentMethod != model.PaymentCash {
		return ErrInvalidInput
	}
	switch b.Status {
	case model.BookingConfirmed:
		return nil
	case model.BookingCancelled:
		return ErrAlreadyCancelled
	}
	won, err := s.bookings.UpdateStatus(ctx, b.ID, model.BookingPending, model.BookingConfirmed)
	if err != nil {
		return err
	}
	if !won {
		// Lost to the sweeper or a concurrent cancel.
		fresh, err := s.bookings.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if fresh.Status == model.BookingCancelled {
			return ErrAlreadyCancelled
		}
		return nil
	}
	b.Status = model.BookingConfirmed
	sess, err := s.sessions.GetByID(ctx, b.SessionID)
	if err != nil {
		sess = nil
	}
	s.notifier.BookingConfirmed(ctx, s.event(b, sess))
	return nil
}

// release gives a seat back, logging imbalances instead of failing the
// surrounding operation.
func (s *BookingService) release(ctx context.Context, sessionID uint64) {
	if err := s.ledger.Release(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotReserved) {
			log.Printf("booking: release found counter at zero for session %d", sessionID)
			return
		}
		log.Printf("booking: release session %d failed: %v", sessionID, err)
	}
}

// event builds the notification payload for a booking. sess may be nil
// when the session details are not at hand.
func (s *BookingService) event(b *model.Booking, sess *model.Session) queue.BookingEvent {
	ev := queue.BookingEvent{
		EventID:       uuid.NewString(),
		BookingID:     b.ID,
		MemberID:      b.MemberID,
		SessionID:     b.SessionID,
		PaymentMethod: b.PaymentMethod,
		IsFreeSession: b.IsFreeSession,
		PriceCents:    b.PriceCents,
		OccurredAt:    s.now().UTC().Format(time.RFC3339),
	}
	if sess != nil {
		ev.SessionTitle = sess.Title
		ev.ClassType = sess.ClassType
		ev.SessionDate = sess.Date
		ev.StartTime = sess.StartTime
	}
	return ev
}
