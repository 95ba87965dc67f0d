package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/soleilfit/class-booking/internal/model"
)

// BookingRepo provides CRUD operations and status transitions for
// bookings. Status changes go through UpdateStatus, a compare-and-set
// on the current status: the sweeper and an explicit cancellation can
// race for the same booking, and only the caller that wins the
// transition performs the capacity release.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingCols = `id, member_id, session_id, status, payment_method, payment_ref, is_free_session, price_cents, created_at, updated_at`

func scanBooking(row interface{ Scan(...any) error }, b *model.Booking) error {
	var payRef sql.NullString
	err := row.Scan(
		&b.ID, &b.MemberID, &b.SessionID, &b.Status, &b.PaymentMethod,
		&payRef, &b.IsFreeSession, &b.PriceCents, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if payRef.Valid {
		ref := payRef.String
		b.PaymentRef = &ref
	}
	return nil
}

// Create inserts a new booking and populates the generated ID and
// DB-default fields on the provided struct.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (member_id, session_id, status, payment_method, is_free_session, price_cents)
               VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q,
		b.MemberID, b.SessionID, b.Status, b.PaymentMethod, b.IsFreeSession, b.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	const sel = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ?`
	return scanBooking(r.db.QueryRowContext(ctx, sel, b.ID), b)
}

// GetByID retrieves a booking by its ID.  It returns
// ErrBookingNotFound when no matching row exists.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings WHERE id = ?`
	var b model.Booking
	if err := scanBooking(r.db.QueryRowContext(ctx, q, id), &b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// UpdateStatus performs a compare-and-set transition from -> to on a
// single booking.  It reports whether this caller won the transition;
// false means the row was missing or its status had already moved on.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, from, to string) (bool, error) {
	const q = `UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, to, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ConfirmWithPaymentRef moves a booking from PENDING to CONFIRMED and
// records the settled charge reference in one statement.
func (r *BookingRepo) ConfirmWithPaymentRef(ctx context.Context, id uint64, ref string) (bool, error) {
	const q = `UPDATE bookings
               SET status = ?, payment_ref = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, q, model.BookingConfirmed, ref, id, model.BookingPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a booking row outright.  It is used only to revert
// the card path when the external charge fails, before the booking was
// ever visible to the member; every other terminal state keeps its row
// for audit.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	return err
}

// CountActiveFuture counts a member's non-terminal bookings whose
// session date is today or later.  The abuse guard compares this
// against the per-member cap.
func (r *BookingRepo) CountActiveFuture(ctx context.Context, memberID uint64, today time.Time) (int, error) {
	const q = `SELECT COUNT(*)
               FROM bookings b
               JOIN sessions s ON s.id = b.session_id
               WHERE b.member_id = ? AND b.status <> ? AND s.session_date >= ?`
	var n int
	err := r.db.QueryRowContext(ctx, q, memberID, model.BookingCancelled, today.Format("2006-01-02")).Scan(&n)
	return n, err
}

// ListStalePending returns bookings still PENDING whose creation
// timestamp is older than the cutoff.  The sweeper reclaims these one
// by one; ordering by creation time keeps repeated interrupted sweeps
// making forward progress.
func (r *BookingRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
               WHERE status = ? AND created_at < ?
               ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, model.BookingPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var stale []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		stale = append(stale, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stale, nil
}

// BookingDetail pairs a booking with the session information members
// care about when reviewing their reservations.
type BookingDetail struct {
	ID            uint64  `json:"id"`
	SessionID     uint64  `json:"session_id"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"payment_method"`
	IsFreeSession bool    `json:"is_free_session"`
	PriceCents    uint32  `json:"price_cents"`
	SessionDate   string  `json:"session_date"`
	StartTime     string  `json:"start_time"`
	ClassType     string  `json:"class_type"`
	SessionTitle  string  `json:"session_title"`
	CreatedAt     string  `json:"created_at"`
	PaymentRef    *string `json:"payment_ref,omitempty"`
}

func scanBookingDetail(row interface{ Scan(...any) error }, d *BookingDetail) error {
	// session_date is a DATE column delivered as time.Time under
	// parseTime=true.
	var sessionDate, createdAt time.Time
	var payRef sql.NullString
	if err := row.Scan(
		&d.ID, &d.SessionID, &d.Status, &d.PaymentMethod, &d.IsFreeSession, &d.PriceCents,
		&sessionDate, &d.StartTime, &d.ClassType, &d.SessionTitle, &createdAt, &payRef,
	); err != nil {
		return err
	}
	d.SessionDate = sessionDate.Format("2006-01-02")
	d.CreatedAt = createdAt.Format(time.RFC3339)
	if payRef.Valid {
		ref := payRef.String
		d.PaymentRef = &ref
	}
	return nil
}

// ListByMember returns all bookings for the given member joined with
// their session details, newest first.  When no bookings exist an
// empty slice is returned.
func (r *BookingRepo) ListByMember(ctx context.Context, memberID uint64) ([]BookingDetail, error) {
	const q = `SELECT b.id, b.session_id, b.status, b.payment_method, b.is_free_session, b.price_cents,
                      s.session_date, s.start_time, s.class_type, s.title, b.created_at, b.payment_ref
               FROM bookings b
               JOIN sessions s ON s.id = b.session_id
               WHERE b.member_id = ?
               ORDER BY b.created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	details := make([]BookingDetail, 0)
	for rows.Next() {
		var d BookingDetail
		if err := scanBookingDetail(rows, &d); err != nil {
			return nil, err
		}
		details = append(details, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return details, nil
}

// ListBySession returns all bookings for one session, newest first.
// Used by staff to review a class roster and confirm cash bookings.
func (r *BookingRepo) ListBySession(ctx context.Context, sessionID uint64) ([]model.Booking, error) {
	const q = `SELECT ` + bookingCols + ` FROM bookings
               WHERE session_id = ?
               ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
