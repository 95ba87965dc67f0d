// This file holds the session store and the capacity ledger. The
// ledger is the only writer of sessions.booked_count: both TryReserve
// and Release are single conditional UPDATE statements, so the
// check-and-increment is atomic at the database and two requests racing
// for the last seat serialize on the row — exactly one of them wins.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/soleilfit/class-booking/internal/model"
)

// SessionRepo manages persistence for sessions and owns all mutations
// of the booked counter.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo constructs a SessionRepo with the given DB handle.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionCols = `id, template_id, session_date, start_time, duration_min, class_type, title, capacity, booked_count, price_cents, is_active, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }, s *model.Session) error {
	var templateID sql.NullInt64
	// session_date is a DATE column; with parseTime=true the driver
	// hands it over as time.Time, so it must be scanned as one and
	// formatted back to the model's "YYYY-MM-DD" form.
	var date time.Time
	err := row.Scan(
		&s.ID, &templateID, &date, &s.StartTime, &s.DurationMin, &s.ClassType,
		&s.Title, &s.Capacity, &s.BookedCount, &s.PriceCents, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return err
	}
	s.Date = date.Format("2006-01-02")
	if templateID.Valid {
		tid := uint64(templateID.Int64)
		s.TemplateID = &tid
	}
	return nil
}

// Create inserts a new session with booked_count zero and populates
// DB-default fields by re-selecting the inserted row.  TemplateID may
// be nil for ad-hoc sessions.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `INSERT INTO sessions (template_id, session_date, start_time, duration_min, class_type, title, capacity, price_cents)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var templateID any
	if s.TemplateID != nil {
		templateID = *s.TemplateID
	}
	res, err := r.db.ExecContext(ctx, q,
		templateID, s.Date, s.StartTime, s.DurationMin, s.ClassType, s.Title, s.Capacity, s.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const sel = `SELECT ` + sessionCols + ` FROM sessions WHERE id = ?`
	return scanSession(r.db.QueryRowContext(ctx, sel, s.ID), s)
}

// GetByID retrieves a session by its ID.  It returns
// ErrSessionNotFound when no matching row exists.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions WHERE id = ?`
	var s model.Session
	if err := scanSession(r.db.QueryRowContext(ctx, q, id), &s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ListUpcoming returns active sessions dated within [from, from+days],
// ordered by date and start time.  It backs the public browse endpoint.
func (r *SessionRepo) ListUpcoming(ctx context.Context, from time.Time, days int) ([]model.Session, error) {
	const q = `SELECT ` + sessionCols + ` FROM sessions
               WHERE is_active = 1 AND session_date BETWEEN ? AND ?
               ORDER BY session_date ASC, start_time ASC`
	lo := from.Format("2006-01-02")
	hi := from.AddDate(0, 0, days).Format("2006-01-02")
	rows, err := r.db.QueryContext(ctx, q, lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.Session, 0)
	for rows.Next() {
		var s model.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ExistingTemplateDates returns the set of (template_id, date) pairs
// already materialized within [from, to].  The generator diffs the
// template expansion against this set so that re-running it never
// creates duplicates.  Keys use the "id|YYYY-MM-DD" format produced by
// model.TemplateDateKey.
func (r *SessionRepo) ExistingTemplateDates(ctx context.Context, from, to time.Time) (map[string]struct{}, error) {
	const q = `SELECT template_id, session_date FROM sessions
               WHERE template_id IS NOT NULL AND session_date BETWEEN ? AND ?`
	rows, err := r.db.QueryContext(ctx, q, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := make(map[string]struct{})
	for rows.Next() {
		var tid uint64
		var date time.Time // DATE arrives as time.Time under parseTime=true
		if err := rows.Scan(&tid, &date); err != nil {
			return nil, err
		}
		keys[model.TemplateDateKey(tid, date.Format("2006-01-02"))] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// TryReserve atomically increments the booked counter iff a seat is
// still available.  It returns ErrSessionFull when the session is at
// capacity or inactive, and ErrSessionNotFound when the session does
// not exist.  The condition and the increment execute as one statement;
// the count is never read back into application code first.
func (r *SessionRepo) TryReserve(ctx context.Context, id uint64) error {
	const q = `UPDATE sessions
               SET booked_count = booked_count + 1, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND is_active = 1 AND booked_count < capacity`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ? LIMIT 1`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		return err
	}
	return ErrSessionFull
}

// Release decrements the booked counter, floored at zero.  A release
// with no matching reserve returns ErrNotReserved instead of driving
// the counter negative; callers log it as a logic error.
func (r *SessionRepo) Release(ctx context.Context, id uint64) error {
	const q = `UPDATE sessions
               SET booked_count = booked_count - 1, updated_at = CURRENT_TIMESTAMP
               WHERE id = ? AND booked_count > 0`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ? LIMIT 1`, id).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSessionNotFound
		}
		return err
	}
	return ErrNotReserved
}

// SetActive toggles a session's active flag.  Deactivating a session
// stops new bookings; existing bookings are left to their own
// lifecycle.
func (r *SessionRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ? LIMIT 1`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrSessionNotFound
			}
			return err
		}
	}
	return nil
}
