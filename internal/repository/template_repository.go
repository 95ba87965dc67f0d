// Package repository contains data access logic for the booking domain.
// This file covers class templates: the recurring weekly definitions
// the generator expands into concrete sessions. Templates are only
// ever mutated by administrative action.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/soleilfit/class-booking/internal/model"
)

// TemplateRepo manages persistence for class templates.
type TemplateRepo struct {
	db *sql.DB
}

// NewTemplateRepo constructs a TemplateRepo with the given DB handle.
func NewTemplateRepo(db *sql.DB) *TemplateRepo {
	return &TemplateRepo{db: db}
}

const templateCols = `id, day_of_week, start_time, duration_min, class_type, title, price_cents, capacity, is_active, created_at, updated_at`

func scanTemplate(row interface{ Scan(...any) error }, t *model.ClassTemplate) error {
	return row.Scan(
		&t.ID, &t.DayOfWeek, &t.StartTime, &t.DurationMin, &t.ClassType,
		&t.Title, &t.PriceCents, &t.Capacity, &t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
}

// Create inserts a new template and assigns the generated ID back to
// the struct.  DB-default fields (is_active, timestamps) are populated
// by re-selecting the inserted row.
func (r *TemplateRepo) Create(ctx context.Context, t *model.ClassTemplate) error {
	const q = `INSERT INTO class_templates (day_of_week, start_time, duration_min, class_type, title, price_cents, capacity)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.DayOfWeek, t.StartTime, t.DurationMin, t.ClassType, t.Title, t.PriceCents, t.Capacity)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	const sel = `SELECT ` + templateCols + ` FROM class_templates WHERE id = ?`
	return scanTemplate(r.db.QueryRowContext(ctx, sel, t.ID), t)
}

// GetByID retrieves a template by its ID.  It returns
// ErrTemplateNotFound when no matching row exists.
func (r *TemplateRepo) GetByID(ctx context.Context, id uint64) (*model.ClassTemplate, error) {
	const q = `SELECT ` + templateCols + ` FROM class_templates WHERE id = ?`
	var t model.ClassTemplate
	if err := scanTemplate(r.db.QueryRowContext(ctx, q, id), &t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

// ListActive returns all active templates ordered by weekday and start
// time.  The generator iterates this list on every run.
func (r *TemplateRepo) ListActive(ctx context.Context) ([]model.ClassTemplate, error) {
	const q = `SELECT ` + templateCols + ` FROM class_templates
               WHERE is_active = 1
               ORDER BY day_of_week ASC, start_time ASC`
	return r.list(ctx, q)
}

// ListAll returns every template regardless of active flag, for the
// admin listing.
func (r *TemplateRepo) ListAll(ctx context.Context) ([]model.ClassTemplate, error) {
	const q = `SELECT ` + templateCols + ` FROM class_templates
               ORDER BY day_of_week ASC, start_time ASC`
	return r.list(ctx, q)
}

func (r *TemplateRepo) list(ctx context.Context, q string) ([]model.ClassTemplate, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make([]model.ClassTemplate, 0)
	for rows.Next() {
		var t model.ClassTemplate
		if err := scanTemplate(rows, &t); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Update rewrites a template's editable attributes.  It only performs
// the UPDATE when at least one field differs; otherwise ErrNoChange is
// returned.  When the row does not exist, ErrTemplateNotFound is
// returned.
func (r *TemplateRepo) Update(ctx context.Context, t *model.ClassTemplate) error {
	const q = `UPDATE class_templates
               SET day_of_week = ?, start_time = ?, duration_min = ?, class_type = ?, title = ?, price_cents = ?, capacity = ?, updated_at = CURRENT_TIMESTAMP
               WHERE id = ?
                 AND (day_of_week <> ? OR start_time <> ? OR duration_min <> ? OR class_type <> ? OR title <> ? OR price_cents <> ? OR capacity <> ?)`
	res, err := r.db.ExecContext(ctx, q,
		t.DayOfWeek, t.StartTime, t.DurationMin, t.ClassType, t.Title, t.PriceCents, t.Capacity,
		t.ID,
		t.DayOfWeek, t.StartTime, t.DurationMin, t.ClassType, t.Title, t.PriceCents, t.Capacity,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Distinguish "not found" from "no change".
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM class_templates WHERE id = ? LIMIT 1`, t.ID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTemplateNotFound
		}
		return err
	}
	return ErrNoChange
}

// SetActive toggles a template's active flag.  Deactivating a template
// stops future generation; already-materialized sessions are untouched.
func (r *TemplateRepo) SetActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE class_templates SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Either the row is missing or the flag already has this value.
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM class_templates WHERE id = ? LIMIT 1`, id).Scan(&one); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrTemplateNotFound
			}
			return err
		}
	}
	return nil
}

// Delete removes a template.  Generated sessions keep their nullable
// template reference via ON DELETE SET NULL, so deletion never cascades
// into the session or booking tables.
func (r *TemplateRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM class_templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
