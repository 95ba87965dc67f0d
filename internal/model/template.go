package model

import (
	"strconv"
	"time"
)

// ClassTemplate describes a recurring weekly class slot from which
// concrete sessions are generated.  Templates are created and edited
// by administrators only.  Deactivating a template stops future
// generation but never touches sessions that were already
// materialized from it.
//
// Fields:
//  ID          – primary key identifier.
//  DayOfWeek   – weekday of the slot, 0 (Sunday) through 6 (Saturday).
//  StartTime   – local start time in "HH:MM" format.
//  DurationMin – length of the class in minutes.
//  ClassType   – category of the class (e.g. YOGA, HIIT, SPIN).
//  Title       – display name of the class.
//  PriceCents  – price copied onto generated sessions, in cents.
//  Capacity    – seat capacity copied onto generated sessions.
//  IsActive    – whether the template participates in generation.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type ClassTemplate struct {
	ID          uint64    // class_templates.id
	DayOfWeek   uint8     // class_templates.day_of_week (0-6)
	StartTime   string    // class_templates.start_time ("HH:MM")
	DurationMin uint32    // class_templates.duration_min
	ClassType   string    // class_templates.class_type
	Title       string    // class_templates.title
	PriceCents  uint32    // class_templates.price_cents
	Capacity    uint32    // class_templates.capacity
	IsActive    bool      // class_templates.is_active
	CreatedAt   time.Time // class_templates.created_at
	UpdatedAt   time.Time // class_templates.updated_at
}

// TemplateDateKey identifies one materialized (template, date) pair.
// The generator and the session store share this format when diffing
// the expansion horizon against existing rows.
func TemplateDateKey(templateID uint64, date string) string {
	return strconv.FormatUint(templateID, 10) + "|" + date
}
