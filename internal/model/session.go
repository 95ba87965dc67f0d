package model

import "time"

// DefaultCapacity is applied to sessions whose template does not
// specify a capacity of its own.
const DefaultCapacity = 12

// Session is one dated, timed, capacity-bounded class instance that
// members book.  Sessions are created by the generator from active
// templates, or ad hoc by an administrator (TemplateID is nil in that
// case).  BookedCount is mutated exclusively by the capacity ledger's
// reserve/release operations; no other writer may touch it.  The
// invariant 0 <= BookedCount <= Capacity holds at all times.
//
// Fields:
//  ID          – primary key identifier.
//  TemplateID  – generating template (nil for ad-hoc sessions).
//  Date        – local calendar date in "YYYY-MM-DD" format.
//  StartTime   – local start time in "HH:MM" format.
//  DurationMin – length of the session in minutes.
//  ClassType   – category of the class.
//  Title       – display name.
//  Capacity    – maximum number of seats.
//  BookedCount – seats currently reserved (0..Capacity).
//  PriceCents  – price per seat in cents.
//  IsActive    – whether the session accepts bookings.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Session struct {
	ID          uint64    // sessions.id
	TemplateID  *uint64   // sessions.template_id (nullable)
	Date        string    // sessions.session_date ("YYYY-MM-DD")
	StartTime   string    // sessions.start_time ("HH:MM")
	DurationMin uint32    // sessions.duration_min
	ClassType   string    // sessions.class_type
	Title       string    // sessions.title
	Capacity    uint32    // sessions.capacity
	BookedCount uint32    // sessions.booked_count
	PriceCents  uint32    // sessions.price_cents
	IsActive    bool      // sessions.is_active
	CreatedAt   time.Time // sessions.created_at
	UpdatedAt   time.Time // sessions.updated_at
}

// StartsAt combines Date and StartTime into a local timestamp.  The
// zero time is returned when either field is malformed.
func (s *Session) StartsAt() time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s.Date+" "+s.StartTime, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}
