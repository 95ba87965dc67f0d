package service

import (
	"context"
	"log"
	"time"

	"github.com/soleilfit/class-booking/internal/model"
)

// templateLister is the slice of the template store the generator
// reads from.
type templateLister interface {
	ListActive(ctx context.Context) ([]model.ClassTemplate, error)
}

// sessionMaterializer is the slice of the session store the generator
// writes to.
type sessionMaterializer interface {
	Create(ctx context.Context, s *model.Session) error
	ExistingTemplateDates(ctx context.Context, from, to time.Time) (map[string]struct{}, error)
}

// Generator keeps a rolling horizon of concrete sessions materialized
// from active templates. EnsureHorizon is idempotent: re-running it
// never creates duplicates and never touches existing sessions'
// booked counters.
type Generator struct {
	templates   templateLister
	sessions    sessionMaterializer
	horizonDays int
}

// NewGenerator builds a Generator with the given look-ahead horizon.
func NewGenerator(templates templateLister, sessions sessionMaterializer, horizonDays int) *Generator {
	return &Generator{templates: templates, sessions: sessions, horizonDays: horizonDays}
}

// PlanSessions expands templates over [from, from+horizonDays] and
// diffs the expansion against the already-materialized (template,
// date) pairs. It is a pure function over its inputs, returning only
// the sessions that still need to be created. Capacity and price are
// copied from each template, with the studio default capacity applied
// when a template leaves it unset.
func PlanSessions(templates []model.ClassTemplate, existing map[string]struct{}, from time.Time, horizonDays int) []model.Session {
	var plan []model.Session
	for day := 0; day <= horizonDays; day++ {
		date := from.AddDate(0, 0, day)
		weekday := uint8(date.Weekday())
		for _, t := range templates {
			if t.DayOfWeek != weekday {
				continue
			}
			dateStr := date.Format("2006-01-02")
			if _, ok := existing[model.TemplateDateKey(t.ID, dateStr)]; ok {
				continue
			}
			capacity := t.Capacity
			if capacity == 0 {
				capacity = model.DefaultCapacity
			}
			tid := t.ID
			plan = append(plan, model.Session{
				TemplateID:  &tid,
				Date:        dateStr,
				StartTime:   t.StartTime,
				DurationMin: t.DurationMin,
				ClassType:   t.ClassType,
				Title:       t.Title,
				Capacity:    capacity,
				PriceCents:  t.PriceCents,
			})
		}
	}
	return plan
}

// EnsureHorizon materializes all missing sessions for the horizon
// starting at today. A failure creating one session is logged and does
// not block the rest of the plan; the next run retries the gap. Safe
// to call on every server start and on a periodic timer.
func (g *Generator) EnsureHorizon(ctx context.Context, today time.Time) error {
	templates, err := g.templates.ListActive(ctx)
	if err != nil {
		return err
	}
	to := today.AddDate(0, 0, g.horizonDays)
	existing, err := g.sessions.ExistingTemplateDates(ctx, today, to)
	if err != nil {
		return err
	}
	plan := PlanSessions(templates, existing, today, g.horizonDays)
	created := 0
	for i := range plan {
		if err := g.sessions.Create(ctx, &plan[i]); err != nil {
			log.Printf("session generator: create %s %s (template %d) failed: %v",
				plan[i].Date, plan[i].StartTime, *plan[i].TemplateID, err)
			continue
		}
		created++
	}
	if created > 0 {
		log.Printf("session generator: materialized %d session(s) through %s", created, to.Format("2006-01-02"))
	}
	return nil
}

// Run executes EnsureHorizon immediately and then on every tick until
// the context is cancelled.
func (g *Generator) Run(ctx context.Context, every time.Duration) {
	if err := g.EnsureHorizon(ctx, time.Now()); err != nil {
		log.Printf("session generator: %v", err)
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.EnsureHorizon(ctx, time.Now()); err != nil {
				log.Printf("session generator: %v", err)
			}
		}
	}
}
