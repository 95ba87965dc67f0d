package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/soleilfit/class-booking/internal/model"
)

type stubTemplates struct {
	templates []model.ClassTemplate
	err       error
}

func (s *stubTemplates) ListActive(_ context.Context) ([]model.ClassTemplate, error) {
	return s.templates, s.err
}

type stubMaterializer struct {
	existing  map[string]struct{}
	created   []model.Session
	createErr map[string]error // keyed by date, fails that create only
}

func (s *stubMaterializer) Create(_ context.Context, sess *model.Session) error {
	if err := s.createErr[sess.Date]; err != nil {
		return err
	}
	s.created = append(s.created, *sess)
	s.existing[model.TemplateDateKey(*sess.TemplateID, sess.Date)] = struct{}{}
	return nil
}

func (s *stubMaterializer) ExistingTemplateDates(_ context.Context, _, _ time.Time) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(s.existing))
	for k := range s.existing {
		out[k] = struct{}{}
	}
	return out, nil
}

// Monday 2026-03-02.
var genFrom = time.Date(2026, 3, 2, 6, 0, 0, 0, time.Local)

func mondayYoga() model.ClassTemplate {
	return model.ClassTemplate{
		ID:          1,
		DayOfWeek:   1, // Monday
		StartTime:   "18:00",
		DurationMin: 60,
		ClassType:   "YOGA",
		Title:       "Evening Yoga",
		PriceCents:  1500,
		Capacity:    10,
		IsActive:    true,
	}
}

func TestPlanSessionsExpandsWeekdays(t *testing.T) {
	plan := PlanSessions([]model.ClassTemplate{mondayYoga()}, map[string]struct{}{}, genFrom, 14)

	// Mondays inside [Mar 2, Mar 16]: 2nd, 9th, 16th.
	require.Len(t, plan, 3)
	require.Equal(t, "2026-03-02", plan[0].Date)
	require.Equal(t, "2026-03-09", plan[1].Date)
	require.Equal(t, "2026-03-16", plan[2].Date)

	s := plan[0]
	require.Equal(t, uint64(1), *s.TemplateID)
	require.Equal(t, "18:00", s.StartTime)
	require.Equal(t, uint32(10), s.Capacity)
	require.Equal(t, uint32(1500), s.PriceCents)
	require.Equal(t, uint32(0), s.BookedCount)
}

func TestPlanSessionsSkipsExistingDates(t *testing.T) {
	existing := map[string]struct{}{
		model.TemplateDateKey(1, "2026-03-09"): {},
	}
	plan := PlanSessions([]model.ClassTemplate{mondayYoga()}, existing, genFrom, 14)

	require.Len(t, plan, 2)
	for _, s := range plan {
		require.NotEqual(t, "2026-03-09", s.Date)
	}
}

func TestPlanSessionsDefaultsCapacity(t *testing.T) {
	tmpl := mondayYoga()
	tmpl.Capacity = 0
	plan := PlanSessions([]model.ClassTemplate{tmpl}, map[string]struct{}{}, genFrom, 6)

	require.Len(t, plan, 1)
	require.Equal(t, uint32(model.DefaultCapacity), plan[0].Capacity)
}

func TestPlanSessionsEmptyTemplates(t *testing.T) {
	require.Empty(t, PlanSessions(nil, map[string]struct{}{}, genFrom, 14))
}

func TestEnsureHorizonIsIdempotent(t *testing.T) {
	store := &stubMaterializer{existing: map[string]struct{}{}}
	gen := NewGenerator(&stubTemplates{templates: []model.ClassTemplate{mondayYoga()}}, store, 14)

	require.NoError(t, gen.EnsureHorizon(context.Background(), genFrom))
	first := len(store.created)
	require.Equal(t, 3, first)

	// A second pass over the same horizon creates nothing new.
	require.NoError(t, gen.EnsureHorizon(context.Background(), genFrom))
	require.Equal(t, first, len(store.created))
}

func TestEnsureHorizonContinuesPastCreateFailure(t *testing.T) {
	store := &stubMaterializer{
		existing:  map[string]struct{}{},
		createErr: map[string]error{"2026-03-09": errors.New("duplicate key")},
	}
	gen := NewGenerator(&stubTemplates{templates: []model.ClassTemplate{mondayYoga()}}, store, 14)

	require.NoError(t, gen.EnsureHorizon(context.Background(), genFrom))
	require.Len(t, store.created, 2)
}

func TestEnsureHorizonPropagatesListError(t *testing.T) {
	gen := NewGenerator(&stubTemplates{err: errors.New("db down")}, &stubMaterializer{existing: map[string]struct{}{}}, 14)
	require.Error(t, gen.EnsureHorizon(context.Background(), genFrom))
}
