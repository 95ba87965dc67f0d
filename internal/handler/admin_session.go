package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soleilfit/class-booking/internal/model"
	"github.com/soleilfit/class-booking/internal/repository"
)

type adhocSessionReq struct {
	Date        string `json:"date"`       // "YYYY-MM-DD"
	StartTime   string `json:"start_time"` // "HH:MM"
	DurationMin uint32 `json:"duration_min"`
	ClassType   string `json:"class_type"`
	Title       string `json:"title"`
	Capacity    uint32 `json:"capacity"`
	PriceCents  uint32 `json:"price_cents"`
}

// CreateSession adds a one-off session outside the weekly templates,
// for workshops and special events. Capacity defaults when omitted.
func (h *AdminHandler) CreateSession(c echo.Context) error {
	var req adhocSessionReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Date = strings.TrimSpace(req.Date)
	req.StartTime = strings.TrimSpace(req.StartTime)
	req.ClassType = strings.ToUpper(strings.TrimSpace(req.ClassType))
	req.Title = strings.TrimSpace(req.Title)

	switch {
	case !validDate(req.Date):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "date must be YYYY-MM-DD"})
	case !validClock(req.StartTime):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_time must be HH:MM"})
	case req.DurationMin == 0:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_min required"})
	case req.ClassType == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "class_type required"})
	case req.Title == "":
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	if req.Capacity == 0 {
		req.Capacity = model.DefaultCapacity
	}

	s := &model.Session{
		Date:        req.Date,
		StartTime:   req.StartTime,
		DurationMin: req.DurationMin,
		ClassType:   req.ClassType,
		Title:       req.Title,
		Capacity:    req.Capacity,
		PriceCents:  req.PriceCents,
		IsActive:    true,
	}
	if !s.StartsAt().After(time.Now()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "session must start in the future"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.Create(ctx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create session failed"})
	}
	return c.JSON(http.StatusCreated, toSessionResp(*s))
}

// SetSessionActive closes or reopens a session for booking. Closing
// leaves existing bookings untouched.
func (h *AdminHandler) SetSessionActive(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Sessions.SetActive(ctx, id, req.IsActive); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// SessionRoster returns every booking on one session so staff can run
// the class check-in and confirm cash payments.
func (h *AdminHandler) SessionRoster(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Sessions.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	bookings, err := h.Bookings.ListBySession(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]rosterEntry, 0, len(bookings))
	for i := range bookings {
		out = append(out, toRosterEntry(&bookings[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

type rosterEntry struct {
	ID            uint64 `json:"id"`
	MemberID      uint64 `json:"member_id"`
	Status        string `json:"status"`
	PaymentMethod string `json:"payment_method"`
	IsFreeSession bool   `json:"is_free_session"`
	PriceCents    uint32 `json:"price_cents"`
}

func toRosterEntry(b *model.Booking) rosterEntry {
	return rosterEntry{
		ID:            b.ID,
		MemberID:      b.MemberID,
		Status:        b.Status,
		PaymentMethod: b.PaymentMethod,
		IsFreeSession: b.IsFreeSession,
		PriceCents:    b.PriceCents,
	}
}

// GenerateNow runs one generator pass immediately instead of waiting
// for the background interval. Useful right after editing templates.
func (h *AdminHandler) GenerateNow(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if err := h.Generator.EnsureHorizon(ctx, time.Now()); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generation failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
