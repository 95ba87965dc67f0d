package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soleilfit/class-booking/internal/model"
	"github.com/soleilfit/class-booking/internal/repository"
)

// SessionHandler serves the public schedule.
type SessionHandler struct {
	Sessions    *repository.SessionRepo
	HorizonDays int
}

func NewSessionHandler(s *repository.SessionRepo, horizonDays int) *SessionHandler {
	return &SessionHandler{Sessions: s, HorizonDays: horizonDays}
}

type sessionResp struct {
	ID             uint64 `json:"id"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	DurationMin    uint32 `json:"duration_min"`
	ClassType      string `json:"class_type"`
	Title          string `json:"title"`
	Capacity       uint32 `json:"capacity"`
	SpotsRemaining uint32 `json:"spots_remaining"`
	PriceCents     uint32 `json:"price_cents"`
}

func toSessionResp(s model.Session) sessionResp {
	remaining := uint32(0)
	if s.Capacity > s.BookedCount {
		remaining = s.Capacity - s.BookedCount
	}
	return sessionResp{
		ID:             s.ID,
		Date:           s.Date,
		StartTime:      s.StartTime,
		DurationMin:    s.DurationMin,
		ClassType:      s.ClassType,
		Title:          s.Title,
		Capacity:       s.Capacity,
		SpotsRemaining: remaining,
		PriceCents:     s.PriceCents,
	}
}

// ListUpcoming returns active upcoming sessions inside the booking
// horizon, soonest first. ?days= narrows the window.
func (h *SessionHandler) ListUpcoming(c echo.Context) error {
	days := h.HorizonDays
	if v := c.QueryParam("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid days"})
		}
		if n < days {
			days = n
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sessions, err := h.Sessions.ListUpcoming(ctx, time.Now(), days)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]sessionResp, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResp(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"sessions": out})
}

// GetSession returns one session by ID.
func (h *SessionHandler) GetSession(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	s, err := h.Sessions.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrSessionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, toSessionResp(*s))
}
