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

type templateReq struct {
	DayOfWeek   uint8  `json:"day_of_week"` // 0=Sunday .. 6=Saturday
	StartTime   string `json:"start_time"`  // "HH:MM"
	DurationMin uint32 `json:"duration_min"`
	ClassType   string `json:"class_type"`
	Title       string `json:"title"`
	PriceCents  uint32 `json:"price_cents"`
	Capacity    uint32 `json:"capacity"`
}

type templateResp struct {
	ID          uint64 `json:"id"`
	DayOfWeek   uint8  `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	DurationMin uint32 `json:"duration_min"`
	ClassType   string `json:"class_type"`
	Title       string `json:"title"`
	PriceCents  uint32 `json:"price_cents"`
	Capacity    uint32 `json:"capacity"`
	IsActive    bool   `json:"is_active"`
}

func toTemplateResp(t model.ClassTemplate) templateResp {
	return templateResp{
		ID:          t.ID,
		DayOfWeek:   t.DayOfWeek,
		StartTime:   t.StartTime,
		DurationMin: t.DurationMin,
		ClassType:   t.ClassType,
		Title:       t.Title,
		PriceCents:  t.PriceCents,
		Capacity:    t.Capacity,
		IsActive:    t.IsActive,
	}
}

func (r *templateReq) normalize() {
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.ClassType = strings.ToUpper(strings.TrimSpace(r.ClassType))
	r.Title = strings.TrimSpace(r.Title)
}

func (r *templateReq) invalid() string {
	switch {
	case r.DayOfWeek > 6:
		return "day_of_week must be 0-6"
	case !validClock(r.StartTime):
		return "start_time must be HH:MM"
	case r.DurationMin == 0:
		return "duration_min required"
	case r.ClassType == "":
		return "class_type required"
	case r.Title == "":
		return "title required"
	case r.Capacity == 0:
		return "capacity required"
	}
	return ""
}

// CreateTemplate registers a new weekly class slot. The generator
// picks it up on its next pass; GenerateNow forces the point.
func (h *AdminHandler) CreateTemplate(c echo.Context) error {
	var req templateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.normalize()
	if msg := req.invalid(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t := &model.ClassTemplate{
		DayOfWeek:   req.DayOfWeek,
		StartTime:   req.StartTime,
		DurationMin: req.DurationMin,
		ClassType:   req.ClassType,
		Title:       req.Title,
		PriceCents:  req.PriceCents,
		Capacity:    req.Capacity,
		IsActive:    true,
	}
	if err := h.Templates.Create(ctx, t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create template failed"})
	}
	return c.JSON(http.StatusCreated, toTemplateResp(*t))
}

// ListTemplates returns every template, active or not.
func (h *AdminHandler) ListTemplates(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	templates, err := h.Templates.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]templateResp, 0, len(templates))
	for _, t := range templates {
		out = append(out, toTemplateResp(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"templates": out})
}

// UpdateTemplate rewrites a template's slot definition. Sessions
// already generated from it keep their old values.
func (h *AdminHandler) UpdateTemplate(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid template id"})
	}
	var req templateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.normalize()
	if msg := req.invalid(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Templates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "template not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	t.DayOfWeek = req.DayOfWeek
	t.StartTime = req.StartTime
	t.DurationMin = req.DurationMin
	t.ClassType = req.ClassType
	t.Title = req.Title
	t.PriceCents = req.PriceCents
	t.Capacity = req.Capacity

	if err := h.Templates.Update(ctx, t); err != nil {
		if errors.Is(err, repository.ErrNoChange) {
			return c.JSON(http.StatusOK, toTemplateResp(*t))
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update template failed"})
	}
	return c.JSON(http.StatusOK, toTemplateResp(*t))
}

// SetTemplateActive toggles whether a template participates in
// generation. Deactivation never touches sessions already created.
func (h *AdminHandler) SetTemplateActive(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid template id"})
	}
	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Templates.SetActive(ctx, id, req.IsActive); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "template not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteTemplate removes a template. Its generated sessions survive
// with a detached template reference.
func (h *AdminHandler) DeleteTemplate(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid template id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Templates.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTemplateNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "template not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
