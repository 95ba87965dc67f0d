package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soleilfit/class-booking/internal/model"
	"github.com/soleilfit/class-booking/internal/repository"
	"github.com/soleilfit/class-booking/internal/service"
)

// BookingHandler exposes the member-facing booking endpoints on top of
// the booking service.
type BookingHandler struct {
	Svc      *service.BookingService
	Bookings *repository.BookingRepo
}

func NewBookingHandler(svc *service.BookingService, bookings *repository.BookingRepo) *BookingHandler {
	return &BookingHandler{Svc: svc, Bookings: bookings}
}

type createBookingReq struct {
	SessionID     uint64 `json:"session_id"`
	PaymentMethod string `json:"payment_method"` // CARD | CASH
	PaymentToken  string `json:"payment_token"`
}

type bookingResp struct {
	ID            uint64  `json:"id"`
	SessionID     uint64  `json:"session_id"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"payment_method"`
	IsFreeSession bool    `json:"is_free_session"`
	PriceCents    uint32  `json:"price_cents"`
	PaymentRef    *string `json:"payment_ref,omitempty"`
}

func toBookingResp(b *model.Booking) bookingResp {
	return bookingResp{
		ID:            b.ID,
		SessionID:     b.SessionID,
		Status:        b.Status,
		PaymentMethod: b.PaymentMethod,
		IsFreeSession: b.IsFreeSession,
		PriceCents:    b.PriceCents,
		PaymentRef:    b.PaymentRef,
	}
}

// Create books a seat in a session for the authenticated member.
func (h *BookingHandler) Create(c echo.Context) error {
	memberID, ok := c.Get("member_id").(uint64)
	if !ok || memberID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	method := strings.ToUpper(strings.TrimSpace(req.PaymentMethod))

	b, err := h.Svc.CreateBooking(c.Request().Context(), memberID, req.SessionID, method, req.PaymentToken, c.RealIP())
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusCreated, toBookingResp(b))
}

// Cancel cancels one of the member's own bookings.
func (h *BookingHandler) Cancel(c echo.Context) error {
	memberID, ok := c.Get("member_id").(uint64)
	if !ok || memberID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	isAdmin := c.Get("role") == model.RoleAdmin
	if err := h.Svc.CancelBooking(c.Request().Context(), id, memberID, isAdmin, time.Now()); err != nil {
		return bookingError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// List returns the member's bookings with session details, newest
// first.
func (h *BookingHandler) List(c echo.Context) error {
	memberID, ok := c.Get("member_id").(uint64)
	if !ok || memberID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.Bookings.ListByMember(ctx, memberID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": details})
}

// Get returns one booking. Members see only their own; admins see any.
func (h *BookingHandler) Get(c echo.Context) error {
	memberID, ok := c.Get("member_id").(uint64)
	if !ok || memberID == 0 {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b, err := h.Bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if b.MemberID != memberID && c.Get("role") != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusOK, toBookingResp(b))
}

// bookingError translates service errors into HTTP responses.
func bookingError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrSessionFull):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session full"})
	case errors.Is(err, service.ErrSessionNotBookable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "session not bookable"})
	case errors.Is(err, service.ErrAlreadyCancelled):
		return c.JSON(http.StatusConflict, echo.Map{"error": "booking already cancelled"})
	case errors.Is(err, service.ErrTooManyActiveBookings):
		return c.JSON(http.StatusConflict, echo.Map{"error": "too many active bookings"})
	case errors.Is(err, service.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "too many bookings from this address"})
	case errors.Is(err, service.ErrPaymentFailed):
		return c.JSON(http.StatusPaymentRequired, echo.Map{"error": "payment failed"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
