package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ConfirmCash marks a PENDING cash booking as paid after the member
// settles at the desk. Repeat confirmations are harmless.
func (h *AdminHandler) ConfirmCash(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	if err := h.Svc.ConfirmCashBooking(c.Request().Context(), id); err != nil {
		return bookingError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CancelBooking lets staff cancel any member's booking.
func (h *AdminHandler) CancelBooking(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	memberID, _ := c.Get("member_id").(uint64)
	if err := h.Svc.CancelBooking(c.Request().Context(), id, memberID, true, time.Now()); err != nil {
		return bookingError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
