package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/soleilfit/class-booking/internal/repository"
	"github.com/soleilfit/class-booking/internal/service"
)

// AdminHandler bundles the dependencies behind the staff endpoints:
// template management, session management and cash confirmation.
type AdminHandler struct {
	Templates *repository.TemplateRepo
	Sessions  *repository.SessionRepo
	Bookings  *repository.BookingRepo
	Generator *service.Generator
	Svc       *service.BookingService
}

func NewAdminHandler(
	templates *repository.TemplateRepo,
	sessions *repository.SessionRepo,
	bookings *repository.BookingRepo,
	gen *service.Generator,
	svc *service.BookingService,
) *AdminHandler {
	if templates == nil || sessions == nil || bookings == nil || gen == nil || svc == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Templates: templates,
		Sessions:  sessions,
		Bookings:  bookings,
		Generator: gen,
		Svc:       svc,
	}
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// validClock reports whether s is a valid "HH:MM" local time.
func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}

// validDate reports whether s is a valid "YYYY-MM-DD" calendar date.
func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
