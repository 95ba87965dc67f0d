package router

import (
	"github.com/labstack/echo/v4"

	"github.com/soleilfit/class-booking/internal/handler"
	"github.com/soleilfit/class-booking/internal/middleware"
	"github.com/soleilfit/class-booking/internal/model"
)

// RegisterPublic exposes the unauthenticated schedule. cache may be
// nil when Redis is unavailable; the listing is then served uncached.
func RegisterPublic(e *echo.Echo, s *handler.SessionHandler, cache echo.MiddlewareFunc) {
	if cache != nil {
		e.GET("/v1/sessions", s.ListUpcoming, cache)
	} else {
		e.GET("/v1/sessions", s.ListUpcoming)
	}
	e.GET("/v1/sessions/:id", s.GetSession)
}

// RegisterMember wires the booking endpoints for authenticated
// members.
func RegisterMember(e *echo.Echo, b *handler.BookingHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleMember, model.RoleAdmin))

	g.POST("/bookings", b.Create)
	g.GET("/bookings", b.List)
	g.GET("/bookings/:id", b.Get)
	g.DELETE("/bookings/:id", b.Cancel)
}
