package router

import (
	"github.com/labstack/echo/v4"

	"github.com/soleilfit/class-booking/internal/handler"
	"github.com/soleilfit/class-booking/internal/middleware"
	"github.com/soleilfit/class-booking/internal/model"
)

// RegisterAdmin wires the staff endpoints under /v1/admin. Every route
// requires an ADMIN access token.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin))

	g.POST("/templates", a.CreateTemplate)
	g.GET("/templates", a.ListTemplates)
	g.PUT("/templates/:id", a.UpdateTemplate)
	g.PATCH("/templates/:id/active", a.SetTemplateActive)
	g.DELETE("/templates/:id", a.DeleteTemplate)

	g.POST("/sessions", a.CreateSession)
	g.PATCH("/sessions/:id/active", a.SetSessionActive)
	g.GET("/sessions/:id/bookings", a.SessionRoster)
	g.POST("/generate", a.GenerateNow)

	g.POST("/bookings/:id/confirm", a.ConfirmCash)
	g.DELETE("/bookings/:id", a.CancelBooking)
}
