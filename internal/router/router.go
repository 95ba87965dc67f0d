package router

import (
	"github.com/labstack/echo/v4"

	"github.com/soleilfit/class-booking/internal/handler"
	"github.com/soleilfit/class-booking/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth wires the authentication endpoints. Register, login,
// refresh and logout live under /v1/auth without a token requirement;
// /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh_token body without a JWT; an
	// authenticated call without one revokes every session.
	g.POST("/logout", a.Logout, optionalJWT(jwtSecret))

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// optionalJWT runs JWTAuth only when an Authorization header is
// present, so the same handler serves both modes of logout.
func optionalJWT(secret string) echo.MiddlewareFunc {
	authn := middleware.JWTAuth(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := authn(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "" {
				return withAuth(c)
			}
			return next(c)
		}
	}
}
