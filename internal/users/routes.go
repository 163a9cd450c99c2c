package users

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all account routes under /api/users. Signup and
// login are public; everything else passes through the session gate.
func RegisterRoutes(e *echo.Echo, h *Handler, gate echo.MiddlewareFunc) {
	g := e.Group("/api/users")

	g.POST("/signup", h.Signup)
	g.POST("/login", h.Login)

	g.POST("/logout", h.Logout, gate)
	g.GET("/current", h.Current, gate)
	g.PATCH("", h.UpdateSubscription, gate)
	g.PATCH("/avatars", h.UpdateAvatar, gate)
}
