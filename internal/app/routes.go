package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hnatiuk/accounts/internal/users"
)

// RegisterRoutes sets up all application routes: the health check plus the
// account endpoints under /api/users. This is the single place where
// routes are aggregated.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// Health check endpoint for container health monitoring. Pings the
	// database since it is the only external dependency.
	e.GET("/healthz", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := a.DB.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Account routes; the session gate wraps the protected ones.
	gate := users.RequireSession(a.Users)
	users.RegisterRoutes(e, a.handler, gate)
}
