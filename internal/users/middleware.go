package users

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/hnatiuk/accounts/internal/apperror"
)

// contextKeyUser stores the gate-loaded account in the Echo context.
const contextKeyUser = "users_current"

// RequireSession returns middleware that gates a route on a valid session.
// It reads the bearer token from the Authorization header, runs the full
// gate check (signature, expiry, account lookup, stored-token equality),
// and injects the loaded account into the request context. Any failure is
// a uniform 401.
func RequireSession(service Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearerToken(c)
			if raw == "" {
				return apperror.NewUnauthorized("Not authorized")
			}

			user, err := service.Authenticate(c.Request().Context(), raw)
			if err != nil {
				return err
			}

			c.Set(contextKeyUser, user)
			return next(c)
		}
	}
}

// CurrentUser retrieves the gate-loaded account from the Echo context.
// Returns nil if the request is not authenticated (middleware not applied).
func CurrentUser(c echo.Context) *User {
	user, ok := c.Get(contextKeyUser).(*User)
	if !ok {
		return nil
	}
	return user
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. Returns empty for an absent or differently-shaped header.
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
