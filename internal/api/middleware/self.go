package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/messagely/messagely/internal/api/handler"
)

// EnsureCorrectUser only lets the caller through when the named path
// parameter equals their own username. Must run after Auth.
func EnsureCorrectUser(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			username, _ := c.Get(handler.ContextUsernameKey).(string)
			if username == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
			}
			if c.Param(param) != username {
				return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
			}
			return next(c)
		}
	}
}
