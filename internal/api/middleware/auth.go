package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/messagely/messagely/internal/api/handler"
	"github.com/messagely/messagely/internal/core/ports"
	"github.com/messagely/messagely/pkg/logger"
)

// Auth validates the bearer token and injects the caller's username into
// the echo context and the request logger.
func Auth(authenticator ports.Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			req := c.Request()
			username, err := authenticator.Authenticate(req.Context(), strings.TrimSpace(parts[1]))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token").SetInternal(err)
			}

			c.Set(handler.ContextUsernameKey, username)

			l := logger.From(req.Context()).With().Str("username", username).Logger()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), l)))

			return next(c)
		}
	}
}
