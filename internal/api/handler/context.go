package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/messagely/messagely/internal/core/domain"
)

// ContextUsernameKey is where the Auth middleware stores the caller.
const ContextUsernameKey = "username"

// ctxUsername returns the authenticated caller injected by the Auth
// middleware. An empty value means the middleware did not run.
func ctxUsername(c echo.Context) (string, error) {
	username, _ := c.Get(ContextUsernameKey).(string)
	if username == "" {
		return "", domain.ErrUnauthorized
	}
	return username, nil
}
