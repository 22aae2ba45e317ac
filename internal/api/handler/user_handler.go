package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/messagely/messagely/internal/core/ports"
)

// UserHandler serves user listings, user details and per-user message boxes.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

// List handles GET /users.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usersResponse
// @Failure      401  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	requester, err := ctxUsername(c)
	if err != nil {
		return err
	}

	users, err := h.service.List(c.Request().Context(), requester)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, usersResponse{Users: users})
}

// Get handles GET /users/:username.
//
// @Summary      Get a user's details
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  userResponse
// @Failure      401       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Failure      404       {object}  errorResponse
// @Router       /users/{username} [get]
func (h *UserHandler) Get(c echo.Context) error {
	requester, err := ctxUsername(c)
	if err != nil {
		return err
	}

	user, err := h.service.Get(c.Request().Context(), c.Param("username"), requester)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// Inbox handles GET /users/:username/to.
//
// @Summary      Messages received by a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  inboxResponse
// @Failure      401       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Router       /users/{username}/to [get]
func (h *UserHandler) Inbox(c echo.Context) error {
	requester, err := ctxUsername(c)
	if err != nil {
		return err
	}

	details, err := h.service.Inbox(c.Request().Context(), c.Param("username"), requester)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, inboxResponse{Messages: toInbox(details)})
}

// Outbox handles GET /users/:username/from.
//
// @Summary      Messages sent by a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  outboxResponse
// @Failure      401       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Router       /users/{username}/from [get]
func (h *UserHandler) Outbox(c echo.Context) error {
	requester, err := ctxUsername(c)
	if err != nil {
		return err
	}

	details, err := h.service.Outbox(c.Request().Context(), c.Param("username"), requester)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, outboxResponse{Messages: toOutbox(details)})
}
