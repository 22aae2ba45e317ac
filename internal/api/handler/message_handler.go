package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/messagely/messagely/internal/api/metrics"
	"github.com/messagely/messagely/internal/core/ports"
)

// HeaderIdempotencyKey lets clients retry a send without duplicating it.
const HeaderIdempotencyKey = "Idempotency-Key"

// MessageHandler handles sending, reading and acknowledging messages.
type MessageHandler struct {
	service ports.MessageService
}

func NewMessageHandler(service ports.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

// Send handles POST /messages. The sender is always the caller.
//
// @Summary      Send a message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string              false  "Idempotency key to prevent duplicate sends"
// @Param        body             body      sendMessageRequest  true   "Message"
// @Success      201              {object}  messageResponse
// @Success      200              {object}  messageResponse  "Replayed by Idempotency-Key"
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  errorResponse
// @Failure      404              {object}  errorResponse
// @Failure      409              {object}  errorResponse  "Idempotency-Key still in use"
// @Failure      422              {object}  errorResponse
// @Router       /messages [post]
func (h *MessageHandler) Send(c echo.Context) error {
	sender, err := ctxUsername(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	result, err := h.service.Send(c.Request().Context(), ports.SendMessageInput{
		FromUsername:   sender,
		ToUsername:     req.ToUsername,
		Body:           req.Body,
		IdempotencyKey: c.Request().Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		return err
	}

	metrics.MessagesSentTotal.WithLabelValues(strconv.FormatBool(result.AlreadyExisted)).Inc()
	status := http.StatusCreated
	if result.AlreadyExisted {
		status = http.StatusOK
	}
	return c.JSON(status, messageResponse{Message: result.Message})
}

// Get handles GET /messages/:id. Only the sender or recipient may view it.
//
// @Summary      Get a message
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Message id"
// @Success      200  {object}  messageDetailResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /messages/{id} [get]
func (h *MessageHandler) Get(c echo.Context) error {
	requester, err := ctxUsername(c)
	if err != nil {
		return err
	}
	id, err := messageID(c)
	if err != nil {
		return err
	}

	detail, err := h.service.GetMessage(c.Request().Context(), id, requester)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageDetailResponse{Message: toMessageDetail(detail)})
}

// MarkRead handles POST /messages/:id/read. Only the recipient may call it;
// repeated calls keep the first read time.
//
// @Summary      Mark a message as read
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Message id"
// @Success      200  {object}  readResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /messages/{id}/read [post]
func (h *MessageHandler) MarkRead(c echo.Context) error {
	requester, err := ctxUsername(c)
	if err != nil {
		return err
	}
	id, err := messageID(c)
	if err != nil {
		return err
	}

	msg, err := h.service.MarkRead(c.Request().Context(), id, requester)
	if err != nil {
		return err
	}

	metrics.MessagesReadTotal.Inc()
	return c.JSON(http.StatusOK, readResponse{Message: readReceipt{ID: msg.ID, ReadAt: msg.ReadAt}})
}

func messageID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid message id")
	}
	return id, nil
}
