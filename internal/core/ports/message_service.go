package ports

import (
	"context"

	"github.com/messagely/messagely/internal/core/domain"
)

// SendMessageInput carries the data needed to send a message.
// FromUsername is always the authenticated caller.
type SendMessageInput struct {
	FromUsername   string
	ToUsername     string
	Body           string
	IdempotencyKey string
}

// SendMessageResult is returned by Send.
type SendMessageResult struct {
	Message *domain.Message
	// AlreadyExisted is true when the Idempotency-Key matched an earlier send.
	AlreadyExisted bool
}

// MessageService gates every message read and mutation behind the access rules.
type MessageService interface {
	Send(ctx context.Context, input SendMessageInput) (*SendMessageResult, error)
	GetMessage(ctx context.Context, id int64, requester string) (*domain.MessageDetail, error)
	MarkRead(ctx context.Context, id int64, requester string) (*domain.Message, error)
}
