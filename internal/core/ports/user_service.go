package ports

import (
	"context"

	"github.com/messagely/messagely/internal/core/domain"
)

// UserService exposes user lookups and per-user message boxes.
// Everything except List is restricted to the user themself.
type UserService interface {
	List(ctx context.Context, requester string) ([]domain.UserSummary, error)
	Get(ctx context.Context, username, requester string) (*domain.User, error)
	Inbox(ctx context.Context, username, requester string) ([]domain.MessageDetail, error)
	Outbox(ctx context.Context, username, requester string) ([]domain.MessageDetail, error)
}
