package service

import (
	"context"

	"github.com/messagely/messagely/internal/core/domain"
	"github.com/messagely/messagely/internal/core/ports"
)

// UserService serves the user directory and per-user message boxes.
type UserService struct {
	users    ports.UserRepository
	messages ports.MessageRepository
}

func NewUserService(users ports.UserRepository, messages ports.MessageRepository) *UserService {
	return &UserService{users: users, messages: messages}
}

// List is open to any authenticated user.
func (s *UserService) List(ctx context.Context, requester string) ([]domain.UserSummary, error) {
	if requester == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.users.ListAll(ctx)
}

func (s *UserService) Get(ctx context.Context, username, requester string) (*domain.User, error) {
	if err := domain.AuthorizeSelf(username, requester); err != nil {
		return nil, err
	}
	return s.users.FindByUsername(ctx, username)
}

func (s *UserService) Inbox(ctx context.Context, username, requester string) ([]domain.MessageDetail, error) {
	if err := domain.AuthorizeSelf(username, requester); err != nil {
		return nil, err
	}
	return s.messages.ListReceivedBy(ctx, username)
}

func (s *UserService) Outbox(ctx context.Context, username, requester string) ([]domain.MessageDetail, error) {
	if err := domain.AuthorizeSelf(username, requester); err != nil {
		return nil, err
	}
	return s.messages.ListSentBy(ctx, username)
}
