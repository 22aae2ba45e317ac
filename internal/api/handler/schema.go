package handler

import (
	"time"

	"github.com/messagely/messagely/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request types ---

type registerRequest struct {
	Username  string `json:"username"   validate:"required,max=64"`
	Password  string `json:"password"   validate:"required,min=1,max=72"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"  validate:"required"`
	Phone     string `json:"phone"      validate:"required"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sendMessageRequest struct {
	ToUsername string `json:"to_username" validate:"required"`
	Body       string `json:"body"        validate:"required"`
}

// --- Response types ---

type userResponse struct {
	User *domain.User `json:"user"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type usersResponse struct {
	Users []domain.UserSummary `json:"users"`
}

type messageResponse struct {
	Message *domain.Message `json:"message"`
}

type messageDetail struct {
	ID       int64              `json:"id"`
	Body     string             `json:"body"`
	SentAt   time.Time          `json:"sent_at"`
	ReadAt   *time.Time         `json:"read_at"`
	FromUser domain.UserContact `json:"from_user"`
	ToUser   domain.UserContact `json:"to_user"`
}

type messageDetailResponse struct {
	Message messageDetail `json:"message"`
}

// inboxItem is a received message, described by its sender.
type inboxItem struct {
	ID       int64              `json:"id"`
	Body     string             `json:"body"`
	SentAt   time.Time          `json:"sent_at"`
	ReadAt   *time.Time         `json:"read_at"`
	FromUser domain.UserContact `json:"from_user"`
}

// outboxItem is a sent message, described by its recipient.
type outboxItem struct {
	ID     int64              `json:"id"`
	Body   string             `json:"body"`
	SentAt time.Time          `json:"sent_at"`
	ReadAt *time.Time         `json:"read_at"`
	ToUser domain.UserContact `json:"to_user"`
}

type inboxResponse struct {
	Messages []inboxItem `json:"messages"`
}

type outboxResponse struct {
	Messages []outboxItem `json:"messages"`
}

type readReceipt struct {
	ID     int64      `json:"id"`
	ReadAt *time.Time `json:"read_at"`
}

type readResponse struct {
	Message readReceipt `json:"message"`
}

// --- Mappers ---

func toMessageDetail(d *domain.MessageDetail) messageDetail {
	return messageDetail{
		ID:       d.ID,
		Body:     d.Body,
		SentAt:   d.SentAt,
		ReadAt:   d.ReadAt,
		FromUser: d.From,
		ToUser:   d.To,
	}
}

func toInbox(details []domain.MessageDetail) []inboxItem {
	out := make([]inboxItem, 0, len(details))
	for _, d := range details {
		out = append(out, inboxItem{ID: d.ID, Body: d.Body, SentAt: d.SentAt, ReadAt: d.ReadAt, FromUser: d.From})
	}
	return out
}

func toOutbox(details []domain.MessageDetail) []outboxItem {
	out := make([]outboxItem, 0, len(details))
	for _, d := range details {
		out = append(out, outboxItem{ID: d.ID, Body: d.Body, SentAt: d.SentAt, ReadAt: d.ReadAt, ToUser: d.To})
	}
	return out
}
