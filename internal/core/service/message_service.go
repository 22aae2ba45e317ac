package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/messagely/messagely/internal/core/domain"
	"github.com/messagely/messagely/internal/core/ports"
)

const (
	defaultIdempotencyTTL = 24 * time.Hour
	// reservationTTL bounds how long a crashed send can hold its key.
	reservationTTL    = 30 * time.Second
	defaultReplayWait = 5 * time.Second
	defaultReplayPoll = 50 * time.Millisecond
)

// errIdempotencyConflict is returned when a key cannot be resolved to the
// sender's original message in time.
var errIdempotencyConflict = fmt.Errorf("idempotency key conflict: %w", domain.ErrDuplicateKey)

// MessageService sends messages and enforces who may view or mark them read.
type MessageService struct {
	messages   ports.MessageRepository
	users      ports.UserRepository
	notifier   ports.Notifier         // optional
	idem       ports.IdempotencyStore // optional
	idemTTL    time.Duration
	replayWait time.Duration // how long a concurrent retry waits for the first send
	replayPoll time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewMessageService wires a MessageService. notifier and idem may be nil.
func NewMessageService(
	messages ports.MessageRepository,
	users ports.UserRepository,
	notifier ports.Notifier,
	idem ports.IdempotencyStore,
	log zerolog.Logger,
) *MessageService {
	return &MessageService{
		messages:   messages,
		users:      users,
		notifier:   notifier,
		idem:       idem,
		idemTTL:    defaultIdempotencyTTL,
		replayWait: defaultReplayWait,
		replayPoll: defaultReplayPoll,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithIdempotencyTTL overrides how long idempotency keys are remembered.
func (s *MessageService) WithIdempotencyTTL(ttl time.Duration) *MessageService {
	if ttl > 0 {
		s.idemTTL = ttl
	}
	return s
}

// Send stores a message from the authenticated caller. When an idempotency
// key is supplied and was already used by the same sender, the earlier
// message is returned without side effects.
func (s *MessageService) Send(ctx context.Context, in ports.SendMessageInput) (*ports.SendMessageResult, error) {
	if in.FromUsername == "" {
		return nil, domain.ErrUnauthorized
	}
	to := strings.TrimSpace(in.ToUsername)
	if to == "" || strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("send message: recipient and body are required: %w", domain.ErrInvalidInput)
	}

	key := in.IdempotencyKey
	reserved := false
	if key != "" && s.idem != nil {
		replay, ok, err := s.claim(ctx, in.FromUsername, key)
		if err != nil {
			return nil, fmt.Errorf("send message: %w", err)
		}
		if replay != nil {
			return &ports.SendMessageResult{Message: replay, AlreadyExisted: true}, nil
		}
		reserved = ok
	}

	created, err := s.create(ctx, in.FromUsername, to, in.Body)
	if err != nil {
		if reserved {
			s.release(ctx, in.FromUsername, key)
		}
		return nil, fmt.Errorf("send message: %w", err)
	}

	if reserved {
		if err := s.idem.Remember(ctx, in.FromUsername, key, created.ID, s.idemTTL); err != nil {
			s.log.Warn().Err(err).Str("idempotency_key", key).Msg("failed to store idempotency key")
		}
	}

	s.notify(domain.Notification{
		Kind:         domain.NotificationMessageSent,
		MessageID:    created.ID,
		FromUsername: created.FromUsername,
		ToUsername:   created.ToUsername,
		Recipient:    created.ToUsername,
		At:           created.SentAt,
	})

	s.log.Info().Int64("message_id", created.ID).Str("from", created.FromUsername).Str("to", created.ToUsername).Msg("message sent")
	return &ports.SendMessageResult{Message: created}, nil
}

// GetMessage returns the message detail if requester is its sender or recipient.
func (s *MessageService) GetMessage(ctx context.Context, id int64, requester string) (*domain.MessageDetail, error) {
	detail, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := domain.AuthorizeView(&detail.Message, requester); err != nil {
		s.log.Warn().Int64("message_id", id).Str("requester", requester).Msg("message view denied")
		return nil, err
	}
	return detail, nil
}

// MarkRead performs the one-way unread→read transition. Only the recipient
// may do it; repeating it returns the message with its original read_at.
func (s *MessageService) MarkRead(ctx context.Context, id int64, requester string) (*domain.Message, error) {
	detail, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	msg := detail.Message

	if err := domain.AuthorizeMarkRead(&msg, requester); err != nil {
		s.log.Warn().Int64("message_id", id).Str("requester", requester).Msg("mark read denied")
		return nil, err
	}

	if msg.IsRead() {
		return &msg, nil
	}

	updated, changed, err := s.messages.MarkRead(ctx, id, s.now())
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}

	if changed {
		s.notify(domain.Notification{
			Kind:         domain.NotificationMessageRead,
			MessageID:    updated.ID,
			FromUsername: updated.FromUsername,
			ToUsername:   updated.ToUsername,
			Recipient:    updated.FromUsername,
			At:           *updated.ReadAt,
		})
		s.log.Info().Int64("message_id", id).Msg("message marked read")
	}

	return updated, nil
}

func (s *MessageService) create(ctx context.Context, from, to, body string) (*domain.Message, error) {
	for _, username := range []string{from, to} {
		if _, err := s.users.FindByUsername(ctx, username); err != nil {
			return nil, err
		}
	}
	return s.messages.Create(ctx, &domain.Message{
		FromUsername: from,
		ToUsername:   to,
		Body:         body,
		SentAt:       s.now(),
	})
}

// claim reserves key for this send. When another send holds it, claim waits
// for that send to bind its message and returns it as a replay. It reports
// true only when this call owns the reservation. If the store cannot be
// reached the send proceeds without idempotency.
func (s *MessageService) claim(ctx context.Context, sender, key string) (*domain.Message, bool, error) {
	deadline := time.Now().Add(s.replayWait)
	for {
		ok, err := s.idem.Reserve(ctx, sender, key, reservationTTL)
		if err != nil {
			s.log.Warn().Err(err).Str("idempotency_key", key).Msg("idempotency reserve failed, sending anyway")
			return nil, false, nil
		}
		if ok {
			return nil, true, nil
		}

		id, bound, err := s.idem.Lookup(ctx, sender, key)
		if err != nil {
			return nil, false, err
		}
		if bound {
			msg, err := s.replay(ctx, sender, key, id)
			return msg, false, err
		}

		// Reserved by a send that is still running.
		if !time.Now().Before(deadline) {
			return nil, false, errIdempotencyConflict
		}
		timer := time.NewTimer(s.replayPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false, ctx.Err()
		case <-timer.C:
		}
	}
}

// replay loads the message a key is bound to.
func (s *MessageService) replay(ctx context.Context, sender, key string, id int64) (*domain.Message, error) {
	detail, err := s.messages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrMessageNotFound) {
			return nil, errIdempotencyConflict
		}
		return nil, err
	}
	if detail.FromUsername != sender {
		return nil, errIdempotencyConflict
	}

	s.log.Info().Str("idempotency_key", key).Int64("message_id", id).Msg("idempotent replay")
	msg := detail.Message
	return &msg, nil
}

func (s *MessageService) release(ctx context.Context, sender, key string) {
	if err := s.idem.Release(context.WithoutCancel(ctx), sender, key); err != nil {
		s.log.Warn().Err(err).Str("idempotency_key", key).Msg("failed to release idempotency key")
	}
}

func (s *MessageService) notify(n domain.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(n)
}
