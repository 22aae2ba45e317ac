package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/messagely/messagely/internal/core/domain"
)

// InboxChannel is the pub/sub channel a user's notifications go to.
func InboxChannel(username string) string {
	return "inbox:" + username
}

// Publisher fans notifications out over Redis pub/sub.
type Publisher struct {
	client Cmdable
}

func NewPublisher(client Cmdable) *Publisher {
	return &Publisher{client: client}
}

// Publish sends n as JSON to the recipient's inbox channel.
func (p *Publisher) Publish(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := p.client.Publish(ctx, InboxChannel(n.Recipient), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", n.Kind, err)
	}
	return nil
}
