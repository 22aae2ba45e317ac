package ports

import (
	"context"
	"time"

	"github.com/messagely/messagely/internal/core/domain"
)

// Notifier accepts notifications for asynchronous delivery.
type Notifier interface {
	Enqueue(n domain.Notification)
}

// NotificationPublisher delivers a single notification (Redis pub/sub).
type NotificationPublisher interface {
	Publish(ctx context.Context, n domain.Notification) error
}

// IdempotencyStore remembers which message an Idempotency-Key produced.
// A key is first reserved, then either bound to a message id with Remember
// or given back with Release.
type IdempotencyStore interface {
	// Reserve claims key for one in-flight send. It reports false when the
	// key is already reserved or bound.
	Reserve(ctx context.Context, scope, key string, ttl time.Duration) (bool, error)
	// Lookup returns the bound message id. A reserved but unbound key is a miss.
	Lookup(ctx context.Context, scope, key string) (int64, bool, error)
	Remember(ctx context.Context, scope, key string, messageID int64, ttl time.Duration) error
	Release(ctx context.Context, scope, key string) error
}
