package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// pendingMarker is stored under a reserved key until the message id is known.
const pendingMarker = "pending"

// IdempotencyStore maps a sender's Idempotency-Key to the message it created.
// Key format: idem:message:<sender>:<key>
type IdempotencyStore struct {
	client Cmdable
}

func NewIdempotencyStore(client Cmdable) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Reserve claims the key with SETNX. Only one caller gets true.
func (s *IdempotencyStore) Reserve(ctx context.Context, scope, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(scope, key), pendingMarker, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("idempotency reserve: %w", err)
	}
	return ok, nil
}

// Lookup returns the message id bound to key. Absent and pending keys are misses.
func (s *IdempotencyStore) Lookup(ctx context.Context, scope, key string) (int64, bool, error) {
	raw, err := s.client.Get(ctx, s.key(scope, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: %w", err)
	}
	if raw == pendingMarker {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("idempotency lookup: corrupt value %q: %w", raw, err)
	}
	return id, true, nil
}

// Remember binds a reserved key to the message it produced.
func (s *IdempotencyStore) Remember(ctx context.Context, scope, key string, messageID int64, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(scope, key), messageID, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

// Release drops a reservation whose send failed so a retry can claim it.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, s.key(scope, key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(scope, key string) string {
	return fmt.Sprintf("idem:message:%s:%s", scope, key)
}
