package ports

import (
	"context"
	"time"

	"github.com/messagely/messagely/internal/core/domain"
)

// MessageRepository persists messages. Detail lookups resolve both parties
// in the same round trip.
type MessageRepository interface {
	// Create assigns an ID and stores the message.
	Create(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	// GetByID returns domain.ErrMessageNotFound when the id is unknown.
	GetByID(ctx context.Context, id int64) (*domain.MessageDetail, error)
	// ListSentBy and ListReceivedBy return messages ordered by id ascending.
	ListSentBy(ctx context.Context, username string) ([]domain.MessageDetail, error)
	ListReceivedBy(ctx context.Context, username string) ([]domain.MessageDetail, error)
	// MarkRead sets read_at only if it is still null, as one conditional
	// update. It returns the stored message and whether this call changed it.
	MarkRead(ctx context.Context, id int64, at time.Time) (*domain.Message, bool, error)
}
