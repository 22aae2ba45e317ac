package ports

import (
	"context"
	"time"

	"github.com/messagely/messagely/internal/core/domain"
)

// UserRepository owns user identity records.
type UserRepository interface {
	// Create stores a new user. Returns domain.ErrUserExists on a username collision.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// FindByUsername returns domain.ErrUserNotFound when no such user exists.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// TouchLastLogin sets last_login_at and returns the stored value.
	TouchLastLogin(ctx context.Context, username string, at time.Time) (time.Time, error)
	// ListAll returns every user. Ordering is not part of the contract.
	ListAll(ctx context.Context) ([]domain.UserSummary, error)
}
