package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/messagely/messagely/internal/core/domain"
)

// UserRepository implements ports.UserRepository on the users table.
type UserRepository struct {
	pool Pool
}

func NewUserRepository(pool Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (username, password, first_name, last_name, phone, join_at, last_login_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.Username, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.JoinedAt, u.LastLoginAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserExists
		}
		return nil, oops.With("operation", "insert user", "username", u.Username).Wrap(err)
	}
	created := *u
	return &created, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var (
		u         domain.User
		lastLogin *time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT username, password, first_name, last_name, phone, join_at, last_login_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&u.Username, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.JoinedAt, &lastLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, oops.With("operation", "find user", "username", username).Wrap(err)
	}
	if lastLogin != nil {
		u.LastLoginAt = *lastLogin
	}
	return &u, nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, username string, at time.Time) (time.Time, error) {
	var stored time.Time
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET last_login_at = $2 WHERE username = $1 RETURNING last_login_at`,
		username, at,
	).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, domain.ErrUserNotFound
		}
		return time.Time{}, oops.With("operation", "touch last login", "username", username).Wrap(err)
	}
	return stored, nil
}

func (r *UserRepository) ListAll(ctx context.Context) ([]domain.UserSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT username, first_name, last_name FROM users ORDER BY username`)
	if err != nil {
		return nil, oops.With("operation", "list users").Wrap(err)
	}
	defer rows.Close()

	users := make([]domain.UserSummary, 0)
	for rows.Next() {
		var s domain.UserSummary
		if err := rows.Scan(&s.Username, &s.FirstName, &s.LastName); err != nil {
			return nil, oops.With("operation", "scan user row").Wrap(err)
		}
		users = append(users, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate users").Wrap(err)
	}
	return users, nil
}
