package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/messagely/messagely/internal/core/domain"
)

var userCols = []string{"username", "password", "first_name", "last_name", "phone", "join_at", "last_login_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err, "failed to create mock")
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet(), "unfulfilled expectations")
		mock.Close()
	})
	return mock
}

func TestUserRepository_Create(t *testing.T) {
	joined := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	user := &domain.User{
		Username:     "alice",
		PasswordHash: "$2a$12$hash",
		FirstName:    "Alice",
		LastName:     "Smith",
		Phone:        "555-0100",
		JoinedAt:     joined,
		LastLoginAt:  joined,
	}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name: "successful insert",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("alice", "$2a$12$hash", "Alice", "Smith", "555-0100", joined, joined).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "duplicate username",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("alice", "$2a$12$hash", "Alice", "Smith", "555-0100", joined, joined).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
			},
			wantErr: domain.ErrUserExists,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs("alice", "$2a$12$hash", "Alice", "Smith", "555-0100", joined, joined).
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setupMock(mock)

			got, err := NewUserRepository(mock).Create(context.Background(), user)
			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, domain.ErrDuplicateKey)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.NotErrorIs(t, err, domain.ErrUserExists)
			default:
				require.NoError(t, err)
				assert.Equal(t, user, got)
				assert.NotSame(t, user, got)
			}
		})
	}
}

func TestUserRepository_FindByUsername(t *testing.T) {
	joined := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	login := joined.Add(time.Hour)

	t.Run("found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
			WithArgs("alice").
			WillReturnRows(pgxmock.NewRows(userCols).
				AddRow("alice", "digest", "Alice", "Smith", "555-0100", joined, &login))

		got, err := NewUserRepository(mock).FindByUsername(context.Background(), "alice")
		require.NoError(t, err)
		assert.Equal(t, "digest", got.PasswordHash)
		assert.Equal(t, joined, got.JoinedAt)
		assert.Equal(t, login, got.LastLoginAt)
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, err := NewUserRepository(mock).FindByUsername(context.Background(), "ghost")
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT (.+) FROM users WHERE username`).
			WithArgs("alice").
			WillReturnError(errors.New("timeout"))

		_, err := NewUserRepository(mock).FindByUsername(context.Background(), "alice")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrUserNotFound)
		assert.Contains(t, err.Error(), "timeout")
	})
}

func TestUserRepository_TouchLastLogin(t *testing.T) {
	at := time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC)

	t.Run("updates timestamp", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE users SET last_login_at`).
			WithArgs("alice", at).
			WillReturnRows(pgxmock.NewRows([]string{"last_login_at"}).AddRow(at))

		got, err := NewUserRepository(mock).TouchLastLogin(context.Background(), "alice", at)
		require.NoError(t, err)
		assert.Equal(t, at, got)
	})

	t.Run("unknown user", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`UPDATE users SET last_login_at`).
			WithArgs("ghost", at).
			WillReturnError(pgx.ErrNoRows)

		_, err := NewUserRepository(mock).TouchLastLogin(context.Background(), "ghost", at)
		require.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

func TestUserRepository_ListAll(t *testing.T) {
	t.Run("returns summaries", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT username, first_name, last_name FROM users`).
			WillReturnRows(pgxmock.NewRows([]string{"username", "first_name", "last_name"}).
				AddRow("alice", "Alice", "Smith").
				AddRow("bob", "Bob", "Jones"))

		got, err := NewUserRepository(mock).ListAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []domain.UserSummary{
			{Username: "alice", FirstName: "Alice", LastName: "Smith"},
			{Username: "bob", FirstName: "Bob", LastName: "Jones"},
		}, got)
	})

	t.Run("empty table yields empty slice", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT username, first_name, last_name FROM users`).
			WillReturnRows(pgxmock.NewRows([]string{"username", "first_name", "last_name"}))

		got, err := NewUserRepository(mock).ListAll(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`SELECT username, first_name, last_name FROM users`).
			WillReturnError(errors.New("connection refused"))

		_, err := NewUserRepository(mock).ListAll(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}
