package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/messagely/messagely/internal/core/domain"
)

const selectMessageDetail = `
SELECT m.id, m.from_username, m.to_username, m.body, m.sent_at, m.read_at,
       f.first_name, f.last_name, f.phone,
       t.first_name, t.last_name, t.phone
FROM messages m
JOIN users f ON f.username = m.from_username
JOIN users t ON t.username = m.to_username`

// MessageRepository implements ports.MessageRepository on the messages table.
type MessageRepository struct {
	pool Pool
}

func NewMessageRepository(pool Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	created := *m
	err := r.pool.QueryRow(ctx,
		`INSERT INTO messages (from_username, to_username, body, sent_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, sent_at`,
		m.FromUsername, m.ToUsername, m.Body, m.SentAt,
	).Scan(&created.ID, &created.SentAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, domain.ErrUserNotFound
		}
		return nil, oops.With("operation", "insert message", "from", m.FromUsername, "to", m.ToUsername).Wrap(err)
	}
	created.ReadAt = nil
	return &created, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*domain.MessageDetail, error) {
	d, err := scanDetail(r.pool.QueryRow(ctx, selectMessageDetail+` WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, oops.With("operation", "get message", "id", id).Wrap(err)
	}
	return d, nil
}

func (r *MessageRepository) ListSentBy(ctx context.Context, username string) ([]domain.MessageDetail, error) {
	return r.list(ctx, selectMessageDetail+` WHERE m.from_username = $1 ORDER BY m.id`, username)
}

func (r *MessageRepository) ListReceivedBy(ctx context.Context, username string) ([]domain.MessageDetail, error) {
	return r.list(ctx, selectMessageDetail+` WHERE m.to_username = $1 ORDER BY m.id`, username)
}

// MarkRead only touches rows whose read_at is still null. When nothing was
// updated it re-reads the row to tell a missing message from one already read.
func (r *MessageRepository) MarkRead(ctx context.Context, id int64, at time.Time) (*domain.Message, bool, error) {
	var m domain.Message
	err := r.pool.QueryRow(ctx,
		`UPDATE messages SET read_at = GREATEST($2, sent_at)
		 WHERE id = $1 AND read_at IS NULL
		 RETURNING id, from_username, to_username, body, sent_at, read_at`,
		id, at,
	).Scan(&m.ID, &m.FromUsername, &m.ToUsername, &m.Body, &m.SentAt, &m.ReadAt)
	if err == nil {
		return &m, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, oops.With("operation", "mark message read", "id", id).Wrap(err)
	}

	err = r.pool.QueryRow(ctx,
		`SELECT id, from_username, to_username, body, sent_at, read_at FROM messages WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.FromUsername, &m.ToUsername, &m.Body, &m.SentAt, &m.ReadAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, domain.ErrMessageNotFound
		}
		return nil, false, oops.With("operation", "reload message", "id", id).Wrap(err)
	}
	return &m, false, nil
}

func (r *MessageRepository) list(ctx context.Context, query, username string) ([]domain.MessageDetail, error) {
	rows, err := r.pool.Query(ctx, query, username)
	if err != nil {
		return nil, oops.With("operation", "list messages", "username", username).Wrap(err)
	}
	defer rows.Close()

	out := make([]domain.MessageDetail, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, oops.With("operation", "scan message row").Wrap(err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate messages").Wrap(err)
	}
	return out, nil
}

func scanDetail(row pgx.Row) (*domain.MessageDetail, error) {
	var d domain.MessageDetail
	err := row.Scan(
		&d.ID, &d.FromUsername, &d.ToUsername, &d.Body, &d.SentAt, &d.ReadAt,
		&d.From.FirstName, &d.From.LastName, &d.From.Phone,
		&d.To.FirstName, &d.To.LastName, &d.To.Phone,
	)
	if err != nil {
		return nil, err
	}
	d.From.Username = d.FromUsername
	d.To.Username = d.ToUsername
	return &d, nil
}
