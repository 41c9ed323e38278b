package postgres

import (
	"context"
	"database/sql"
	"time"

	"journalapi/internal/model"
	"journalapi/internal/repository"
)

// MessagePostgres is a PostgreSQL implementation of repository.MessageRepository.
type MessagePostgres struct {
	db *sql.DB
}

// NewMessagePostgres creates a new MessagePostgres repository.
func NewMessagePostgres(db *sql.DB) *MessagePostgres {
	return &MessagePostgres{db: db}
}

var _ repository.MessageRepository = (*MessagePostgres)(nil)

const messageColumns = `id, user_id, content, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*model.Message, error) {
	var m model.Message
	if err := row.Scan(&m.ID, &m.UserID, &m.Content, &m.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &m, nil
}

// Create inserts a new message row and returns the stored record.
func (r *MessagePostgres) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	const q = `
		INSERT INTO messages (id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + messageColumns
	return scanMessage(r.db.QueryRowContext(ctx, q, msg.ID, msg.UserID, msg.Content, msg.CreatedAt))
}

// FindByID fetches a single message by its ID.
func (r *MessagePostgres) FindByID(ctx context.Context, id string) (*model.Message, error) {
	const q = `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`
	return scanMessage(r.db.QueryRowContext(ctx, q, id))
}

func messageConditions(f repository.MessageFilter) *conditions {
	c := &conditions{}
	if f.UserID != "" {
		c.add("user_id = $%d", f.UserID)
	}
	if f.From != nil {
		c.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		c.add("created_at < $%d", *f.To)
	}
	return c
}

// List returns messages in chronological order.
func (r *MessagePostgres) List(ctx context.Context, f repository.MessageFilter) ([]model.Message, error) {
	c := messageConditions(f)
	limit, args := c.page(f.PageQuery)
	q := `SELECT ` + messageColumns + ` FROM messages` + c.where() +
		` ORDER BY created_at ASC, id ASC` + limit

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

// ListContents returns the non-empty contents of matching messages in chronological order.
func (r *MessagePostgres) ListContents(ctx context.Context, f repository.MessageFilter) ([]string, error) {
	c := messageConditions(f)
	c.clauses = append(c.clauses, "content <> ''")
	limit, args := c.page(f.PageQuery)
	q := `SELECT content FROM messages` + c.where() + ` ORDER BY created_at ASC, id ASC` + limit

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateContent replaces a message's content.
func (r *MessagePostgres) UpdateContent(ctx context.Context, id, content string) (*model.Message, error) {
	const q = `UPDATE messages SET content = $2 WHERE id = $1 RETURNING ` + messageColumns
	return scanMessage(r.db.QueryRowContext(ctx, q, id, content))
}

// Delete removes a message by ID.
func (r *MessagePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM messages WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListUserIDs returns the users that wrote at least one message in [from, to).
func (r *MessagePostgres) ListUserIDs(ctx context.Context, from, to time.Time) ([]string, error) {
	const q = `
		SELECT DISTINCT user_id FROM messages
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY user_id
	`
	rows, err := r.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
