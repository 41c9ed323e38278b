package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"journalapi/internal/model"
	"journalapi/internal/repository"
)

// HistoryPostgres is a PostgreSQL implementation of repository.HistoryRepository.
type HistoryPostgres struct {
	db *sql.DB
}

// NewHistoryPostgres creates a new HistoryPostgres repository.
func NewHistoryPostgres(db *sql.DB) *HistoryPostgres {
	return &HistoryPostgres{db: db}
}

var _ repository.HistoryRepository = (*HistoryPostgres)(nil)

const historyColumns = `id, user_id, content, record_date, tags, s3_key, text_url, created_at, updated_at`

func scanHistory(row interface{ Scan(...any) error }) (*model.History, error) {
	var (
		h       model.History
		tags    pq.StringArray
		s3Key   sql.NullString
		textURL sql.NullString
	)
	if err := row.Scan(
		&h.ID,
		&h.UserID,
		&h.Content,
		&h.RecordDate,
		&tags,
		&s3Key,
		&textURL,
		&h.CreatedAt,
		&h.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	if len(tags) > 0 {
		h.Tags = []string(tags)
	}
	h.S3Key = fromNull(s3Key)
	h.TextURL = fromNull(textURL)
	return &h, nil
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// nullableTags maps an empty tag set to NULL so upserts keep the stored tags.
func nullableTags(tags []string) any {
	if len(tags) == 0 {
		return nil
	}
	return pq.StringArray(tags)
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// FindByID fetches a single record by its ID.
func (r *HistoryPostgres) FindByID(ctx context.Context, id int64) (*model.History, error) {
	const q = `SELECT ` + historyColumns + ` FROM history WHERE id = $1`
	return scanHistory(r.db.QueryRowContext(ctx, q, id))
}

// FindByUserAndDate fetches the record of a user for one day.
func (r *HistoryPostgres) FindByUserAndDate(ctx context.Context, userID string, date model.Date) (*model.History, error) {
	const q = `SELECT ` + historyColumns + ` FROM history WHERE user_id = $1 AND record_date = $2`
	return scanHistory(r.db.QueryRowContext(ctx, q, userID, date))
}

// List returns records newest day first using LIMIT/OFFSET pagination and a total count.
func (r *HistoryPostgres) List(ctx context.Context, f repository.HistoryFilter) (*repository.PageResult[model.History], error) {
	c := &conditions{}
	if f.UserID != "" {
		c.add("user_id = $%d", f.UserID)
	}
	if f.StartDate != nil {
		c.add("record_date >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		c.add("record_date <= $%d", *f.EndDate)
	}
	if len(f.Tags) > 0 {
		c.add("tags && $%d", pq.StringArray(f.Tags))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM history`+c.where(), c.args...).Scan(&total); err != nil {
		return nil, err
	}

	limit, args := c.page(f.PageQuery)
	q := `SELECT ` + historyColumns + ` FROM history` + c.where() +
		` ORDER BY record_date DESC, id DESC` + limit
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.History, 0)
	for rows.Next() {
		h, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.History]{Items: items, Total: total}, nil
}

// Upsert writes the single row for (user_id, record_date).
func (r *HistoryPostgres) Upsert(ctx context.Context, h *model.History) (*model.History, error) {
	const q = `
		INSERT INTO history (user_id, content, record_date, tags, s3_key, text_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		ON CONFLICT (user_id, record_date) DO UPDATE SET
			content    = EXCLUDED.content,
			tags       = COALESCE(EXCLUDED.tags, history.tags),
			s3_key     = COALESCE(EXCLUDED.s3_key, history.s3_key),
			text_url   = COALESCE(EXCLUDED.text_url, history.text_url),
			updated_at = now()
		RETURNING ` + historyColumns
	return scanHistory(r.db.QueryRowContext(ctx, q,
		h.UserID,
		h.Content,
		h.RecordDate,
		nullableTags(h.Tags),
		nullable(h.S3Key),
		nullable(h.TextURL),
	))
}

// Update replaces a record by ID.
func (r *HistoryPostgres) Update(ctx context.Context, h *model.History) (*model.History, error) {
	const q = `
		UPDATE history SET
			user_id = $2, content = $3, record_date = $4, tags = $5, s3_key = $6, text_url = $7,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + historyColumns
	return scanHistory(r.db.QueryRowContext(ctx, q,
		h.ID,
		h.UserID,
		h.Content,
		h.RecordDate,
		nullableTags(h.Tags),
		nullable(h.S3Key),
		nullable(h.TextURL),
	))
}

// Delete removes a record by ID.
func (r *HistoryPostgres) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM history WHERE id = $1`, id)
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
