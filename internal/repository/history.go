package repository

import (
	"context"

	"journalapi/internal/model"
)

// HistoryFilter narrows history queries. Dates are inclusive on both ends and
// Tags matches any overlap.
type HistoryFilter struct {
	UserID    string
	StartDate *model.Date
	EndDate   *model.Date
	Tags      []string
	PageQuery
}

// HistoryRepository defines data access for daily history records.
type HistoryRepository interface {
	FindByID(ctx context.Context, id int64) (*model.History, error)

	FindByUserAndDate(ctx context.Context, userID string, date model.Date) (*model.History, error)

	// List returns records ordered by record_date descending plus the total match count.
	List(ctx context.Context, f HistoryFilter) (*PageResult[model.History], error)

	// Upsert inserts or overwrites the row for (UserID, RecordDate). Nil Tags, S3Key and TextURL
	// keep the values already stored.
	Upsert(ctx context.Context, h *model.History) (*model.History, error)

	// Update replaces every column of row h.ID. It returns ErrConflict when the new
	// (UserID, RecordDate) belongs to another row.
	Update(ctx context.Context, h *model.History) (*model.History, error)

	// Delete returns ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, id int64) error
}
