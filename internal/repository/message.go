package repository

import (
	"context"
	"time"

	"journalapi/internal/model"
)

// MessageFilter narrows message queries. Zero values mean "no filter";
// From is inclusive and To is exclusive.
type MessageFilter struct {
	UserID string
	From   *time.Time
	To     *time.Time
	PageQuery
}

// MessageRepository defines data access for messages.
type MessageRepository interface {
	// Create inserts a message. ID and CreatedAt must be set by the caller.
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)

	// FindByID returns ErrNotFound when the id does not exist.
	FindByID(ctx context.Context, id string) (*model.Message, error)

	// List returns messages ordered by created_at ascending.
	List(ctx context.Context, f MessageFilter) ([]model.Message, error)

	// ListContents returns only non-empty contents, ordered by created_at ascending.
	ListContents(ctx context.Context, f MessageFilter) ([]string, error)

	// UpdateContent replaces the content of a message and returns the stored row.
	UpdateContent(ctx context.Context, id, content string) (*model.Message, error)

	// Delete removes a message. It returns ErrNotFound when nothing was deleted.
	Delete(ctx context.Context, id string) error

	// ListUserIDs returns the distinct users that wrote messages in [from, to).
	ListUserIDs(ctx context.Context, from, to time.Time) ([]string, error)
}
