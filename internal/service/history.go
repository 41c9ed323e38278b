package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"journalapi/internal/model"
	"journalapi/internal/repository"
	"journalapi/internal/storage"
)

// SaveHistoryInput is the diary of one user for one day. Nil Tags and S3Key keep
// whatever an existing record already has.
type SaveHistoryInput struct {
	UserID  string
	Content string
	Date    model.Date
	Tags    []string
	S3Key   *string
}

// HistoryQuery filters history listings. Dates are inclusive.
type HistoryQuery struct {
	UserID    string
	StartDate *model.Date
	EndDate   *model.Date
	Tags      []string
	Limit     int
	Offset    int
}

// HistoryListResult is the service-level DTO for paginated history records.
type HistoryListResult struct {
	Items []model.History `json:"data"`
	Total int             `json:"total"`
}

// HistoryService defines the use cases for daily history records and their text files.
type HistoryService interface {
	// SaveForDate creates or overwrites the record of (UserID, Date) and writes its text file.
	SaveForDate(ctx context.Context, in SaveHistoryInput) (*model.History, error)

	List(ctx context.Context, q HistoryQuery) (*HistoryListResult, error)
	Get(ctx context.Context, id int64) (*model.History, error)

	// Update replaces a record by id. Moving it onto an existing (user, date) fails with ErrHistoryConflict.
	Update(ctx context.Context, id int64, in SaveHistoryInput) (*model.History, error)

	// Delete removes the record, then its text file and image on a best-effort basis.
	Delete(ctx context.Context, id int64) error

	ReadText(ctx context.Context, id int64) (string, error)
	ImageURL(ctx context.Context, id int64) (string, error)
}

type historyService struct {
	repo       repository.HistoryRepository
	files      *storage.HistoryFiles
	presignTTL time.Duration
	logger     *zap.Logger
}

// NewHistoryService constructs a HistoryService. files may be nil, in which case no text
// files are written and the storage-backed operations report ErrUnavailable.
func NewHistoryService(repo repository.HistoryRepository, files *storage.HistoryFiles, presignTTL time.Duration, logger *zap.Logger) HistoryService {
	return &historyService{repo: repo, files: files, presignTTL: presignTTL, logger: logger}
}

func (s *historyService) validate(in SaveHistoryInput) (SaveHistoryInput, error) {
	userID, err := validateUserID(in.UserID)
	if err != nil {
		return in, err
	}
	in.UserID = userID
	if strings.TrimSpace(in.Content) == "" {
		return in, ErrContentRequired
	}
	if in.Date.IsZero() {
		return in, ErrDateRequired
	}
	in.Tags = nonEmpty(in.Tags)
	if in.S3Key != nil && strings.TrimSpace(*in.S3Key) == "" {
		in.S3Key = nil
	}
	if in.S3Key != nil && !storage.Owns(in.UserID, *in.S3Key) {
		return in, ErrInvalidImageKey
	}
	return in, nil
}

func (s *historyService) SaveForDate(ctx context.Context, in SaveHistoryInput) (*model.History, error) {
	in, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByUserAndDate(ctx, in.UserID, in.Date)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find history: %w", err)
	}

	h := &model.History{
		UserID:     in.UserID,
		Content:    in.Content,
		RecordDate: in.Date,
		Tags:       in.Tags,
		S3Key:      in.S3Key,
	}

	var key string
	if s.files != nil {
		tags := in.Tags
		if tags == nil && existing != nil {
			tags = existing.Tags
		}
		var url string
		key, url, err = s.files.Save(ctx, in.UserID, in.Date, in.Content, tags)
		if err != nil {
			return nil, fmt.Errorf("%w: save history text: %w", ErrUpstream, err)
		}
		h.TextURL = &url
	}

	stored, err := s.repo.Upsert(ctx, h)
	if err != nil {
		if key != "" && existing == nil {
			s.files.Delete(ctx, key)
		}
		return nil, fmt.Errorf("upsert history: %w", err)
	}

	s.logger.Info("history saved",
		zap.Int64("id", stored.ID),
		zap.String("user_id", in.UserID),
		zap.String("record_date", in.Date.String()),
		zap.Bool("created", existing == nil),
	)
	return stored, nil
}

func (s *historyService) List(ctx context.Context, q HistoryQuery) (*HistoryListResult, error) {
	if q.StartDate != nil && q.EndDate != nil && q.StartDate.After(q.EndDate.Time) {
		return nil, ErrInvalidDateRange
	}
	limit, offset := clampPage(q.Limit, q.Offset)

	res, err := s.repo.List(ctx, repository.HistoryFilter{
		UserID:    strings.TrimSpace(q.UserID),
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Tags:      nonEmpty(q.Tags),
		PageQuery: repository.PageQuery{Limit: limit, Offset: offset},
	})
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	items := res.Items
	if items == nil {
		items = []model.History{}
	}
	return &HistoryListResult{Items: items, Total: res.Total}, nil
}

func (s *historyService) Get(ctx context.Context, id int64) (*model.History, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	h, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapHistoryErr(err)
	}
	return h, nil
}

func (s *historyService) Update(ctx context.Context, id int64, in SaveHistoryInput) (*model.History, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err = s.validate(in)
	if err != nil {
		return nil, err
	}

	moved := cur.UserID != in.UserID || !cur.RecordDate.Equal(in.Date.Time)
	if moved {
		other, err := s.repo.FindByUserAndDate(ctx, in.UserID, in.Date)
		switch {
		case err == nil && other.ID != id:
			return nil, ErrHistoryConflict
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("find history: %w", err)
		}
	}

	upd := &model.History{
		ID:         id,
		UserID:     in.UserID,
		Content:    in.Content,
		RecordDate: in.Date,
		Tags:       in.Tags,
		S3Key:      cur.S3Key,
		TextURL:    cur.TextURL,
		CreatedAt:  cur.CreatedAt,
	}
	if in.S3Key != nil {
		upd.S3Key = in.S3Key
	}

	var snap *storage.Snapshot
	if s.files != nil {
		snap, err = s.files.Snapshot(ctx, storage.Key(in.UserID, in.Date))
		if err != nil {
			return nil, fmt.Errorf("%w: snapshot history text: %w", ErrUpstream, err)
		}
		_, url, err := s.files.Save(ctx, in.UserID, in.Date, in.Content, in.Tags)
		if err != nil {
			return nil, fmt.Errorf("%w: save history text: %w", ErrUpstream, err)
		}
		upd.TextURL = &url
	}

	stored, err := s.repo.Update(ctx, upd)
	if err != nil {
		if snap != nil {
			s.files.Restore(ctx, snap)
		}
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrHistoryConflict
		}
		return nil, mapHistoryErr(err)
	}

	if s.files != nil && moved {
		s.files.Delete(ctx, storage.Key(cur.UserID, cur.RecordDate))
	}
	return stored, nil
}

func (s *historyService) Delete(ctx context.Context, id int64) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapHistoryErr(err)
	}

	if s.files != nil {
		s.files.Delete(ctx, storage.Key(cur.UserID, cur.RecordDate))
		if cur.S3Key != nil && *cur.S3Key != "" {
			if storage.Owns(cur.UserID, *cur.S3Key) {
				s.files.Delete(ctx, *cur.S3Key)
			} else {
				s.logger.Warn("image key outside user prefix left in place", zap.Int64("id", id), zap.String("key", *cur.S3Key))
			}
		}
	}
	s.logger.Info("history deleted", zap.Int64("id", id), zap.String("user_id", cur.UserID))
	return nil
}

func (s *historyService) ReadText(ctx context.Context, id int64) (string, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if s.files == nil {
		return "", ErrUnavailable
	}
	text, err := s.files.Read(ctx, cur.UserID, cur.RecordDate)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return "", ErrTextNotFound
		}
		return "", fmt.Errorf("%w: read history text: %w", ErrUpstream, err)
	}
	return text, nil
}

func (s *historyService) ImageURL(ctx context.Context, id int64) (string, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if cur.S3Key == nil || !storage.Owns(cur.UserID, *cur.S3Key) {
		return "", ErrImageNotFound
	}
	if s.files == nil {
		return "", ErrUnavailable
	}
	url, err := s.files.Presign(ctx, *cur.S3Key, s.presignTTL)
	if err != nil {
		return "", fmt.Errorf("%w: presign image: %w", ErrUpstream, err)
	}
	return url, nil
}

func mapHistoryErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrHistoryNotFound
	}
	return err
}
