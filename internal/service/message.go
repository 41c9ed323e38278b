package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"journalapi/internal/model"
	"journalapi/internal/repository"
)

// CreateMessageInput is a new message. CreatedAt defaults to now.
type CreateMessageInput struct {
	UserID    string
	Content   string
	CreatedAt *time.Time
}

// MessageQuery selects messages. An empty UserID matches every user.
type MessageQuery struct {
	UserID string
	Date   *model.Date
	Limit  int
	Offset int
}

// MessageService defines the use cases for short journal messages.
type MessageService interface {
	Create(ctx context.Context, in CreateMessageInput) (*model.Message, error)

	// List returns the messages of Date, or of today in the app timezone when Date is nil.
	List(ctx context.Context, q MessageQuery) ([]model.Message, error)

	// Contents joins non-empty message contents with ", ". Date narrows the window only when set.
	Contents(ctx context.Context, q MessageQuery) (string, error)

	Get(ctx context.Context, id string) (*model.Message, error)
	UpdateContent(ctx context.Context, id, content string) (*model.Message, error)
	Delete(ctx context.Context, id string) error
}

type messageService struct {
	repo   repository.MessageRepository
	clock  clock
	logger *zap.Logger
}

// NewMessageService constructs a MessageService that resolves days in loc.
func NewMessageService(repo repository.MessageRepository, loc *time.Location, logger *zap.Logger) MessageService {
	return &messageService{repo: repo, clock: newClock(loc), logger: logger}
}

func (s *messageService) Create(ctx context.Context, in CreateMessageInput) (*model.Message, error) {
	userID, err := validateUserID(in.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrContentRequired
	}
	createdAt := s.clock.now().UTC()
	if in.CreatedAt != nil && !in.CreatedAt.IsZero() {
		createdAt = in.CreatedAt.UTC()
	}

	msg, err := s.repo.Create(ctx, &model.Message{
		ID:        uuid.NewString(),
		UserID:    userID,
		Content:   in.Content,
		CreatedAt: createdAt,
	})
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	s.logger.Debug("message created", zap.String("id", msg.ID), zap.String("user_id", userID))
	return msg, nil
}

func (s *messageService) List(ctx context.Context, q MessageQuery) ([]model.Message, error) {
	day := s.clock.today()
	if q.Date != nil {
		day = *q.Date
	}
	f := s.filter(q)
	from, to := day.Bounds(s.clock.loc)
	f.From, f.To = &from, &to

	msgs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

func (s *messageService) Contents(ctx context.Context, q MessageQuery) (string, error) {
	f := s.filter(q)
	if q.Date != nil {
		from, to := q.Date.Bounds(s.clock.loc)
		f.From, f.To = &from, &to
	}
	contents, err := s.repo.ListContents(ctx, f)
	if err != nil {
		return "", fmt.Errorf("list message contents: %w", err)
	}
	return strings.Join(contents, ", "), nil
}

func (s *messageService) filter(q MessageQuery) repository.MessageFilter {
	limit, offset := clampPage(q.Limit, q.Offset)
	return repository.MessageFilter{
		UserID:    strings.TrimSpace(q.UserID),
		PageQuery: repository.PageQuery{Limit: limit, Offset: offset},
	}
}

func (s *messageService) Get(ctx context.Context, id string) (*model.Message, error) {
	id, err := normalizeMessageID(id)
	if err != nil {
		return nil, err
	}
	msg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapMessageErr(err)
	}
	return msg, nil
}

func (s *messageService) UpdateContent(ctx context.Context, id, content string) (*model.Message, error) {
	id, err := normalizeMessageID(id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}
	msg, err := s.repo.UpdateContent(ctx, id, content)
	if err != nil {
		return nil, mapMessageErr(err)
	}
	return msg, nil
}

func (s *messageService) Delete(ctx context.Context, id string) error {
	id, err := normalizeMessageID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapMessageErr(err)
	}
	s.logger.Debug("message deleted", zap.String("id", id))
	return nil
}

// normalizeMessageID returns the canonical hyphenated form of any spelling uuid.Parse accepts.
func normalizeMessageID(id string) (string, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

func mapMessageErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrMessageNotFound
	}
	return err
}
