package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"journalapi/internal/llm"
	"journalapi/internal/model"
	"journalapi/internal/repository"
)

const maxSummaryMessages = 1000

// SummaryResult is a generated diary plus how many messages fed it.
type SummaryResult struct {
	Summary      string `json:"summary"`
	MessageCount int    `json:"message_count"`
}

// SummaryCheck reports whether today's history already exists.
type SummaryCheck struct {
	Exists     bool        `json:"exists"`
	RecordDate *model.Date `json:"record_date"`
	Summary    *string     `json:"summary"`
}

// SummaryService defines the summarization use cases.
type SummaryService interface {
	// Summarize turns a user's messages into diary prose. A nil date covers every message.
	Summarize(ctx context.Context, userID string, date *model.Date) (*SummaryResult, error)

	CheckToday(ctx context.Context, userID string) (*SummaryCheck, error)
}

type summaryService struct {
	messages   repository.MessageRepository
	histories  repository.HistoryRepository
	summarizer llm.Summarizer
	clock      clock
	logger     *zap.Logger
}

// NewSummaryService constructs a SummaryService. summarizer may be nil.
func NewSummaryService(messages repository.MessageRepository, histories repository.HistoryRepository, summarizer llm.Summarizer, loc *time.Location, logger *zap.Logger) SummaryService {
	return &summaryService{
		messages:   messages,
		histories:  histories,
		summarizer: summarizer,
		clock:      newClock(loc),
		logger:     logger,
	}
}

func validateSummaryUser(userID string) error {
	if !summaryUserPattern.MatchString(userID) || len(userID) > maxUserIDLen {
		return ErrInvalidUserID
	}
	return nil
}

func (s *summaryService) Summarize(ctx context.Context, userID string, date *model.Date) (*SummaryResult, error) {
	if err := validateSummaryUser(userID); err != nil {
		return nil, err
	}

	f := repository.MessageFilter{
		UserID:    userID,
		PageQuery: repository.PageQuery{Limit: maxSummaryMessages},
	}
	if date != nil {
		from, to := date.Bounds(s.clock.loc)
		f.From, f.To = &from, &to
	}
	rows, err := s.messages.ListContents(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list message contents: %w", err)
	}

	contents := make([]string, 0, len(rows))
	for _, c := range rows {
		if c = strings.TrimSpace(c); c != "" {
			contents = append(contents, c)
		}
	}
	if len(contents) == 0 {
		return nil, ErrNoMessages
	}
	if s.summarizer == nil {
		return nil, ErrUnavailable
	}

	summary, err := s.summarizer.Summarize(ctx, strings.Join(contents, "\n\n"), llm.Options{})
	if err != nil {
		s.logger.Error("summarize", zap.String("user_id", userID), zap.Int("messages", len(contents)), zap.Error(err))
		return nil, upstreamErr("summarize", err)
	}
	return &SummaryResult{Summary: summary, MessageCount: len(contents)}, nil
}

func (s *summaryService) CheckToday(ctx context.Context, userID string) (*SummaryCheck, error) {
	if err := validateSummaryUser(userID); err != nil {
		return nil, err
	}
	h, err := s.histories.FindByUserAndDate(ctx, userID, s.clock.today())
	if errors.Is(err, repository.ErrNotFound) {
		return &SummaryCheck{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find history: %w", err)
	}
	date, content := h.RecordDate, h.Content
	return &SummaryCheck{Exists: true, RecordDate: &date, Summary: &content}, nil
}
