package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"journalapi/internal/model"
	"journalapi/internal/repository"
)

// DigestReport counts what a digest run did.
type DigestReport struct {
	Date    model.Date `json:"date"`
	Users   int        `json:"users"`
	Created int        `json:"created"`
	Skipped int        `json:"skipped"`
	Failed  int        `json:"failed"`
}

// DigestService writes the diary of every user who has messages but no history for a day.
type DigestService interface {
	Run(ctx context.Context, date model.Date) (*DigestReport, error)
}

type digestService struct {
	messages  repository.MessageRepository
	histories repository.HistoryRepository
	summary   SummaryService
	history   HistoryService
	loc       *time.Location
	logger    *zap.Logger
}

func NewDigestService(messages repository.MessageRepository, histories repository.HistoryRepository, summary SummaryService, history HistoryService, loc *time.Location, logger *zap.Logger) DigestService {
	if loc == nil {
		loc = time.UTC
	}
	return &digestService{
		messages:  messages,
		histories: histories,
		summary:   summary,
		history:   history,
		loc:       loc,
		logger:    logger,
	}
}

func (s *digestService) Run(ctx context.Context, date model.Date) (*DigestReport, error) {
	from, to := date.Bounds(s.loc)
	users, err := s.messages.ListUserIDs(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list digest users: %w", err)
	}

	rep := &DigestReport{Date: date, Users: len(users)}
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		switch created, err := s.digestUser(ctx, userID, date); {
		case err != nil:
			rep.Failed++
			s.logger.Error("digest user", zap.String("user_id", userID), zap.String("date", date.String()), zap.Error(err))
		case created:
			rep.Created++
		default:
			rep.Skipped++
		}
	}

	s.logger.Info("digest finished",
		zap.String("date", date.String()),
		zap.Int("users", rep.Users),
		zap.Int("created", rep.Created),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
	)
	return rep, nil
}

func (s *digestService) digestUser(ctx context.Context, userID string, date model.Date) (bool, error) {
	_, err := s.histories.FindByUserAndDate(ctx, userID, date)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, err
	}

	sum, err := s.summary.Summarize(ctx, userID, &date)
	if errors.Is(err, ErrNoMessages) || errors.Is(err, ErrInvalidUserID) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := s.history.SaveForDate(ctx, SaveHistoryInput{UserID: userID, Content: sum.Summary, Date: date}); err != nil {
		return false, err
	}
	return true, nil
}
