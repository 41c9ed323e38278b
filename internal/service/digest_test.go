package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"journalapi/internal/llm"
	"journalapi/internal/model"
	"journalapi/internal/repository"
	repoMocks "journalapi/internal/repository/mocks"
)

func TestDigestService_Run(t *testing.T) {
	ctx := context.Background()
	day := model.NewDate(2025, 3, 11)
	from := time.Date(2025, 3, 11, 0, 0, 0, 0, seoul)
	to := from.AddDate(0, 0, 1)

	mMsg := new(repoMocks.MockMessageRepository)
	mHist := new(repoMocks.MockHistoryRepository)

	mMsg.On("ListUserIDs", ctx, from, to).Return([]string{"done", "fresh", "quiet", "broken", "bad-id"}, nil)

	mHist.On("FindByUserAndDate", ctx, "done", day).Return(&model.History{ID: 1}, nil)

	mHist.On("FindByUserAndDate", ctx, "fresh", day).Return(nil, repository.ErrNotFound).Once()
	mMsg.On("ListContents", ctx, mock.MatchedBy(func(f repository.MessageFilter) bool { return f.UserID == "fresh" })).
		Return([]string{"산책", "독서"}, nil)
	mHist.On("FindByUserAndDate", ctx, "fresh", day).Return(nil, repository.ErrNotFound).Once()
	mHist.On("Upsert", ctx, mock.MatchedBy(func(h *model.History) bool {
		return h.UserID == "fresh" && h.Content == "요약" && h.RecordDate.Equal(day.Time)
	})).Return(&model.History{ID: 2}, nil)

	mHist.On("FindByUserAndDate", ctx, "quiet", day).Return(nil, repository.ErrNotFound)
	mMsg.On("ListContents", ctx, mock.MatchedBy(func(f repository.MessageFilter) bool { return f.UserID == "quiet" })).
		Return([]string{}, nil)

	mHist.On("FindByUserAndDate", ctx, "broken", day).Return(nil, errors.New("db fail"))

	mHist.On("FindByUserAndDate", ctx, "bad-id", day).Return(nil, repository.ErrNotFound)

	sum := &fakeSummarizer{out: "요약"}
	summary := NewSummaryService(mMsg, mHist, sum, seoul, zap.NewNop())
	history := NewHistoryService(mHist, nil, time.Minute, zap.NewNop())

	rep, err := NewDigestService(mMsg, mHist, summary, history, seoul, zap.NewNop()).Run(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, &DigestReport{Date: day, Users: 5, Created: 1, Skipped: 3, Failed: 1}, rep)
	assert.Equal(t, 1, sum.calls)
	mMsg.AssertExpectations(t)
	mHist.AssertExpectations(t)
}

func TestDigestService_Run_SummarizerFailureCounts(t *testing.T) {
	ctx := context.Background()
	day := model.NewDate(2025, 3, 11)

	mMsg := new(repoMocks.MockMessageRepository)
	mHist := new(repoMocks.MockHistoryRepository)
	mMsg.On("ListUserIDs", ctx, mock.Anything, mock.Anything).Return([]string{"u1"}, nil)
	mHist.On("FindByUserAndDate", ctx, "u1", day).Return(nil, repository.ErrNotFound)
	mMsg.On("ListContents", ctx, mock.Anything).Return([]string{"a"}, nil)

	summary := NewSummaryService(mMsg, mHist, &fakeSummarizer{err: llm.ErrThrottled}, seoul, zap.NewNop())
	history := NewHistoryService(mHist, nil, time.Minute, zap.NewNop())

	rep, err := NewDigestService(mMsg, mHist, summary, history, seoul, zap.NewNop()).Run(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
}

func TestDigestService_Run_ListError(t *testing.T) {
	mMsg := new(repoMocks.MockMessageRepository)
	mMsg.On("ListUserIDs", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db fail"))

	_, err := NewDigestService(mMsg, nil, nil, nil, seoul, zap.NewNop()).Run(context.Background(), model.NewDate(2025, 3, 11))
	assert.Error(t, err)
}
