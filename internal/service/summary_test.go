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

type fakeSummarizer struct {
	input string
	out   string
	err   error
	calls int
}

func (f *fakeSummarizer) Summarize(_ context.Context, content string, _ llm.Options) (string, error) {
	f.calls++
	f.input = content
	return f.out, f.err
}

func newTestSummaryService(mMsg *repoMocks.MockMessageRepository, mHist *repoMocks.MockHistoryRepository, sum llm.Summarizer) *summaryService {
	svc := NewSummaryService(mMsg, mHist, sum, seoul, zap.NewNop()).(*summaryService)
	svc.clock.now = func() time.Time { return fixedNow }
	return svc
}

func TestSummaryService_Summarize(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		userID     string
		summarizer *fakeSummarizer
		setupMocks func(mMsg *repoMocks.MockMessageRepository)
		wantErr    error
		want       *SummaryResult
		wantInput  string
	}{
		{
			name:       "happy path joins trimmed contents",
			userID:     "user_1",
			summarizer: &fakeSummarizer{out: "오늘은 바빴다."},
			setupMocks: func(mMsg *repoMocks.MockMessageRepository) {
				mMsg.On("ListContents", ctx, repository.MessageFilter{
					UserID:    "user_1",
					PageQuery: repository.PageQuery{Limit: 1000},
				}).Return([]string{" 아침 운동 ", "  ", "점심 약속"}, nil)
			},
			want:      &SummaryResult{Summary: "오늘은 바빴다.", MessageCount: 2},
			wantInput: "아침 운동\n\n점심 약속",
		},
		{
			name:       "invalid user id",
			userID:     "user-1",
			summarizer: &fakeSummarizer{},
			setupMocks: func(mMsg *repoMocks.MockMessageRepository) {},
			wantErr:    ErrInvalidUserID,
		},
		{
			name:       "no messages",
			userID:     "u1",
			summarizer: &fakeSummarizer{},
			setupMocks: func(mMsg *repoMocks.MockMessageRepository) {
				mMsg.On("ListContents", ctx, mock.Anything).Return([]string{" "}, nil)
			},
			wantErr: ErrNoMessages,
		},
		{
			name:       "model throttled",
			userID:     "u1",
			summarizer: &fakeSummarizer{err: llm.ErrThrottled},
			setupMocks: func(mMsg *repoMocks.MockMessageRepository) {
				mMsg.On("ListContents", ctx, mock.Anything).Return([]string{"a"}, nil)
			},
			wantErr: llm.ErrThrottled,
		},
		{
			name:       "repository error",
			userID:     "u1",
			summarizer: &fakeSummarizer{},
			setupMocks: func(mMsg *repoMocks.MockMessageRepository) {
				mMsg.On("ListContents", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mMsg := new(repoMocks.MockMessageRepository)
			tt.setupMocks(mMsg)

			res, err := newTestSummaryService(mMsg, new(repoMocks.MockHistoryRepository), tt.summarizer).Summarize(ctx, tt.userID, nil)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.want == nil:
				assert.Error(t, err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, res)
				assert.Equal(t, tt.wantInput, tt.summarizer.input)
			}
			mMsg.AssertExpectations(t)
		})
	}
}

func TestSummaryService_Summarize_DateWindow(t *testing.T) {
	ctx := context.Background()
	day := model.NewDate(2025, 3, 11)
	from := time.Date(2025, 3, 11, 0, 0, 0, 0, seoul)

	mMsg := new(repoMocks.MockMessageRepository)
	mMsg.On("ListContents", ctx, mock.MatchedBy(func(f repository.MessageFilter) bool {
		return f.From != nil && f.From.Equal(from) && f.To.Equal(from.AddDate(0, 0, 1))
	})).Return([]string{"a"}, nil)

	res, err := newTestSummaryService(mMsg, nil, &fakeSummarizer{out: "s"}).Summarize(ctx, "u1", &day)
	require.NoError(t, err)
	assert.Equal(t, 1, res.MessageCount)
}

func TestSummaryService_Summarize_NoSummarizer(t *testing.T) {
	ctx := context.Background()
	mMsg := new(repoMocks.MockMessageRepository)
	mMsg.On("ListContents", ctx, mock.Anything).Return([]string{"a"}, nil)

	_, err := newTestSummaryService(mMsg, nil, nil).Summarize(ctx, "u1", nil)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSummaryService_CheckToday(t *testing.T) {
	ctx := context.Background()
	today := model.NewDate(2025, 3, 11)

	t.Run("exists", func(t *testing.T) {
		mHist := new(repoMocks.MockHistoryRepository)
		mHist.On("FindByUserAndDate", ctx, "u1", today).Return(&model.History{RecordDate: today, Content: "일기"}, nil)

		res, err := newTestSummaryService(nil, mHist, nil).CheckToday(ctx, "u1")
		require.NoError(t, err)
		assert.True(t, res.Exists)
		assert.Equal(t, today, *res.RecordDate)
		assert.Equal(t, "일기", *res.Summary)
	})

	t.Run("missing", func(t *testing.T) {
		mHist := new(repoMocks.MockHistoryRepository)
		mHist.On("FindByUserAndDate", ctx, "u1", today).Return(nil, repository.ErrNotFound)

		res, err := newTestSummaryService(nil, mHist, nil).CheckToday(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, &SummaryCheck{}, res)
	})

	t.Run("invalid user", func(t *testing.T) {
		_, err := newTestSummaryService(nil, nil, nil).CheckToday(ctx, "bad user")
		assert.ErrorIs(t, err, ErrInvalidUserID)
	})
}
