package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"journalapi/internal/model"
	"journalapi/internal/repository"
	repoMocks "journalapi/internal/repository/mocks"
	"journalapi/internal/storage"
	storeMocks "journalapi/internal/storage/mocks"
)

const textKey = "u1/history/2025/03/2025-03-11.txt"

const imageKey = "u1/images/img.png"

func strPtr(s string) *string { return &s }

func newTestHistoryService(repo repository.HistoryRepository, store storage.ObjectStore) HistoryService {
	var files *storage.HistoryFiles
	if store != nil {
		files = storage.NewHistoryFiles(store, "bucket", "ap-northeast-2", "", zap.NewNop())
	}
	return NewHistoryService(repo, files, 15*time.Minute, zap.NewNop())
}

func TestHistoryService_SaveForDate(t *testing.T) {
	ctx := context.Background()
	day := model.NewDate(2025, 3, 11)
	textURL := "https://bucket.s3.ap-northeast-2.amazonaws.com/" + textKey

	tests := []struct {
		name       string
		in         SaveHistoryInput
		noStore    bool
		setupMocks func(mRepo *repoMocks.MockHistoryRepository, mStore *storeMocks.MockObjectStore)
		wantErr    error
		wantErrMsg string
	}{
		{
			name: "new record writes text then upserts",
			in:   SaveHistoryInput{UserID: "u1", Content: "오늘의 일기", Date: day, Tags: []string{"산책", " "}},
			setupMocks: func(mRepo *repoMocks.MockHistoryRepository, mStore *storeMocks.MockObjectStore) {
				mRepo.On("FindByUserAndDate", ctx, "u1", day).Return(nil, repository.ErrNotFound)
				mStore.On("Put", ctx, textKey, mock.Anything, mock.Anything).Return(storage.Object{Key: textKey}, nil)
				mRepo.On("Upsert", ctx, mock.MatchedBy(func(h *model.History) bool {
					return h.UserID == "u1" && h.TextURL != nil && *h.TextURL == textURL &&
						len(h.Tags) == 1 && h.Tags[0] == "산책" && h.S3Key == nil
				})).Return(&model.History{ID: 7}, nil)
			},
		},
		{
			name: "existing record keeps its tags in the text file",
			in:   SaveHistoryInput{UserID: "u1", Content: "다시 쓴 일기", Date: day},
			setupMocks: func(mRepo *repoMocks.MockHistoryRepository, mStore *storeMocks.MockObjectStore) {
				mRepo.On("FindByUserAndDate", ctx, "u1", day).
					Return(&model.History{ID: 7, Tags: []string{"기존"}}, nil)
				mStore.On("Put", ctx, textKey, mock.MatchedBy(func(r *bytes.Reader) bool {
					b := make([]byte, r.Size())
					_, _ = r.ReadAt(b, 0)
					return strings.Contains(string(b), "태그: 기존")
				}), mock.Anything).Return(storage.Object{Key: textKey}, nil)
				mRepo.On("Upsert", ctx, mock.MatchedBy(func(h *model.History) bool {
					return h.Tags == nil
				})).Return(&model.History{ID: 7}, nil)
			},
		},
		{
			name: "storage failure is upstream",
			in:   SaveHistoryInput{UserID: "u1", Content: "x", Date: day},
			setupMocks: func(mRepo *repoMocks.MockHistoryRepository, mStore *storeMocks.MockObjectStore) {
				mRepo.On("FindByUserAndDate", ctx, "u1", day).Return(nil, repository.ErrNotFound)
				mStore.On("Put", ctx, textKey, mock.Anything, mock.Anything).Return(storage.Object{}, errors.New("s3 down"))
			},
			wantErr: ErrUpstream,
		},
		{
			name: "upsert failure on new record rolls back the text file",
			in:   SaveHistoryInput{UserID: "u1", Content: "x", Date: day},
			setupMocks: func(mRepo *repoMocks.MockHistoryRepository, mStore *storeMocks.MockObjectStore) {
				mRepo.On("FindByUserAndDate", ctx, "u1", day).Return(nil, repository.ErrNotFound)
				mStore.On("Put", ctx, textKey, mock.Anything, mock.Anything).Return(storage.Object{Key: textKey}, nil)
				mRepo.On("Upsert", ctx, mock.Anything).Return(nil, errors.New("db fail"))
				mStore.On("Delete", ctx, textKey).Return(nil)
			},
			wantErrMsg: "upsert history: db fail",
		},
		{
			name: "upsert failure on existing record keeps the file",
			in:   SaveHistoryInput{UserID: "u1", Content: "x", Date: day},
			setupMocks: func(mRepo *repoMocks.MockHistoryRepository, mStore *storeMocks.MockObjectStore) {
				mRepo.On("FindByUserAndDate", ctx, "u1", day).Return(&model.History{ID: 7}, nil)
				mStore.On("Put", ctx, textKey, mock.Anything, mock.Anything).Return(storage.Object{Key: textKey}, nil)
				mRepo.On("Upsert", ctx, mock.Anything).Return(nil, errors.New("db fail"))
			},
			wantErrMsg: "upsert history: db fail",
		},
		{
			name:    "no storage configured skips the file",
			in:      SaveHistoryInput{UserID: "u1", Content: "x", Date: day},
			noStore: true,
			setupMocks: func(mRepo *repoMocks.MockHistoryRepository, mStore *storeMocks.MockObjectStore) {
				mRepo.On("FindByUserAndDate", ctx, "u1", day).Return(nil, repository.ErrNotFound)
				mRepo.On("Upsert", ctx, mock.MatchedBy(func(h *model.History) bool {
					return h.TextURL == nil
				})).Return(&model.History{ID: 1}, nil)
			},
		},
		{
			name:       "validation - content",
			in:         SaveHistoryInput{UserID: "u1", Date: day},
			setupMocks: func(mRepo *repoMocks.MockHistoryRepository, mStore *storeMocks.MockObjectStore) {},
			wantErr:    ErrContentRequired,
		},
		{
			name:       "validation - date",
			in:         SaveHistoryInput{UserID: "u1", Content: "x"},
			setupMocks: func(mRepo *repoMocks.MockHistoryRepository, mStore *storeMocks.MockObjectStore) {},
			wantErr:    ErrDateRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockHistoryRepository)
			mStore := new(storeMocks.MockObjectStore)
			tt.setupMocks(mRepo, mStore)

			var store storage.ObjectStore = mStore
			if tt.noStore {
				store = nil
			}
			h, err := newTestHistoryService(mRepo, store).SaveForDate(ctx, tt.in)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
			default:
				require.NoError(t, err)
				assert.NotNil(t, h)
			}
			mRepo.AssertExpectations(t)
			mStore.AssertExpectations(t)
		})
	}
}

func TestHistoryService_List(t *testing.T) {
	ctx := context.Background()
	start, end := model.NewDate(2025, 3, 1), model.NewDate(2025, 3, 31)

	t.Run("invalid range", func(t *testing.T) {
		_, err := newTestHistoryService(new(repoMocks.MockHistoryRepository), nil).
			List(ctx, HistoryQuery{StartDate: &end, EndDate: &start})
		assert.ErrorIs(t, err, ErrInvalidDateRange)
	})

	t.Run("happy path", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mRepo.On("List", ctx, repository.HistoryFilter{
			UserID:    "u1",
			StartDate: &start,
			EndDate:   &end,
			Tags:      []string{"a", "b"},
			PageQuery: repository.PageQuery{Limit: 100},
		}).Return(&repository.PageResult[model.History]{Items: []model.History{{ID: 1}}, Total: 3}, nil)

		res, err := newTestHistoryService(mRepo, nil).List(ctx, HistoryQuery{
			UserID: "u1", StartDate: &start, EndDate: &end, Tags: []string{"a", "", "b"},
		})
		require.NoError(t, err)
		assert.Len(t, res.Items, 1)
		assert.Equal(t, 3, res.Total)
	})
}

func TestHistoryService_Update(t *testing.T) {
	ctx := context.Background()
	oldDay, newDay := model.NewDate(2025, 3, 11), model.NewDate(2025, 3, 12)
	cur := &model.History{ID: 7, UserID: "u1", RecordDate: oldDay, S3Key: strPtr(imageKey)}

	t.Run("not found", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mRepo.On("FindByID", ctx, int64(7)).Return(nil, repository.ErrNotFound)
		_, err := newTestHistoryService(mRepo, nil).Update(ctx, 7, SaveHistoryInput{UserID: "u1", Content: "x", Date: oldDay})
		assert.ErrorIs(t, err, ErrHistoryNotFound)
	})

	t.Run("moving onto another record conflicts before writing", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mStore := new(storeMocks.MockObjectStore)
		mRepo.On("FindByID", ctx, int64(7)).Return(cur, nil)
		mRepo.On("FindByUserAndDate", ctx, "u1", newDay).Return(&model.History{ID: 9}, nil)

		_, err := newTestHistoryService(mRepo, mStore).Update(ctx, 7, SaveHistoryInput{UserID: "u1", Content: "x", Date: newDay})
		assert.ErrorIs(t, err, ErrHistoryConflict)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("repository conflict", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mRepo.On("FindByID", ctx, int64(7)).Return(cur, nil)
		mRepo.On("Update", ctx, mock.Anything).Return(nil, repository.ErrConflict)
		_, err := newTestHistoryService(mRepo, nil).Update(ctx, 7, SaveHistoryInput{UserID: "u1", Content: "x", Date: oldDay})
		assert.ErrorIs(t, err, ErrHistoryConflict)
	})

	t.Run("move rewrites the file and removes the old one", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mStore := new(storeMocks.MockObjectStore)
		newKey := "u1/history/2025/03/2025-03-12.txt"

		mRepo.On("FindByID", ctx, int64(7)).Return(cur, nil)
		mRepo.On("FindByUserAndDate", ctx, "u1", newDay).Return(nil, repository.ErrNotFound)
		mStore.On("Stat", ctx, newKey).Return(storage.Object{}, storage.ErrObjectNotFound)
		mStore.On("Put", ctx, newKey, mock.Anything, mock.Anything).Return(storage.Object{Key: newKey}, nil)
		mRepo.On("Update", ctx, mock.MatchedBy(func(h *model.History) bool {
			return h.ID == 7 && h.RecordDate.Equal(newDay.Time) && h.S3Key != nil && *h.S3Key == imageKey &&
				h.TextURL != nil && strings.HasSuffix(*h.TextURL, newKey)
		})).Return(&model.History{ID: 7, RecordDate: newDay}, nil)
		mStore.On("Delete", ctx, textKey).Return(nil)

		h, err := newTestHistoryService(mRepo, mStore).Update(ctx, 7, SaveHistoryInput{UserID: "u1", Content: "x", Date: newDay})
		require.NoError(t, err)
		assert.Equal(t, int64(7), h.ID)
		mRepo.AssertExpectations(t)
		mStore.AssertExpectations(t)
	})
}

func TestHistoryService_Update_RestoresFileOnFailure(t *testing.T) {
	ctx := context.Background()
	day, newDay := model.NewDate(2025, 3, 11), model.NewDate(2025, 3, 12)
	newKey := "u1/history/2025/03/2025-03-12.txt"
	cur := &model.History{ID: 7, UserID: "u1", Content: "예전 일기", RecordDate: day}

	t.Run("same key gets its previous body back", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mStore := new(storeMocks.MockObjectStore)
		prev := "날짜: 2025-03-11\n사용자: u1\n\n내용:\n예전 일기"

		mRepo.On("FindByID", ctx, int64(7)).Return(cur, nil)
		mStore.On("Stat", ctx, textKey).Return(storage.Object{Key: textKey}, nil)
		mStore.On("Get", ctx, textKey).Return(io.NopCloser(strings.NewReader(prev)), storage.Object{Key: textKey}, nil)
		mStore.On("Put", ctx, textKey, mock.Anything, mock.Anything).Return(storage.Object{Key: textKey}, nil)
		mRepo.On("Update", ctx, mock.Anything).Return(nil, repository.ErrConflict)

		_, err := newTestHistoryService(mRepo, mStore).Update(ctx, 7, SaveHistoryInput{UserID: "u1", Content: "새 일기", Date: day})
		assert.ErrorIs(t, err, ErrHistoryConflict)

		var bodies []string
		for _, c := range mStore.Calls {
			if c.Method == "Put" {
				r := c.Arguments.Get(2).(*bytes.Reader)
				b := make([]byte, r.Size())
				_, _ = r.ReadAt(b, 0)
				bodies = append(bodies, string(b))
			}
		}
		require.Len(t, bodies, 2)
		assert.Contains(t, bodies[0], "새 일기")
		assert.Equal(t, prev, bodies[1])
	})

	t.Run("new key is removed", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mStore := new(storeMocks.MockObjectStore)

		mRepo.On("FindByID", ctx, int64(7)).Return(cur, nil)
		mRepo.On("FindByUserAndDate", ctx, "u1", newDay).Return(nil, repository.ErrNotFound)
		mStore.On("Stat", ctx, newKey).Return(storage.Object{}, storage.ErrObjectNotFound)
		mStore.On("Put", ctx, newKey, mock.Anything, mock.Anything).Return(storage.Object{Key: newKey}, nil)
		mRepo.On("Update", ctx, mock.Anything).Return(nil, repository.ErrConflict)
		mStore.On("Delete", ctx, newKey).Return(nil)

		_, err := newTestHistoryService(mRepo, mStore).Update(ctx, 7, SaveHistoryInput{UserID: "u1", Content: "새 일기", Date: newDay})
		assert.ErrorIs(t, err, ErrHistoryConflict)
		mStore.AssertExpectations(t)
		mStore.AssertNotCalled(t, "Delete", ctx, textKey)
	})

	t.Run("snapshot failure writes nothing", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mStore := new(storeMocks.MockObjectStore)

		mRepo.On("FindByID", ctx, int64(7)).Return(cur, nil)
		mStore.On("Stat", ctx, textKey).Return(storage.Object{}, errors.New("s3 down"))

		_, err := newTestHistoryService(mRepo, mStore).Update(ctx, 7, SaveHistoryInput{UserID: "u1", Content: "새 일기", Date: day})
		assert.ErrorIs(t, err, ErrUpstream)
		mStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		mRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestHistoryService_ImageKeyOwnership(t *testing.T) {
	ctx := context.Background()
	day := model.NewDate(2025, 3, 11)

	for _, key := range []string{"u2/images/a.png", "img.png", "u1/../u2/a.png", "u10/a.png"} {
		_, err := newTestHistoryService(new(repoMocks.MockHistoryRepository), nil).
			SaveForDate(ctx, SaveHistoryInput{UserID: "u1", Content: "x", Date: day, S3Key: strPtr(key)})
		assert.ErrorIs(t, err, ErrInvalidImageKey, key)
	}

	foreign := &model.History{ID: 7, UserID: "u1", RecordDate: day, S3Key: strPtr("u2/images/a.png")}

	t.Run("delete leaves a foreign image alone", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mStore := new(storeMocks.MockObjectStore)
		mRepo.On("FindByID", ctx, int64(7)).Return(foreign, nil)
		mRepo.On("Delete", ctx, int64(7)).Return(nil)
		mStore.On("Delete", ctx, textKey).Return(nil)

		require.NoError(t, newTestHistoryService(mRepo, mStore).Delete(ctx, 7))
		mStore.AssertNotCalled(t, "Delete", ctx, "u2/images/a.png")
	})

	t.Run("foreign image is not presigned", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mStore := new(storeMocks.MockObjectStore)
		mRepo.On("FindByID", ctx, int64(7)).Return(foreign, nil)

		_, err := newTestHistoryService(mRepo, mStore).ImageURL(ctx, 7)
		assert.ErrorIs(t, err, ErrImageNotFound)
		mStore.AssertNotCalled(t, "PresignGet", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHistoryService_Delete(t *testing.T) {
	ctx := context.Background()
	day := model.NewDate(2025, 3, 11)

	t.Run("deletes row then objects best effort", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mStore := new(storeMocks.MockObjectStore)
		mRepo.On("FindByID", ctx, int64(7)).Return(&model.History{ID: 7, UserID: "u1", RecordDate: day, S3Key: strPtr(imageKey)}, nil)
		mRepo.On("Delete", ctx, int64(7)).Return(nil)
		mStore.On("Delete", ctx, textKey).Return(errors.New("gone"))
		mStore.On("Delete", ctx, imageKey).Return(nil)

		assert.NoError(t, newTestHistoryService(mRepo, mStore).Delete(ctx, 7))
		mRepo.AssertExpectations(t)
		mStore.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		assert.ErrorIs(t, newTestHistoryService(new(repoMocks.MockHistoryRepository), nil).Delete(ctx, 0), ErrInvalidID)
	})
}

func TestHistoryService_ReadTextAndImage(t *testing.T) {
	ctx := context.Background()
	day := model.NewDate(2025, 3, 11)
	rec := &model.History{ID: 7, UserID: "u1", RecordDate: day}

	t.Run("read text", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mStore := new(storeMocks.MockObjectStore)
		mRepo.On("FindByID", ctx, int64(7)).Return(rec, nil)
		mStore.On("Get", ctx, textKey).Return(io.NopCloser(strings.NewReader("body")), storage.Object{}, nil)

		text, err := newTestHistoryService(mRepo, mStore).ReadText(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, "body", text)
	})

	t.Run("missing text", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mStore := new(storeMocks.MockObjectStore)
		mRepo.On("FindByID", ctx, int64(7)).Return(rec, nil)
		mStore.On("Get", ctx, textKey).Return(nil, storage.Object{}, storage.ErrObjectNotFound)

		_, err := newTestHistoryService(mRepo, mStore).ReadText(ctx, 7)
		assert.ErrorIs(t, err, ErrTextNotFound)
	})

	t.Run("storage not configured", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mRepo.On("FindByID", ctx, int64(7)).Return(rec, nil)
		_, err := newTestHistoryService(mRepo, nil).ReadText(ctx, 7)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("no image", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mRepo.On("FindByID", ctx, int64(7)).Return(rec, nil)
		_, err := newTestHistoryService(mRepo, new(storeMocks.MockObjectStore)).ImageURL(ctx, 7)
		assert.ErrorIs(t, err, ErrImageNotFound)
	})

	t.Run("presigned image", func(t *testing.T) {
		mRepo := new(repoMocks.MockHistoryRepository)
		mStore := new(storeMocks.MockObjectStore)
		mRepo.On("FindByID", ctx, int64(8)).Return(&model.History{ID: 8, S3Key: strPtr(imageKey)}, nil)
		mStore.On("PresignGet", ctx, "img.png", 15*time.Minute).Return("https://signed", nil)

		url, err := newTestHistoryService(mRepo, mStore).ImageURL(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, "https://signed", url)
	})
}
