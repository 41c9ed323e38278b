package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"journalapi/internal/model"
	"journalapi/internal/repository"
)

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) FindByID(ctx context.Context, id int64) (*model.History, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.History), args.Error(1)
}

func (m *MockHistoryRepository) FindByUserAndDate(ctx context.Context, userID string, date model.Date) (*model.History, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.History), args.Error(1)
}

func (m *MockHistoryRepository) List(ctx context.Context, f repository.HistoryFilter) (*repository.PageResult[model.History], error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.History]), args.Error(1)
}

func (m *MockHistoryRepository) Upsert(ctx context.Context, h *model.History) (*model.History, error) {
	args := m.Called(ctx, h)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.History), args.Error(1)
}

func (m *MockHistoryRepository) Update(ctx context.Context, h *model.History) (*model.History, error) {
	args := m.Called(ctx, h)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.History), args.Error(1)
}

func (m *MockHistoryRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
