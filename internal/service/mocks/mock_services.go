package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"journalapi/internal/model"
	"journalapi/internal/service"
	"journalapi/internal/stt"
)

type MockMessageService struct {
	mock.Mock
}

func (m *MockMessageService) Create(ctx context.Context, in service.CreateMessageInput) (*model.Message, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageService) List(ctx context.Context, q service.MessageQuery) ([]model.Message, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *MockMessageService) Contents(ctx context.Context, q service.MessageQuery) (string, error) {
	args := m.Called(ctx, q)
	return args.String(0), args.Error(1)
}

func (m *MockMessageService) Get(ctx context.Context, id string) (*model.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageService) UpdateContent(ctx context.Context, id, content string) (*model.Message, error) {
	args := m.Called(ctx, id, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockMessageService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) SaveForDate(ctx context.Context, in service.SaveHistoryInput) (*model.History, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.History), args.Error(1)
}

func (m *MockHistoryService) List(ctx context.Context, q service.HistoryQuery) (*service.HistoryListResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.HistoryListResult), args.Error(1)
}

func (m *MockHistoryService) Get(ctx context.Context, id int64) (*model.History, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.History), args.Error(1)
}

func (m *MockHistoryService) Update(ctx context.Context, id int64, in service.SaveHistoryInput) (*model.History, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.History), args.Error(1)
}

func (m *MockHistoryService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockHistoryService) ReadText(ctx context.Context, id int64) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockHistoryService) ImageURL(ctx context.Context, id int64) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type MockSummaryService struct {
	mock.Mock
}

func (m *MockSummaryService) Summarize(ctx context.Context, userID string, date *model.Date) (*service.SummaryResult, error) {
	args := m.Called(ctx, userID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SummaryResult), args.Error(1)
}

func (m *MockSummaryService) CheckToday(ctx context.Context, userID string) (*service.SummaryCheck, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SummaryCheck), args.Error(1)
}

type MockProcessService struct {
	mock.Mock
}

func (m *MockProcessService) Agent(ctx context.Context, req service.ProcessRequest) (*service.ProcessResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProcessResult), args.Error(1)
}

func (m *MockProcessService) Flow(ctx context.Context, req service.ProcessRequest) (*service.ProcessResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProcessResult), args.Error(1)
}

func (m *MockProcessService) TestAgent(ctx context.Context, req service.ProcessRequest) (*service.AgentTestResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AgentTestResult), args.Error(1)
}

func (m *MockProcessService) TestFlow(ctx context.Context, content string) (*service.FlowTestResult, error) {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FlowTestResult), args.Error(1)
}

type MockTranscriptionService struct {
	mock.Mock
}

func (m *MockTranscriptionService) Transcribe(ctx context.Context, audio []byte, contentType, filename string) (*stt.Result, error) {
	args := m.Called(ctx, audio, contentType, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stt.Result), args.Error(1)
}

func (m *MockTranscriptionService) TranscribeAndSave(ctx context.Context, userID string, audio []byte, contentType, filename string) (*model.Message, error) {
	args := m.Called(ctx, userID, audio, contentType, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MockTranscriptionService) NewStream() (*service.StreamSession, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.StreamSession), args.Error(1)
}

func (m *MockTranscriptionService) Model() string {
	args := m.Called()
	return args.String(0)
}
