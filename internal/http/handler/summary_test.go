package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"journalapi/internal/llm"
	"journalapi/internal/model"
	"journalapi/internal/service"
	serviceMocks "journalapi/internal/service/mocks"
)

func TestSummary(t *testing.T) {
	mockSvc := new(serviceMocks.MockSummaryService)
	app := newApp()
	app.Post("/summary", CreateSummary(mockSvc))
	app.Get("/summary/check/:user_id", CheckSummary(mockSvc))
	app.Get("/summary/:user_id", GetSummary(mockSvc))

	t.Run("post with date", func(t *testing.T) {
		d := model.NewDate(2025, 3, 11)
		mockSvc.On("Summarize", mock.Anything, "user_1", &d).
			Return(&service.SummaryResult{Summary: "오늘은 바빴다.", MessageCount: 3}, nil).Once()

		resp, err := app.Test(jsonRequest(http.MethodPost, "/summary", map[string]string{"user_id": "user_1", "record_date": "2025-03-11"}))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got service.SummaryResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, 3, got.MessageCount)
	})

	t.Run("get covers every message", func(t *testing.T) {
		mockSvc.On("Summarize", mock.Anything, "user_1", (*model.Date)(nil)).
			Return(&service.SummaryResult{Summary: "s", MessageCount: 1}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/summary/user_1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("no messages", func(t *testing.T) {
		mockSvc.On("Summarize", mock.Anything, "empty", (*model.Date)(nil)).Return(nil, service.ErrNoMessages).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/summary/empty", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NO_MESSAGES", decodeError(t, resp).Error.Code)
	})

	t.Run("bad user id", func(t *testing.T) {
		mockSvc.On("Summarize", mock.Anything, "a-b", (*model.Date)(nil)).Return(nil, service.ErrInvalidUserID).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/summary/a-b", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_USER_ID", decodeError(t, resp).Error.Code)
	})

	t.Run("model throttled", func(t *testing.T) {
		mockSvc.On("Summarize", mock.Anything, "busy", (*model.Date)(nil)).
			Return(nil, service.ErrUpstream).Once()
		mockSvc.On("Summarize", mock.Anything, "slow", (*model.Date)(nil)).
			Return(nil, llm.ErrThrottled).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/summary/busy", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

		resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/summary/slow", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("check", func(t *testing.T) {
		d := model.NewDate(2025, 3, 11)
		text := "요약"
		mockSvc.On("CheckToday", mock.Anything, "user_1").
			Return(&service.SummaryCheck{Exists: true, RecordDate: &d, Summary: &text}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/summary/check/user_1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, true, got["exists"])
		assert.Equal(t, "2025-03-11", got["record_date"])
	})

	mockSvc.AssertExpectations(t)
}
