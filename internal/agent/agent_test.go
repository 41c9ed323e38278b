package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"journalapi/internal/llm"
	"journalapi/internal/model"
)

func TestClassify(t *testing.T) {
	cases := map[string]RequestType{
		"오늘 점심 뭐 먹었지":     RequestQuestion,
		"Where did I go?": RequestQuestion,
		"오늘 일기 써줘":        RequestSummarize,
		"하루를 정리해줘":        RequestSummarize,
		"일기 정리, 어떻게 해?":   RequestQuestion,
		"점심으로 김치찌개를 먹었다":  RequestData,
		"":                RequestData,
	}
	for in, want := range cases {
		assert.Equal(t, want, Classify(in), in)
	}
}

func TestParseRequestType(t *testing.T) {
	assert.Equal(t, RequestSummarize, ParseRequestType(" Summarize "))
	assert.Equal(t, RequestQuestion, ParseRequestType("question"))
	assert.Equal(t, RequestType(""), ParseRequestType("other"))
	assert.Equal(t, RequestType(""), ParseRequestType(""))
}

func TestDecodeReply(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"direct", `{"type":"answer","content":"c","message":"m"}`},
		{"wrapped object", `{"statusCode":200,"body":{"type":"answer","content":"c","message":"m"}}`},
		{"wrapped string", `{"statusCode":200,"body":"{\"type\":\"answer\",\"content\":\"c\",\"message\":\"m\"}"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := decodeReply([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, &Result{Type: ResultAnswer, Content: "c", Message: "m"}, res)
		})
	}

	_, err := decodeReply([]byte(`not json`))
	assert.Error(t, err)
	_, err = decodeReply([]byte(`{"content":"c"}`))
	assert.Error(t, err)
}

func TestRemoteAgent_Orchestrate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agent", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"type":"diary","content":"오늘은 즐거웠다.","message":"ok"}`))
	}))
	defer srv.Close()

	temp := 0.5
	a := NewRemoteAgent(srv.URL, time.Second, zap.NewNop())
	res, err := a.Orchestrate(context.Background(), Request{
		Content:     "일기 써줘",
		UserID:      "u1",
		RequestType: RequestSummarize,
		Temperature: &temp,
		CurrentDate: model.NewDate(2025, 5, 6),
	})
	require.NoError(t, err)
	assert.Equal(t, ResultDiary, res.Type)
	assert.Equal(t, "오늘은 즐거웠다.", res.Content)

	assert.Equal(t, "일기 써줘", got["content"])
	assert.Equal(t, "u1", got["user_id"])
	assert.Equal(t, "2025-05-06", got["record_date"])
	assert.Equal(t, "summarize", got["request_type"])
	assert.Equal(t, 0.5, got["temperature"])
}

func TestRemoteAgent_OmitsUnsetFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"type":"data","content":"","message":"m"}`))
	}))
	defer srv.Close()

	_, err := NewRemoteAgent(srv.URL, time.Second, zap.NewNop()).
		Orchestrate(context.Background(), Request{Content: "x", UserID: "u", CurrentDate: model.NewDate(2025, 1, 1)})
	require.NoError(t, err)
	assert.NotContains(t, got, "request_type")
	assert.NotContains(t, got, "temperature")
}

func TestRemoteAgent_Failures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer failing.Close()
	garbled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer garbled.Close()

	for _, url := range []string{failing.URL, garbled.URL, "http://127.0.0.1:1"} {
		a := NewRemoteAgent(url, time.Second, zap.NewNop())
		_, err := a.Orchestrate(context.Background(), Request{Content: "x", UserID: "u"})
		assert.ErrorIs(t, err, ErrUpstream, url)
		assert.NotErrorIs(t, err, ErrThrottled, url)
	}
}

func TestRemoteAgent_TooManyRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewRemoteAgent(srv.URL, time.Second, zap.NewNop()).Orchestrate(context.Background(), Request{Content: "x", UserID: "u"})
	assert.ErrorIs(t, err, ErrThrottled)
	assert.ErrorIs(t, err, ErrUpstream)
}

type fakeSummarizer struct {
	out  string
	err  error
	opts llm.Options
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ string, opts llm.Options) (string, error) {
	f.opts = opts
	return f.out, f.err
}

func TestKeywordAgent(t *testing.T) {
	ctx := context.Background()
	k := NewKeywordAgent(nil, zap.NewNop())

	res, err := k.Orchestrate(ctx, Request{Content: "점심은 라면"})
	require.NoError(t, err)
	assert.Equal(t, &Result{Type: ResultData, Message: MessageData}, res)

	res, err = k.Orchestrate(ctx, Request{Content: "어제 뭐 했어?"})
	require.NoError(t, err)
	assert.Equal(t, ResultAnswer, res.Type)
	assert.Equal(t, answerUnavailable, res.Content)

	long := strings.Repeat("가", 150)
	res, err = k.Orchestrate(ctx, Request{Content: long, RequestType: RequestSummarize})
	require.NoError(t, err)
	assert.Equal(t, ResultDiary, res.Type)
	assert.Equal(t, diaryUnavailable+strings.Repeat("가", 100)+"...", res.Content)
}

func TestKeywordAgent_UsesSummarizer(t *testing.T) {
	fs := &fakeSummarizer{out: "요약된 일기"}
	temp := 0.2
	res, err := NewKeywordAgent(fs, zap.NewNop()).
		Orchestrate(context.Background(), Request{Content: "오늘 일기", Temperature: &temp})
	require.NoError(t, err)
	assert.Equal(t, &Result{Type: ResultDiary, Content: "요약된 일기", Message: MessageDiary}, res)
	assert.Equal(t, &temp, fs.opts.Temperature)

	fs = &fakeSummarizer{err: llm.ErrThrottled}
	res, err = NewKeywordAgent(fs, zap.NewNop()).Orchestrate(context.Background(), Request{Content: "오늘 일기"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Content, diaryUnavailable))
}

type stubOrchestrator struct {
	res   *Result
	err   error
	calls int
}

func (s *stubOrchestrator) Orchestrate(context.Context, Request) (*Result, error) {
	s.calls++
	return s.res, s.err
}

func TestFallbackAgent(t *testing.T) {
	primary := &stubOrchestrator{res: &Result{Type: ResultAnswer}}
	secondary := &stubOrchestrator{res: &Result{Type: ResultData}}
	f := NewFallbackAgent(primary, secondary, zap.NewNop())

	res, err := f.Orchestrate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, ResultAnswer, res.Type)
	assert.Equal(t, 0, secondary.calls)

	primary.err = errors.New("down")
	res, err = f.Orchestrate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, ResultData, res.Type)
	assert.Equal(t, 1, secondary.calls)
}
