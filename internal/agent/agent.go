// Package agent decides what to do with a free-text user input.
package agent

import (
	"context"
	"errors"
	"strings"

	"journalapi/internal/model"
)

// RequestType is the caller's hint about what the input is.
type RequestType string

const (
	RequestSummarize RequestType = "summarize"
	RequestQuestion  RequestType = "question"
	RequestData      RequestType = "data"
)

// ResultType is what the orchestrator decided.
type ResultType string

const (
	ResultData   ResultType = "data"
	ResultAnswer ResultType = "answer"
	ResultDiary  ResultType = "diary"
)

const (
	MessageData   = "메시지가 저장되었습니다."
	MessageAnswer = "질문에 대한 답변입니다."
	MessageDiary  = "일기가 생성되었습니다."
)

var (
	ErrUpstream = errors.New("agent service failed")
	// ErrThrottled is wrapped alongside ErrUpstream when the agent answers 429.
	ErrThrottled = errors.New("agent service throttled")
)

// Request is one orchestration call.
type Request struct {
	Content     string
	UserID      string
	RequestType RequestType
	Temperature *float64
	CurrentDate model.Date
}

// Result is the orchestrator's decision plus any generated content.
type Result struct {
	Type    ResultType `json:"type"`
	Content string     `json:"content"`
	Message string     `json:"message"`
}

// Orchestrator routes a request to the right agent.
type Orchestrator interface {
	Orchestrate(ctx context.Context, req Request) (*Result, error)
}

var (
	questionKeywords  = []string{"?", "뭐", "무엇", "어디", "언제", "누구", "왜", "어떻게"}
	summarizeKeywords = []string{"요약", "정리", "일기"}
)

// Classify guesses the request type from keywords. Questions win over summaries.
func Classify(input string) RequestType {
	if containsAny(input, questionKeywords) {
		return RequestQuestion
	}
	if containsAny(strings.ToLower(input), summarizeKeywords) {
		return RequestSummarize
	}
	return RequestData
}

// ParseRequestType accepts the known request types; anything else is treated as unset.
func ParseRequestType(s string) RequestType {
	switch t := RequestType(strings.ToLower(strings.TrimSpace(s))); t {
	case RequestSummarize, RequestQuestion, RequestData:
		return t
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
