// Package llm turns a day's worth of messages into first-person diary prose.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyContent      = errors.New("nothing to summarize")
	ErrEmptySummary      = errors.New("model returned an empty summary")
	ErrMalformedResponse = errors.New("model response has an unexpected shape")
	ErrThrottled         = errors.New("model invocation throttled")
	ErrCredentials       = errors.New("model credentials rejected")
	ErrInvocation        = errors.New("model invocation failed")
)

const (
	MaxContentChars    = 50000
	DefaultTemperature = 1.0
	DefaultTopK        = 250
	MaxTokens          = 2000
)

const systemPrompt = "너는 일기를 매일 작성하는 맞춤법과 문단 나누기에 엄격한 학생이야."

const userPromptTemplate = `일기 형식으로 작성하고, 줄글 형식, 1인칭 시점으로 요약해줘. 날짜는 따로 적지않아도 돼.
일기 내용:
%s`

// Options tunes a single invocation. Nil fields fall back to the defaults.
type Options struct {
	Temperature *float64
	TopK        *int
}

func (o Options) temperature() float64 {
	if o.Temperature != nil {
		return *o.Temperature
	}
	return DefaultTemperature
}

func (o Options) topK() int {
	if o.TopK != nil {
		return *o.TopK
	}
	return DefaultTopK
}

// Summarizer writes a diary entry from raw content.
type Summarizer interface {
	Summarize(ctx context.Context, content string, opts Options) (string, error)
}

// prepare validates content and truncates it to MaxContentChars characters.
func prepare(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyContent
	}
	if r := []rune(content); len(r) > MaxContentChars {
		content = string(r[:MaxContentChars]) + "..."
	}
	return content, nil
}

func userPrompt(content string) string {
	return fmt.Sprintf(userPromptTemplate, content)
}

func finish(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptySummary
	}
	return text, nil
}
