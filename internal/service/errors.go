package service

import (
	"errors"
	"fmt"

	"journalapi/internal/agent"
	"journalapi/internal/flow"
	"journalapi/internal/llm"
)

var (
	ErrInvalidID           = errors.New("invalid id")
	ErrInvalidUserID       = errors.New("invalid user id")
	ErrContentRequired     = errors.New("content is required")
	ErrDateRequired        = errors.New("record date is required")
	ErrInvalidDateRange    = errors.New("start date is after end date")
	ErrInvalidImageKey     = errors.New("image key is outside the user's prefix")
	ErrMessageNotFound     = errors.New("message not found")
	ErrHistoryNotFound     = errors.New("history not found")
	ErrTextNotFound        = errors.New("history text not found")
	ErrImageNotFound       = errors.New("history has no image")
	ErrNoMessages          = errors.New("no messages to summarize")
	ErrHistoryConflict     = errors.New("history already exists for user and date")
	ErrEmptyAudio          = errors.New("audio is empty")
	ErrAudioTooLarge       = errors.New("audio exceeds the upload limit")
	ErrSpeechNotRecognized = errors.New("speech not recognized")

	// ErrUpstream wraps failures of the model, flow, agent, speech or object storage services.
	ErrUpstream = errors.New("upstream service failed")
	// ErrThrottled means an upstream service rejected the call for rate or quota reasons.
	ErrThrottled = errors.New("upstream service throttled")
	// ErrUnavailable means the component behind an operation is not configured.
	ErrUnavailable = errors.New("service not configured")
)

// upstreamErr wraps a failed model, flow or agent call. Throttling is kept apart from
// other failures so callers can be told to retry.
func upstreamErr(op string, err error) error {
	if errors.Is(err, llm.ErrThrottled) || errors.Is(err, flow.ErrThrottled) || errors.Is(err, agent.ErrThrottled) {
		return fmt.Errorf("%w: %s: %w", ErrThrottled, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUpstream, op, err)
}
