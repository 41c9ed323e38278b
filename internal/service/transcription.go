package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"journalapi/internal/model"
	"journalapi/internal/stt"
)

// TranscriptionService defines the speech-to-text use cases.
type TranscriptionService interface {
	Transcribe(ctx context.Context, audio []byte, contentType, filename string) (*stt.Result, error)

	// TranscribeAndSave stores the transcript as a message of userID.
	TranscribeAndSave(ctx context.Context, userID string, audio []byte, contentType, filename string) (*model.Message, error)

	// NewStream starts a session that transcribes raw PCM chunks one at a time.
	NewStream() (*StreamSession, error)

	Model() string
}

type transcriptionService struct {
	transcriber stt.Transcriber
	messages    MessageService
	maxBytes    int
	model       string
	logger      *zap.Logger
}

// NewTranscriptionService constructs a TranscriptionService. transcriber may be nil.
func NewTranscriptionService(transcriber stt.Transcriber, messages MessageService, maxBytes int, model string, logger *zap.Logger) TranscriptionService {
	return &transcriptionService{
		transcriber: transcriber,
		messages:    messages,
		maxBytes:    maxBytes,
		model:       model,
		logger:      logger,
	}
}

func (s *transcriptionService) Model() string { return s.model }

func (s *transcriptionService) Transcribe(ctx context.Context, audio []byte, contentType, filename string) (*stt.Result, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	if s.maxBytes > 0 && len(audio) > s.maxBytes {
		return nil, ErrAudioTooLarge
	}
	if s.transcriber == nil {
		return nil, ErrUnavailable
	}
	if contentType == "" {
		contentType = "audio/wav"
	}

	s.logger.Info("transcribe", zap.String("filename", filename), zap.Int("bytes", len(audio)), zap.String("content_type", contentType))
	res, err := s.transcriber.Transcribe(ctx, audio, contentType, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return res, nil
}

func (s *transcriptionService) TranscribeAndSave(ctx context.Context, userID string, audio []byte, contentType, filename string) (*model.Message, error) {
	if _, err := validateUserID(userID); err != nil {
		return nil, err
	}
	res, err := s.Transcribe(ctx, audio, contentType, filename)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Text) == "" {
		return nil, ErrSpeechNotRecognized
	}

	msg, err := s.messages.Create(ctx, CreateMessageInput{UserID: userID, Content: res.Text})
	if err != nil {
		return nil, err
	}
	s.logger.Info("transcript saved", zap.String("id", msg.ID), zap.Float64("confidence", res.Confidence))
	return msg, nil
}

func (s *transcriptionService) NewStream() (*StreamSession, error) {
	if s.transcriber == nil {
		return nil, ErrUnavailable
	}
	return NewStreamSession(s.transcriber, s.maxBytes, s.logger), nil
}

// StreamUpdate is one message sent back to a streaming client.
type StreamUpdate struct {
	Text     string `json:"text"`
	FullText string `json:"full_text"`
	IsFinal  bool   `json:"is_final"`
}

// StreamSession accumulates the transcript of a live audio stream.
type StreamSession struct {
	transcriber stt.Transcriber
	maxBytes    int
	logger      *zap.Logger

	mu    sync.Mutex
	parts []string
}

func NewStreamSession(transcriber stt.Transcriber, maxBytes int, logger *zap.Logger) *StreamSession {
	return &StreamSession{transcriber: transcriber, maxBytes: maxBytes, logger: logger}
}

// Push transcribes one PCM chunk. It returns a nil update when the chunk is empty or
// holds no recognizable speech.
func (s *StreamSession) Push(ctx context.Context, chunk []byte) (*StreamUpdate, error) {
	if len(chunk) == 0 {
		return nil, nil
	}
	if s.maxBytes > 0 && len(chunk) > s.maxBytes {
		return nil, ErrAudioTooLarge
	}
	res, err := s.transcriber.Transcribe(ctx, chunk, "audio/pcm", "chunk.pcm")
	if err != nil {
		s.logger.Warn("stream chunk failed", zap.Int("bytes", len(chunk)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return nil, nil
	}

	s.mu.Lock()
	s.parts = append(s.parts, text)
	full := strings.Join(s.parts, " ")
	s.mu.Unlock()

	return &StreamUpdate{Text: text, FullText: full}, nil
}

// Finish returns the final update carrying the whole transcript.
func (s *StreamSession) Finish() StreamUpdate {
	return StreamUpdate{FullText: s.FullText(), IsFinal: true}
}

func (s *StreamSession) FullText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.parts, " ")
}
