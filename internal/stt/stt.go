// Package stt turns recorded speech into text.
package stt

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"mime"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var ErrTranscribe = errors.New("transcription failed")

// Result is a transcript plus a 0..1 confidence estimate.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Language   string  `json:"language"`
}

// Transcriber converts one audio clip to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType, filename string) (*Result, error)
}

// AudioClient is the subset of *openai.Client used here.
type AudioClient interface {
	CreateTranscription(ctx context.Context, req openai.AudioRequest) (openai.AudioResponse, error)
}

// Whisper transcribes through an OpenAI-compatible audio endpoint.
type Whisper struct {
	client     AudioClient
	model      string
	language   string
	sampleRate int
	logger     *zap.Logger
}

func NewWhisper(client AudioClient, model, language string, sampleRate int, logger *zap.Logger) *Whisper {
	return &Whisper{client: client, model: model, language: language, sampleRate: sampleRate, logger: logger}
}

// Model reports the configured model name.
func (w *Whisper) Model() string { return w.model }

var _ Transcriber = (*Whisper)(nil)

func (w *Whisper) Transcribe(ctx context.Context, audio []byte, contentType, filename string) (*Result, error) {
	mediaType := normalizeType(contentType)
	if isRawPCM(mediaType) {
		audio = wrapPCM(audio, w.sampleRate)
		mediaType = "audio/wav"
	}
	name := uploadName(filename, mediaType)

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: name,
		Reader:   bytes.NewReader(audio),
		Language: w.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		w.logger.Error("transcription", zap.String("model", w.model), zap.Int("bytes", len(audio)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrTranscribe, err)
	}

	logprobs := make([]float64, 0, len(resp.Segments))
	for _, s := range resp.Segments {
		logprobs = append(logprobs, s.AvgLogprob)
	}
	lang := resp.Language
	if lang == "" {
		lang = w.language
	}
	res := &Result{
		Text:       strings.TrimSpace(resp.Text),
		Confidence: confidence(logprobs),
		Language:   lang,
	}
	w.logger.Debug("transcribed", zap.Int("bytes", len(audio)), zap.Int("chars", len(res.Text)), zap.Float64("confidence", res.Confidence))
	return res, nil
}

// confidence averages exp(avg_logprob) across segments, clamped to [0,1].
func confidence(logprobs []float64) float64 {
	if len(logprobs) == 0 {
		return 0
	}
	var sum float64
	for _, lp := range logprobs {
		sum += math.Exp(lp)
	}
	c := sum / float64(len(logprobs))
	return math.Max(0, math.Min(1, c))
}

func normalizeType(contentType string) string {
	if contentType == "" {
		return "audio/wav"
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func isRawPCM(mediaType string) bool {
	return mediaType == "audio/pcm" || mediaType == "audio/l16"
}

var extensions = map[string]string{
	"audio/wav":    ".wav",
	"audio/x-wav":  ".wav",
	"audio/wave":   ".wav",
	"audio/mpeg":   ".mp3",
	"audio/mp3":    ".mp3",
	"audio/ogg":    ".ogg",
	"audio/flac":   ".flac",
	"audio/x-flac": ".flac",
	"audio/mp4":    ".m4a",
	"audio/m4a":    ".m4a",
	"audio/x-m4a":  ".m4a",
	"audio/webm":   ".webm",
	"video/webm":   ".webm",
}

// uploadName picks a filename whose extension the transcription API recognizes.
func uploadName(filename, mediaType string) string {
	ext, ok := extensions[mediaType]
	if !ok {
		ext = ".wav"
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." || base == "/" {
		base = "audio"
	}
	return base + ext
}

// wrapPCM prefixes 16-bit little-endian mono samples with a RIFF/WAVE header.
func wrapPCM(pcm []byte, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}
