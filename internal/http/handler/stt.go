package handler

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"journalapi/internal/service"
)

const stopCommand = "stop"

// readAudio loads the multipart field "audio".
func readAudio(c *fiber.Ctx) ([]byte, string, string, error) {
	fh, err := c.FormFile("audio")
	if err != nil {
		return nil, "", "", err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", "", err
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = "audio/wav"
	}
	return data, ct, fh.Filename, nil
}

func audioRequired(c *fiber.Ctx) error {
	return writeError(c, fiber.StatusBadRequest, "AUDIO_REQUIRED", "multipart field audio is required")
}

// Transcribe converts an uploaded audio file to text.
//
//	@Summary	Speech to text
//	@Tags		stt
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		audio	formData	file	true	"wav, mp3, ogg, webm, m4a or raw pcm"
//	@Failure	413		{object}	errorPayload
//	@Router		/stt/transcribe [post]
func Transcribe(svc service.TranscriptionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, ct, name, err := readAudio(c)
		if err != nil {
			return audioRequired(c)
		}
		res, err := svc.Transcribe(c.UserContext(), data, ct, name)
		if err != nil {
			return handleError(c, err)
		}
		return c.JSON(res)
	}
}

// TranscribeAndSave stores the transcript as a message of ?user_id=.
//
//	@Summary	Speech to text, saved as a message
//	@Tags		stt
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		audio	formData	file	true	"audio file"
//	@Param		user_id	query		string	false	"defaults to default_user"
//	@Router		/stt/transcribe-and-save [post]
func TranscribeAndSave(svc service.TranscriptionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		data, ct, name, err := readAudio(c)
		if err != nil {
			return audioRequired(c)
		}
		msg, err := svc.TranscribeAndSave(c.UserContext(), c.Query("user_id", "default_user"), data, ct, name)
		if err != nil {
			return handleError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(msg)
	}
}

func STTHealth(svc service.TranscriptionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"service":   "stt",
			"model":     svc.Model(),
			"streaming": "enabled",
		})
	}
}

// RequireUpgrade rejects plain HTTP requests on websocket routes.
func RequireUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// STTStream transcribes binary PCM frames as they arrive. A text frame "stop" sends
// the final transcript and closes the connection. Cancelling ctx ends every open stream.
func STTStream(ctx context.Context, svc service.TranscriptionService, logger *zap.Logger) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		done := make(chan struct{})
		watcher := make(chan struct{})
		go func() {
			defer close(watcher)
			select {
			case <-ctx.Done():
				// unblocks ReadMessage
				_ = conn.SetReadDeadline(time.Now())
			case <-done:
			}
		}()

		serveStream(ctx, conn, svc, logger)
		close(done)
		<-watcher
	})
}

type streamError struct {
	Error   string `json:"error"`
	Text    string `json:"text"`
	IsFinal bool   `json:"is_final"`
}

// frameConn is the part of *websocket.Conn the stream loop uses.
type frameConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
}

func serveStream(ctx context.Context, conn frameConn, svc service.TranscriptionService, logger *zap.Logger) {
	session, err := svc.NewStream()
	if err != nil {
		_ = conn.WriteJSON(streamError{Error: "speech service is not configured"})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, ""))
		return
	}
	logger.Info("stt stream opened")

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			}
			logger.Info("stt stream closed", zap.Int("chars", len(session.FullText())), zap.Error(err))
			return
		}

		switch kind {
		case websocket.TextMessage:
			if strings.TrimSpace(string(data)) != stopCommand {
				continue
			}
			if err := conn.WriteJSON(session.Finish()); err != nil {
				return
			}
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			logger.Info("stt stream stopped", zap.Int("chars", len(session.FullText())))
			return

		case websocket.BinaryMessage:
			update, err := session.Push(ctx, data)
			if err != nil {
				msg := "transcription failed"
				if errors.Is(err, service.ErrAudioTooLarge) {
					msg = "audio chunk is too large"
				}
				if err := conn.WriteJSON(streamError{Error: msg}); err != nil {
					return
				}
				continue
			}
			if update == nil {
				continue
			}
			if err := conn.WriteJSON(update); err != nil {
				return
			}
		}
	}
}
