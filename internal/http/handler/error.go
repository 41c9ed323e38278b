package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"journalapi/internal/http/middleware"
	"journalapi/internal/llm"
	"journalapi/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response. message must be safe to show.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: middleware.GetRequestID(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	})
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Checked in order: throttling may be wrapped inside ErrUpstream and must match first.
var errorTable = []errorMapping{
	{service.ErrInvalidID, fiber.StatusBadRequest, "INVALID_ID", "invalid id format"},
	{service.ErrInvalidUserID, fiber.StatusBadRequest, "INVALID_USER_ID", "invalid user id"},
	{service.ErrContentRequired, fiber.StatusBadRequest, "CONTENT_REQUIRED", "content is required"},
	{service.ErrDateRequired, fiber.StatusBadRequest, "INVALID_DATE", "record_date is required"},
	{service.ErrInvalidDateRange, fiber.StatusBadRequest, "INVALID_DATE_RANGE", "start_date must not be after end_date"},
	{service.ErrInvalidImageKey, fiber.StatusBadRequest, "INVALID_S3_KEY", "s3_key must be under the user's own prefix"},
	{service.ErrEmptyAudio, fiber.StatusBadRequest, "EMPTY_AUDIO", "audio file is empty"},
	{service.ErrSpeechNotRecognized, fiber.StatusBadRequest, "SPEECH_NOT_RECOGNIZED", "speech could not be recognized"},
	{service.ErrNoMessages, fiber.StatusNotFound, "NO_MESSAGES", "no messages to summarize"},
	{service.ErrMessageNotFound, fiber.StatusNotFound, "NOT_FOUND", "message not found"},
	{service.ErrHistoryNotFound, fiber.StatusNotFound, "NOT_FOUND", "history not found"},
	{service.ErrTextNotFound, fiber.StatusNotFound, "NOT_FOUND", "history text not found"},
	{service.ErrImageNotFound, fiber.StatusNotFound, "NOT_FOUND", "history has no image"},
	{service.ErrHistoryConflict, fiber.StatusConflict, "CONFLICT", "history already exists for this user and date"},
	{service.ErrAudioTooLarge, fiber.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "audio file is too large"},
	{service.ErrThrottled, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "upstream service is busy, try again later"},
	{llm.ErrThrottled, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "upstream service is busy, try again later"},
	{service.ErrUnavailable, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "service is not configured"},
	{service.ErrUpstream, fiber.StatusBadGateway, "UPSTREAM_ERROR", "upstream service failed"},
}

// handleError writes the envelope for known service errors. Anything else is returned
// unchanged so the global ErrorHandler logs it and answers 500.
func handleError(c *fiber.Ctx, err error) error {
	for _, m := range errorTable {
		if errors.Is(err, m.target) {
			return writeError(c, m.status, m.code, m.message)
		}
	}
	return err
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		} else {
			logger.Error("unhandled error",
				zap.String("request_id", middleware.GetRequestID(c)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		case fiber.StatusUpgradeRequired:
			return writeError(c, status, "UPGRADE_REQUIRED", "websocket upgrade required")
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "RATE_LIMITED", "too many requests")
		default:
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
	}
}
