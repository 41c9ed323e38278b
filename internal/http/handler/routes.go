package handler

import (
	"context"
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"journalapi/internal/service"
)

// Dependencies are the collaborators the HTTP layer needs.
type Dependencies struct {
	DB            *sql.DB
	Messages      service.MessageService
	Histories     service.HistoryService
	Summary       service.SummaryService
	Process       service.ProcessService
	Transcription service.TranscriptionService

	// RateLimit guards the routes that call model, flow, agent or speech services.
	// Nil disables it.
	RateLimit fiber.Handler
	Logger    *zap.Logger

	// Shutdown is cancelled when the server stops; long-lived websocket streams end with it.
	// Nil means streams only end when the client leaves.
	Shutdown context.Context
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, deps Dependencies) {
	limited := deps.RateLimit
	if limited == nil {
		limited = func(c *fiber.Ctx) error { return c.Next() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	shutdown := deps.Shutdown
	if shutdown == nil {
		shutdown = context.Background()
	}

	app.Get("/health", HealthCheck(deps.DB))
	app.Get("/healthz", LivenessProbe())

	messages := app.Group("/messages")
	messages.Post("", CreateMessage(deps.Messages))
	messages.Get("", ListMessages(deps.Messages))
	messages.Get("/content", MessageContents(deps.Messages))
	messages.Get("/:id", GetMessage(deps.Messages))
	messages.Put("/:id", UpdateMessage(deps.Messages))
	messages.Delete("/:id", DeleteMessage(deps.Messages))

	history := app.Group("/history")
	history.Post("", SaveHistory(deps.Histories))
	history.Get("", ListHistory(deps.Histories))
	history.Get("/:id", GetHistory(deps.Histories))
	history.Put("/:id", UpdateHistory(deps.Histories))
	history.Delete("/:id", DeleteHistory(deps.Histories))
	history.Get("/:id/text", HistoryText(deps.Histories))
	history.Get("/:id/image-url", HistoryImageURL(deps.Histories))

	summary := app.Group("/summary")
	summary.Post("", limited, CreateSummary(deps.Summary))
	summary.Get("/check/:user_id", CheckSummary(deps.Summary))
	summary.Get("/:user_id", limited, GetSummary(deps.Summary))

	app.Post("/agent/process", limited, AgentProcess(deps.Process))
	app.Post("/agent/test", limited, AgentTest(deps.Process))
	app.Post("/flow/process", limited, FlowProcess(deps.Process))
	app.Post("/flow/test", limited, FlowTest(deps.Process))

	stt := app.Group("/stt")
	stt.Post("/transcribe", limited, Transcribe(deps.Transcription))
	stt.Post("/transcribe-and-save", limited, TranscribeAndSave(deps.Transcription))
	stt.Get("/stream", limited, RequireUpgrade(), STTStream(shutdown, deps.Transcription, logger))
	stt.Get("/health", STTHealth(deps.Transcription))
}
