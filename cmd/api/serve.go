package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"journalapi/docs"
	handlers "journalapi/internal/http/handler"
	"journalapi/internal/http/middleware"
	"journalapi/internal/model"
	"journalapi/internal/otel"
	"journalapi/internal/scheduler"
)

func runServer(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "journal-api",
		ErrorHandler: handlers.ErrorHandler(logger),
		BodyLimit:    a.cfg.STT.MaxUploadBytes + 1<<20,
	})

	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(logger))
	app.Use(metrics.Handler())
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(a.cfg.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, " + middleware.RequestIDHeader,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	limiter := middleware.NewRateLimiter(a.cfg.RateLimit.RPS, a.cfg.RateLimit.Burst)
	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:            a.db,
		Messages:      a.messages,
		Histories:     a.histories,
		Summary:       a.summary,
		Process:       a.process,
		Transcription: a.transcription,
		RateLimit:     limiter.Handler(),
		Logger:        logger,
		Shutdown:      ctx,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}
		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}
		return swagger.HandlerDefault(c)
	})

	if a.cfg.DigestCron != "" {
		sched, err := scheduler.New(a.cfg.DigestCron, a.loc, digestJob(a), logger)
		if err != nil {
			return err
		}
		go sched.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.Port
		logger.Info("server starting", zap.String("address", addr), zap.String("environment", a.cfg.Environment))
		errCh <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	case err := <-errCh:
		return err
	}
}

// digestJob summarizes the day the tick falls on.
func digestJob(a *app) scheduler.Job {
	return func(ctx context.Context, tick time.Time) error {
		report, err := a.digest.Run(ctx, model.DateOf(tick))
		if err != nil {
			return err
		}
		a.logger.Info("digest finished",
			zap.String("date", report.Date.String()),
			zap.Int("users", report.Users),
			zap.Int("created", report.Created),
			zap.Int("skipped", report.Skipped),
			zap.Int("failed", report.Failed),
		)
		return nil
	}
}
