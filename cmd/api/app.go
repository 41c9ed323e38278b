package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"journalapi/internal/agent"
	"journalapi/internal/awsutil"
	"journalapi/internal/config"
	"journalapi/internal/database"
	"journalapi/internal/database/migration"
	"journalapi/internal/flow"
	"journalapi/internal/llm"
	"journalapi/internal/logging"
	"journalapi/internal/repository/postgres"
	"journalapi/internal/secrets"
	"journalapi/internal/service"
	"journalapi/internal/storage"
	"journalapi/internal/stt"
)

// app holds the wired services shared by every subcommand.
type app struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	loc    *time.Location
	db     *sql.DB

	messages      service.MessageService
	histories     service.HistoryService
	summary       service.SummaryService
	process       service.ProcessService
	transcription service.TranscriptionService
	digest        service.DigestService
}

// loadConfig reads configuration and overlays Secrets Manager values outside development.
func loadConfig(ctx context.Context) (*config.AppConfig, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger(cfg.LogLevel, cfg.Location())

	if !cfg.IsDevelopment() {
		awsCfg, err := awsutil.Load(ctx, cfg.AWS)
		if err != nil {
			return nil, nil, err
		}
		secrets.Apply(ctx, secretsmanager.NewFromConfig(awsCfg), cfg, logger)
	}
	return cfg, logger, nil
}

// openDatabase connects and brings the schema up to date.
func openDatabase(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*sql.DB, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := migration.Apply(ctx, db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func newApp(ctx context.Context) (*app, error) {
	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	loc := cfg.Location()

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsutil.Load(ctx, cfg.AWS)
	if err != nil {
		db.Close()
		return nil, err
	}

	files, err := newHistoryFiles(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	summarizer := newSummarizer(cfg, awsCfg, logger)

	var invoker flow.Invoker
	if cfg.Flow.ARN != "" {
		invoker = flow.New(bedrockagentruntime.NewFromConfig(awsCfg), cfg.Flow.ARN, cfg.Flow.Alias, logger)
	} else {
		logger.Warn("BEDROCK_FLOW_ARN not set, flow routes are disabled")
	}

	var transcriber stt.Transcriber
	if cfg.STT.APIKey != "" {
		client := llm.NewOpenAIClient(cfg.STT.APIKey, cfg.STT.BaseURL)
		transcriber = stt.NewWhisper(client, cfg.STT.Model, cfg.STT.Language, cfg.STT.SampleRate, logger)
	} else {
		logger.Warn("STT_API_KEY not set, speech routes are disabled")
	}

	msgRepo := postgres.NewMessagePostgres(db)
	histRepo := postgres.NewHistoryPostgres(db)

	messages := service.NewMessageService(msgRepo, loc, logger)
	histories := service.NewHistoryService(histRepo, files, time.Duration(cfg.S3.PresignTTLSec)*time.Second, logger)
	summary := service.NewSummaryService(msgRepo, histRepo, summarizer, loc, logger)

	return &app{
		cfg:           cfg,
		logger:        logger,
		loc:           loc,
		db:            db,
		messages:      messages,
		histories:     histories,
		summary:       summary,
		process:       service.NewProcessService(newOrchestrator(cfg, summarizer, logger), invoker, messages, histories, loc, logger),
		transcription: service.NewTranscriptionService(transcriber, messages, cfg.STT.MaxUploadBytes, cfg.STT.Model, logger),
		digest:        service.NewDigestService(msgRepo, histRepo, summary, histories, loc, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// newHistoryFiles returns nil when no bucket is configured.
func newHistoryFiles(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*storage.HistoryFiles, error) {
	if cfg.S3.Bucket == "" {
		logger.Warn("S3_BUCKET_NAME not set, history text files are disabled")
		return nil, nil
	}
	store, err := storage.NewS3(ctx, cfg.S3)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}
	return storage.NewHistoryFiles(store, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.PublicBaseURL, logger), nil
}

func newSummarizer(cfg *config.AppConfig, awsCfg aws.Config, logger *zap.Logger) llm.Summarizer {
	if cfg.Summary.Provider == config.ProviderOpenAI {
		if cfg.Summary.OpenAIKey == "" {
			logger.Warn("OPENAI_API_KEY not set, summarization is disabled")
			return nil
		}
		client := llm.NewOpenAIClient(cfg.Summary.OpenAIKey, cfg.Summary.OpenAIBaseURL)
		return llm.NewOpenAI(client, cfg.Summary.OpenAIModel, logger)
	}
	return llm.NewBedrock(bedrockruntime.NewFromConfig(awsCfg), cfg.Summary.BedrockModel, logger)
}

// newOrchestrator prefers the remote agent. Without AGENT_API_URL the keyword agent
// answers alone; with AGENT_FALLBACK_ON_ERROR it also covers remote failures.
func newOrchestrator(cfg *config.AppConfig, summarizer llm.Summarizer, logger *zap.Logger) agent.Orchestrator {
	keyword := agent.NewKeywordAgent(summarizer, logger)
	if cfg.Agent.URL == "" {
		logger.Warn("AGENT_API_URL not set, using keyword routing")
		return keyword
	}
	remote := agent.NewRemoteAgent(cfg.Agent.URL, time.Duration(cfg.Agent.TimeoutSec)*time.Second, logger)
	if cfg.Agent.FallbackOnError {
		return agent.NewFallbackAgent(remote, keyword, logger)
	}
	return remote
}
