package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"journalapi/internal/model"
)

func runMigrate(ctx context.Context) error {
	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("migrations applied")
	return db.Close()
}

func runDigest(ctx context.Context, rawDate string) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	day := model.DateOf(time.Now().In(a.loc))
	if rawDate != "" {
		if day, err = model.ParseDate(rawDate); err != nil {
			return err
		}
	}

	report, err := a.digest.Run(ctx, day)
	if err != nil {
		return fmt.Errorf("digest %s: %w", day, err)
	}
	a.logger.Info("digest finished", zap.String("date", day.String()), zap.Int("created", report.Created))
	return json.NewEncoder(os.Stdout).Encode(report)
}
