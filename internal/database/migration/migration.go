package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

const createLedger = `CREATE TABLE IF NOT EXISTS schema_migrations (
  name       TEXT        PRIMARY KEY,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_messages",
		SQL: `CREATE TABLE IF NOT EXISTS messages (
  id         UUID         PRIMARY KEY DEFAULT uuid_generate_v4(),
  user_id    VARCHAR(255) NOT NULL,
  content    TEXT         NOT NULL,
  created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_messages_user_created_at",
		SQL: `CREATE INDEX IF NOT EXISTS idx_messages_user_id ON messages (user_id);
CREATE INDEX IF NOT EXISTS idx_messages_user_created_at ON messages (user_id, created_at);`,
	},
	{
		Name: "create_table_history",
		SQL: `CREATE TABLE IF NOT EXISTS history (
  id          BIGSERIAL    PRIMARY KEY,
  user_id     VARCHAR(255) NOT NULL,
  content     TEXT         NOT NULL,
  record_date DATE         NOT NULL,
  tags        TEXT[],
  s3_key      TEXT,
  text_url    TEXT,
  created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
ALTER TABLE history ADD COLUMN IF NOT EXISTS text_url TEXT;
ALTER TABLE history ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT now();
ALTER TABLE history ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ NOT NULL DEFAULT now();`,
	},
	{
		// Rows written before the unique index existed may repeat a (user, day); the newest wins.
		Name: "delete_duplicate_history_per_user_date",
		SQL: `DELETE FROM history a
USING history b
WHERE a.user_id = b.user_id
  AND a.record_date = b.record_date
  AND a.id < b.id;`,
	},
	{
		Name: "create_unique_index_history_user_date",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS uq_history_user_date ON history (user_id, record_date);`,
	},
	{
		Name: "create_index_history_tags",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_history_tags ON history USING GIN (tags);`,
	},
}

// Apply runs every step not yet recorded in schema_migrations. Each step and its
// ledger row are committed together.
func Apply(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	start := time.Now()
	logger = logger.With(zap.String("component", "database"))

	if _, err := db.ExecContext(ctx, createLedger); err != nil {
		logger.Error("db_migration_failed", zap.String("migration_step", "schema_migrations"), zap.Error(err))
		return fmt.Errorf("create migration ledger: %w", err)
	}

	applied := 0
	for _, step := range steps {
		var done bool
		err := db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, step.Name,
		).Scan(&done)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", step.Name, err)
		}
		if done {
			continue
		}

		stepStart := time.Now()
		if err := applyStep(ctx, db, step); err != nil {
			logger.Error("db_migration_failed",
				zap.String("migration_step", step.Name),
				zap.Duration("step_duration", time.Since(stepStart)),
				zap.Error(err),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		applied++
		logger.Info("db_migration_step",
			zap.String("migration_step", step.Name),
			zap.Duration("step_duration", time.Since(stepStart)),
		)
	}

	logger.Info("db_migration_success",
		zap.Int("applied", applied),
		zap.Int("total", len(steps)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func applyStep(ctx context.Context, db *sql.DB, step migrationStep) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, step.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, step.Name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
