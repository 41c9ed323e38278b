package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"net/url"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"journalapi/internal/config"
)

// ApplicationName is reported to PostgreSQL as application_name.
const ApplicationName = "journal-api"

var openDB = func(connector driver.Connector) *sql.DB {
	return otelsql.OpenDB(connector,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithSQLCommenter(true),
	)
}

// BuildPostgresDSN renders c as a postgres:// URL.
func BuildPostgresDSN(c config.DatabaseConfig) (string, error) {
	if c.Host == "" || c.Port == "" || c.User == "" || c.Name == "" {
		return "", fmt.Errorf("invalid database config: host, port, user, and name are required")
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + c.Port,
		Path:   c.Name,
		User:   url.User(c.User),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}

	q := url.Values{}
	q.Set("application_name", ApplicationName)
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ConnConfig parses c into a pgx connection config. Sessions run in UTC so
// timestamptz values come back in a fixed zone.
func ConnConfig(c config.DatabaseConfig) (*pgx.ConnConfig, error) {
	dsn, err := BuildPostgresDSN(c)
	if err != nil {
		return nil, err
	}
	cc, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cc.RuntimeParams["timezone"] = "UTC"
	return cc, nil
}

// NewPostgres opens a traced pool over the pgx driver and pings it.
func NewPostgres(ctx context.Context, c config.DatabaseConfig) (*sql.DB, error) {
	cc, err := ConnConfig(c)
	if err != nil {
		return nil, err
	}

	db := openDB(stdlib.GetConnector(*cc))
	configurePool(db, c)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func configurePool(db *sql.DB, c config.DatabaseConfig) {
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetimeSec > 0 {
		db.SetConnMaxLifetime(time.Duration(c.ConnMaxLifetimeSec) * time.Second)
	}
}
