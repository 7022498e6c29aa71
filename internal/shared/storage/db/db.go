package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

// DefaultServerOptions returns defaults for long-running server processes.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// OptionsFromEnv overrides defaults with DB_* environment variables when set.
func OptionsFromEnv(defaults Options) Options {
	opts := defaults
	if v := intFromEnv("DB_MAX_OPEN_CONNS"); v > 0 {
		opts.MaxOpenConns = v
	}
	if v := intFromEnv("DB_MAX_IDLE_CONNS"); v > 0 {
		opts.MaxIdleConns = v
	}
	if v := intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS"); v > 0 {
		opts.ConnMaxLifetime = time.Duration(v) * time.Second
	}
	if v := intFromEnv("DB_CONN_MAX_IDLE_SECONDS"); v > 0 {
		opts.ConnMaxIdleTime = time.Duration(v) * time.Second
	}
	if v := intFromEnv("DB_PING_TIMEOUT_SECONDS"); v > 0 {
		opts.PingTimeout = time.Duration(v) * time.Second
	}
	return opts
}

// Connect opens and verifies a Postgres connection pool.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("database url is required")
	}

	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	pingCtx := ctx
	if opts.PingTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.PingTimeout)
		defer cancel()
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return sqlDB, nil
}

func intFromEnv(key string) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
