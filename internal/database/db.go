// Package database owns the Postgres connection pool and the embedded schema migrations.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/sebasr/greetcard-service/internal/config"
)

// Fallbacks used when the config leaves a timeout unset
const (
	defaultConnectTimeout = 5 * time.Second
	defaultHealthTimeout  = 2 * time.Second
)

// DB is the greetings connection pool.
// The zero HealthTimeout falls back to two seconds.
type DB struct {
	*sql.DB
	HealthTimeout time.Duration
}

// New opens the pool described by cfg and pings it within cfg.ConnectTimeout
func New(cfg *config.DatabaseConfig) (*DB, error) {
	pool, err := sql.Open("pgx", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pool.SetMaxOpenConns(cfg.MaxConnections)
	pool.SetMaxIdleConns(cfg.MaxIdleConnections)
	pool.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), orDefault(cfg.ConnectTimeout, defaultConnectTimeout))
	defer cancel()

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: pool, HealthTimeout: cfg.HealthTimeout}, nil
}

// HealthCheck pings the pool, giving up after HealthTimeout
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, orDefault(db.HealthTimeout, defaultHealthTimeout))
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
