package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PoolConfig bounds the shared connection pool. Bill payloads travel over
// these connections, so idle churn is kept low.
type PoolConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (pc PoolConfig) withDefaults() PoolConfig {
	if pc.MaxOpenConns <= 0 {
		pc.MaxOpenConns = 20
	}
	if pc.MaxIdleConns <= 0 {
		pc.MaxIdleConns = pc.MaxOpenConns / 2
	}
	if pc.ConnMaxLifetime <= 0 {
		pc.ConnMaxLifetime = 30 * time.Minute
	}
	return pc
}

// Open connects to Postgres and verifies the connection before returning.
func Open(ctx context.Context, cfg PoolConfig) (*sql.DB, error) {
	cfg = cfg.withDefaults()

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}
