package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kinderpay/billing-service/pkg/logger"
)

const connectTimeout = 5 * time.Second

// NewPool creates the PostgreSQL connection pool the repositories
// share. Sizing follows the service's traffic shape: a small steady
// stream of parent-facing API calls plus a burst at the start of each
// month when the collection run rolls every agreement forward. The
// burst contends on agreement row locks, so a modest cap keeps lock
// queues short instead of stacking more connections onto the same
// rows.
func NewPool(ctx context.Context, dsn string, log *logger.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	cfg.MaxConns = 8
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	log.Info("Connecting to PostgreSQL, pool capped at %d connections", cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Info("Successfully connected to PostgreSQL")
	return pool, nil
}
