// Package postgres persists duel solutions in PostgreSQL using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellduel/internal/config"
)

// Pool is a pgx connection pool for the solution repository.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the configured database and pings it once.
//
// Postcondition: Returns a connected Pool or a non-nil error.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Pool{pool: pool}, nil
}

// Health pings the database within timeout.
func (p *Pool) Health(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

// Watch pings the database every interval until ctx is done and calls
// onChange with the first result and then whenever reachability flips.
//
// Precondition: interval > 0; onChange and logger must be non-nil.
func (p *Pool) Watch(ctx context.Context, interval, timeout time.Duration, logger *zap.Logger, onChange func(healthy bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	first := true
	var healthy bool
	for {
		err := p.Health(ctx, timeout)
		if ctx.Err() != nil {
			return
		}
		if now := err == nil; first || now != healthy {
			if now {
				logger.Info("database reachable")
			} else {
				logger.Warn("database unreachable", zap.Error(err))
			}
			healthy, first = now, false
			onChange(healthy)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close releases all pool resources.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB returns the underlying pgxpool.Pool for repositories.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}
