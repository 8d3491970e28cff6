// Package postgres provides PostgreSQL persistence for trainers, battle
// sessions and reward grants using pgx v5.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/monbattle/internal/config"
)

// Pool owns the pgx connection pool shared by the repositories.
type Pool struct {
	pool *pgxpool.Pool
}

// NewPool connects to the battle database described by cfg and verifies it
// answers before any repository is built on it.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s/%s: %w", cfg.Host, cfg.Name, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging %s/%s: %w", cfg.Host, cfg.Name, err)
	}
	return &Pool{pool: pool}, nil
}

// Close releases every connection. Repositories built on DB are unusable afterwards.
func (p *Pool) Close() {
	p.pool.Close()
}

// DB is handed to NewTrainerRepository, NewBattleRepository and NewRewardRepository.
func (p *Pool) DB() *pgxpool.Pool {
	return p.pool
}

// uniqueViolation returns the constraint name when err is a PostgreSQL
// unique_violation (SQLSTATE 23505).
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}
