// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// ConnectConfig controls how Connect retries while the database comes up.
type ConnectConfig struct {
	URL        string
	MaxRetries uint64
	BaseDelay  time.Duration
}

// pinger is the part of pgxpool.Pool Connect needs after creating the pool.
type pinger interface {
	Ping(ctx context.Context) error
	Close()
}

// poolFactory creates the pool; replaced in tests.
var poolFactory = func(ctx context.Context, url string) (*pgxpool.Pool, pinger, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, err
	}
	return pool, pool, nil
}

// Connect opens a pool and pings it, retrying with exponential backoff.
// Pool construction errors (bad URL) are not retried.
func Connect(ctx context.Context, cfg ConnectConfig) (*pgxpool.Pool, error) {
	pool, p, err := poolFactory(ctx, cfg.URL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	base := cfg.BaseDelay
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(cfg.MaxRetries, retry.NewExponential(base))

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := p.Ping(ctx); pingErr != nil {
			slog.WarnContext(ctx, "database not reachable yet", "attempt", attempt, "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		p.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", attempt).
			Wrap(err)
	}
	return pool, nil
}
