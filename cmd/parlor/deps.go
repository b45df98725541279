// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/parlor/parlor/internal/config"
	"github.com/parlor/parlor/internal/mail"
	"github.com/parlor/parlor/internal/observability"
	"github.com/parlor/parlor/internal/storage/postgres"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolConnector opens the PostgreSQL pool.
	// Default: postgres.Connect
	PoolConnector func(ctx context.Context, cfg postgres.ConnectConfig) (*pgxpool.Pool, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: postgres.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)

	// MailGatewayFactory builds the outbound mail gateway.
	// Default: newMailGateway
	MailGatewayFactory func(cfg config.MailConfig, renderer *mail.Renderer, logger *slog.Logger) (mail.Gateway, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// ListenerFactory creates the public listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)
}

// MigrateDeps contains injectable dependencies for the migrate commands.
type MigrateDeps struct {
	// MigratorFactory creates a migrator from a database URL.
	// Default: postgres.NewMigrator
	MigratorFactory func(databaseURL string) (Migrator, error)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
	Registerer() prometheus.Registerer
	AddCheck(name string, check observability.Check)
}

// Migrator interface wraps the methods used from postgres.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Status() (postgres.Status, error)
	Close() error
}

func defaultMigratorFactory(databaseURL string) (Migrator, error) {
	return postgres.NewMigrator(databaseURL)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.PoolConnector == nil {
		out.PoolConnector = postgres.Connect
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = defaultMigratorFactory
	}
	if out.MailGatewayFactory == nil {
		out.MailGatewayFactory = newMailGateway
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if out.ListenerFactory == nil {
		out.ListenerFactory = net.Listen
	}
	return &out
}

func (d *MigrateDeps) withDefaults() *MigrateDeps {
	out := MigrateDeps{}
	if d != nil {
		out = *d
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = defaultMigratorFactory
	}
	return &out
}
