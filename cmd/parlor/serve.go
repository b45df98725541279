// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/parlor/parlor/internal/account"
	"github.com/parlor/parlor/internal/command"
	"github.com/parlor/parlor/internal/command/handlers"
	"github.com/parlor/parlor/internal/config"
	"github.com/parlor/parlor/internal/credential"
	"github.com/parlor/parlor/internal/httpapi"
	"github.com/parlor/parlor/internal/logging"
	"github.com/parlor/parlor/internal/mail"
	"github.com/parlor/parlor/internal/observability"
	"github.com/parlor/parlor/internal/profile"
	"github.com/parlor/parlor/internal/session"
	"github.com/parlor/parlor/internal/settings"
	"github.com/parlor/parlor/internal/storage/memory"
	"github.com/parlor/parlor/internal/storage/postgres"
)

const serviceName = "parlor"

// readHeaderTimeout bounds slow clients on the public listener.
const readHeaderTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API serving registration, verification, login, password
reset, settings and profile routes.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.Sources{File: configFile, Flags: cmd.Flags()})
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, cmd, nil)
		},
	}

	config.BindFlags(cmd.Flags())

	return cmd
}

// stores holds the entity stores over the selected backend.
type stores struct {
	accounts *account.Store
	settings *settings.Store
	profiles *profile.Store
	ping     observability.Check
	close    func()
}

func openStores(ctx context.Context, cfg config.Config, deps *ServeDeps) (*stores, error) {
	if cfg.Store.Driver == config.StoreMemory {
		slog.Warn("using the in-memory store; data is lost on exit")
		return &stores{
			accounts: account.NewStore(memory.New(account.Codec)),
			settings: settings.NewStore(memory.New(settings.Codec)),
			profiles: profile.NewStore(memory.New(profile.Codec)),
			close:    func() {},
		}, nil
	}

	// Connect first: the migrator dials once, so it must not race a database
	// that is still starting.
	pool, err := deps.PoolConnector(ctx, postgres.ConnectConfig{
		URL:        cfg.Database.URL,
		MaxRetries: cfg.Database.ConnectRetries,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("database connected")

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(cfg.Database.URL, deps.MigratorFactory); err != nil {
			pool.Close()
			return nil, err
		}
	}

	return &stores{
		accounts: account.NewStore(postgres.NewRepository(pool, account.Codec)),
		settings: settings.NewStore(postgres.NewRepository(pool, settings.Codec)),
		profiles: profile.NewStore(postgres.NewRepository(pool, profile.Codec)),
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}

func autoMigrate(databaseURL string, factory func(string) (Migrator, error)) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	slog.Info("database migrations applied")
	return nil
}

// newMailGateway picks the gateway named by cfg.Driver.
func newMailGateway(cfg config.MailConfig, renderer *mail.Renderer, logger *slog.Logger) (mail.Gateway, error) {
	switch cfg.Driver {
	case config.MailSMTP:
		gateway, err := mail.NewSMTPGateway(mail.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.From,
			Retries:  cfg.SMTP.Retries,
		}, renderer, logger)
		if err != nil {
			return nil, err
		}
		return gateway, nil
	case config.MailLog:
		return mail.NewLogGateway(renderer, logger), nil
	default:
		return nil, oops.Code("CONFIG_INVALID").With("mail_driver", cfg.Driver).Errorf("unknown mail driver %q", cfg.Driver)
	}
}

// api is the assembled command surface.
type api struct {
	handler http.Handler
	limiter *command.RateLimiter
}

func (a *api) close() {
	if a.limiter != nil {
		a.limiter.Close()
	}
}

func buildAPI(
	cfg config.Config,
	st *stores,
	deps *ServeDeps,
	reg prometheus.Registerer,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (*api, error) {
	renderer, err := mail.NewRenderer()
	if err != nil {
		return nil, err
	}
	gateway, err := deps.MailGatewayFactory(cfg.Mail, renderer, logger)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewService(session.Config{
		Secret:     cfg.Session.Secret,
		Issuer:     cfg.Session.Issuer,
		AccessTTL:  cfg.Session.AccessTTL,
		RefreshTTL: cfg.Session.RefreshTTL,
	})
	if err != nil {
		return nil, err
	}

	h, err := handlers.New(handlers.Deps{
		Accounts: st.accounts,
		Settings: st.settings,
		Profiles: st.profiles,
		Hasher: credential.NewArgon2idHasher(credential.Params{
			Time:    cfg.Hash.Time,
			Memory:  cfg.Hash.MemoryKiB,
			Threads: cfg.Hash.Threads,
		}),
		Sessions:  sessions,
		Mail:      gateway,
		Origin:    cfg.App.Origin,
		VerifyTTL: cfg.Tokens.VerifyTTL,
		ResetTTL:  cfg.Tokens.ResetTTL,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	registry := command.NewRegistry()
	handlers.RegisterAll(registry, h)

	out := &api{}
	opts := []command.DispatcherOption{command.WithLogger(logger)}
	if cfg.RateLimit.Enabled {
		out.limiter = command.NewRateLimiterWithRegistry(command.RateLimiterConfig{
			BurstCapacity: cfg.RateLimit.Burst,
			SustainedRate: cfg.RateLimit.Rate,
		}, reg)
		opts = append(opts, command.WithRateLimiter(out.limiter))
	}

	dispatcher, err := command.NewDispatcher(registry, opts...)
	if err != nil {
		out.close()
		return nil, err
	}
	if err := dispatcher.Require(handlers.Kinds()...); err != nil {
		out.close()
		return nil, err
	}

	out.handler = httpapi.NewRouter(httpapi.Config{
		Dispatcher: dispatcher,
		Tokens:     sessions,
		Metrics:    metrics,
		Logger:     logger,
	})
	return out, nil
}

// runServeWithDeps starts the API with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg config.Config, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()
	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, cfg.Log.Level)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	var reg prometheus.Registerer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load)
		metrics = obsServer.Metrics()
		reg = obsServer.Registerer()
	} else {
		private := prometheus.NewRegistry()
		metrics = observability.NewMetrics(private)
		reg = private
	}

	st, err := openStores(ctx, cfg, deps)
	if err != nil {
		return oops.Code("SERVE_STORE_FAILED").With("driver", cfg.Store.Driver).Wrap(err)
	}
	defer st.close()
	if obsServer != nil && st.ping != nil {
		obsServer.AddCheck("database", st.ping)
	}

	a, err := buildAPI(cfg, st, deps, reg, metrics, logger)
	if err != nil {
		return oops.Code("SERVE_SETUP_FAILED").Wrap(err)
	}
	defer a.close()

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errChan := make(chan error, 1)
	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errChan <- serveErr
		}
	}()
	slog.Info("HTTP API listening", "addr", listener.Addr().String())

	if obsServer != nil {
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer shutdownCancel()
			if stopErr := srv.Shutdown(shutdownCtx); stopErr != nil {
				slog.Warn("failed to stop HTTP API during cleanup", "error", stopErr)
			}
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ready.Store(true)
	cmd.Println("Parlor started")
	slog.Info("parlor ready", "store", cfg.Store.Driver, "mail", cfg.Mail.Driver)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case runErr = <-errChan:
		runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(runErr)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("error stopping HTTP API", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return runErr
}

// monitorServerErrors cancels ctx when a background server fails.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
