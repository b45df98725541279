// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package httpapi maps HTTP routes onto commands and wraps every result in
// the response envelope.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/parlor/parlor/internal/command"
	"github.com/parlor/parlor/internal/command/handlers"
	"github.com/parlor/parlor/internal/observability"
)

// Config holds the router's collaborators.
type Config struct {
	Dispatcher *command.Dispatcher
	Tokens     TokenParser
	// Metrics is optional.
	Metrics *observability.Metrics
	Logger  *slog.Logger
	// Now stamps envelope metadata. Defaults to time.Now.
	Now func() time.Time
}

// API serves the command surface over HTTP.
type API struct {
	dispatcher *command.Dispatcher
	tokens     TokenParser
	metrics    *observability.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewRouter builds the chi router.
func NewRouter(cfg Config) http.Handler {
	a := &API{
		dispatcher: cfg.Dispatcher,
		tokens:     cfg.Tokens,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.now == nil {
		a.now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.recoverer)
	r.Use(a.instrument)

	r.NotFound(a.notFound)
	r.MethodNotAllowed(a.notFound)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", serve(a, http.StatusCreated, decodeBody[handlers.RegisterAccount]))
		r.Get("/verify", serve(a, http.StatusOK, verifyFromQuery))
		r.Post("/verify", serve(a, http.StatusOK, decodeBody[handlers.VerifyAccount]))
		r.Post("/login", serve(a, http.StatusOK, decodeBody[handlers.Login]))
		r.Post("/refresh", serve(a, http.StatusOK, decodeBody[handlers.RefreshSession]))
		r.Post("/forgot-password", serve(a, http.StatusOK, decodeBody[handlers.RequestReset]))
		r.Post("/update-password", serve(a, http.StatusOK, decodeBody[handlers.CompleteReset]))
	})

	r.Group(func(r chi.Router) {
		r.Use(a.authenticate)

		r.Get("/settings", serve(a, http.StatusOK, func(req *http.Request) (handlers.GetSettings, error) {
			return handlers.GetSettings{AccountID: AccountID(req.Context())}, nil
		}))
		r.Post("/settings", serve(a, http.StatusCreated, func(req *http.Request) (handlers.CreateSettings, error) {
			cmd := handlers.CreateSettings{AccountID: AccountID(req.Context())}
			err := decodeInto(req, &cmd.Changes)
			return cmd, err
		}))
		r.Patch("/settings", serve(a, http.StatusOK, func(req *http.Request) (handlers.UpdateSettings, error) {
			cmd := handlers.UpdateSettings{AccountID: AccountID(req.Context())}
			err := decodeInto(req, &cmd.Changes)
			return cmd, err
		}))

		r.Get("/profile", serve(a, http.StatusOK, func(req *http.Request) (handlers.GetProfile, error) {
			return handlers.GetProfile{AccountID: AccountID(req.Context())}, nil
		}))
		r.Post("/profile", serve(a, http.StatusCreated, func(req *http.Request) (handlers.CreateProfile, error) {
			cmd := handlers.CreateProfile{AccountID: AccountID(req.Context())}
			err := decodeInto(req, &cmd.Details)
			return cmd, err
		}))
		r.Patch("/profile", serve(a, http.StatusOK, func(req *http.Request) (handlers.UpdateProfile, error) {
			cmd := handlers.UpdateProfile{AccountID: AccountID(req.Context())}
			err := decodeInto(req, &cmd.Details)
			return cmd, err
		}))
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		//nolint:errcheck // health check write error is acceptable, client may disconnect
		w.Write([]byte("ok\n"))
	})

	return r
}

// serve dispatches the command built from the request and writes the
// envelope. code is the status of a successful response.
func serve[C command.Command](a *API, code int, build func(*http.Request) (C, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := build(r)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		result, err := a.dispatcher.Dispatch(r.Context(), cmd)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		a.succeed(w, r, code, result)
	}
}

func verifyFromQuery(r *http.Request) (handlers.VerifyAccount, error) {
	return handlers.VerifyAccount{Token: r.URL.Query().Get("token")}, nil
}
