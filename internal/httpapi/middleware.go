// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/parlor/parlor/internal/errkind"
	"github.com/parlor/parlor/internal/session"
)

// TokenParser validates access tokens.
type TokenParser interface {
	ParseAccessToken(token string) (*session.Claims, error)
}

type contextKey string

const accountIDKey contextKey = "account_id"

// WithAccountID returns ctx carrying the authenticated account id.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// AccountID returns the authenticated account id, or "" outside the guard.
func AccountID(ctx context.Context) string {
	id, _ := ctx.Value(accountIDKey).(string)
	return id
}

// authenticate requires a valid bearer access token.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			a.fail(w, r, errkind.New(errkind.Unauthorized, KeyUnauthenticated))
			return
		}

		claims, err := a.tokens.ParseAccessToken(strings.TrimSpace(token))
		if err != nil {
			key := KeyUnauthenticated
			if errors.Is(err, session.ErrExpired) {
				key = KeyAccessExpired
			}
			a.logger.DebugContext(r.Context(), "access token rejected", "reason", err.Error())
			a.fail(w, r, errkind.New(errkind.Unauthorized, key))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), claims.AccountID)))
	})
}

// recoverer turns a handler panic into an internal error envelope.
func (a *API) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				a.fail(w, r, oops.Code("HTTP_PANIC").With("path", r.URL.Path).Errorf("panic: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// instrument logs each request and records its metrics under the matched
// route pattern.
func (a *API) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		if a.metrics != nil {
			a.metrics.RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
			a.metrics.RequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		a.logger.Log(r.Context(), level, "http request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
