// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/parlor/parlor/internal/errkind"
	"github.com/parlor/parlor/pkg/errutil"
)

var tracer = otel.Tracer("parlor/command")

// KeyTooManyRequests is the message key of a rate limited command.
const KeyTooManyRequests = "tooManyRequests"

// Dispatcher routes commands to registered handlers.
type Dispatcher struct {
	registry    *Registry
	logger      *slog.Logger
	rateLimiter *RateLimiter // optional, can be nil
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger for dispatch failures. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithRateLimiter limits commands implementing RateKeyed.
// If not provided, rate limiting is disabled.
func WithRateLimiter(rl *RateLimiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.rateLimiter = rl
	}
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(registry *Registry, opts ...DispatcherOption) (*Dispatcher, error) {
	if registry == nil {
		return nil, oops.Code(CodeNilRegistry).Wrap(ErrNilRegistry)
	}
	d := &Dispatcher{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d, nil
}

// Require checks that every kind has a handler. Call it at startup so a
// missing registration fails the process instead of a request.
func (d *Dispatcher) Require(kinds ...Kind) error {
	var missing []Kind
	for _, k := range kinds {
		if _, ok := d.registry.Get(k); !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return ErrMissingHandlers(missing)
	}
	return nil
}

// Dispatch runs cmd through its handler. Every returned error carries an
// error kind: domain errors pass through, anything else is reported as
// InternalServerError.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (result any, err error) {
	if cmd == nil {
		return nil, errkind.Boundary("dispatch", ErrNilCommand())
	}
	kind := cmd.Kind()

	obs := observe(kind)

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(attribute.String("command.kind", string(kind))),
	)
	defer func() {
		if err != nil {
			span.SetAttributes(attribute.String("command.error_kind", string(errkind.Of(err))))
			span.RecordError(err)
			span.SetStatus(codes.Error, errkind.MessageKey(err))
		}
		obs.finish(err)
		span.End()
	}()

	if err = d.checkRate(ctx, kind, cmd, span); err != nil {
		return nil, err
	}

	handler, ok := d.registry.Get(kind)
	if !ok {
		err = errkind.Boundary(string(kind), ErrUnknownCommand(kind))
		d.logFailure(ctx, kind, err)
		return nil, err
	}

	result, err = handler(ctx, cmd)
	if err != nil {
		err = errkind.Boundary(string(kind), err)
		d.logFailure(ctx, kind, err)
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) checkRate(ctx context.Context, kind Kind, cmd Command, span trace.Span) error {
	if d.rateLimiter == nil {
		return nil
	}
	keyed, ok := cmd.(RateKeyed)
	if !ok {
		return nil
	}
	key := keyed.RateKey()
	if key == "" {
		return nil
	}

	allowed, cooldownMs := d.rateLimiter.Allow(string(kind) + ":" + key)
	if allowed {
		return nil
	}

	span.SetAttributes(attribute.Bool("command.rate_limited", true))
	span.SetAttributes(attribute.Int64("command.cooldown_ms", cooldownMs))
	RecordCommandRateLimited(string(kind))
	d.logger.WarnContext(ctx, "command rate limited",
		"command", string(kind),
		"cooldown_ms", cooldownMs)
	return errkind.Newf(errkind.TooManyRequests, KeyTooManyRequests, "cooldown_ms", cooldownMs)
}

func (d *Dispatcher) logFailure(ctx context.Context, kind Kind, err error) {
	level := slog.LevelWarn
	if errkind.Is(err, errkind.InternalServerError) {
		level = slog.LevelError
	}
	errutil.LogErrorContext(ctx, d.logger.With("command", string(kind)), level, "command failed", err)
}

// Execute dispatches cmd and asserts the result type.
func Execute[R any](ctx context.Context, d *Dispatcher, cmd Command) (R, error) {
	var zero R
	result, err := d.Dispatch(ctx, cmd)
	if err != nil {
		return zero, err
	}
	typed, ok := result.(R)
	if !ok {
		return zero, errkind.Boundary(string(cmd.Kind()),
			ErrResultMismatch(cmd.Kind(), fmt.Sprintf("%T", zero), result))
	}
	return typed, nil
}
