// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package command

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/parlor/parlor/internal/errkind"
	"github.com/parlor/parlor/pkg/errutil"
)

type loginCommand struct{ Email string }

func (loginCommand) Kind() Kind        { return "test.login" }
func (c loginCommand) RateKey() string { return c.Email }

type failCommand struct{ err error }

func (failCommand) Kind() Kind { return "test.fail" }

type unregisteredCommand struct{}

func (unregisteredCommand) Kind() Kind { return "test.unregistered" }

func newTestDispatcher(t *testing.T, opts ...DispatcherOption) (*Dispatcher, *bytes.Buffer) {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, Handle(reg, func(_ context.Context, cmd echoCommand) (string, error) {
		return "echo: " + cmd.Text, nil
	}))
	require.NoError(t, Handle(reg, func(_ context.Context, cmd loginCommand) (string, error) {
		return cmd.Email, nil
	}))
	require.NoError(t, Handle(reg, func(_ context.Context, cmd failCommand) (any, error) {
		return nil, cmd.err
	}))

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d, err := NewDispatcher(reg, append([]DispatcherOption{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	return d, &buf
}

func TestNewDispatcher_NilRegistry(t *testing.T) {
	_, err := NewDispatcher(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNilRegistry))
}

func TestDispatcher_Dispatch(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	d, _ := newTestDispatcher(t)
	result, err := d.Dispatch(context.Background(), echoCommand{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", result)
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, logs := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), unregisteredCommand{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKind))
	assert.Equal(t, errkind.InternalServerError, errkind.Of(err))
	assert.Equal(t, errkind.KeyInternal, errkind.MessageKey(err))
	assert.Contains(t, logs.String(), `"level":"ERROR"`)
	assert.Contains(t, logs.String(), `"command":"test.unregistered"`)
}

func TestDispatcher_NilCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), nil)
	assert.Equal(t, errkind.InternalServerError, errkind.Of(err))
}

func TestDispatcher_ClassifiesHandlerErrors(t *testing.T) {
	t.Run("domain error passes through", func(t *testing.T) {
		d, logs := newTestDispatcher(t)
		domain := errkind.New(errkind.NotFound, "invalidVerificationToken")

		_, err := d.Dispatch(context.Background(), failCommand{err: domain})
		assert.Equal(t, errkind.NotFound, errkind.Of(err))
		assert.Equal(t, "invalidVerificationToken", errkind.MessageKey(err))
		assert.Contains(t, logs.String(), `"level":"WARN"`)
		assert.NotContains(t, logs.String(), `"level":"ERROR"`)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		d, logs := newTestDispatcher(t)
		cause := errors.New("connection reset")

		_, err := d.Dispatch(context.Background(), failCommand{err: cause})
		assert.Equal(t, errkind.InternalServerError, errkind.Of(err))
		assert.True(t, errors.Is(err, cause))
		errutil.AssertErrorContext(t, err, "operation", "test.fail")
		assert.Contains(t, logs.String(), `"level":"ERROR"`)
	})
}

func TestDispatcher_Require(t *testing.T) {
	d, _ := newTestDispatcher(t)
	require.NoError(t, d.Require("test.echo", "test.login"))

	err := d.Require("test.echo", "test.missing", "test.gone")
	errutil.AssertErrorCode(t, err, CodeMissingHandlers)
	errutil.AssertErrorContext(t, err, "missing", []Kind{"test.missing", "test.gone"})
}

func TestExecute(t *testing.T) {
	d, _ := newTestDispatcher(t)

	got, err := Execute[string](context.Background(), d, echoCommand{Text: "typed"})
	require.NoError(t, err)
	assert.Equal(t, "echo: typed", got)

	_, err = Execute[int](context.Background(), d, echoCommand{Text: "typed"})
	assert.Equal(t, errkind.InternalServerError, errkind.Of(err))

	_, err = Execute[string](context.Background(), d, failCommand{err: errkind.New(errkind.Conflict, "conflictUser")})
	assert.Equal(t, errkind.Conflict, errkind.Of(err))
}

func TestDispatcher_RateLimit(t *testing.T) {
	clock := &manualClock{now: time.Now()}
	rl := NewRateLimiter(RateLimiterConfig{BurstCapacity: 2, SustainedRate: 1, Now: clock.Now})
	t.Cleanup(rl.Close)
	d, _ := newTestDispatcher(t, WithRateLimiter(rl))
	ctx := context.Background()

	limitedBefore := testutil.ToFloat64(CommandRateLimited.WithLabelValues("test.login"))

	for i := 0; i < 2; i++ {
		_, err := d.Dispatch(ctx, loginCommand{Email: "a@example.com"})
		require.NoError(t, err)
	}
	_, err := d.Dispatch(ctx, loginCommand{Email: "a@example.com"})
	assert.Equal(t, errkind.TooManyRequests, errkind.Of(err))
	assert.Equal(t, KeyTooManyRequests, errkind.MessageKey(err))
	assert.Equal(t, limitedBefore+1, testutil.ToFloat64(CommandRateLimited.WithLabelValues("test.login")))

	// other keys and unkeyed commands are unaffected
	_, err = d.Dispatch(ctx, loginCommand{Email: "b@example.com"})
	assert.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err = d.Dispatch(ctx, echoCommand{})
		assert.NoError(t, err)
	}

	clock.Advance(time.Second)
	_, err = d.Dispatch(ctx, loginCommand{Email: "a@example.com"})
	assert.NoError(t, err)
}

func TestDispatcher_Metrics(t *testing.T) {
	d, _ := newTestDispatcher(t)
	ctx := context.Background()

	okBefore := testutil.ToFloat64(CommandExecutions.WithLabelValues("test.echo", StatusSuccess))
	notFoundBefore := testutil.ToFloat64(CommandExecutions.WithLabelValues("test.fail", "not_found"))
	internalBefore := testutil.ToFloat64(CommandExecutions.WithLabelValues("test.fail", "internal_server_error"))

	_, _ = d.Dispatch(ctx, echoCommand{})
	_, _ = d.Dispatch(ctx, failCommand{err: errkind.New(errkind.NotFound, "k")})
	_, _ = d.Dispatch(ctx, failCommand{err: errors.New("boom")})

	assert.Equal(t, okBefore+1, testutil.ToFloat64(CommandExecutions.WithLabelValues("test.echo", StatusSuccess)))
	assert.Equal(t, notFoundBefore+1, testutil.ToFloat64(CommandExecutions.WithLabelValues("test.fail", "not_found")))
	assert.Equal(t, internalBefore+1, testutil.ToFloat64(CommandExecutions.WithLabelValues("test.fail", "internal_server_error")))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(CommandDuration), 2)
}

func TestObservation_SkipsEmptyKind(t *testing.T) {
	before := testutil.CollectAndCount(CommandExecutions)
	observe("").finish(nil)
	assert.Equal(t, before, testutil.CollectAndCount(CommandExecutions))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusSuccess, statusOf(nil))
	assert.Equal(t, "conflict", statusOf(errkind.New(errkind.Conflict, "k")))
	assert.Equal(t, "too_many_requests", statusOf(errkind.New(errkind.TooManyRequests, "k")))
	assert.Equal(t, "internal_server_error", statusOf(errors.New("boom")))
}

func TestRegisterMetrics(t *testing.T) {
	reg := newPromRegistry()
	assert.NotPanics(t, func() { RegisterMetrics(reg) })
	assert.Panics(t, func() { RegisterMetrics(reg) })
}
