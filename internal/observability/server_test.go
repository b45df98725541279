// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package observability

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlor/parlor/internal/command"
)

func fetchReport(t *testing.T, h http.Handler, path string) (int, healthReport) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var report healthReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	return rec.Code, report
}

func stopServer(t *testing.T, s *Server) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RequestsTotal.WithLabelValues("/auth/login", "POST", "200").Inc()
	m.RequestsTotal.WithLabelValues("/auth/login", "POST", "200").Inc()
	m.RequestDuration.WithLabelValues("/auth/login").Observe(0.01)

	assert.InDelta(t, 2, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/auth/login", "POST", "200")), 0)

	before := testutil.ToFloat64(mailFailures.WithLabelValues("verify_email"))
	RecordMailFailure("verify_email")
	assert.InDelta(t, before+1, testutil.ToFloat64(mailFailures.WithLabelValues("verify_email")), 0)

	n, err := testutil.GatherAndCount(reg, "parlor_http_requests_total", "parlor_mail_failures_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)
}

func TestServer_Live(t *testing.T) {
	s := NewServer("127.0.0.1:0", func() bool { return false })

	code, report := fetchReport(t, s.Handler(), "/livez")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", report.Status)
}

func TestServer_Ready(t *testing.T) {
	failing := func(context.Context) error { return errors.New("connection refused") }
	passing := func(context.Context) error { return nil }

	tests := []struct {
		name       string
		ready      ReadinessChecker
		checks     map[string]Check
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "nil checker counts as ready",
			wantCode:   http.StatusOK,
			wantStatus: "ready",
		},
		{
			name:       "still starting",
			ready:      func() bool { return false },
			checks:     map[string]Check{"database": passing},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "starting",
		},
		{
			name:       "all checks pass",
			ready:      func() bool { return true },
			checks:     map[string]Check{"database": passing},
			wantCode:   http.StatusOK,
			wantStatus: "ready",
			wantChecks: map[string]string{"database": "ok"},
		},
		{
			name:       "failing dependency",
			ready:      func() bool { return true },
			checks:     map[string]Check{"database": failing, "mail": passing},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
			wantChecks: map[string]string{"database": "failing", "mail": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer("127.0.0.1:0", tt.ready)
			for name, c := range tt.checks {
				s.AddCheck(name, c)
			}

			code, report := fetchReport(t, s.Handler(), "/readyz")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, report.Status)
			assert.Equal(t, tt.wantChecks, report.Checks)
		})
	}
}

func TestServer_ReadyCheckSeesDeadline(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	s.AddCheck("database", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok, "check context should carry a deadline")
		return nil
	})

	code, _ := fetchReport(t, s.Handler(), "/readyz")
	assert.Equal(t, http.StatusOK, code)
}

func TestServer_ServesMetrics(t *testing.T) {
	s := NewServer("127.0.0.1:0", nil)
	errCh, err := s.Start()
	require.NoError(t, err)
	defer stopServer(t, s)
	require.NotNil(t, errCh)
	require.NotEmpty(t, s.Addr())

	s.Metrics().RequestsTotal.WithLabelValues("/auth/register", "POST", "201").Inc()
	command.RecordCommandExecution("account.register", command.StatusSuccess)

	resp, err := http.Get("http://" + s.Addr() + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, "go_goroutines")
	assert.Contains(t, text, `parlor_http_requests_total{code="201",method="POST",route="/auth/register"} 1`)
	assert.Contains(t, text, `parlor_command_executions_total{command="account.register",status="success"}`)
}

func TestServer_Lifecycle(t *testing.T) {
	t.Run("double start fails", func(t *testing.T) {
		s := NewServer("127.0.0.1:0", nil)
		_, err := s.Start()
		require.NoError(t, err)
		defer stopServer(t, s)

		_, err = s.Start()
		require.Error(t, err)
	})

	t.Run("stop without start is a no-op", func(t *testing.T) {
		s := NewServer("127.0.0.1:0", nil)
		assert.Empty(t, s.Addr())
		stopServer(t, s)
	})

	t.Run("listen failure resets state", func(t *testing.T) {
		s := NewServer("256.0.0.1:bad", nil)
		_, err := s.Start()
		require.Error(t, err)
		assert.False(t, s.running.Load())
	})

	t.Run("error channel closes on shutdown", func(t *testing.T) {
		s := NewServer("127.0.0.1:0", nil)
		errCh, err := s.Start()
		require.NoError(t, err)
		stopServer(t, s)

		select {
		case err, ok := <-errCh:
			assert.False(t, ok && err != nil, "unexpected error %v", err)
		case <-time.After(2 * time.Second):
			t.Fatal("error channel was not closed")
		}
	})

	t.Run("serve failure is reported", func(t *testing.T) {
		s := NewServer("127.0.0.1:0", nil)
		errCh, err := s.Start()
		require.NoError(t, err)
		defer stopServer(t, s)

		require.NoError(t, s.listener.Close())
		select {
		case err := <-errCh:
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), "closed"), err.Error())
		case <-time.After(2 * time.Second):
			t.Fatal("serve error was not reported")
		}
	})
}
