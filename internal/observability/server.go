// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package observability serves Prometheus metrics and health checks on a
// listener separate from the public API.
package observability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/oops"

	"github.com/parlor/parlor/internal/command"
)

// ReadinessChecker reports whether the service has finished starting.
type ReadinessChecker func() bool

// Check tests one dependency. A nil error means the dependency is usable.
type Check func(ctx context.Context) error

// checkTimeout bounds every dependency check on /readyz.
const checkTimeout = 2 * time.Second

// mailFailures is package-level so command handlers can record a failed
// send without holding the Server.
var mailFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parlor_mail_failures_total",
		Help: "Outbound mail sends that failed, by template",
	},
	[]string{"template"},
)

// RecordMailFailure increments the mail failure counter for template.
func RecordMailFailure(template string) {
	mailFailures.WithLabelValues(template).Inc()
}

// Metrics are the HTTP adapter's collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates the HTTP collectors and registers them, the mail
// failure counter and the dispatcher metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parlor_http_requests_total",
				Help: "API requests by route pattern, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parlor_http_request_duration_seconds",
				Help:    "API request latency by route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, mailFailures)
	command.RegisterMetrics(reg)
	return m
}

// healthReport is the JSON body of /livez and /readyz.
type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Server exposes /metrics, /livez and /readyz.
type Server struct {
	addr     string
	registry *prometheus.Registry
	metrics  *Metrics
	isReady  ReadinessChecker

	mu     sync.RWMutex
	checks map[string]Check

	running    atomic.Bool
	listener   net.Listener
	httpServer *http.Server
}

// NewServer creates a server that will listen on addr ("127.0.0.1:9100",
// ":0" in tests). A nil readiness checker counts as always ready.
func NewServer(addr string, isReady ReadinessChecker) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Server{
		addr:     addr,
		registry: registry,
		metrics:  NewMetrics(registry),
		isReady:  isReady,
		checks:   make(map[string]Check),
	}
}

// Metrics returns the collectors the HTTP adapter records into.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Registerer exposes the server's registry for additional collectors.
func (s *Server) Registerer() prometheus.Registerer {
	return s.registry
}

// AddCheck registers a dependency check reported by /readyz under name.
// Registering the same name twice replaces the earlier check.
func (s *Server) AddCheck(name string, check Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = check
}

// Handler returns the health and metrics routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	r.Get("/livez", s.handleLive)
	r.Get("/readyz", s.handleReady)
	return r
}

// Start begins serving. The returned channel receives a serve failure and is
// closed once the server stops.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("OBSERVABILITY_RUNNING").Errorf("observability server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("OBSERVABILITY_LISTEN_FAILED").With("addr", s.addr).Wrap(err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func(srv *http.Server) {
		defer close(errCh)
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("observability server error", "error", serveErr)
			errCh <- serveErr
		}
	}(s.httpServer)

	return errCh, nil
}

// Stop shuts the server down. Stopping a server that is not running is a
// no-op.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.running.Store(true)
		return oops.Code("OBSERVABILITY_STOP_FAILED").Wrap(err)
	}
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, http.StatusOK, healthReport{Status: "ok"})
}

// handleReady answers 503 until the service is started and every registered
// check passes.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.isReady != nil && !s.isReady() {
		writeReport(w, http.StatusServiceUnavailable, healthReport{Status: "starting"})
		return
	}

	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(s.checks))
	for name, c := range s.checks {
		checks[name] = c
	}
	s.mu.RUnlock()
	sort.Strings(names)

	report := healthReport{Status: "ready"}
	code := http.StatusOK
	if len(names) > 0 {
		report.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := checks[name](ctx)
		cancel()
		if err != nil {
			slog.WarnContext(r.Context(), "readiness check failed", "check", name, "error", err)
			report.Checks[name] = "failing"
			report.Status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		report.Checks[name] = "ok"
	}
	writeReport(w, code, report)
}

func writeReport(w http.ResponseWriter, code int, report healthReport) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	//nolint:errcheck // health clients may disconnect
	json.NewEncoder(w).Encode(report)
}
