// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package command

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/parlor/parlor/internal/errkind"
)

// StatusSuccess labels a command that returned no error. Failures are
// labelled with their lower-cased error kind.
const StatusSuccess = "success"

// CommandExecutions is the counter for command executions.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandExecutions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parlor_command_executions_total",
		Help: "Total number of command executions",
	},
	[]string{"command", "status"},
)

// CommandDuration is the histogram for command execution duration.
// Use RegisterMetrics to register this with a Prometheus registry.
var CommandDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "parlor_command_duration_seconds",
		Help:    "Command execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"command"},
)

// CommandRateLimited counts commands rejected by the rate limiter.
var CommandRateLimited = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "parlor_command_rate_limited_total",
		Help: "Total number of commands rejected by the rate limiter",
	},
	[]string{"command"},
)

// RegisterMetrics registers command package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(CommandExecutions)
	reg.MustRegister(CommandDuration)
	reg.MustRegister(CommandRateLimited)
}

// RecordCommandExecution increments the command execution counter.
func RecordCommandExecution(command, status string) {
	CommandExecutions.WithLabelValues(command, status).Inc()
}

// RecordCommandDuration records the duration of a command execution.
func RecordCommandDuration(command string, duration time.Duration) {
	CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordCommandRateLimited increments the rate limited counter.
func RecordCommandRateLimited(command string) {
	CommandRateLimited.WithLabelValues(command).Inc()
}

// observation times one dispatch and records it when finished.
type observation struct {
	kind  Kind
	start time.Time
}

func observe(kind Kind) observation {
	return observation{kind: kind, start: time.Now()}
}

// statusOf labels err by its lower-cased error kind.
func statusOf(err error) string {
	if err == nil {
		return StatusSuccess
	}
	return strings.ToLower(string(errkind.Of(err)))
}

// finish records the outcome. Commands without a kind are not recorded.
func (o observation) finish(err error) {
	if o.kind == "" {
		return
	}
	RecordCommandExecution(string(o.kind), statusOf(err))
	RecordCommandDuration(string(o.kind), time.Since(o.start))
}
