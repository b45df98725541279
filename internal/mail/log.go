// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package mail

import (
	"context"
	"log/slog"
)

// LogGateway renders messages and writes them to the log instead of
// sending them. Used in development.
type LogGateway struct {
	renderer *Renderer
	logger   *slog.Logger
}

// NewLogGateway returns a LogGateway.
func NewLogGateway(renderer *Renderer, logger *slog.Logger) *LogGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogGateway{renderer: renderer, logger: logger}
}

// Send renders msg and logs the result.
func (g *LogGateway) Send(ctx context.Context, msg Message) error {
	rendered, err := g.renderer.Render(msg)
	if err != nil {
		return err
	}
	g.logger.InfoContext(ctx, "mail delivered to log",
		"template", string(msg.Template),
		"to", rendered.To,
		"subject", rendered.Subject,
		"body", rendered.HTML)
	return nil
}
