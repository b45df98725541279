// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package mail

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	gomail "github.com/wneessen/go-mail"
)

// SMTPConfig configures the SMTP gateway.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Retries is the number of extra attempts after a failed send.
	Retries   uint64
	BaseDelay time.Duration
}

// sender is the subset of *gomail.Client used by SMTPGateway.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*gomail.Msg) error
}

// SMTPGateway delivers rendered messages over SMTP.
type SMTPGateway struct {
	renderer *Renderer
	client   sender
	cfg      SMTPConfig
	logger   *slog.Logger
}

// NewSMTPGateway builds a gateway with a go-mail client.
func NewSMTPGateway(cfg SMTPConfig, renderer *Renderer, logger *slog.Logger) (*SMTPGateway, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host and from address are required")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").With("host", cfg.Host).Wrap(err)
	}
	return newSMTPGateway(cfg, renderer, client, logger), nil
}

func newSMTPGateway(cfg SMTPConfig, renderer *Renderer, client sender, logger *slog.Logger) *SMTPGateway {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 200 * time.Millisecond
	}
	return &SMTPGateway{renderer: renderer, client: client, cfg: cfg, logger: logger}
}

// Send renders msg and delivers it, retrying transport failures.
func (g *SMTPGateway) Send(ctx context.Context, msg Message) error {
	rendered, err := g.renderer.Render(msg)
	if err != nil {
		return err
	}

	m := gomail.NewMsg()
	if err := m.From(g.cfg.From); err != nil {
		return oops.Code("MAIL_INVALID_MESSAGE").With("from", g.cfg.From).Wrap(err)
	}
	if err := m.To(rendered.To); err != nil {
		return oops.Code("MAIL_INVALID_MESSAGE").With("template", string(msg.Template)).Wrap(err)
	}
	m.Subject(rendered.Subject)
	m.SetBodyString(gomail.TypeTextHTML, rendered.HTML)

	attempt := 0
	backoff := retry.WithMaxRetries(g.cfg.Retries, retry.NewExponential(g.cfg.BaseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if sendErr := g.client.DialAndSendWithContext(ctx, m); sendErr != nil {
			g.logger.WarnContext(ctx, "smtp send failed",
				"template", string(msg.Template),
				"attempt", attempt,
				"error", sendErr)
			return retry.RetryableError(sendErr)
		}
		return nil
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("template", string(msg.Template)).
			With("attempts", attempt).
			Wrap(err)
	}

	g.logger.DebugContext(ctx, "mail sent", "template", string(msg.Template))
	return nil
}
