// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package handlers implements the account, settings and profile commands.
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/parlor/parlor/internal/account"
	"github.com/parlor/parlor/internal/credential"
	"github.com/parlor/parlor/internal/mail"
	"github.com/parlor/parlor/internal/observability"
	"github.com/parlor/parlor/internal/profile"
	"github.com/parlor/parlor/internal/session"
	"github.com/parlor/parlor/internal/settings"
	"github.com/parlor/parlor/pkg/errutil"
)

// Token lifetimes used when Deps leaves them unset.
const (
	DefaultVerifyTTL = 24 * time.Hour
	DefaultResetTTL  = time.Hour
)

// MinPasswordLength is the shortest password Register and CompleteReset accept.
const MinPasswordLength = 8

var validate = validator.New(validator.WithRequiredStructEnabled())

// Sessions issues and checks session tokens.
type Sessions interface {
	GeneratePair(p session.Payload) (session.Pair, error)
	ParseRefreshToken(token string) (*session.Claims, error)
}

// Deps are the collaborators the handlers need.
type Deps struct {
	Accounts *account.Store
	Settings *settings.Store
	Profiles *profile.Store
	Hasher   credential.Hasher
	Sessions Sessions
	Mail     mail.Gateway

	// Origin prefixes the links mailed to users.
	Origin    string
	VerifyTTL time.Duration
	ResetTTL  time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

// Handlers holds the command implementations.
type Handlers struct {
	accounts *account.Store
	settings *settings.Store
	profiles *profile.Store
	hasher   credential.Hasher
	sessions Sessions
	mail     mail.Gateway

	origin    string
	verifyTTL time.Duration
	resetTTL  time.Duration
	now       func() time.Time
	logger    *slog.Logger

	// dummyHash is compared against when no account matches a login so the
	// response time does not reveal whether the email exists.
	dummyHash string
}

// New validates deps and builds the handlers.
func New(deps Deps) (*Handlers, error) {
	switch {
	case deps.Accounts == nil:
		return nil, oops.Code("HANDLERS_CONFIG_INVALID").Errorf("account store is required")
	case deps.Settings == nil:
		return nil, oops.Code("HANDLERS_CONFIG_INVALID").Errorf("settings store is required")
	case deps.Profiles == nil:
		return nil, oops.Code("HANDLERS_CONFIG_INVALID").Errorf("profile store is required")
	case deps.Hasher == nil:
		return nil, oops.Code("HANDLERS_CONFIG_INVALID").Errorf("hasher is required")
	case deps.Sessions == nil:
		return nil, oops.Code("HANDLERS_CONFIG_INVALID").Errorf("session service is required")
	case deps.Mail == nil:
		return nil, oops.Code("HANDLERS_CONFIG_INVALID").Errorf("mail gateway is required")
	}

	h := &Handlers{
		accounts:  deps.Accounts,
		settings:  deps.Settings,
		profiles:  deps.Profiles,
		hasher:    deps.Hasher,
		sessions:  deps.Sessions,
		mail:      deps.Mail,
		origin:    deps.Origin,
		verifyTTL: deps.VerifyTTL,
		resetTTL:  deps.ResetTTL,
		now:       deps.Now,
		logger:    deps.Logger,
	}
	if h.verifyTTL <= 0 {
		h.verifyTTL = DefaultVerifyTTL
	}
	if h.resetTTL <= 0 {
		h.resetTTL = DefaultResetTTL
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}

	dummy, err := h.hasher.Hash(ulid.Make().String())
	if err != nil {
		return nil, oops.Code("HANDLERS_CONFIG_INVALID").Wrapf(err, "hash dummy password")
	}
	h.dummyHash = dummy
	return h, nil
}

// issueToken mints a token for acct, stores its digest and returns the plaintext.
func (h *Handlers) issueToken(ctx context.Context, acct account.Account, purpose account.Purpose, ttl time.Duration) (string, error) {
	tok, err := h.hasher.MintToken(acct.Email)
	if err != nil {
		return "", oops.With("purpose", string(purpose)).Wrap(err)
	}
	_, err = h.accounts.IssueToken(ctx, acct.ID, account.PendingToken{
		Value:     tok.Digest,
		Purpose:   purpose,
		ExpiresAt: h.now().Add(ttl),
	})
	if err != nil {
		return "", err
	}
	return tok.Plain, nil
}

// notify sends a templated link to acct. Failures are logged, never returned:
// the state change that prompted the mail has already been committed.
func (h *Handlers) notify(ctx context.Context, tmpl mail.TemplateID, acct account.Account, path, token string) {
	msg := mail.Message{
		Template: tmpl,
		To:       acct.Email,
		Payload: map[string]string{
			mail.KeyUsername: acct.Username,
			mail.KeyURL:      mail.CallbackURL(h.origin, path, token),
		},
	}
	if err := h.mail.Send(ctx, msg); err != nil {
		observability.RecordMailFailure(string(tmpl))
		errutil.LogErrorContext(ctx, h.logger, slog.LevelError, "mail dispatch failed", oops.
			With("template", string(tmpl)).
			With("account_id", acct.ID).
			Wrap(err))
	}
}

// lookupAccount returns the account or a NotFound domain error.
func (h *Handlers) lookupAccount(ctx context.Context, id string) (*account.Account, error) {
	acct, err := h.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, errNotFound(KeyAccountNotFound, "account_id", id)
	}
	return acct, nil
}
