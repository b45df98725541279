// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package handlers

import (
	"context"
	"strings"

	"github.com/parlor/parlor/internal/account"
	"github.com/parlor/parlor/internal/credential"
	"github.com/parlor/parlor/internal/mail"
)

// RequestReset mails a password reset link. The result is the same whether
// or not the email belongs to an account.
func (h *Handlers) RequestReset(ctx context.Context, cmd RequestReset) (Outcome, error) {
	email := account.NormalizeEmail(cmd.Email)
	if email == "" {
		return Outcome{}, errInvalid(KeyEmailRequired)
	}

	done := Outcome{Key: KeyAccountExistPasswordResetLinkSent}

	acct, err := h.accounts.FindByEmail(ctx, email)
	if err != nil {
		return Outcome{}, err
	}
	if acct == nil {
		h.logger.DebugContext(ctx, "password reset requested for unknown email")
		return done, nil
	}

	token, err := h.issueToken(ctx, *acct, account.PurposeReset, h.resetTTL)
	if err != nil {
		return Outcome{}, err
	}
	h.logger.InfoContext(ctx, "password reset token issued", "account_id", acct.ID)
	h.notify(ctx, mail.TemplateForgetPassword, *acct, mail.UpdatePasswordPath, token)
	return done, nil
}

// CompleteReset consumes a reset token and replaces the password.
func (h *Handlers) CompleteReset(ctx context.Context, cmd CompleteReset) (Outcome, error) {
	token := strings.TrimSpace(cmd.Token)
	if token == "" || cmd.NewPassword == "" {
		return Outcome{}, errInvalid(KeyTokenAndNewPasswordRequired)
	}
	if len(cmd.NewPassword) < MinPasswordLength {
		return Outcome{}, errInvalid(KeyPasswordTooShort, "min", MinPasswordLength)
	}

	acct, err := h.accounts.FindByTokenDigest(ctx, credential.Digest(token))
	if err != nil {
		return Outcome{}, err
	}
	if acct == nil || !acct.HasPendingToken(account.PurposeReset) || acct.PendingToken.Expired(h.now()) {
		return Outcome{}, errNotFound(KeyInvalidTokenOrResetTokenExpired)
	}

	hash, err := h.hasher.Hash(cmd.NewPassword)
	if err != nil {
		return Outcome{}, err
	}
	if _, err := h.accounts.UpdatePassword(ctx, acct.ID, hash); err != nil {
		return Outcome{}, err
	}
	h.logger.InfoContext(ctx, "password reset completed", "account_id", acct.ID)
	return Outcome{Key: KeyPasswordSuccessfullyReset}, nil
}
