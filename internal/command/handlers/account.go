// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package handlers

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"

	"github.com/parlor/parlor/internal/account"
	"github.com/parlor/parlor/internal/credential"
	"github.com/parlor/parlor/internal/mail"
	"github.com/parlor/parlor/internal/session"
	"github.com/parlor/parlor/internal/storage"
	"github.com/parlor/parlor/pkg/errutil"
)

// Register creates an unverified account and mails it a verification link.
func (h *Handlers) Register(ctx context.Context, cmd RegisterAccount) (RegisterResult, error) {
	email := account.NormalizeEmail(cmd.Email)
	username := strings.TrimSpace(cmd.Username)
	if email == "" || cmd.Password == "" || username == "" {
		return RegisterResult{}, errInvalid(KeyRegistrationFieldsRequired)
	}
	if err := validate.Var(email, "email"); err != nil {
		return RegisterResult{}, errInvalid(KeyRegistrationFieldsInvalid, "field", "email")
	}
	if err := account.ValidateUsername(username); err != nil {
		return RegisterResult{}, errInvalid(KeyRegistrationFieldsInvalid, "field", "username")
	}
	if len(cmd.Password) < MinPasswordLength {
		return RegisterResult{}, errInvalid(KeyPasswordTooShort, "min", MinPasswordLength)
	}

	existing, err := h.accounts.FindByEmail(ctx, email)
	if err != nil {
		return RegisterResult{}, err
	}
	if existing != nil {
		return RegisterResult{}, errConflict(KeyConflictUser, "field", "email")
	}
	taken, err := h.accounts.UsernameTaken(ctx, username)
	if err != nil {
		return RegisterResult{}, err
	}
	if taken {
		return RegisterResult{}, errConflict(KeyConflictUser, "field", "username")
	}

	hash, err := h.hasher.Hash(cmd.Password)
	if err != nil {
		return RegisterResult{}, err
	}
	tok, err := h.hasher.MintToken(email)
	if err != nil {
		return RegisterResult{}, err
	}

	created, err := h.accounts.Create(ctx, account.Account{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		PendingToken: &account.PendingToken{
			Value:     tok.Digest,
			Purpose:   account.PurposeVerify,
			ExpiresAt: h.now().Add(h.verifyTTL),
		},
	})
	if storage.IsDuplicate(err) {
		return RegisterResult{}, errConflict(KeyConflictUser)
	}
	if err != nil {
		return RegisterResult{}, err
	}

	h.logger.InfoContext(ctx, "account registered", "account_id", created.ID)
	h.notify(ctx, mail.TemplateVerifyEmail, created, mail.VerifyPath, tok.Plain)
	return RegisterResult{Account: created.View()}, nil
}

// Verify consumes a verification token and creates the default settings.
func (h *Handlers) Verify(ctx context.Context, cmd VerifyAccount) (Outcome, error) {
	token := strings.TrimSpace(cmd.Token)
	if token == "" {
		return Outcome{}, errInvalid(KeyVerificationTokenRequired)
	}

	acct, err := h.accounts.FindByTokenDigest(ctx, credential.Digest(token))
	if err != nil {
		return Outcome{}, err
	}
	if acct == nil || !acct.HasPendingToken(account.PurposeVerify) {
		return Outcome{}, errNotFound(KeyInvalidVerificationToken)
	}
	if acct.PendingToken.Expired(h.now()) {
		return Outcome{}, errNotFound(KeyVerificationTokenExpired, "account_id", acct.ID)
	}

	key := KeyEmailVerified
	if acct.IsVerified {
		// a verify token outstanding on a verified account is stale; consume it
		if _, err := h.accounts.ClearToken(ctx, acct.ID); err != nil {
			return Outcome{}, err
		}
		key = KeyUserAlreadyVerified
	} else {
		if _, err := h.accounts.MarkVerified(ctx, acct.ID); err != nil {
			return Outcome{}, err
		}
		h.logger.InfoContext(ctx, "account verified", "account_id", acct.ID)
	}

	if _, created, err := h.settings.EnsureDefaults(ctx, acct.ID); err != nil {
		return Outcome{}, oops.With("account_id", acct.ID).Wrapf(err, "create default settings")
	} else if created {
		h.logger.DebugContext(ctx, "default settings created", "account_id", acct.ID)
	}
	return Outcome{Key: key}, nil
}

// Login checks credentials and issues a session token pair.
func (h *Handlers) Login(ctx context.Context, cmd Login) (SessionResult, error) {
	email := account.NormalizeEmail(cmd.Email)
	if email == "" || cmd.Password == "" {
		return SessionResult{}, errInvalid(KeyEmailPasswordRequired)
	}

	acct, err := h.accounts.FindByEmail(ctx, email)
	if err != nil {
		return SessionResult{}, err
	}

	// Compare even when no account matched so both paths cost the same.
	hash := h.dummyHash
	if acct != nil {
		hash = acct.PasswordHash
	}
	ok, err := h.hasher.Compare(cmd.Password, hash)
	if err != nil && acct != nil {
		return SessionResult{}, oops.With("account_id", acct.ID).Wrap(err)
	}

	if acct == nil {
		return SessionResult{}, errUnauthorized(KeyInvalidCredentials)
	}
	if !acct.IsVerified {
		return SessionResult{}, errForbidden(KeyVerifyEmailBeforeLogin)
	}
	if !ok {
		return SessionResult{}, errUnauthorized(KeyInvalidCredentials)
	}

	if h.hasher.NeedsUpgrade(acct.PasswordHash) {
		h.upgradeHash(ctx, acct.ID, cmd.Password)
	}

	result, err := h.startSession(*acct, KeyLoginSuccess)
	if err != nil {
		return SessionResult{}, err
	}
	h.logger.InfoContext(ctx, "login succeeded", "account_id", acct.ID)
	return result, nil
}

// RefreshSession trades a valid refresh token for a new pair.
func (h *Handlers) RefreshSession(ctx context.Context, cmd RefreshSession) (SessionResult, error) {
	raw := strings.TrimSpace(cmd.RefreshToken)
	if raw == "" {
		return SessionResult{}, errInvalid(KeyRefreshTokenRequired)
	}

	claims, err := h.sessions.ParseRefreshToken(raw)
	if err != nil {
		h.logger.DebugContext(ctx, "refresh token rejected", "reason", err.Error())
		return SessionResult{}, errUnauthorized(KeyInvalidRefreshToken)
	}

	acct, err := h.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		return SessionResult{}, err
	}
	if acct == nil {
		return SessionResult{}, errUnauthorized(KeyInvalidRefreshToken)
	}
	if !acct.IsVerified {
		return SessionResult{}, errForbidden(KeyVerifyEmailBeforeLogin)
	}
	return h.startSession(*acct, KeySessionRefreshed)
}

func (h *Handlers) startSession(acct account.Account, key string) (SessionResult, error) {
	pair, err := h.sessions.GeneratePair(session.Payload{AccountID: acct.ID, Email: acct.Email})
	if err != nil {
		return SessionResult{}, oops.With("account_id", acct.ID).Wrap(err)
	}
	return SessionResult{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
		Account:          acct.View(),
		Key:              key,
	}, nil
}

// upgradeHash rehashes with current parameters. A failure leaves the old
// hash in place and does not fail the login.
func (h *Handlers) upgradeHash(ctx context.Context, accountID, password string) {
	hash, err := h.hasher.Hash(password)
	if err == nil {
		_, err = h.accounts.RehashPassword(ctx, accountID, hash)
	}
	if err != nil {
		errutil.LogErrorContext(ctx, h.logger, slog.LevelWarn, "password hash upgrade failed",
			oops.With("account_id", accountID).Wrap(err))
		return
	}
	h.logger.InfoContext(ctx, "password hash upgraded", "account_id", accountID)
}
