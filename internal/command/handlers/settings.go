// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package handlers

import (
	"context"
	"strings"

	"github.com/parlor/parlor/internal/settings"
	"github.com/parlor/parlor/internal/storage"
)

// GetSettings fetches the settings, then the owning account, and joins them.
func (h *Handlers) GetSettings(ctx context.Context, cmd GetSettings) (SettingsResult, error) {
	id := strings.TrimSpace(cmd.AccountID)
	if id == "" {
		return SettingsResult{}, errInvalid(KeyAccountIDRequired)
	}

	s, err := h.settings.FindByAccountID(ctx, id)
	if err != nil {
		return SettingsResult{}, err
	}
	if s == nil {
		return SettingsResult{}, errNotFound(KeySettingsNotFound, "account_id", id)
	}
	acct, err := h.lookupAccount(ctx, id)
	if err != nil {
		return SettingsResult{}, err
	}
	view := acct.View()
	return SettingsResult{Settings: *s, Account: &view, Key: KeySettingsFetched}, nil
}

// UpdateSettings applies changes, creating settings from defaults when the
// account has none yet. Unverified accounts are refused so Verify stays the
// first writer of the settings row.
func (h *Handlers) UpdateSettings(ctx context.Context, cmd UpdateSettings) (SettingsResult, error) {
	id := strings.TrimSpace(cmd.AccountID)
	if id == "" {
		return SettingsResult{}, errInvalid(KeyAccountIDRequired)
	}
	if err := cmd.Changes.Validate(); err != nil {
		return SettingsResult{}, errInvalid(KeySettingsFieldsInvalid)
	}
	if err := h.requireVerified(ctx, id); err != nil {
		return SettingsResult{}, err
	}

	s, created, err := h.settings.Upsert(ctx, id, cmd.Changes)
	if err != nil {
		return SettingsResult{}, err
	}
	h.logger.InfoContext(ctx, "settings updated", "account_id", id, "created", created)
	return SettingsResult{Settings: s, Key: KeySettingsUpdated}, nil
}

// CreateSettings creates settings from defaults overlaid with changes.
func (h *Handlers) CreateSettings(ctx context.Context, cmd CreateSettings) (SettingsResult, error) {
	id := strings.TrimSpace(cmd.AccountID)
	if id == "" {
		return SettingsResult{}, errInvalid(KeyAccountIDRequired)
	}
	if err := cmd.Changes.Validate(); err != nil {
		return SettingsResult{}, errInvalid(KeySettingsFieldsInvalid)
	}
	if err := h.requireVerified(ctx, id); err != nil {
		return SettingsResult{}, err
	}

	existing, err := h.settings.FindByAccountID(ctx, id)
	if err != nil {
		return SettingsResult{}, err
	}
	if existing != nil {
		return SettingsResult{}, errConflict(KeySettingsAlreadyExist, "account_id", id)
	}

	s, err := h.settings.Create(ctx, cmd.Changes.Apply(settings.Defaults(id)))
	if storage.IsDuplicate(err) {
		return SettingsResult{}, errConflict(KeySettingsAlreadyExist, "account_id", id)
	}
	if err != nil {
		return SettingsResult{}, err
	}
	h.logger.InfoContext(ctx, "settings created", "account_id", id)
	return SettingsResult{Settings: s, Key: KeySettingsCreated}, nil
}

// requireVerified refuses settings writes until the account is verified.
func (h *Handlers) requireVerified(ctx context.Context, id string) error {
	acct, err := h.lookupAccount(ctx, id)
	if err != nil {
		return err
	}
	if !acct.IsVerified {
		return errForbidden(KeyAccountNotVerified, "account_id", id)
	}
	return nil
}
