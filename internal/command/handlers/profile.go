// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package handlers

import (
	"context"
	"strings"

	"github.com/samber/oops"

	"github.com/parlor/parlor/internal/profile"
	"github.com/parlor/parlor/internal/storage"
)

// CreateProfile creates the account's profile.
func (h *Handlers) CreateProfile(ctx context.Context, cmd CreateProfile) (ProfileResult, error) {
	id := strings.TrimSpace(cmd.AccountID)
	if id == "" {
		return ProfileResult{}, errInvalid(KeyAccountIDRequired)
	}
	details, err := checkDetails(cmd.Details)
	if err != nil {
		return ProfileResult{}, err
	}
	if _, err := h.lookupAccount(ctx, id); err != nil {
		return ProfileResult{}, err
	}

	existing, err := h.profiles.FindByAccountID(ctx, id)
	if err != nil {
		return ProfileResult{}, err
	}
	if existing != nil {
		return ProfileResult{}, errConflict(KeyProfileAlreadyExists, "account_id", id)
	}

	p, err := h.profiles.Create(ctx, id, details)
	if storage.IsDuplicate(err) {
		return ProfileResult{}, errConflict(KeyProfileAlreadyExists, "account_id", id)
	}
	if err != nil {
		return ProfileResult{}, profileError(err)
	}
	h.logger.InfoContext(ctx, "profile created", "account_id", id)
	return ProfileResult{Profile: p, Key: KeyProfileCreated}, nil
}

// UpdateProfile changes an existing profile.
func (h *Handlers) UpdateProfile(ctx context.Context, cmd UpdateProfile) (ProfileResult, error) {
	id := strings.TrimSpace(cmd.AccountID)
	if id == "" {
		return ProfileResult{}, errInvalid(KeyAccountIDRequired)
	}
	details, err := checkDetails(cmd.Details)
	if err != nil {
		return ProfileResult{}, err
	}

	p, err := h.profiles.Update(ctx, id, details)
	if err != nil {
		return ProfileResult{}, profileError(err)
	}
	if p == nil {
		return ProfileResult{}, errNotFound(KeyProfileNotFound, "account_id", id)
	}
	h.logger.InfoContext(ctx, "profile updated", "account_id", id)
	return ProfileResult{Profile: *p, Key: KeyProfileUpdated}, nil
}

// GetProfile fetches the profile, then the owning account, and joins them.
func (h *Handlers) GetProfile(ctx context.Context, cmd GetProfile) (ProfileResult, error) {
	id := strings.TrimSpace(cmd.AccountID)
	if id == "" {
		return ProfileResult{}, errInvalid(KeyAccountIDRequired)
	}

	p, err := h.profiles.FindByAccountID(ctx, id)
	if err != nil {
		return ProfileResult{}, err
	}
	if p == nil {
		return ProfileResult{}, errNotFound(KeyProfileNotFound, "account_id", id)
	}
	acct, err := h.lookupAccount(ctx, id)
	if err != nil {
		return ProfileResult{}, err
	}
	view := acct.View()
	return ProfileResult{Profile: *p, Account: &view, Key: KeyProfileFetched}, nil
}

func checkDetails(d profile.Details) (profile.Details, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return profile.Details{}, profileError(err)
	}
	return d, nil
}

// profileError turns a PROFILE_INVALID failure into a domain error and
// leaves anything else for the boundary.
func profileError(err error) error {
	oopsErr, ok := oops.AsOops(err)
	if !ok || oopsErr.Code() != profile.CodeInvalid {
		return err
	}
	field, _ := oopsErr.Context()["field"].(string)
	return errInvalid(KeyProfileFieldsInvalid, "field", field)
}
