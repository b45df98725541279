// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package settings

import (
	"context"

	"github.com/samber/oops"

	"github.com/parlor/parlor/internal/storage"
)

// Store holds the settings lookups keyed by account.
type Store struct {
	repo storage.Repository[Settings]
}

// NewStore wraps repo.
func NewStore(repo storage.Repository[Settings]) *Store {
	return &Store{repo: repo}
}

// FindByAccountID returns nil, nil when the account has no settings.
func (s *Store) FindByAccountID(ctx context.Context, accountID string) (*Settings, error) {
	return s.repo.FindOne(ctx, storage.Filter{FieldAccountID: accountID})
}

// Create inserts settings. A second row for the same account fails with
// storage.ErrDuplicate.
func (s *Store) Create(ctx context.Context, settings Settings) (Settings, error) {
	return s.repo.Create(ctx, settings)
}

// EnsureDefaults creates default settings unless the account already has
// some. The bool reports whether a row was created.
func (s *Store) EnsureDefaults(ctx context.Context, accountID string) (Settings, bool, error) {
	existing, err := s.FindByAccountID(ctx, accountID)
	if err != nil {
		return Settings{}, false, err
	}
	if existing != nil {
		return *existing, false, nil
	}

	created, err := s.repo.Create(ctx, Defaults(accountID))
	if storage.IsDuplicate(err) {
		// lost a race with a concurrent verify
		again, findErr := s.FindByAccountID(ctx, accountID)
		if findErr != nil {
			return Settings{}, false, findErr
		}
		if again != nil {
			return *again, false, nil
		}
	}
	if err != nil {
		return Settings{}, false, err
	}
	return created, true, nil
}

// Upsert applies changes to the account's settings, creating them from
// defaults when missing. The bool reports whether a row was created.
func (s *Store) Upsert(ctx context.Context, accountID string, changes Changes) (Settings, bool, error) {
	existing, err := s.FindByAccountID(ctx, accountID)
	if err != nil {
		return Settings{}, false, err
	}
	if existing == nil {
		created, err := s.repo.Create(ctx, changes.Apply(Defaults(accountID)))
		if err != nil {
			return Settings{}, false, err
		}
		return created, true, nil
	}

	patch := changes.patch()
	if len(patch) == 0 {
		return *existing, false, nil
	}
	updated, err := s.repo.Update(ctx, existing.ID, patch)
	if err != nil {
		return Settings{}, false, err
	}
	if updated == nil {
		return Settings{}, false, oops.Code("SETTINGS_MISSING").With("account_id", accountID).Errorf("settings disappeared during update")
	}
	return *updated, false, nil
}
