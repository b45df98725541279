// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package profile

import (
	"context"

	"github.com/parlor/parlor/internal/storage"
)

// Store holds the profile lookups keyed by account.
type Store struct {
	repo storage.Repository[Profile]
}

// NewStore wraps repo.
func NewStore(repo storage.Repository[Profile]) *Store {
	return &Store{repo: repo}
}

// FindByAccountID returns nil, nil when the account has no profile.
func (s *Store) FindByAccountID(ctx context.Context, accountID string) (*Profile, error) {
	return s.repo.FindOne(ctx, storage.Filter{FieldAccountID: accountID})
}

// Create inserts a profile built from d. A second profile for the same
// account fails with storage.ErrDuplicate.
func (s *Store) Create(ctx context.Context, accountID string, d Details) (Profile, error) {
	p, err := d.Apply(Profile{AccountID: accountID})
	if err != nil {
		return Profile{}, err
	}
	return s.repo.Create(ctx, p)
}

// Update applies d to the account's profile. Returns nil, nil when the
// account has no profile. Empty details return the stored profile unwritten.
func (s *Store) Update(ctx context.Context, accountID string, d Details) (*Profile, error) {
	existing, err := s.FindByAccountID(ctx, accountID)
	if err != nil || existing == nil {
		return nil, err
	}
	if d.Empty() {
		return existing, nil
	}
	next, err := d.Apply(*existing)
	if err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, existing.ID, patch(next))
}
