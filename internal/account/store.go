// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package account

import (
	"context"

	"github.com/samber/oops"

	"github.com/parlor/parlor/internal/storage"
)

// CodeMissing marks a write against an account that no longer exists.
const CodeMissing = "ACCOUNT_MISSING"

// Store holds the account lookups built on the generic repository.
type Store struct {
	repo storage.Repository[Account]
}

// NewStore wraps repo.
func NewStore(repo storage.Repository[Account]) *Store {
	return &Store{repo: repo}
}

// Create inserts a new account with a normalized email.
func (s *Store) Create(ctx context.Context, a Account) (Account, error) {
	a.Email = NormalizeEmail(a.Email)
	return s.repo.Create(ctx, a)
}

// FindByID returns nil, nil when absent.
func (s *Store) FindByID(ctx context.Context, id string) (*Account, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByEmail looks up by normalized email. Returns nil, nil when absent.
func (s *Store) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.repo.FindOne(ctx, storage.Filter{FieldEmail: NormalizeEmail(email)})
}

// UsernameTaken reports whether username is already registered.
func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return s.repo.Exists(ctx, storage.Filter{FieldUsername: username})
}

// FindByTokenDigest returns the account holding the pending token with the
// given digest. Purpose and expiry are left to the caller.
func (s *Store) FindByTokenDigest(ctx context.Context, digest string) (*Account, error) {
	return s.repo.FindOne(ctx, storage.Filter{FieldToken: digest})
}

// IssueToken replaces the account's pending token, invalidating any other.
func (s *Store) IssueToken(ctx context.Context, id string, token PendingToken) (*Account, error) {
	return s.update(ctx, id, tokenPatch(&token))
}

// ClearToken removes the pending token.
func (s *Store) ClearToken(ctx context.Context, id string) (*Account, error) {
	return s.update(ctx, id, tokenPatch(nil))
}

// MarkVerified sets is_verified and consumes the pending token.
func (s *Store) MarkVerified(ctx context.Context, id string) (*Account, error) {
	patch := tokenPatch(nil)
	patch[FieldIsVerified] = true
	return s.update(ctx, id, patch)
}

// UpdatePassword stores a new hash and consumes the pending token.
func (s *Store) UpdatePassword(ctx context.Context, id, hash string) (*Account, error) {
	patch := tokenPatch(nil)
	patch[FieldPasswordHash] = hash
	return s.update(ctx, id, patch)
}

// RehashPassword replaces the stored hash and leaves any pending token alone.
func (s *Store) RehashPassword(ctx context.Context, id, hash string) (*Account, error) {
	return s.update(ctx, id, storage.Patch{FieldPasswordHash: hash})
}

func (s *Store) update(ctx context.Context, id string, patch storage.Patch) (*Account, error) {
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, oops.Code(CodeMissing).With("account_id", id).Errorf("account disappeared during update")
	}
	return updated, nil
}
