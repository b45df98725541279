// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package account defines the Account entity, its storage codec and the
// lookups the account commands need.
package account

import (
	"regexp"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Purpose tags what a pending token may be used for.
type Purpose string

// Token purposes.
const (
	PurposeVerify Purpose = "verify"
	PurposeReset  Purpose = "reset"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeVerify || p == PurposeReset
}

// PendingToken is the single outstanding verification or reset secret on an
// account. Value holds the digest of the token, never the token itself.
type PendingToken struct {
	Value     string
	Purpose   Purpose
	ExpiresAt time.Time
}

// Expired reports whether the token is no longer usable at now.
func (t PendingToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Account is a registered identity.
type Account struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"-"`
	PendingToken *PendingToken `json:"-"`
	IsVerified   bool          `json:"isVerified"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// HasPendingToken reports whether a token with the given purpose is outstanding.
func (a Account) HasPendingToken(purpose Purpose) bool {
	return a.PendingToken != nil && a.PendingToken.Purpose == purpose
}

// View is the outward representation of an account.
type View struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// View returns the sanitized account.
func (a Account) View() View {
	return View{
		ID:         a.ID,
		Email:      a.Email,
		Username:   a.Username,
		IsVerified: a.IsVerified,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const (
	minUsernameLength = 3
	maxUsernameLength = 20
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidateUsername checks length and character set.
func ValidateUsername(username string) error {
	if n := len(username); n < minUsernameLength || n > maxUsernameLength {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			With("length", n).
			Errorf("username must be %d-%d characters", minUsernameLength, maxUsernameLength)
	}
	if !usernamePattern.MatchString(username) {
		return oops.Code("ACCOUNT_INVALID_USERNAME").
			Errorf("username may only contain letters, numbers and underscores")
	}
	return nil
}
