// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package handlers

import (
	"time"

	"github.com/parlor/parlor/internal/account"
	"github.com/parlor/parlor/internal/profile"
	"github.com/parlor/parlor/internal/settings"
)

// Outcome is the result of a command that returns only a message.
type Outcome struct {
	Key string `json:"-"`
}

// MessageKey returns the success message key.
func (o Outcome) MessageKey() string { return o.Key }

// RegisterResult is the newly created account.
type RegisterResult struct {
	Account account.View `json:"account"`
}

// MessageKey returns the success message key.
func (RegisterResult) MessageKey() string { return KeyRegistrationSuccess }

// SessionResult carries a token pair and the signed-in account.
type SessionResult struct {
	AccessToken      string       `json:"accessToken"`
	RefreshToken     string       `json:"refreshToken"`
	AccessExpiresAt  time.Time    `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time    `json:"refreshExpiresAt"`
	Account          account.View `json:"account"`
	Key              string       `json:"-"`
}

// MessageKey returns the success message key.
func (r SessionResult) MessageKey() string { return r.Key }

// SettingsResult is an account's settings, optionally joined with the account.
type SettingsResult struct {
	Settings settings.Settings `json:"settings"`
	Account  *account.View     `json:"account,omitempty"`
	Key      string            `json:"-"`
}

// MessageKey returns the success message key.
func (r SettingsResult) MessageKey() string { return r.Key }

// ProfileResult is an account's profile, optionally joined with the account.
type ProfileResult struct {
	Profile profile.Profile `json:"profile"`
	Account *account.View   `json:"account,omitempty"`
	Key     string          `json:"-"`
}

// MessageKey returns the success message key.
func (r ProfileResult) MessageKey() string { return r.Key }
