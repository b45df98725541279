// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package handlers

import (
	"github.com/parlor/parlor/internal/account"
	"github.com/parlor/parlor/internal/command"
	"github.com/parlor/parlor/internal/profile"
	"github.com/parlor/parlor/internal/settings"
)

// Command kinds.
const (
	KindRegister       command.Kind = "account.register"
	KindVerify         command.Kind = "account.verify"
	KindLogin          command.Kind = "account.login"
	KindRefresh        command.Kind = "account.refresh"
	KindRequestReset   command.Kind = "account.request_reset"
	KindCompleteReset  command.Kind = "account.complete_reset"
	KindGetSettings    command.Kind = "settings.get"
	KindUpdateSettings command.Kind = "settings.update"
	KindCreateSettings command.Kind = "settings.create"
	KindCreateProfile  command.Kind = "profile.create"
	KindUpdateProfile  command.Kind = "profile.update"
	KindGetProfile     command.Kind = "profile.get"
)

// Kinds lists every kind RegisterAll binds.
func Kinds() []command.Kind {
	return []command.Kind{
		KindRegister, KindVerify, KindLogin, KindRefresh, KindRequestReset, KindCompleteReset,
		KindGetSettings, KindUpdateSettings, KindCreateSettings,
		KindCreateProfile, KindUpdateProfile, KindGetProfile,
	}
}

// RegisterAccount creates an unverified account.
type RegisterAccount struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// Kind implements command.Command.
func (RegisterAccount) Kind() command.Kind { return KindRegister }

// RateKey implements command.RateKeyed.
func (c RegisterAccount) RateKey() string { return account.NormalizeEmail(c.Email) }

// VerifyAccount consumes a verification token.
type VerifyAccount struct {
	Token string `json:"token"`
}

// Kind implements command.Command.
func (VerifyAccount) Kind() command.Kind { return KindVerify }

// Login exchanges credentials for a session token pair.
type Login struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Kind implements command.Command.
func (Login) Kind() command.Kind { return KindLogin }

// RateKey implements command.RateKeyed.
func (c Login) RateKey() string { return account.NormalizeEmail(c.Email) }

// RefreshSession exchanges a refresh token for a new token pair.
type RefreshSession struct {
	RefreshToken string `json:"refreshToken"`
}

// Kind implements command.Command.
func (RefreshSession) Kind() command.Kind { return KindRefresh }

// RequestReset issues a password reset token by email.
type RequestReset struct {
	Email string `json:"email"`
}

// Kind implements command.Command.
func (RequestReset) Kind() command.Kind { return KindRequestReset }

// RateKey implements command.RateKeyed.
func (c RequestReset) RateKey() string { return account.NormalizeEmail(c.Email) }

// CompleteReset consumes a reset token and sets a new password.
type CompleteReset struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Kind implements command.Command.
func (CompleteReset) Kind() command.Kind { return KindCompleteReset }

// GetSettings fetches an account's settings joined with the account.
type GetSettings struct {
	AccountID string `json:"-"`
}

// Kind implements command.Command.
func (GetSettings) Kind() command.Kind { return KindGetSettings }

// UpdateSettings applies changes, creating settings from defaults if needed.
type UpdateSettings struct {
	AccountID string `json:"-"`
	Changes   settings.Changes
}

// Kind implements command.Command.
func (UpdateSettings) Kind() command.Kind { return KindUpdateSettings }

// CreateSettings creates settings explicitly.
type CreateSettings struct {
	AccountID string `json:"-"`
	Changes   settings.Changes
}

// Kind implements command.Command.
func (CreateSettings) Kind() command.Kind { return KindCreateSettings }

// CreateProfile creates an account's profile.
type CreateProfile struct {
	AccountID string `json:"-"`
	Details   profile.Details
}

// Kind implements command.Command.
func (CreateProfile) Kind() command.Kind { return KindCreateProfile }

// UpdateProfile changes an existing profile.
type UpdateProfile struct {
	AccountID string `json:"-"`
	Details   profile.Details
}

// Kind implements command.Command.
func (UpdateProfile) Kind() command.Kind { return KindUpdateProfile }

// GetProfile fetches an account's profile joined with the account.
type GetProfile struct {
	AccountID string `json:"-"`
}

// Kind implements command.Command.
func (GetProfile) Kind() command.Kind { return KindGetProfile }
