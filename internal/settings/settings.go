// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package settings holds per-account preferences. Each account has at most
// one Settings row, created with defaults when the account is verified.
package settings

import (
	"time"

	"github.com/samber/oops"

	"github.com/parlor/parlor/internal/storage"
)

// Theme is the UI colour scheme.
type Theme string

// Themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Defaults for a new Settings row.
const (
	DefaultTheme         = ThemeLight
	DefaultLanguage      = "en"
	DefaultColor         = "blue"
	DefaultNotifications = true
	DefaultSoundEnabled  = false
	DefaultFont          = "en"
)

// Settings is one account's preferences.
type Settings struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"accountId"`
	Theme         Theme     `json:"theme"`
	Language      string    `json:"language"`
	Color         string    `json:"color"`
	Notifications bool      `json:"notifications"`
	SoundEnabled  bool      `json:"soundEnabled"`
	Font          string    `json:"font"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Defaults returns the default settings for accountID.
func Defaults(accountID string) Settings {
	return Settings{
		AccountID:     accountID,
		Theme:         DefaultTheme,
		Language:      DefaultLanguage,
		Color:         DefaultColor,
		Notifications: DefaultNotifications,
		SoundEnabled:  DefaultSoundEnabled,
		Font:          DefaultFont,
	}
}

// Changes is a partial update. Nil fields are left alone.
type Changes struct {
	Theme         *Theme  `json:"theme,omitempty"`
	Language      *string `json:"language,omitempty"`
	Color         *string `json:"color,omitempty"`
	Notifications *bool   `json:"notifications,omitempty"`
	SoundEnabled  *bool   `json:"soundEnabled,omitempty"`
	Font          *string `json:"font,omitempty"`
}

// Validate rejects unknown themes and blank strings.
func (c Changes) Validate() error {
	if c.Theme != nil && *c.Theme != ThemeLight && *c.Theme != ThemeDark {
		return oops.Code("SETTINGS_INVALID").With("theme", string(*c.Theme)).Errorf("unknown theme")
	}
	for field, v := range map[string]*string{"language": c.Language, "color": c.Color, "font": c.Font} {
		if v != nil && *v == "" {
			return oops.Code("SETTINGS_INVALID").With("field", field).Errorf("%s must not be empty", field)
		}
	}
	return nil
}

// Apply returns s with c applied.
func (c Changes) Apply(s Settings) Settings {
	if c.Theme != nil {
		s.Theme = *c.Theme
	}
	if c.Language != nil {
		s.Language = *c.Language
	}
	if c.Color != nil {
		s.Color = *c.Color
	}
	if c.Notifications != nil {
		s.Notifications = *c.Notifications
	}
	if c.SoundEnabled != nil {
		s.SoundEnabled = *c.SoundEnabled
	}
	if c.Font != nil {
		s.Font = *c.Font
	}
	return s
}

func (c Changes) patch() storage.Patch {
	p := storage.Patch{}
	if c.Theme != nil {
		p[FieldTheme] = string(*c.Theme)
	}
	if c.Language != nil {
		p[FieldLanguage] = *c.Language
	}
	if c.Color != nil {
		p[FieldColor] = *c.Color
	}
	if c.Notifications != nil {
		p[FieldNotifications] = *c.Notifications
	}
	if c.SoundEnabled != nil {
		p[FieldSoundEnabled] = *c.SoundEnabled
	}
	if c.Font != nil {
		p[FieldFont] = *c.Font
	}
	return p
}
