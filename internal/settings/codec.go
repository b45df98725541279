// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package settings

import "github.com/parlor/parlor/internal/storage"

// Storage field names.
const (
	FieldAccountID     = "account_id"
	FieldTheme         = "theme"
	FieldLanguage      = "language"
	FieldColor         = "color"
	FieldNotifications = "notifications"
	FieldSoundEnabled  = "sound_enabled"
	FieldFont          = "font"
)

// Codec stores settings in the "settings" collection.
var Codec = storage.Codec[Settings]{
	Collection: "settings",
	Fields: []string{
		FieldAccountID, FieldTheme, FieldLanguage, FieldColor,
		FieldNotifications, FieldSoundEnabled, FieldFont,
	},
	Unique: []string{FieldAccountID},
	ToRow: func(s Settings) storage.Row {
		row := storage.Row{
			FieldAccountID:     s.AccountID,
			FieldTheme:         string(s.Theme),
			FieldLanguage:      s.Language,
			FieldColor:         s.Color,
			FieldNotifications: s.Notifications,
			FieldSoundEnabled:  s.SoundEnabled,
			FieldFont:          s.Font,
		}
		if s.ID != "" {
			row[storage.FieldID] = s.ID
		}
		if !s.CreatedAt.IsZero() {
			row[storage.FieldCreatedAt] = s.CreatedAt
		}
		if !s.UpdatedAt.IsZero() {
			row[storage.FieldUpdatedAt] = s.UpdatedAt
		}
		return row
	},
	FromRow: func(row storage.Row) (Settings, error) {
		if err := row.Require(storage.FieldID, FieldAccountID); err != nil {
			return Settings{}, err
		}
		return Settings{
			ID:            row.String(storage.FieldID),
			AccountID:     row.String(FieldAccountID),
			Theme:         Theme(row.String(FieldTheme)),
			Language:      row.String(FieldLanguage),
			Color:         row.String(FieldColor),
			Notifications: row.Bool(FieldNotifications),
			SoundEnabled:  row.Bool(FieldSoundEnabled),
			Font:          row.String(FieldFont),
			CreatedAt:     row.Time(storage.FieldCreatedAt),
			UpdatedAt:     row.Time(storage.FieldUpdatedAt),
		}, nil
	},
}
