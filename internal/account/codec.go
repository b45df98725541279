// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package account

import (
	"github.com/samber/oops"

	"github.com/parlor/parlor/internal/storage"
)

// Storage field names.
const (
	FieldEmail        = "email"
	FieldUsername     = "username"
	FieldPasswordHash = "password_hash"
	FieldIsVerified   = "is_verified"
	FieldToken        = "pending_token"
	FieldTokenPurpose = "pending_token_purpose"
	FieldTokenExpires = "pending_token_expires"
)

// Codec stores accounts in the "accounts" collection.
var Codec = storage.Codec[Account]{
	Collection: "accounts",
	Fields: []string{
		FieldEmail, FieldUsername, FieldPasswordHash, FieldIsVerified,
		FieldToken, FieldTokenPurpose, FieldTokenExpires,
	},
	Unique:  []string{FieldEmail, FieldUsername, FieldToken},
	ToRow:   toRow,
	FromRow: fromRow,
}

func toRow(a Account) storage.Row {
	row := storage.Row{
		FieldEmail:        NormalizeEmail(a.Email),
		FieldUsername:     a.Username,
		FieldPasswordHash: a.PasswordHash,
		FieldIsVerified:   a.IsVerified,
	}
	for k, v := range tokenPatch(a.PendingToken) {
		row[k] = v
	}
	if a.ID != "" {
		row[storage.FieldID] = a.ID
	}
	if !a.CreatedAt.IsZero() {
		row[storage.FieldCreatedAt] = a.CreatedAt
	}
	if !a.UpdatedAt.IsZero() {
		row[storage.FieldUpdatedAt] = a.UpdatedAt
	}
	return row
}

func fromRow(row storage.Row) (Account, error) {
	if err := row.Require(storage.FieldID, FieldEmail, FieldUsername, FieldPasswordHash); err != nil {
		return Account{}, err
	}

	a := Account{
		ID:           row.String(storage.FieldID),
		Email:        row.String(FieldEmail),
		Username:     row.String(FieldUsername),
		PasswordHash: row.String(FieldPasswordHash),
		IsVerified:   row.Bool(FieldIsVerified),
		CreatedAt:    row.Time(storage.FieldCreatedAt),
		UpdatedAt:    row.Time(storage.FieldUpdatedAt),
	}

	if value := row.OptString(FieldToken); value != nil {
		purpose := Purpose(row.String(FieldTokenPurpose))
		if !purpose.Valid() {
			return Account{}, oops.Code("ACCOUNT_BAD_TOKEN_PURPOSE").
				With("purpose", string(purpose)).
				Errorf("pending token has unknown purpose")
		}
		a.PendingToken = &PendingToken{
			Value:     *value,
			Purpose:   purpose,
			ExpiresAt: row.Time(FieldTokenExpires),
		}
	}
	return a, nil
}

// tokenPatch writes t into the three token columns, or nulls them.
func tokenPatch(t *PendingToken) storage.Patch {
	if t == nil {
		return storage.Patch{
			FieldToken:        nil,
			FieldTokenPurpose: nil,
			FieldTokenExpires: nil,
		}
	}
	return storage.Patch{
		FieldToken:        t.Value,
		FieldTokenPurpose: string(t.Purpose),
		FieldTokenExpires: t.ExpiresAt,
	}
}
