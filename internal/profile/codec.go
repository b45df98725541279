// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package profile

import "github.com/parlor/parlor/internal/storage"

// Storage field names.
const (
	FieldAccountID   = "account_id"
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldContact     = "contact"
	FieldAvatar      = "avatar"
	FieldBio         = "bio"
	FieldGender      = "gender"
	FieldDateOfBirth = "date_of_birth"
	FieldLocation    = "location"
	FieldSocialLinks = "social_links"
)

// Codec stores profiles in the "profiles" collection.
var Codec = storage.Codec[Profile]{
	Collection: "profiles",
	Fields: []string{
		FieldAccountID, FieldFirstName, FieldLastName, FieldContact, FieldAvatar,
		FieldBio, FieldGender, FieldDateOfBirth, FieldLocation, FieldSocialLinks,
	},
	Unique:  []string{FieldAccountID},
	ToRow:   toRow,
	FromRow: fromRow,
}

func toRow(p Profile) storage.Row {
	var gender any
	if p.Gender != nil {
		gender = string(*p.Gender)
	}
	links := p.SocialLinks
	if links == nil {
		links = map[string]string{}
	}
	row := storage.Row{
		FieldAccountID:   p.AccountID,
		FieldFirstName:   storage.NullString(p.FirstName),
		FieldLastName:    storage.NullString(p.LastName),
		FieldContact:     storage.NullString(p.Contact),
		FieldAvatar:      storage.NullString(p.Avatar),
		FieldBio:         storage.NullString(p.Bio),
		FieldGender:      gender,
		FieldDateOfBirth: storage.NullTime(p.DateOfBirth),
		FieldLocation:    storage.NullString(p.Location),
		FieldSocialLinks: links,
	}
	if p.ID != "" {
		row[storage.FieldID] = p.ID
	}
	if !p.CreatedAt.IsZero() {
		row[storage.FieldCreatedAt] = p.CreatedAt
	}
	if !p.UpdatedAt.IsZero() {
		row[storage.FieldUpdatedAt] = p.UpdatedAt
	}
	return row
}

func fromRow(row storage.Row) (Profile, error) {
	if err := row.Require(storage.FieldID, FieldAccountID); err != nil {
		return Profile{}, err
	}
	p := Profile{
		ID:          row.String(storage.FieldID),
		AccountID:   row.String(FieldAccountID),
		FirstName:   row.OptString(FieldFirstName),
		LastName:    row.OptString(FieldLastName),
		Contact:     row.OptString(FieldContact),
		Avatar:      row.OptString(FieldAvatar),
		Bio:         row.OptString(FieldBio),
		DateOfBirth: row.OptTime(FieldDateOfBirth),
		Location:    row.OptString(FieldLocation),
		SocialLinks: row.StringMap(FieldSocialLinks),
		CreatedAt:   row.Time(storage.FieldCreatedAt),
		UpdatedAt:   row.Time(storage.FieldUpdatedAt),
	}
	if g := row.OptString(FieldGender); g != nil {
		gender := Gender(*g)
		p.Gender = &gender
	}
	if p.SocialLinks == nil {
		p.SocialLinks = map[string]string{}
	}
	return p, nil
}

// patch converts a full profile into an update patch over every writable
// column except the owner.
func patch(p Profile) storage.Patch {
	row := toRow(p)
	out := storage.Patch{}
	for _, field := range Codec.Fields {
		if field == FieldAccountID {
			continue
		}
		out[field] = row[field]
	}
	return out
}
