// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package storage

import (
	"slices"
	"time"

	"github.com/samber/oops"
)

// Row is the storage shape of one entity: field name to value.
type Row map[string]any

// Codec describes how one entity type is stored.
type Codec[T any] struct {
	// Collection is the table or collection name.
	Collection string
	// Fields lists the entity's own storage fields, excluding bookkeeping.
	Fields []string
	// Unique lists fields that no two rows may share.
	Unique []string
	// ToRow converts an entity into its storage row. Bookkeeping fields may
	// be left out; the repository fills them in.
	ToRow func(T) Row
	// FromRow converts a storage row into an entity. It must ignore fields it
	// does not know, including version.
	FromRow func(Row) (T, error)
}

// Known reports whether field can be used in filters and sort keys.
func (c Codec[T]) Known(field string) bool {
	switch field {
	case FieldID, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return slices.Contains(c.Fields, field)
}

// CheckFilter rejects filters naming fields the codec does not know.
func (c Codec[T]) CheckFilter(filter Filter) error {
	for field := range filter {
		if !c.Known(field) {
			return c.unknownField(field)
		}
	}
	return nil
}

// CheckPatch rejects patches naming unknown or repository-managed fields.
func (c Codec[T]) CheckPatch(patch Patch) error {
	for field := range patch {
		if !slices.Contains(c.Fields, field) {
			return c.unknownField(field)
		}
	}
	return nil
}

// CheckOptions rejects negative paging and unknown sort fields.
func (c Codec[T]) CheckOptions(opts FindOptions) error {
	if opts.Skip < 0 || opts.Limit < 0 {
		return oops.Code(CodeInvalidOptions).
			With("collection", c.Collection).
			With("skip", opts.Skip).
			With("limit", opts.Limit).
			Errorf("skip and limit must be non-negative")
	}
	for _, s := range opts.Sort {
		if !c.Known(s.Field) {
			return c.unknownField(s.Field)
		}
	}
	return nil
}

// Decode runs FromRow and tags failures with the collection.
func (c Codec[T]) Decode(row Row) (T, error) {
	entity, err := c.FromRow(row)
	if err != nil {
		var zero T
		return zero, oops.Code(CodeDecodeFailed).
			With("collection", c.Collection).
			With("id", row.String(FieldID)).
			Wrap(err)
	}
	return entity, nil
}

// Prepare converts entity into the row to insert, assigning id and
// timestamps when the entity did not carry them.
func (c Codec[T]) Prepare(entity T, newID func() string, now time.Time) Row {
	row := c.ToRow(entity)
	if row == nil {
		row = Row{}
	}
	if row.String(FieldID) == "" {
		row[FieldID] = newID()
	}
	if row.Time(FieldCreatedAt).IsZero() {
		row[FieldCreatedAt] = now
	}
	if row.Time(FieldUpdatedAt).IsZero() {
		row[FieldUpdatedAt] = now
	}
	delete(row, FieldVersion)
	return row
}

func (c Codec[T]) unknownField(field string) error {
	return oops.Code(CodeUnknownField).
		With("collection", c.Collection).
		With("field", field).
		Errorf("unknown field %q", field)
}

// String returns the string stored under key, or "".
func (r Row) String(key string) string {
	if s := r.OptString(key); s != nil {
		return *s
	}
	return ""
}

// OptString returns the string stored under key, or nil when absent or null.
func (r Row) OptString(key string) *string {
	switch v := r[key].(type) {
	case string:
		return &v
	case *string:
		if v == nil {
			return nil
		}
		s := *v
		return &s
	default:
		return nil
	}
}

// Bool returns the bool stored under key, or false.
func (r Row) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Time returns the time stored under key, or the zero time.
func (r Row) Time(key string) time.Time {
	if t := r.OptTime(key); t != nil {
		return *t
	}
	return time.Time{}
}

// OptTime returns the time stored under key, or nil when absent or null.
func (r Row) OptTime(key string) *time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return &v
	case *time.Time:
		if v == nil {
			return nil
		}
		t := *v
		return &t
	default:
		return nil
	}
}

// StringMap returns a string map stored under key. JSON columns decode as
// map[string]any, so both shapes are accepted.
func (r Row) StringMap(key string) map[string]string {
	switch v := r[key].(type) {
	case map[string]string:
		out := make(map[string]string, len(v))
		for k, s := range v {
			out[k] = s
		}
		return out
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, raw := range v {
			if s, ok := raw.(string); ok {
				out[k] = s
			}
		}
		return out
	default:
		return nil
	}
}

// Require fails when any key is missing or null.
func (r Row) Require(keys ...string) error {
	for _, key := range keys {
		if r[key] == nil {
			return oops.Code(CodeDecodeFailed).With("field", key).Errorf("missing field %q", key)
		}
	}
	return nil
}

// NullString stores p as its value or as null.
func NullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

// NullTime stores p as its value or as null.
func NullTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return *p
}
