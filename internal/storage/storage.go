// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package storage defines the generic repository contract shared by every
// entity and the codec that converts between entities and storage rows.
//
// # Repository
//
// [Repository] is parametrized over an entity type. Reads that find nothing
// return a nil pointer and a nil error; only storage failures are errors.
// Every entity handed back to a caller has gone through its codec, so callers
// never see bookkeeping columns such as version.
//
// # Codec
//
// A [Codec] is a plain value listing the collection name, the writable fields
// and two explicit conversion functions. Filters, patches and sort keys are
// checked against the codec before any query is built.
package storage

import (
	"context"
	"time"
)

// Bookkeeping field names managed by the repository itself.
const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
	FieldVersion   = "version"
)

// Filter selects rows by equality on storage field names.
// A nil value matches rows where the field is null.
type Filter map[string]any

// Patch holds field assignments applied by Update.
type Patch map[string]any

// Sort orders FindAll results by one field.
type Sort struct {
	Field      string
	Descending bool
}

// FindOptions pages and orders FindAll results.
// A zero Limit means no limit.
type FindOptions struct {
	Skip  int
	Limit int
	Sort  []Sort
}

// Repository is the uniform CRUD contract over one entity type.
type Repository[T any] interface {
	// Create inserts entity, assigning an id and timestamps when unset.
	Create(ctx context.Context, entity T) (T, error)
	// FindByID returns nil, nil when no row has the id.
	FindByID(ctx context.Context, id string) (*T, error)
	// FindOne returns the first match or nil, nil.
	FindOne(ctx context.Context, filter Filter) (*T, error)
	FindAll(ctx context.Context, filter Filter, opts FindOptions) ([]T, error)
	// Update applies patch and returns the updated entity, or nil, nil when
	// no row has the id.
	Update(ctx context.Context, id string, patch Patch) (*T, error)
	// Delete reports whether a row was removed.
	Delete(ctx context.Context, id string) (bool, error)
	Exists(ctx context.Context, filter Filter) (bool, error)
	Count(ctx context.Context, filter Filter) (int64, error)
}

// Clock returns the current time. Repositories take one so tests can pin it.
type Clock func() time.Time
