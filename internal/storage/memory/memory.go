// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package memory implements storage.Repository in process memory.
// It backs the test suites and the memory store driver.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/parlor/parlor/internal/storage"
)

// Repository stores rows in a map guarded by a mutex.
type Repository[T any] struct {
	codec storage.Codec[T]
	opts  storage.Options

	mu   sync.RWMutex
	rows map[string]storage.Row
}

var _ storage.Repository[struct{}] = (*Repository[struct{}])(nil)

// New creates an empty repository for the codec's entity type.
func New[T any](codec storage.Codec[T], opts ...storage.Option) *Repository[T] {
	return &Repository[T]{
		codec: codec,
		opts:  storage.NewOptions(opts...),
		rows:  make(map[string]storage.Row),
	}
}

// Create implements storage.Repository.
func (r *Repository[T]) Create(_ context.Context, entity T) (T, error) {
	row := r.codec.Prepare(entity, r.opts.NewID, r.opts.Clock())
	row[storage.FieldVersion] = int64(0)

	r.mu.Lock()
	defer r.mu.Unlock()

	id := row.String(storage.FieldID)
	if _, exists := r.rows[id]; exists {
		var zero T
		return zero, storage.DuplicateError(r.codec.Collection, storage.FieldID, nil)
	}
	if err := r.checkUnique(row); err != nil {
		var zero T
		return zero, err
	}
	r.rows[id] = cloneRow(row)
	return r.codec.Decode(cloneRow(row))
}

// FindByID implements storage.Repository.
func (r *Repository[T]) FindByID(_ context.Context, id string) (*T, error) {
	r.mu.RLock()
	row, ok := r.rows[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return r.decode(row)
}

// FindOne implements storage.Repository.
func (r *Repository[T]) FindOne(ctx context.Context, filter storage.Filter) (*T, error) {
	found, err := r.FindAll(ctx, filter, storage.FindOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// FindAll implements storage.Repository.
func (r *Repository[T]) FindAll(_ context.Context, filter storage.Filter, opts storage.FindOptions) ([]T, error) {
	if err := r.codec.CheckFilter(filter); err != nil {
		return nil, err
	}
	if err := r.codec.CheckOptions(opts); err != nil {
		return nil, err
	}

	matched := r.match(filter)
	sortRows(matched, opts.Sort)

	if opts.Skip >= len(matched) {
		return []T{}, nil
	}
	matched = matched[opts.Skip:]
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}

	out := make([]T, 0, len(matched))
	for _, row := range matched {
		entity, err := r.codec.Decode(row)
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// Update implements storage.Repository.
func (r *Repository[T]) Update(_ context.Context, id string, patch storage.Patch) (*T, error) {
	if err := r.codec.CheckPatch(patch); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	next := cloneRow(current)
	for field, value := range patch {
		next[field] = value
	}
	next[storage.FieldUpdatedAt] = r.opts.Clock()
	version, _ := next[storage.FieldVersion].(int64)
	next[storage.FieldVersion] = version + 1

	if err := r.checkUnique(next); err != nil {
		return nil, err
	}
	r.rows[id] = next
	return r.decode(next)
}

// Delete implements storage.Repository.
func (r *Repository[T]) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rows[id]; !ok {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

// Exists implements storage.Repository.
func (r *Repository[T]) Exists(ctx context.Context, filter storage.Filter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

// Count implements storage.Repository.
func (r *Repository[T]) Count(_ context.Context, filter storage.Filter) (int64, error) {
	if err := r.codec.CheckFilter(filter); err != nil {
		return 0, err
	}
	return int64(len(r.match(filter))), nil
}

// Rows returns copies of the stored rows, bookkeeping included.
// Tests use it to look beneath the codec.
func (r *Repository[T]) Rows() []storage.Row {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]storage.Row, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, cloneRow(row))
	}
	sortRows(out, nil)
	return out
}

func (r *Repository[T]) decode(row storage.Row) (*T, error) {
	entity, err := r.codec.Decode(cloneRow(row))
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *Repository[T]) match(filter storage.Filter) []storage.Row {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []storage.Row
	for _, row := range r.rows {
		if matches(row, filter) {
			out = append(out, cloneRow(row))
		}
	}
	return out
}

// checkUnique must be called with the write lock held.
func (r *Repository[T]) checkUnique(row storage.Row) error {
	id := row.String(storage.FieldID)
	for _, field := range r.codec.Unique {
		value := row[field]
		if value == nil {
			continue
		}
		for otherID, other := range r.rows {
			if otherID != id && equal(other[field], value) {
				return storage.DuplicateError(r.codec.Collection, field, nil)
			}
		}
	}
	return nil
}

func matches(row storage.Row, filter storage.Filter) bool {
	for field, want := range filter {
		if !equal(row[field], want) {
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// sortRows orders rows by keys, falling back to id so results are stable.
func sortRows(rows []storage.Row, keys []storage.Sort) {
	slices.SortStableFunc(rows, func(a, b storage.Row) int {
		for _, key := range keys {
			c := compare(a[key.Field], b[key.Field])
			if key.Descending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return cmp.Compare(a.String(storage.FieldID), b.String(storage.FieldID))
	})
}

func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch va := a.(type) {
	case string:
		if vb, ok := b.(string); ok {
			return cmp.Compare(va, vb)
		}
	case time.Time:
		if vb, ok := b.(time.Time); ok {
			return va.Compare(vb)
		}
	case bool:
		if vb, ok := b.(bool); ok {
			switch {
			case va == vb:
				return 0
			case !va:
				return -1
			default:
				return 1
			}
		}
	case int64:
		if vb, ok := b.(int64); ok {
			return cmp.Compare(va, vb)
		}
	case int:
		if vb, ok := b.(int); ok {
			return cmp.Compare(va, vb)
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cloneRow(row storage.Row) storage.Row {
	out := maps.Clone(row)
	for k, v := range out {
		if m, ok := v.(map[string]string); ok {
			out[k] = maps.Clone(m)
		}
	}
	return out
}
