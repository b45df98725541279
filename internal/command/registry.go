// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package command

import (
	"context"
	"slices"
	"sync"
)

// Registry maps command kinds to handlers.
// It is safe for concurrent use.
type Registry struct {
	handlers map[Kind]HandlerFunc
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[Kind]HandlerFunc),
	}
}

// Register binds kind to h. Registering a kind twice is an error; so is a
// nil handler or a malformed kind.
func (r *Registry) Register(kind Kind, h HandlerFunc) error {
	if err := ValidateKind(kind); err != nil {
		return err
	}
	if h == nil {
		return ErrNilHandler(kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[kind]; exists {
		return ErrDuplicateHandler(kind)
	}
	r.handlers[kind] = h
	return nil
}

// Get returns the handler for kind.
func (r *Registry) Get(kind Kind) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[kind]
	return h, ok
}

// Kinds returns every registered kind in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.handlers))
	for k := range r.handlers {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// Handle registers a typed handler for command type C. The kind is taken
// from the zero value of C, so C must be a value type whose Kind method has
// a value receiver.
func Handle[C Command, R any](r *Registry, h func(ctx context.Context, cmd C) (R, error)) error {
	var zero C
	kind := zero.Kind()
	if h == nil {
		return ErrNilHandler(kind)
	}
	return r.Register(kind, func(ctx context.Context, cmd Command) (any, error) {
		typed, ok := cmd.(C)
		if !ok {
			return nil, ErrCommandMismatch(kind, cmd)
		}
		return h(ctx, typed)
	})
}
