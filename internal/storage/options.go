// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package storage

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Options holds the collaborators every repository implementation needs.
type Options struct {
	Clock Clock
	NewID func() string
}

// Option configures a repository.
type Option func(*Options)

// WithClock pins the time source used for timestamps.
func WithClock(clock Clock) Option {
	return func(o *Options) {
		o.Clock = clock
	}
}

// WithIDGenerator replaces the ULID generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *Options) {
		o.NewID = newID
	}
}

// NewOptions applies opts over the defaults: wall clock and ULID ids.
func NewOptions(opts ...Option) Options {
	o := Options{
		Clock: time.Now,
		NewID: func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
