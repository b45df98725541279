// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package command provides the explicit command registry and the dispatcher
// that routes a command value to its one handler.
package command

import "context"

// Kind tags a command type. Every command value reports its kind, and the
// registry maps each kind to exactly one handler.
type Kind string

// Command is an immutable request intent.
type Command interface {
	Kind() Kind
}

// RateKeyed is implemented by commands that are rate limited per subject,
// for example per email address. An empty key skips limiting.
type RateKeyed interface {
	RateKey() string
}

// HandlerFunc executes one command and returns its result.
type HandlerFunc func(ctx context.Context, cmd Command) (any, error)
