// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package mailtest provides a recording mail gateway for tests.
package mailtest

import (
	"context"
	"sync"

	"github.com/parlor/parlor/internal/mail"
)

// Recorder is a mail.Gateway that keeps every message it is given.
type Recorder struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

var _ mail.Gateway = (*Recorder)(nil)

// Send records msg and returns the configured error, if any.
func (r *Recorder) Send(_ context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.err
}

// FailWith makes every later Send return err. The message is still recorded.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]mail.Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent message and whether one exists.
func (r *Recorder) Last() (mail.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return mail.Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Reset drops recorded messages and clears any configured failure.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
	r.err = nil
}
