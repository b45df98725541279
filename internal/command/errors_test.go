// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parlor/parlor/internal/errkind"
	"github.com/parlor/parlor/pkg/errutil"
)

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"unknown", ErrUnknownCommand("x.y"), CodeUnknownCommand},
		{"duplicate", ErrDuplicateHandler("x.y"), CodeDuplicateHandler},
		{"nil handler", ErrNilHandler("x.y"), CodeNilHandler},
		{"missing", ErrMissingHandlers([]Kind{"x.y"}), CodeMissingHandlers},
		{"command mismatch", ErrCommandMismatch("x.y", echoCommand{}), CodeCommandMismatch},
		{"result mismatch", ErrResultMismatch("x.y", "string", 1), CodeResultMismatch},
		{"nil command", ErrNilCommand(), CodeNilCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errutil.AssertErrorCode(t, tt.err, tt.code)
			// registry and dispatch failures are never domain errors
			assert.Equal(t, errkind.InternalServerError, errkind.Of(tt.err))
		})
	}
}

func TestErrUnknownCommandWrapsSentinel(t *testing.T) {
	err := ErrUnknownCommand("x.y")
	assert.True(t, errors.Is(err, ErrUnknownKind))
	errutil.AssertErrorContext(t, err, "command", "x.y")
}

func TestErrCommandMismatchContext(t *testing.T) {
	err := ErrCommandMismatch("x.y", otherCommand{})
	errutil.AssertErrorContext(t, err, "got", "command.otherCommand")
}
