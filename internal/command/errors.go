// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package command

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Error codes for registry and dispatch failures. None of them is a domain
// kind, so callers see them as InternalServerError.
const (
	CodeUnknownCommand   = "COMMAND_UNKNOWN"
	CodeDuplicateHandler = "COMMAND_DUPLICATE_HANDLER"
	CodeNilHandler       = "COMMAND_NIL_HANDLER"
	CodeInvalidKind      = "COMMAND_INVALID_KIND"
	CodeMissingHandlers  = "COMMAND_MISSING_HANDLERS"
	CodeCommandMismatch  = "COMMAND_TYPE_MISMATCH"
	CodeResultMismatch   = "COMMAND_RESULT_MISMATCH"
	CodeNilCommand       = "COMMAND_NIL"
	CodeNilRegistry      = "COMMAND_NIL_REGISTRY"
)

// Sentinel errors for use with errors.Is.
var (
	ErrNilRegistry = errors.New("registry is required")
	ErrUnknownKind = errors.New("no handler registered for command kind")
)

// ErrUnknownCommand creates an error for a kind with no handler.
func ErrUnknownCommand(kind Kind) error {
	return oops.Code(CodeUnknownCommand).
		With("command", string(kind)).
		Wrap(ErrUnknownKind)
}

// ErrDuplicateHandler creates an error for a second registration of kind.
func ErrDuplicateHandler(kind Kind) error {
	return oops.Code(CodeDuplicateHandler).
		With("command", string(kind)).
		Errorf("handler already registered for %s", kind)
}

// ErrNilHandler creates an error for registering a nil handler.
func ErrNilHandler(kind Kind) error {
	return oops.Code(CodeNilHandler).
		With("command", string(kind)).
		Errorf("nil handler for %s", kind)
}

// ErrMissingHandlers creates an error listing kinds with no handler.
func ErrMissingHandlers(kinds []Kind) error {
	return oops.Code(CodeMissingHandlers).
		With("missing", kinds).
		Errorf("no handler registered for %d command kind(s)", len(kinds))
}

// ErrCommandMismatch creates an error for a command routed to a handler of
// another type.
func ErrCommandMismatch(kind Kind, cmd Command) error {
	return oops.Code(CodeCommandMismatch).
		With("command", string(kind)).
		With("got", fmt.Sprintf("%T", cmd)).
		Errorf("handler for %s received %T", kind, cmd)
}

// ErrResultMismatch creates an error for a result of an unexpected type.
func ErrResultMismatch(kind Kind, want string, got any) error {
	return oops.Code(CodeResultMismatch).
		With("command", string(kind)).
		With("want", want).
		With("got", fmt.Sprintf("%T", got)).
		Errorf("handler for %s returned %T", kind, got)
}

// ErrNilCommand creates an error for dispatching a nil command.
func ErrNilCommand() error {
	return oops.Code(CodeNilCommand).Errorf("command is nil")
}
