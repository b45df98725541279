// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package errkind defines the error taxonomy shared by every account command.
//
// A domain error carries a Kind (encoded as its oops code) and a message key.
// Message keys are stable identifiers rather than prose so the caller can
// localize them. Anything that is not a domain error is reported as
// InternalServerError once it crosses a handler boundary.
package errkind

import (
	"net/http"

	"github.com/samber/oops"
)

// Kind classifies a failure so callers can branch without reading messages.
type Kind string

// Error kinds.
const (
	InvalidInput        Kind = "INVALID_INPUT"
	Unauthorized        Kind = "UNAUTHORIZED"
	Forbidden           Kind = "FORBIDDEN"
	NotFound            Kind = "NOT_FOUND"
	Conflict            Kind = "CONFLICT"
	TooManyRequests     Kind = "TOO_MANY_REQUESTS"
	InternalServerError Kind = "INTERNAL_SERVER_ERROR"
)

// KeyInternal is the message key attached to every InternalServerError.
const KeyInternal = "internalServerError"

// contextKeyMessage is the oops context key holding the message key.
const contextKeyMessage = "message_key"

var statusCodes = map[Kind]int{
	InvalidInput:        http.StatusBadRequest,
	Unauthorized:        http.StatusUnauthorized,
	Forbidden:           http.StatusForbidden,
	NotFound:            http.StatusNotFound,
	Conflict:            http.StatusConflict,
	TooManyRequests:     http.StatusTooManyRequests,
	InternalServerError: http.StatusInternalServerError,
}

// StatusCode returns the HTTP status code conventionally paired with k.
func (k Kind) StatusCode() int {
	if code, ok := statusCodes[k]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// IsDomain reports whether k is raised deliberately by a handler, as opposed
// to InternalServerError which stands for any unexpected failure.
func (k Kind) IsDomain() bool {
	_, known := statusCodes[k]
	return known && k != InternalServerError
}

// New creates a domain error of kind k identified by message key.
func New(k Kind, key string) error {
	return oops.Code(string(k)).
		With(contextKeyMessage, key).
		Errorf("%s", key)
}

// Newf creates a domain error with extra structured context.
// attrs are key/value pairs in the style of slog.
func Newf(k Kind, key string, attrs ...any) error {
	return oops.Code(string(k)).
		With(contextKeyMessage, key).
		With(attrs...).
		Errorf("%s", key)
}

// Of returns the kind of err. Errors without a recognized kind, including
// plain Go errors and infrastructure oops codes, are InternalServerError.
func Of(err error) Kind {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return InternalServerError
	}
	code, _ := oopsErr.Code().(string)
	if k := Kind(code); k.IsDomain() {
		return k
	}
	return InternalServerError
}

// Is reports whether err is of kind k.
func Is(err error, k Kind) bool {
	return err != nil && Of(err) == k
}

// MessageKey returns the message key carried by err.
// InternalServerError always reports KeyInternal so no infrastructure detail
// leaks to the caller.
func MessageKey(err error) string {
	if err == nil {
		return ""
	}
	if Is(err, InternalServerError) {
		return KeyInternal
	}
	oopsErr, _ := oops.AsOops(err)
	if key, ok := oopsErr.Context()[contextKeyMessage].(string); ok {
		return key
	}
	return KeyInternal
}

// Boundary classifies err at a handler boundary. Domain errors pass through
// untouched; everything else is wrapped as InternalServerError tagged with
// the failing operation.
func Boundary(operation string, err error) error {
	if err == nil {
		return nil
	}
	if Of(err).IsDomain() {
		return err
	}
	return oops.Code(string(InternalServerError)).
		With(contextKeyMessage, KeyInternal).
		With("operation", operation).
		Wrap(err)
}
