// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package envelope builds the uniform response wrapper every command result
// is returned in.
package envelope

import (
	"net/http"
	"time"

	"github.com/parlor/parlor/internal/errkind"
)

// Status is "success" or "error".
type Status string

// Statuses.
const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Keyed is a result that names its own success message.
type Keyed interface {
	MessageKey() string
}

// Meta describes the request a response answers.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
	RequestID string    `json:"requestId,omitempty"`
}

// Envelope is the response body.
type Envelope struct {
	Status     Status `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
	// Error is the error kind on failures.
	Error string `json:"error,omitempty"`
	Meta  Meta   `json:"meta"`
}

// Success wraps result. The message is the result's key when it has one.
// A zero code means 200.
func Success(code int, result any, meta Meta) Envelope {
	if code == 0 {
		code = http.StatusOK
	}
	var message string
	if k, ok := result.(Keyed); ok {
		message = k.MessageKey()
	}
	return Envelope{
		Status:     StatusSuccess,
		StatusCode: code,
		Message:    message,
		Data:       result,
		Meta:       meta,
	}
}

// Failure wraps err. Only the kind and message key leave the process;
// internal detail stays in the logs.
func Failure(err error, meta Meta) Envelope {
	kind := errkind.Of(err)
	return Envelope{
		Status:     StatusError,
		StatusCode: kind.StatusCode(),
		Message:    errkind.MessageKey(err),
		Error:      string(kind),
		Meta:       meta,
	}
}
