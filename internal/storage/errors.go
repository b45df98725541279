// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package storage

import (
	"errors"

	"github.com/samber/oops"
)

// Error codes for storage failures.
const (
	CodeDuplicate      = "STORAGE_DUPLICATE"
	CodeUnknownField   = "STORAGE_UNKNOWN_FIELD"
	CodeInvalidOptions = "STORAGE_INVALID_OPTIONS"
	CodeDecodeFailed   = "STORAGE_DECODE_FAILED"
	CodeQueryFailed    = "STORAGE_QUERY_FAILED"
	CodeWriteFailed    = "STORAGE_WRITE_FAILED"
)

// ErrDuplicate is wrapped by every uniqueness violation.
var ErrDuplicate = errors.New("duplicate key")

// DuplicateError reports a uniqueness violation in collection.
// field may be empty when the backend does not say which field collided.
func DuplicateError(collection, field string, cause error) error {
	b := oops.Code(CodeDuplicate).With("collection", collection)
	if field != "" {
		b = b.With("field", field)
	}
	if cause != nil {
		return b.Wrap(errors.Join(ErrDuplicate, cause))
	}
	return b.Wrap(ErrDuplicate)
}

// IsDuplicate reports whether err is a uniqueness violation.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}
