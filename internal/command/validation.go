// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package command

import (
	"regexp"

	"github.com/samber/oops"
)

// MaxKindLength is the maximum length for a command kind.
const MaxKindLength = 64

// kindPattern accepts dotted lower-case names such as "account.register".
var kindPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)*$`)

// ValidateKind validates a command kind.
func ValidateKind(kind Kind) error {
	if kind == "" {
		return oops.Code(CodeInvalidKind).Errorf("command kind cannot be empty")
	}

	if len(kind) > MaxKindLength {
		return oops.Code(CodeInvalidKind).
			With("length", len(kind)).
			With("max", MaxKindLength).
			Errorf("command kind exceeds maximum length of %d", MaxKindLength)
	}

	if !kindPattern.MatchString(string(kind)) {
		return oops.Code(CodeInvalidKind).
			With("kind", string(kind)).
			Errorf("command kind must be dotted lower-case words")
	}

	return nil
}
