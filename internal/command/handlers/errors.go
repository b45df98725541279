// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package handlers

import (
	"github.com/parlor/parlor/internal/errkind"
)

func errInvalid(key string, attrs ...any) error {
	return errkind.Newf(errkind.InvalidInput, key, attrs...)
}

func errUnauthorized(key string) error {
	return errkind.New(errkind.Unauthorized, key)
}

func errForbidden(key string, attrs ...any) error {
	return errkind.Newf(errkind.Forbidden, key, attrs...)
}

func errNotFound(key string, attrs ...any) error {
	return errkind.Newf(errkind.NotFound, key, attrs...)
}

func errConflict(key string, attrs ...any) error {
	return errkind.Newf(errkind.Conflict, key, attrs...)
}
