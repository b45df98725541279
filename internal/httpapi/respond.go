// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/parlor/parlor/internal/envelope"
	"github.com/parlor/parlor/internal/errkind"
	"github.com/parlor/parlor/pkg/errutil"
)

// MaxBodyBytes bounds every request body.
const MaxBodyBytes = 1 << 20

// Message keys produced by the adapter itself.
const (
	KeyMalformedRequest = "malformedRequest"
	KeyRouteNotFound    = "routeNotFound"
	KeyUnauthenticated  = "unauthenticated"
	KeyAccessExpired    = "accessTokenExpired"
)

func (a *API) meta(r *http.Request) envelope.Meta {
	return envelope.Meta{
		Timestamp: a.now().UTC(),
		Path:      r.URL.Path,
		RequestID: middleware.GetReqID(r.Context()),
	}
}

func (a *API) succeed(w http.ResponseWriter, r *http.Request, code int, result any) {
	a.write(w, r, envelope.Success(code, result, a.meta(r)))
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	env := envelope.Failure(err, a.meta(r))
	if !errkind.Of(err).IsDomain() {
		errutil.LogErrorContext(r.Context(), a.logger, slog.LevelError, "request failed", err)
	}
	a.write(w, r, env)
}

func (a *API) write(w http.ResponseWriter, r *http.Request, env envelope.Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(env.StatusCode)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		a.logger.WarnContext(r.Context(), "failed to write response", "path", r.URL.Path, "error", err)
	}
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request) {
	a.fail(w, r, errkind.New(errkind.NotFound, KeyRouteNotFound))
}

// decodeBody decodes the request body into a fresh C.
func decodeBody[C any](r *http.Request) (C, error) {
	var cmd C
	err := decodeInto(r, &cmd)
	return cmd, err
}

// decodeInto decodes a JSON body into dst, rejecting unknown fields and
// trailing data. An empty body leaves dst untouched.
func decodeInto(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errkind.Newf(errkind.InvalidInput, KeyMalformedRequest, "reason", err.Error())
	}
	if dec.More() {
		return errkind.New(errkind.InvalidInput, KeyMalformedRequest)
	}
	return nil
}
