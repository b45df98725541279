// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package mail renders and sends transactional email.
package mail

import (
	"context"
	"net/url"
	"strings"
)

// TemplateID names an entry in the template catalog.
type TemplateID string

// Templates shipped in the embedded catalog.
const (
	TemplateVerifyEmail    TemplateID = "verify_email"
	TemplateForgetPassword TemplateID = "forget_password"
)

// Payload keys every account template expects.
const (
	KeyUsername = "username"
	KeyURL      = "url"
)

// Callback paths embedded in outbound links.
const (
	VerifyPath         = "/auth/verify"
	UpdatePasswordPath = "/auth/update-password"
)

// Message is one outbound email.
type Message struct {
	Template TemplateID
	Payload  map[string]string
	To       string
	// Subject overrides the catalog subject when set.
	Subject string
}

// Gateway sends a templated message.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

// CallbackURL joins origin, path and the token query parameter.
func CallbackURL(origin, path, token string) string {
	q := url.Values{}
	q.Set("token", token)
	return strings.TrimRight(origin, "/") + path + "?" + q.Encode()
}
