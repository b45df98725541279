// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

//go:build integration

package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	. "github.com/onsi/gomega" //nolint:revive // gomega convention

	"github.com/parlor/parlor/internal/command/handlers"
	"github.com/parlor/parlor/internal/mail"
)

// envelope mirrors the response body with data left raw.
type envelope struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

// call sends a JSON request and decodes the envelope.
func call(method, path, body, bearer string) (int, envelope) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.server.URL+path, reader)
	Expect(err).NotTo(HaveOccurred())
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := env.server.Client().Do(req)
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	var out envelope
	Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
	Expect(out.StatusCode).To(Equal(resp.StatusCode))
	return resp.StatusCode, out
}

// lastToken extracts the token from the most recently mailed link.
func lastToken() string {
	msg, ok := env.mail.Last()
	Expect(ok).To(BeTrue(), "no mail was sent")
	link, err := url.Parse(msg.Payload[mail.KeyURL])
	Expect(err).NotTo(HaveOccurred())
	token := link.Query().Get("token")
	Expect(token).NotTo(BeEmpty())
	return token
}

func registerBody(email, username, password string) string {
	return `{"email":"` + email + `","password":"` + password + `","username":"` + username + `"}`
}

func loginBody(email, password string) string {
	return `{"email":"` + email + `","password":"` + password + `"}`
}

// signIn registers, verifies and logs in, returning the session.
func signIn(email, username string) handlers.SessionResult {
	code, _ := call(http.MethodPost, "/auth/register", registerBody(email, username, "Passw0rd!"), "")
	Expect(code).To(Equal(http.StatusCreated))
	code, _ = call(http.MethodGet, "/auth/verify?token="+url.QueryEscape(lastToken()), "", "")
	Expect(code).To(Equal(http.StatusOK))
	code, res := call(http.MethodPost, "/auth/login", loginBody(email, "Passw0rd!"), "")
	Expect(code).To(Equal(http.StatusOK))

	var sess handlers.SessionResult
	Expect(json.Unmarshal(res.Data, &sess)).To(Succeed())
	Expect(sess.AccessToken).NotTo(BeEmpty())
	return sess
}
