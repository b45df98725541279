// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package session_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parlor/parlor/internal/session"
	"github.com/parlor/parlor/pkg/errutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newService(t *testing.T, clock *fakeClock) *session.Service {
	t.Helper()
	svc, err := session.NewService(session.Config{
		Secret:     testSecret,
		Issuer:     "parlor",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, session.WithClock(clock.Now))
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	tests := []struct {
		name string
		cfg  session.Config
	}{
		{"short secret", session.Config{Secret: "short", AccessTTL: time.Minute, RefreshTTL: time.Hour}},
		{"zero access ttl", session.Config{Secret: testSecret, RefreshTTL: time.Hour}},
		{"refresh shorter than access", session.Config{Secret: testSecret, AccessTTL: time.Hour, RefreshTTL: time.Minute}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := session.NewService(tt.cfg)
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "SESSION_CONFIG_INVALID")
		})
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	svc := newService(t, clock)

	token, err := svc.GenerateAccessToken(session.Payload{AccountID: "acct-1", Email: "a@example.com"})
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.AccountID)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, session.TypeAccess, claims.Type)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.Equal(clock.now.Add(15*time.Minute)))
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	svc := newService(t, clock)
	p := session.Payload{AccountID: "acct-1", Email: "a@example.com"}

	refresh, err := svc.GenerateRefreshToken(p)
	require.NoError(t, err)
	_, err = svc.ParseAccessToken(refresh)
	require.Error(t, err)
	assert.True(t, errors.Is(err, session.ErrWrongType))
	errutil.AssertErrorCode(t, err, "SESSION_WRONG_TOKEN_TYPE")

	access, err := svc.GenerateAccessToken(p)
	require.NoError(t, err)
	_, err = svc.ParseRefreshToken(access)
	assert.True(t, errors.Is(err, session.ErrWrongType))

	claims, err := svc.ParseRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, session.TypeRefresh, claims.Type)
}

func TestExpiredToken(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	svc := newService(t, clock)

	token, err := svc.GenerateAccessToken(session.Payload{AccountID: "acct-1"})
	require.NoError(t, err)

	clock.now = clock.now.Add(16 * time.Minute)
	_, err = svc.ParseAccessToken(token)
	require.Error(t, err)
	assert.True(t, errors.Is(err, session.ErrExpired))
	errutil.AssertErrorCode(t, err, "SESSION_TOKEN_EXPIRED")
}

func TestTamperedOrForeignToken(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	svc := newService(t, clock)

	token, err := svc.GenerateAccessToken(session.Payload{AccountID: "acct-1"})
	require.NoError(t, err)

	other, err := session.NewService(session.Config{
		Secret:     strings.Repeat("x", 32),
		Issuer:     "parlor",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, session.WithClock(clock.Now))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":        "not-a-jwt",
		"empty":          "",
		"foreign secret": token,
		"truncated":      token[:len(token)-4],
	} {
		t.Run(name, func(t *testing.T) {
			verifier := svc
			if name == "foreign secret" {
				verifier = other
			}
			_, err := verifier.ParseAccessToken(tok)
			require.Error(t, err)
			assert.True(t, errors.Is(err, session.ErrInvalid))
		})
	}
}

func TestGeneratePair(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)}
	svc := newService(t, clock)

	pair, err := svc.GeneratePair(session.Payload{AccountID: "acct-9", Email: "z@example.com"})
	require.NoError(t, err)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.True(t, pair.AccessExpiresAt.Before(pair.RefreshExpiresAt))

	_, err = svc.GeneratePair(session.Payload{})
	errutil.AssertErrorCode(t, err, "SESSION_SIGN_FAILED")
}
