// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package session issues and validates the signed access and refresh tokens
// handed to a client after login.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// MinSecretLength is the shortest HMAC secret NewService accepts.
const MinSecretLength = 32

// TokenType distinguishes access from refresh tokens.
type TokenType string

// Token types.
const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Sentinel errors, matched with errors.Is.
var (
	ErrExpired   = errors.New("session token expired")
	ErrInvalid   = errors.New("session token invalid")
	ErrWrongType = errors.New("session token has the wrong type")
)

// Payload identifies the account a token is issued for.
type Payload struct {
	AccountID string
	Email     string
}

// Claims are the validated contents of a token.
type Claims struct {
	Payload
	Type      TokenType
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Pair is the credential pair returned by a successful login.
type Pair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Config holds the process-wide signing configuration.
type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Leeway tolerates clock skew when checking exp and iat.
	Leeway time.Duration
}

// Service signs tokens with HMAC-SHA256.
type Service struct {
	key    []byte
	cfg    Config
	now    func() time.Time
	method jwt.SigningMethod
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

type tokenClaims struct {
	Email string    `json:"email"`
	Type  TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// NewService validates cfg and returns a Service.
func NewService(cfg Config, opts ...Option) (*Service, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, oops.Code("SESSION_CONFIG_INVALID").
			Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, oops.Code("SESSION_CONFIG_INVALID").
			With("access_ttl", cfg.AccessTTL).
			With("refresh_ttl", cfg.RefreshTTL).
			Errorf("token lifetimes must be positive")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, oops.Code("SESSION_CONFIG_INVALID").
			Errorf("refresh lifetime must not be shorter than access lifetime")
	}

	s := &Service{
		key:    []byte(cfg.Secret),
		cfg:    cfg,
		now:    time.Now,
		method: jwt.SigningMethodHS256,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// GenerateAccessToken signs a short-lived access token for p.
func (s *Service) GenerateAccessToken(p Payload) (string, error) {
	token, _, err := s.generate(p, TypeAccess, s.cfg.AccessTTL)
	return token, err
}

// GenerateRefreshToken signs a long-lived refresh token for p.
func (s *Service) GenerateRefreshToken(p Payload) (string, error) {
	token, _, err := s.generate(p, TypeRefresh, s.cfg.RefreshTTL)
	return token, err
}

// GeneratePair signs both tokens for p.
func (s *Service) GeneratePair(p Payload) (Pair, error) {
	access, accessExp, err := s.generate(p, TypeAccess, s.cfg.AccessTTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, refreshExp, err := s.generate(p, TypeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// ParseAccessToken validates an access token.
func (s *Service) ParseAccessToken(token string) (*Claims, error) {
	return s.parse(token, TypeAccess)
}

// ParseRefreshToken validates a refresh token.
func (s *Service) ParseRefreshToken(token string) (*Claims, error) {
	return s.parse(token, TypeRefresh)
}

func (s *Service) generate(p Payload, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	if p.AccountID == "" {
		return "", time.Time{}, oops.Code("SESSION_SIGN_FAILED").Errorf("account id is required")
	}

	now := s.now()
	exp := now.Add(ttl)
	claims := tokenClaims{
		Email: p.Email,
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.AccountID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        ulid.Make().String(),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, oops.Code("SESSION_SIGN_FAILED").
			With("token_type", string(typ)).
			Wrap(err)
	}
	return signed, exp, nil
}

func (s *Service) parse(token string, want TokenType) (*Claims, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.cfg.Leeway),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.cfg.Issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, oops.Code("SESSION_TOKEN_EXPIRED").With("token_type", string(want)).Wrap(errors.Join(ErrExpired, err))
		}
		return nil, oops.Code("SESSION_TOKEN_INVALID").With("token_type", string(want)).Wrap(errors.Join(ErrInvalid, err))
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, oops.Code("SESSION_TOKEN_INVALID").With("token_type", string(want)).Wrap(ErrInvalid)
	}
	if claims.Type != want {
		return nil, oops.Code("SESSION_WRONG_TOKEN_TYPE").
			With("expected", string(want)).
			With("actual", string(claims.Type)).
			Wrap(ErrWrongType)
	}

	return &Claims{
		Payload:   Payload{AccountID: claims.Subject, Email: claims.Email},
		Type:      claims.Type,
		ID:        claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
