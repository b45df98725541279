// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

// Package credential hashes passwords and mints the opaque single-use tokens
// mailed out for email verification and password reset.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// Params are the argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32
	KeyLen  uint32
}

// DefaultParams are the OWASP-recommended argon2id parameters.
var DefaultParams = Params{
	Time:    1,
	Memory:  64 * 1024,
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("CREDENTIAL_EMPTY_PASSWORD").Errorf("password cannot be empty")

// Hasher hashes and compares secrets and mints opaque tokens.
type Hasher interface {
	// Hash produces a salted argon2id digest in PHC string form.
	Hash(plaintext string) (string, error)
	// Compare reports whether plaintext matches hash. A malformed hash is an
	// error; a mismatch is not.
	Compare(plaintext, hash string) (bool, error)
	// NeedsUpgrade reports whether hash was produced with other parameters.
	NeedsUpgrade(hash string) bool
	// MintToken creates a fresh opaque token bound to seed.
	MintToken(seed string) (Token, error)
}

// Argon2idHasher implements Hasher using argon2id.
type Argon2idHasher struct {
	params Params
	minter *Minter
}

var _ Hasher = (*Argon2idHasher)(nil)

// NewArgon2idHasher creates a hasher with the given parameters.
// Zero fields fall back to DefaultParams.
func NewArgon2idHasher(params Params) *Argon2idHasher {
	if params.Time == 0 {
		params.Time = DefaultParams.Time
	}
	if params.Memory == 0 {
		params.Memory = DefaultParams.Memory
	}
	if params.Threads == 0 {
		params.Threads = DefaultParams.Threads
	}
	if params.SaltLen == 0 {
		params.SaltLen = DefaultParams.SaltLen
	}
	if params.KeyLen == 0 {
		params.KeyLen = DefaultParams.KeyLen
	}
	return &Argon2idHasher{params: params, minter: NewMinter(nil)}
}

// Hash implements Hasher.
func (h *Argon2idHasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("CREDENTIAL_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Compare implements Hasher.
func (h *Argon2idHasher) Compare(plaintext, encoded string) (bool, error) {
	p, salt, want, err := decode(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// NeedsUpgrade implements Hasher.
func (h *Argon2idHasher) NeedsUpgrade(encoded string) bool {
	p, _, _, err := decode(encoded)
	if err != nil {
		return true
	}
	return p.Time != h.params.Time || p.Memory != h.params.Memory || p.Threads != h.params.Threads
}

// MintToken implements Hasher.
func (h *Argon2idHasher) MintToken(seed string) (Token, error) {
	return h.minter.Mint(seed)
}

func decode(encoded string) (Params, []byte, []byte, error) {
	invalid := oops.Code("CREDENTIAL_INVALID_HASH")

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return Params{}, nil, nil, invalid.Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return Params{}, nil, nil, invalid.Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Params{}, nil, nil, invalid.Wrap(err)
	}
	if version != argon2.Version {
		return Params{}, nil, nil, invalid.Errorf("unsupported argon2 version %d", version)
	}

	var memory, t, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &t, &threads); err != nil {
		return Params{}, nil, nil, invalid.Wrap(err)
	}
	if threads == 0 || threads > 255 {
		return Params{}, nil, nil, invalid.Errorf("threads value %d out of range", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, invalid.Wrap(err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, invalid.Wrap(err)
	}
	if len(key) == 0 || len(key) > 1<<10 {
		return Params{}, nil, nil, invalid.Errorf("invalid hash key length: %d", len(key))
	}

	return Params{
		Time:    t,
		Memory:  memory,
		Threads: uint8(threads),
		SaltLen: uint32(len(salt)),
		KeyLen:  uint32(len(key)),
	}, salt, key, nil
}
