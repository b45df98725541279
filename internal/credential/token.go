// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parlor Contributors

package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// TokenEntropyBytes is the number of random bytes in every minted token.
const TokenEntropyBytes = 32

// Token is a freshly minted opaque token.
// Plain goes to the user; only Digest is ever stored.
type Token struct {
	Plain  string
	Digest string
}

// Minter mints opaque tokens.
type Minter struct {
	now func() time.Time
}

// NewMinter creates a Minter. A nil clock uses time.Now.
func NewMinter(now func() time.Time) *Minter {
	if now == nil {
		now = time.Now
	}
	return &Minter{now: now}
}

// Mint returns a new token. The seed (an email address) and the current time
// are mixed in with 32 random bytes; the random bytes alone make the token
// unguessable.
func (m *Minter) Mint(seed string) (Token, error) {
	entropy := make([]byte, TokenEntropyBytes)
	if _, err := rand.Read(entropy); err != nil {
		return Token{}, oops.Code("CREDENTIAL_TOKEN_FAILED").Wrap(err)
	}

	h := sha256.New()
	h.Write(entropy)
	h.Write([]byte(seed))
	h.Write(binary.BigEndian.AppendUint64(nil, uint64(m.now().UnixNano())))

	plain := hex.EncodeToString(h.Sum(nil))
	return Token{Plain: plain, Digest: Digest(plain)}, nil
}

// Digest returns the storage form of a plaintext token.
func Digest(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
