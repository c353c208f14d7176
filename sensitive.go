// sensitive.go: Zeroization and salt generation helpers.
//
// Copyright (c) 2025 Forgia
// Series: a Forgia library
// SPDX-License-Identifier: MPL-2.0

package pwbox

import (
	"crypto/rand"
	"io"

	goerrors "github.com/agilira/go-errors"
)

// Zeroize overwrites a byte slice with zeros, in place.
//
// Derived keys, sub-keys and decrypted intermediates are key material or
// plaintext; wipe them as soon as they are no longer needed. This is
// best-effort: Go gives no guarantee about copies the runtime may have
// made, but it keeps deliberate lifetimes short.
//
// Example:
//
//	key, _ := pwbox.DeriveKey(password, salt, 12)
//	defer pwbox.Zeroize(key)
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateSalt returns a fresh random salt of SaltSize bytes from the
// system CSPRNG. Encrypt draws its own salts; this helper exists for
// callers using DeriveKey directly.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, goerrors.Wrap(err, ErrCodeEntropy, "failed to generate salt")
	}
	return salt, nil
}
