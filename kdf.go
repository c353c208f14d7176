// kdf.go: Password-based key derivation and sub-key expansion.
//
// The password is stretched with PBKDF2-SHA256 into a single derived key,
// which is then expanded with HKDF-Expand (RFC 5869, expand step only) into
// independent cipher and authentication sub-keys under distinct labels.
//
// Copyright (c) 2025 Forgia
// Series: a Forgia library
// SPDX-License-Identifier: MPL-2.0

package pwbox

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"

	goerrors "github.com/agilira/go-errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// derivedKeySize is the PBKDF2 output length. It equals the native
	// hash output, the single-block contract: every downstream key is cut
	// from it by Expand, never by extra PBKDF2 blocks.
	derivedKeySize = sha256.Size

	// maxExpandLength is the RFC 5869 ceiling for a single expand call.
	maxExpandLength = 255 * sha256.Size

	// Domain-separation labels for the two sub-keys. These are part of the
	// wire suite: changing either breaks decryption of existing envelopes.
	infoEncryptionKey     = "EncryptionKey"
	infoAuthenticationKey = "AuthenticationKey"
)

// Sub-key derivation errors. Richer context travels in the wrapped
// go-errors value; use errors.Is against these.
var (
	// ErrEmptyPassword is returned when a password of length zero is used.
	ErrEmptyPassword = errors.New("pwbox: password cannot be empty")

	// ErrExpandLength is returned when an Expand request exceeds the
	// RFC 5869 output ceiling or is negative.
	ErrExpandLength = errors.New("pwbox: expand length out of range")
)

// DeriveKey derives a 32-byte key from a password and salt using
// PBKDF2-SHA256 with 2^iterationsLog2 iterations.
//
// The exponent form keeps the cost a power of two and lets it travel in the
// envelope's 2-byte field. Valid exponents are 1 through 30; the Codec
// applies its own, stricter policy range on top of this.
//
// Parameters:
//   - password: the password to derive from (cannot be empty)
//   - salt: random salt (cannot be empty)
//   - iterationsLog2: log2 of the PBKDF2 iteration count
//
// Returns the derived key, or an error if a parameter is out of range. The
// caller owns the returned bytes and should Zeroize them after use.
func DeriveKey(password, salt []byte, iterationsLog2 int) ([]byte, error) {
	if len(password) == 0 {
		richErr := goerrors.New(ErrCodeEmptyPassword, "password cannot be empty")
		return nil, fmt.Errorf("%w: %w", ErrEmptyPassword, richErr)
	}
	if len(salt) == 0 {
		richErr := goerrors.New(ErrCodeIterBounds, "salt cannot be empty")
		return nil, fmt.Errorf("%w: %w", ErrParameterOutOfBounds, richErr)
	}
	if iterationsLog2 < 1 || iterationsLog2 > 30 {
		richErr := goerrors.New(ErrCodeIterBounds, fmt.Sprintf("iteration exponent %d outside [1, 30]", iterationsLog2))
		return nil, fmt.Errorf("%w: %w", ErrParameterOutOfBounds, richErr)
	}
	return pbkdf2.Key(password, salt, 1<<iterationsLog2, derivedKeySize, sha256.New), nil
}

// Expand stretches a pseudo-random key into length bytes of output keyed to
// the given info label, using the HKDF expand step (RFC 5869):
//
//	T(i) = HMAC-SHA256(prk, T(i-1) || info || byte(i))
//
// with the T(i) blocks concatenated and truncated to length. Distinct info
// labels yield independent outputs; that is the domain-separation mechanism
// keeping the cipher and MAC keys apart.
//
// The pseudo-random key must be at least 32 bytes, and length must be in
// [0, 255*32]. Callers own the returned bytes and should Zeroize key
// material after use.
func Expand(prk []byte, length int, info []byte) ([]byte, error) {
	if len(prk) < derivedKeySize {
		richErr := goerrors.New(ErrCodeIterBounds, fmt.Sprintf("pseudo-random key must be at least %d bytes, got %d", derivedKeySize, len(prk)))
		return nil, fmt.Errorf("%w: %w", ErrParameterOutOfBounds, richErr)
	}
	if length < 0 || length > maxExpandLength {
		richErr := goerrors.New(ErrCodeExpandLength, fmt.Sprintf("requested length %d outside [0, %d]", length, maxExpandLength))
		return nil, fmt.Errorf("%w: %w", ErrExpandLength, richErr)
	}
	if length == 0 {
		return []byte{}, nil
	}

	hashSize := sha256.Size
	n := (length + hashSize - 1) / hashSize
	okm := make([]byte, 0, n*hashSize)
	var t []byte
	var counter [1]byte

	for i := 1; i <= n; i++ {
		mac := hmac.New(sha256.New, prk)
		mac.Write(t)
		mac.Write(info)
		counter[0] = byte(i)
		mac.Write(counter[:])
		t = mac.Sum(nil)
		okm = append(okm, t...)
	}

	out := okm[:length]
	// The spill past length shares the backing array; wipe it so partial
	// key blocks do not linger.
	Zeroize(okm[length:])
	Zeroize(t)
	return out, nil
}

// expandSubKeys cuts the cipher and MAC keys from a derived key under their
// fixed labels. Both outputs are owned by the caller and must be zeroized.
func expandSubKeys(derived []byte) (cipherKey, macKey []byte, err error) {
	cipherKey, err = Expand(derived, KeySize, []byte(infoEncryptionKey))
	if err != nil {
		return nil, nil, err
	}
	macKey, err = Expand(derived, MACKeySize, []byte(infoAuthenticationKey))
	if err != nil {
		Zeroize(cipherKey)
		return nil, nil, err
	}
	return cipherKey, macKey, nil
}
