// Package pwbox provides password-based authenticated encryption for Go
// applications: one call turns a plaintext and a password into a single
// self-describing binary envelope, and one call turns the envelope back.
//
// The suite is fixed so callers never make per-primitive choices:
//   - PBKDF2-SHA256 password stretching with a power-of-two iteration count
//     recorded in the envelope
//   - HKDF-Expand sub-key separation: independent cipher and MAC keys under
//     distinct labels, so encryption and authentication never share a key
//   - AES-256-CTR encryption with a fresh random IV per call
//   - Encrypt-then-MAC with HMAC-SHA256 over the complete frame, verified
//     in constant time before any decryption
//   - Optional LZ4 payload compression, applied before encryption
//
// # Quick Start
//
//	codec, err := pwbox.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	envelope, err := codec.Encrypt([]byte("sensitive data"), []byte("password"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	plaintext, err := codec.Decrypt(envelope, []byte("password"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println(string(plaintext)) // Output: sensitive data
//
// The envelope carries its own salt, iteration exponent and IV, so the
// password is the only thing a caller has to keep. Two encryptions of the
// same input produce different envelopes; both decrypt correctly.
//
// # Configuration
//
// A Codec is configured once and immutable afterwards:
//
//	codec, err := pwbox.New(
//		pwbox.WithIterationsLog2(14), // 2^14 PBKDF2 iterations
//		pwbox.WithCompression(),      // LZ4 before encryption
//	)
//
// Iteration exponents below the safety floor fall back to the default with
// a logged warning; exponents above MaxIterationsLog2 fail construction.
// When decrypting, an envelope may claim at most the configured cost, so a
// forged envelope can neither force an expensive derivation nor downgrade
// to a weak one.
//
// # Error Handling
//
// All failures surface as distinct exported sentinels compatible with
// errors.Is; rich error details are attached via github.com/agilira/go-errors.
//
//	_, err := codec.Decrypt(envelope, password)
//	switch {
//	case errors.Is(err, pwbox.ErrAuthenticationFailed):
//		// wrong password or tampered envelope (deliberately not told apart)
//	case errors.Is(err, pwbox.ErrParameterOutOfBounds):
//		// malformed envelope or untrusted iteration cost
//	case errors.Is(err, pwbox.ErrDecompressionFailed):
//		// authentic but undecodable compressed payload
//	}
//
// # Security Considerations
//
//   - Authentication runs before decryption; a bad tag means no cipher
//     operation is ever attempted and no partial plaintext escapes.
//   - Tag comparison is constant time (crypto/hmac.Equal).
//   - The authentication failure message never distinguishes causes, to
//     avoid oracle behavior.
//   - Derived keys and sub-keys are call-local and zeroized after use;
//     pooled scratch buffers are wiped before reuse.
//   - Randomness comes from a pluggable EntropySource (crypto/rand by
//     default); if the source fails the operation fails, it never degrades.
//
// PBKDF2 cost is a brute-force mitigation, not a guarantee: a guessable
// password stays guessable. Key storage and password policy are out of
// scope.
//
// Copyright (c) 2025 Forgia
// Series: a Forgia library
// SPDX-License-Identifier: MPL-2.0
package pwbox
