// codec_security_test.go: Adversarial tests for the decrypt surface.
//
// Covers tamper detection across every envelope bit, iteration-cost bound
// enforcement, and error-message opacity (no oracle distinguishing causes).
//
// Copyright (c) 2025 Forgia
// Series: a Forgia library
// SPDX-License-Identifier: MPL-2.0

package pwbox

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

// TestSecurity_BitFlipTamperDetection flips every bit of a valid envelope
// and verifies decryption never succeeds and never reaches the cipher.
//
// Flips inside the iteration field move the claimed exponent out of the
// trusted range and fail the bounds check; flips anywhere else fail the
// authentication tag. Neither path may surface ErrDecryptionFailed, since
// the cipher must never run over unauthenticated data.
func TestSecurity_BitFlipTamperDetection(t *testing.T) {
	codec, err := New()
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}
	password := []byte("bit-flip-password")
	envelope, err := codec.Encrypt([]byte("tamper detection payload"), password)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	for i := range envelope {
		for bit := 0; bit < 8; bit++ {
			tampered := make([]byte, len(envelope))
			copy(tampered, envelope)
			tampered[i] ^= 1 << bit

			_, err := codec.Decrypt(tampered, password)
			if err == nil {
				t.Fatalf("Tampered envelope accepted (byte %d, bit %d)", i, bit)
			}
			if errors.Is(err, ErrDecryptionFailed) {
				t.Fatalf("Cipher ran on unauthenticated data (byte %d, bit %d): %v", i, bit, err)
			}
			inIterationField := i >= SaltSize && i < SaltSize+IterationFieldSize
			if inIterationField {
				if !errors.Is(err, ErrParameterOutOfBounds) {
					t.Errorf("Expected ErrParameterOutOfBounds for iteration-field flip (byte %d, bit %d), got: %v", i, bit, err)
				}
			} else if !errors.Is(err, ErrAuthenticationFailed) {
				t.Errorf("Expected ErrAuthenticationFailed (byte %d, bit %d), got: %v", i, bit, err)
			}
		}
	}
}

// TestSecurity_IterationBounds crafts envelopes claiming out-of-range
// derivation costs and verifies they are rejected up front. A claim above
// the configured ceiling at 2^30 iterations would take minutes if PBKDF2
// ran; the test completing at all shows the check precedes derivation.
func TestSecurity_IterationBounds(t *testing.T) {
	codec, err := New()
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}
	password := []byte("bounds-password")
	envelope, err := codec.Encrypt([]byte("bounded"), password)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	cases := []struct {
		name  string
		claim uint16
	}{
		{"OneAboveCeiling", uint16(codec.IterationsLog2() + 1)},
		{"FarAboveCeiling", 30},
		{"NegativeOnWire", 0x8000},
		{"BelowFloor", MinIterationsLog2 - 1},
		{"Zero", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			crafted := make([]byte, len(envelope))
			copy(crafted, envelope)
			binary.LittleEndian.PutUint16(crafted[SaltSize:], tc.claim)

			_, err := codec.Decrypt(crafted, password)
			if !errors.Is(err, ErrParameterOutOfBounds) {
				t.Errorf("Expected ErrParameterOutOfBounds for claimed exponent %#x, got: %v", tc.claim, err)
			}
		})
	}
}

// TestSecurity_AuthFailureOpacity verifies that a wrong password and a
// corrupted tag produce byte-identical error messages, and that no failure
// message leaks key or password material.
func TestSecurity_AuthFailureOpacity(t *testing.T) {
	codec, err := New()
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}
	password := []byte("opacity-password-material")
	envelope, err := codec.Encrypt([]byte("opaque"), password)
	if err != nil {
		t.Fatalf("Failed to encrypt: %v", err)
	}

	_, wrongPassErr := codec.Decrypt(envelope, []byte("another-password"))
	if wrongPassErr == nil {
		t.Fatal("Expected wrong-password decryption to fail")
	}

	corrupted := make([]byte, len(envelope))
	copy(corrupted, envelope)
	corrupted[len(corrupted)-1] ^= 0xFF
	_, badTagErr := codec.Decrypt(corrupted, password)
	if badTagErr == nil {
		t.Fatal("Expected corrupted-tag decryption to fail")
	}

	if wrongPassErr.Error() != badTagErr.Error() {
		t.Errorf("Authentication failure messages differ:\n  wrong password: %v\n  corrupted tag:  %v", wrongPassErr, badTagErr)
	}
	for _, msg := range []string{wrongPassErr.Error(), badTagErr.Error()} {
		if strings.Contains(msg, "opacity-password-material") {
			t.Errorf("Error message leaks password material: %s", msg)
		}
		if strings.Contains(msg, "salt") || strings.Contains(msg, "tag") {
			t.Errorf("Error message distinguishes failure cause: %s", msg)
		}
	}
}

// TestSecurity_SubKeySeparation verifies that the cipher and MAC keys cut
// from the same derived key are independent.
func TestSecurity_SubKeySeparation(t *testing.T) {
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("Failed to generate salt: %v", err)
	}
	derived, err := DeriveKey([]byte("separation-password"), salt, DefaultIterationsLog2)
	if err != nil {
		t.Fatalf("Failed to derive key: %v", err)
	}
	cipherKey, macKey, err := expandSubKeys(derived)
	if err != nil {
		t.Fatalf("Failed to expand sub-keys: %v", err)
	}
	if len(cipherKey) != KeySize || len(macKey) != MACKeySize {
		t.Errorf("Unexpected sub-key lengths: cipher=%d mac=%d", len(cipherKey), len(macKey))
	}
	if string(cipherKey) == string(macKey) {
		t.Error("Cipher and MAC keys must not be equal")
	}
}
