// config.go: Construction-time configuration for the codec.
//
// All algorithm choices are fixed policy: the suite (AES-256-CTR,
// HMAC-SHA256, PBKDF2-SHA256, HKDF-Expand) is compiled in and cannot be
// overridden. Options only tune the iteration cost, compression, and the
// ambient collaborators. The resulting Codec is immutable; there are no
// setters.
//
// Copyright (c) 2025 Forgia
// Series: a Forgia library
// SPDX-License-Identifier: MPL-2.0

package pwbox

import "log/slog"

// PBKDF2 iteration-exponent policy. Iteration count is 2^exponent.
const (
	// DefaultIterationsLog2 is used when no exponent is configured, and is
	// the fallback for below-floor requests.
	DefaultIterationsLog2 = 12

	// MinIterationsLog2 is the safety floor. New never configures below
	// it, and Decrypt rejects envelopes claiming less.
	MinIterationsLog2 = 12

	// MaxIterationsLog2 bounds the configurable cost, which in turn bounds
	// the derivation work any envelope can demand of Decrypt.
	MaxIterationsLog2 = 24
)

// config collects option state before validation in New.
type config struct {
	iterationsLog2 int
	useCompression bool
	compressor     Compressor
	entropy        EntropySource
	logger         *slog.Logger
}

// Option configures a Codec at construction.
type Option func(*config)

// WithIterationsLog2 sets the PBKDF2 iteration exponent. Values below
// MinIterationsLog2 fall back to the default with a warning; values above
// MaxIterationsLog2 make New fail with ErrConfiguration.
func WithIterationsLog2(n int) Option {
	return func(c *config) { c.iterationsLog2 = n }
}

// WithCompression enables payload compression with the built-in LZ4
// compressor. Compression is applied to the plaintext before encryption and
// reversed after decryption; both sides of a round-trip must agree on it.
func WithCompression() Option {
	return func(c *config) {
		c.useCompression = true
		c.compressor = NewLZ4Compressor()
	}
}

// WithCompressor enables compression with a custom primitive. A nil
// compressor disables compression with a warning instead of failing.
func WithCompressor(comp Compressor) Option {
	return func(c *config) {
		c.useCompression = true
		c.compressor = comp
	}
}

// WithEntropySource replaces the system entropy source, e.g. with a
// hardware-backed source from an EntropyManager. Nil makes New fail with
// ErrConfiguration.
func WithEntropySource(src EntropySource) Option {
	return func(c *config) { c.entropy = src }
}

// WithLogger sets the logger used for construction-time warnings. The
// encrypt and decrypt paths never log.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}
