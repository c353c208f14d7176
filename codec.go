// codec.go: Password-based authenticated encryption and decryption.
//
// Encrypt-then-MAC over AES-256-CTR and HMAC-SHA256: the tag is computed
// over the complete frame (salt, iteration field, IV, ciphertext) and
// verified in constant time before any decryption is attempted.
//
// Copyright (c) 2025 Forgia
// Series: a Forgia library
// SPDX-License-Identifier: MPL-2.0

package pwbox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	goerrors "github.com/agilira/go-errors"
	"github.com/agilira/go-timecache"
)

// Public standard errors. These can be used with errors.Is() for error
// checking; each carries a rich go-errors value with a stable code.
var (
	// ErrConfiguration is returned by New when the instance cannot be
	// constructed. It is fatal and should not be caught and ignored.
	ErrConfiguration = errors.New("pwbox: invalid configuration")

	// ErrParameterOutOfBounds is returned when an envelope is malformed or
	// claims an iteration cost outside the trusted range.
	ErrParameterOutOfBounds = errors.New("pwbox: parameter out of bounds")

	// ErrAuthenticationFailed is returned on tag mismatch. The message is
	// deliberately uniform: it never distinguishes a wrong password from a
	// tampered envelope.
	ErrAuthenticationFailed = errors.New("pwbox: authentication failed")

	// ErrDecryptionFailed is returned when the underlying cipher reports
	// an error after successful authentication.
	ErrDecryptionFailed = errors.New("pwbox: decryption failed")

	// ErrRandomUnavailable is returned when the entropy source cannot
	// supply secure random bytes. Fatal: no operation can proceed.
	ErrRandomUnavailable = errors.New("pwbox: secure randomness unavailable")

	// ErrBase64Decode is returned by DecryptFromString on malformed input.
	ErrBase64Decode = errors.New("pwbox: base64 decode error")
)

// Error codes for rich error handling
const (
	ErrCodeConfig        = "PWBOX_CONFIG"
	ErrCodeEmptyPassword = "PWBOX_EMPTY_PASSWORD"
	ErrCodeIterBounds    = "PWBOX_ITERATIONS_OUT_OF_BOUNDS"
	ErrCodeEnvelopeShort = "PWBOX_ENVELOPE_SHORT"
	ErrCodeExpandLength  = "PWBOX_EXPAND_LENGTH"
	ErrCodeAuthFailed    = "PWBOX_AUTH_FAILED"
	ErrCodeCipherInit    = "PWBOX_CIPHER_INIT"
	ErrCodeCompress      = "PWBOX_COMPRESS"
	ErrCodeDecompress    = "PWBOX_DECOMPRESS"
	ErrCodeEntropy       = "PWBOX_ENTROPY"
	ErrCodeBase64        = "PWBOX_BASE64"
)

// Codec is a password-based authenticated encryption instance.
//
// A Codec is immutable after New and safe for concurrent use: every
// encrypt/decrypt call is a self-contained computation with call-local
// buffers. Create one Codec per parameter set and reuse it across calls.
type Codec struct {
	iterationsLog2 int
	compressor     Compressor // nil when compression is disabled
	entropy        EntropySource
	logger         *slog.Logger

	encrypts atomic.Uint64
	decrypts atomic.Uint64
	failures atomic.Uint64
	lastOp   atomic.Int64 // unix nanoseconds of the most recent operation
}

// New constructs a Codec from the given options.
//
// Defaults: DefaultIterationsLog2 iterations exponent, compression off, the
// system entropy source, slog.Default() for construction warnings.
//
// Iteration exponents below MinIterationsLog2 fall back to the default with
// a logged warning rather than weakening the instance; exponents above
// MaxIterationsLog2 are a configuration error. A compression request
// without a usable primitive is disabled with a logged warning.
func New(opts ...Option) (*Codec, error) {
	cfg := config{
		iterationsLog2: DefaultIterationsLog2,
		entropy:        SystemEntropy(),
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	if cfg.entropy == nil {
		richErr := goerrors.New(ErrCodeConfig, "entropy source cannot be nil")
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, richErr)
	}
	if cfg.iterationsLog2 > MaxIterationsLog2 {
		richErr := goerrors.New(ErrCodeConfig, fmt.Sprintf("iteration exponent %d exceeds maximum %d", cfg.iterationsLog2, MaxIterationsLog2))
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, richErr)
	}
	if cfg.iterationsLog2 < MinIterationsLog2 {
		cfg.logger.Warn("pwbox: iteration exponent below safety floor, using default",
			"requested", cfg.iterationsLog2,
			"default", DefaultIterationsLog2)
		cfg.iterationsLog2 = DefaultIterationsLog2
	}

	var comp Compressor
	if cfg.useCompression {
		comp = cfg.compressor
		if comp == nil {
			cfg.logger.Warn("pwbox: compression requested but no compressor available, disabling")
		}
	}

	return &Codec{
		iterationsLog2: cfg.iterationsLog2,
		compressor:     comp,
		entropy:        cfg.entropy,
		logger:         cfg.logger,
	}, nil
}

// IterationsLog2 reports the iteration exponent this instance encrypts with
// and trusts as the ceiling when decrypting.
func (c *Codec) IterationsLog2() int { return c.iterationsLog2 }

// Encrypt encrypts plaintext under the given password and returns a
// self-describing envelope: salt, iteration exponent, IV, ciphertext and
// authentication tag in one byte slice. Empty plaintext is supported and
// produces the minimal envelope.
//
// Each call draws a fresh salt and IV, so encrypting the same inputs twice
// yields different envelopes that both decrypt correctly.
func (c *Codec) Encrypt(plaintext, password []byte) ([]byte, error) {
	saltBuf := getBuffer(SaltSize)
	defer putBuffer(saltBuf)
	salt := (*saltBuf)[:SaltSize]
	if err := c.fill(salt); err != nil {
		return nil, err
	}

	cipherKey, macKey, err := c.deriveSubKeys(password, salt, c.iterationsLog2)
	if err != nil {
		return nil, err
	}
	defer Zeroize(cipherKey)
	defer Zeroize(macKey)

	payload := plaintext
	if c.compressor != nil {
		payload, err = c.compressor.Compress(plaintext)
		if err != nil {
			c.fail()
			return nil, wrapCompressionErr(err)
		}
	}

	ivBuf := getBuffer(IVSize)
	defer putBuffer(ivBuf)
	iv := (*ivBuf)[:IVSize]
	if err := c.fill(iv); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		c.fail()
		richErr := goerrors.Wrap(err, ErrCodeCipherInit, "failed to initialize cipher")
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, richErr)
	}
	ciphertext := make([]byte, len(payload))
	cipher.NewCTR(block, iv).XORKeyStream(ciphertext, payload)

	frame := encodeFrame(salt, c.iterationsLog2, iv, ciphertext)
	mac := hmac.New(sha256.New, macKey)
	mac.Write(frame)
	envelope := mac.Sum(frame) // frame has spare capacity for the tag

	c.note(&c.encrypts)
	return envelope, nil
}

// Decrypt authenticates and decrypts an envelope produced by Encrypt with
// the same password. Every parameter is recovered from the envelope itself.
//
// The claimed iteration exponent is bounds-checked before any key
// derivation, and the tag is verified in constant time before any
// decryption. Failures abort the whole operation: no partial plaintext is
// ever returned.
func (c *Codec) Decrypt(envelope, password []byte) ([]byte, error) {
	salt, claimed, err := parseHeader(envelope)
	if err != nil {
		c.fail()
		return nil, err
	}
	// The envelope may claim at most the configured cost, so a forged
	// envelope cannot force an arbitrarily expensive derivation, and no
	// less than the safety floor, so it cannot downgrade to a weak one.
	if claimed > c.iterationsLog2 || claimed < MinIterationsLog2 {
		c.fail()
		richErr := goerrors.New(ErrCodeIterBounds, fmt.Sprintf("envelope claims iteration exponent %d outside trusted range [%d, %d]", claimed, MinIterationsLog2, c.iterationsLog2))
		return nil, fmt.Errorf("%w: %w", ErrParameterOutOfBounds, richErr)
	}

	cipherKey, macKey, err := c.deriveSubKeys(password, salt, claimed)
	if err != nil {
		return nil, err
	}
	defer Zeroize(cipherKey)
	defer Zeroize(macKey)

	authenticated := envelope[:len(envelope)-TagSize]
	tag := envelope[len(envelope)-TagSize:]

	mac := hmac.New(sha256.New, macKey)
	mac.Write(authenticated)
	expectedBuf := getBuffer(TagSize)
	defer putBuffer(expectedBuf)
	expected := mac.Sum((*expectedBuf)[:0])
	if !hmac.Equal(expected, tag) {
		c.fail()
		// One uniform failure for wrong password and tampered data alike.
		richErr := goerrors.New(ErrCodeAuthFailed, "authentication failed")
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, richErr)
	}

	iv, ciphertext := splitBody(authenticated)
	block, err := aes.NewCipher(cipherKey)
	if err != nil {
		c.fail()
		richErr := goerrors.Wrap(err, ErrCodeCipherInit, "failed to initialize cipher")
		return nil, fmt.Errorf("%w: %w", ErrDecryptionFailed, richErr)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCTR(block, iv).XORKeyStream(plaintext, ciphertext)

	if c.compressor != nil {
		out, err := c.compressor.Decompress(plaintext)
		Zeroize(plaintext)
		if err != nil {
			c.fail()
			return nil, wrapDecompressionErr(err)
		}
		plaintext = out
	}

	c.note(&c.decrypts)
	return plaintext, nil
}

// EncryptToString encrypts plaintext and returns the envelope encoded as a
// standard base64 string, convenient for text-based storage.
func (c *Codec) EncryptToString(plaintext string, password []byte) (string, error) {
	envelope, err := c.Encrypt([]byte(plaintext), password)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(envelope), nil
}

// DecryptFromString decodes a base64 envelope produced by EncryptToString
// and decrypts it.
func (c *Codec) DecryptFromString(encoded string, password []byte) (string, error) {
	envelope, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		c.fail()
		richErr := goerrors.Wrap(err, ErrCodeBase64, "failed to decode base64 envelope")
		return "", fmt.Errorf("%w: %w", ErrBase64Decode, richErr)
	}
	plaintext, err := c.Decrypt(envelope, password)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// deriveSubKeys runs PBKDF2 and cuts the two sub-keys, zeroizing the
// intermediate derived key before returning.
func (c *Codec) deriveSubKeys(password, salt []byte, iterationsLog2 int) (cipherKey, macKey []byte, err error) {
	derived, err := DeriveKey(password, salt, iterationsLog2)
	if err != nil {
		c.fail()
		return nil, nil, err
	}
	defer Zeroize(derived)
	cipherKey, macKey, err = expandSubKeys(derived)
	if err != nil {
		c.fail()
		return nil, nil, err
	}
	return cipherKey, macKey, nil
}

// fill draws random bytes from the configured entropy source.
func (c *Codec) fill(b []byte) error {
	if err := c.entropy.Fill(b); err != nil {
		c.fail()
		richErr := goerrors.Wrap(err, ErrCodeEntropy, fmt.Sprintf("entropy source %q failed", c.entropy.Name()))
		return fmt.Errorf("%w: %w", ErrRandomUnavailable, richErr)
	}
	return nil
}

// Stats reports operation counters for this instance.
type Stats struct {
	Encrypts      uint64    // successful Encrypt calls
	Decrypts      uint64    // successful Decrypt calls
	Failures      uint64    // failed operations of either kind
	LastOperation time.Time // timestamp of the most recent operation
}

// Stats returns a snapshot of the instance's operation counters.
func (c *Codec) Stats() Stats {
	var last time.Time
	if ns := c.lastOp.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		Encrypts:      c.encrypts.Load(),
		Decrypts:      c.decrypts.Load(),
		Failures:      c.failures.Load(),
		LastOperation: last,
	}
}

func (c *Codec) note(counter *atomic.Uint64) {
	counter.Add(1)
	// Cached clock: the stats timestamp is not worth a syscall per call.
	c.lastOp.Store(timecache.CachedTime().UnixNano())
}

func (c *Codec) fail() { c.note(&c.failures) }
