// envelope.go: Binary framing for the encrypted envelope.
//
// Copyright (c) 2025 Forgia
// Series: a Forgia library
// SPDX-License-Identifier: MPL-2.0

package pwbox

import (
	"crypto/aes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	goerrors "github.com/agilira/go-errors"
)

// Envelope layout, all lengths fixed by the suite:
//
//	[ salt: SaltSize ][ iterations log2: IterationFieldSize ]
//	[ iv: IVSize ][ ciphertext: variable ][ tag: TagSize ]
//
// There is no length field for the ciphertext; its size is recovered as
// len(envelope) - MinEnvelopeSize, so parsing slices the buffer from both
// ends. The trailing tag authenticates every byte that precedes it.
const (
	// SaltSize is the length of the random PBKDF2 salt at the front of
	// every envelope.
	SaltSize = 16

	// IterationFieldSize is the width of the iteration-exponent field.
	// The field is fixed little-endian; the value is the log2 exponent of
	// the PBKDF2 iteration count, never the raw count.
	IterationFieldSize = 2

	// IVSize is the AES-CTR initialization vector length.
	IVSize = aes.BlockSize

	// KeySize is the AES-256 cipher key length in bytes.
	KeySize = 32

	// MACKeySize is the HMAC-SHA256 authentication key length in bytes.
	MACKeySize = 32

	// TagSize is the length of the trailing HMAC-SHA256 authentication tag.
	TagSize = sha256.Size

	// headerSize is the fixed prefix parsed before any key derivation.
	headerSize = SaltSize + IterationFieldSize

	// MinEnvelopeSize is the length of an envelope carrying an empty
	// ciphertext. Anything shorter is malformed.
	MinEnvelopeSize = headerSize + IVSize + TagSize
)

// encodeFrame assembles the authenticated portion of an envelope:
// salt || iterations-log2 || iv || ciphertext. The returned slice has spare
// capacity for the trailing tag so the caller can append it without a copy.
func encodeFrame(salt []byte, iterationsLog2 int, iv, ciphertext []byte) []byte {
	frame := make([]byte, 0, headerSize+len(iv)+len(ciphertext)+TagSize)
	frame = append(frame, salt...)
	var field [IterationFieldSize]byte
	binary.LittleEndian.PutUint16(field[:], uint16(iterationsLog2)) // #nosec G115 -- exponent is range-checked at construction
	frame = append(frame, field[:]...)
	frame = append(frame, iv...)
	frame = append(frame, ciphertext...)
	return frame
}

// parseHeader extracts the salt and the claimed iteration exponent from the
// front of an envelope. It is the only length validation point: every other
// offset is fixed once the minimum length holds.
func parseHeader(envelope []byte) (salt []byte, iterationsLog2 int, err error) {
	if len(envelope) < MinEnvelopeSize {
		richErr := goerrors.New(ErrCodeEnvelopeShort, fmt.Sprintf("envelope length %d below minimum %d", len(envelope), MinEnvelopeSize))
		return nil, 0, fmt.Errorf("%w: %w", ErrParameterOutOfBounds, richErr)
	}
	salt = envelope[:SaltSize]
	// Signed 16-bit on the wire; negative values are rejected by the
	// caller's range check.
	raw := int16(binary.LittleEndian.Uint16(envelope[SaltSize:headerSize]))
	return salt, int(raw), nil
}

// splitBody returns the IV and ciphertext views of the authenticated portion
// of an envelope (everything except the trailing tag). Callers must have
// verified the tag first.
func splitBody(authenticated []byte) (iv, ciphertext []byte) {
	return authenticated[headerSize : headerSize+IVSize], authenticated[headerSize+IVSize:]
}
