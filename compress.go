// compress.go: Optional payload compression collaborator.
//
// Compression always happens before encryption and is reversed after
// decryption; compressing ciphertext is useless. The built-in primitive is
// LZ4 with pooled writers and readers.
//
// Copyright (c) 2025 Forgia
// Series: a Forgia library
// SPDX-License-Identifier: MPL-2.0

package pwbox

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	goerrors "github.com/agilira/go-errors"
	"github.com/pierrec/lz4/v4"
)

var (
	// ErrCompressionFailed is returned when the compressor cannot encode
	// the plaintext before encryption.
	ErrCompressionFailed = errors.New("pwbox: compression failed")

	// ErrDecompressionFailed is returned when an authenticated payload
	// cannot be decompressed. It is never swallowed: corrupted output is
	// an error, not an empty plaintext.
	ErrDecompressionFailed = errors.New("pwbox: decompression failed")
)

// Compressor encodes plaintext before encryption and decodes it after
// decryption. Implementations must be safe for concurrent use.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// Pooled LZ4 codecs to avoid re-allocating compression state per call.
var (
	lz4WriterPool = sync.Pool{
		New: func() interface{} {
			return lz4.NewWriter(nil)
		},
	}

	lz4ReaderPool = sync.Pool{
		New: func() interface{} {
			return lz4.NewReader(nil)
		},
	}
)

// LZ4Compressor is the built-in Compressor. LZ4 keeps the compression cost
// negligible next to the PBKDF2 work that dominates every call.
type LZ4Compressor struct{}

// NewLZ4Compressor returns the built-in LZ4 compressor.
func NewLZ4Compressor() *LZ4Compressor { return &LZ4Compressor{} }

// Compress encodes data as an LZ4 frame. Empty input yields a valid empty
// frame that decompresses back to empty.
func (*LZ4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4WriterPool.Get().(*lz4.Writer)
	defer lz4WriterPool.Put(w)
	w.Reset(&buf)

	if _, err := w.Write(data); err != nil {
		return nil, wrapCompressionErr(err)
	}
	if err := w.Close(); err != nil {
		return nil, wrapCompressionErr(err)
	}
	return buf.Bytes(), nil
}

// Decompress decodes an LZ4 frame produced by Compress.
func (*LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	r := lz4ReaderPool.Get().(*lz4.Reader)
	defer lz4ReaderPool.Put(r)
	r.Reset(bytes.NewReader(data))

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, wrapDecompressionErr(err)
	}
	return buf.Bytes(), nil
}

func wrapCompressionErr(err error) error {
	if errors.Is(err, ErrCompressionFailed) {
		return err
	}
	richErr := goerrors.Wrap(err, ErrCodeCompress, "failed to compress payload")
	return fmt.Errorf("%w: %w", ErrCompressionFailed, richErr)
}

func wrapDecompressionErr(err error) error {
	if errors.Is(err, ErrDecompressionFailed) {
		return err
	}
	richErr := goerrors.Wrap(err, ErrCodeDecompress, "corrupt compressed payload")
	return fmt.Errorf("%w: %w", ErrDecompressionFailed, richErr)
}
