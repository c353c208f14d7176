// pool.go: Buffer pooling for fixed-size sensitive scratch buffers.
//
// Copyright (c) 2025 Forgia
// Series: a Forgia library
// SPDX-License-Identifier: MPL-2.0

package pwbox

import "sync"

// scratchSize covers every fixed-length buffer the codec draws per call:
// salts and IVs (16 bytes) and tags (32 bytes).
const scratchSize = 32

var scratchPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, scratchSize)
		return &buf // pointer avoids an allocation per Put (SA6002)
	},
}

// getBuffer retrieves a pooled scratch buffer sliced to the requested size.
// Oversized requests fall back to a direct allocation.
func getBuffer(size int) *[]byte {
	if size > scratchSize {
		buf := make([]byte, size)
		return &buf
	}
	buf := scratchPool.Get().(*[]byte)
	*buf = (*buf)[:size]
	return buf
}

// putBuffer wipes a scratch buffer and returns it to the pool. Buffers hold
// salts, IVs or tag material, so they are always cleared before reuse.
func putBuffer(buf *[]byte) {
	if buf == nil {
		return
	}
	full := (*buf)[:cap(*buf)]
	clearBuffer(full)
	if cap(*buf) == scratchSize {
		scratchPool.Put(buf)
	}
}

func clearBuffer(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
