// codec_concurrent_test.go: Concurrency tests for a shared codec instance.
//
// Copyright (c) 2025 Forgia
// Series: a Forgia library
// SPDX-License-Identifier: MPL-2.0

package pwbox_test

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/forgia/pwbox"
)

// TestConcurrentEncryptDecrypt hammers one codec from many goroutines. Run
// with -race; the codec promises immutability after New, and the pooled
// buffers behind Encrypt and Decrypt must never bleed between goroutines.
func TestConcurrentEncryptDecrypt(t *testing.T) {
	codec, err := pwbox.New()
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}

	const goroutines = 10
	const iterations = 20

	var wg sync.WaitGroup
	errCh := make(chan error, goroutines)

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			password := []byte(fmt.Sprintf("worker-%d-password", id))
			for i := 0; i < iterations; i++ {
				plaintext := []byte(fmt.Sprintf("worker %d message %d", id, i))
				envelope, err := codec.Encrypt(plaintext, password)
				if err != nil {
					errCh <- fmt.Errorf("worker %d: encrypt: %w", id, err)
					return
				}
				restored, err := codec.Decrypt(envelope, password)
				if err != nil {
					errCh <- fmt.Errorf("worker %d: decrypt: %w", id, err)
					return
				}
				if !bytes.Equal(plaintext, restored) {
					errCh <- fmt.Errorf("worker %d: round-trip mismatch at iteration %d", id, i)
					return
				}
			}
		}(g)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}

	stats := codec.Stats()
	want := uint64(goroutines * iterations)
	if stats.Encrypts != want || stats.Decrypts != want {
		t.Errorf("Counter mismatch under concurrency: encrypts=%d decrypts=%d, want %d each", stats.Encrypts, stats.Decrypts, want)
	}
}

// TestConcurrentCrossDecrypt has every goroutine decrypt envelopes produced
// by the others, exercising the shared buffer pool on both paths at once.
func TestConcurrentCrossDecrypt(t *testing.T) {
	codec, err := pwbox.New()
	if err != nil {
		t.Fatalf("Failed to create codec: %v", err)
	}
	password := []byte("shared-password")

	const count = 8
	envelopes := make([][]byte, count)
	plaintexts := make([][]byte, count)
	for i := range envelopes {
		plaintexts[i] = []byte(fmt.Sprintf("shared message %d", i))
		envelopes[i], err = codec.Encrypt(plaintexts[i], password)
		if err != nil {
			t.Fatalf("Failed to encrypt message %d: %v", i, err)
		}
	}

	var wg sync.WaitGroup
	errCh := make(chan error, count)
	for g := 0; g < count; g++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range envelopes {
				restored, err := codec.Decrypt(envelopes[i], password)
				if err != nil {
					errCh <- fmt.Errorf("goroutine %d: decrypt %d: %w", id, i, err)
					return
				}
				if !bytes.Equal(plaintexts[i], restored) {
					errCh <- fmt.Errorf("goroutine %d: mismatch on envelope %d", id, i)
					return
				}
			}
		}(g)
	}

	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Error(err)
	}
}
