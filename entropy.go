// entropy.go: Pluggable entropy sources for salt and IV generation.
//
// The codec draws randomness through the EntropySource interface so
// deployments with hardware RNGs can supply their own provider, using the
// go-plugins framework for out-of-process providers. The default source is
// the operating system CSPRNG via crypto/rand.
//
// Copyright (c) 2025 Forgia
// Series: a Forgia library
// SPDX-License-Identifier: MPL-2.0

package pwbox

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"

	goerrors "github.com/agilira/go-errors"
	goplugins "github.com/agilira/go-plugins"
)

// EntropySource supplies cryptographically secure random bytes.
//
// Implementations must be safe for concurrent use. A source that cannot
// produce randomness must return an error from Fill; the codec treats that
// as fatal for the operation (ErrRandomUnavailable), never silently
// degrading to weaker randomness.
type EntropySource interface {
	// Name identifies the source (e.g. "system", "tpm", "cloudhsm").
	Name() string

	// Fill writes len(b) secure random bytes into b.
	Fill(b []byte) error

	// IsHealthy reports whether the source is currently usable.
	IsHealthy() bool

	// Close releases any resources held by the source.
	Close() error
}

// Common entropy errors with proper error codes for auditing
var (
	ErrEntropySourceNotFound = goerrors.New("ENTROPY_001", "entropy source not found")
	ErrEntropyUnhealthy      = goerrors.New("ENTROPY_002", "entropy source failed health check")
	ErrEntropySourceNil      = goerrors.New("ENTROPY_003", "entropy source cannot be nil")
)

// SystemEntropy returns the default source backed by crypto/rand.
func SystemEntropy() EntropySource { return systemEntropy{} }

type systemEntropy struct{}

func (systemEntropy) Name() string { return "system" }

func (systemEntropy) Fill(b []byte) error {
	_, err := io.ReadFull(rand.Reader, b)
	return err
}

func (systemEntropy) IsHealthy() bool { return true }

func (systemEntropy) Close() error { return nil }

// EntropyRequest represents a request to an entropy provider plugin.
type EntropyRequest struct {
	Length int `json:"length"` // Number of random bytes requested
}

// EntropyResponse represents a response from an entropy provider plugin.
type EntropyResponse struct {
	Success bool   `json:"success"`         // Operation success status
	Data    []byte `json:"data"`            // Random bytes
	Error   string `json:"error,omitempty"` // Error message (if any)
}

// EntropyManager manages entropy providers using the go-plugins framework.
//
// The "system" source is always registered. Additional sources can be
// registered directly or served by plugins through the manager.
type EntropyManager struct {
	mu            sync.RWMutex
	pluginManager *goplugins.Manager[EntropyRequest, EntropyResponse]
	sources       map[string]EntropySource
	defaultSource string
}

// NewEntropyManager creates an entropy manager with plugin support. The
// plugin manager may be nil when only in-process sources are used.
func NewEntropyManager(pluginManager *goplugins.Manager[EntropyRequest, EntropyResponse]) *EntropyManager {
	return &EntropyManager{
		pluginManager: pluginManager,
		sources:       map[string]EntropySource{"system": systemEntropy{}},
		defaultSource: "system",
	}
}

// RegisterSource registers an entropy source with the manager.
func (m *EntropyManager) RegisterSource(name string, src EntropySource) error {
	if src == nil {
		return fmt.Errorf("register %q: %w", name, ErrEntropySourceNil)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[name] = src
	return nil
}

// SetDefault selects the source returned by Source("").
func (m *EntropyManager) SetDefault(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sources[name]; !exists {
		return fmt.Errorf("%w: source %s", ErrEntropySourceNotFound, name)
	}
	m.defaultSource = name
	return nil
}

// Source returns an entropy source by name, health-checked. An empty name
// returns the default source.
func (m *EntropyManager) Source(name string) (EntropySource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if name == "" {
		name = m.defaultSource
	}
	src, exists := m.sources[name]
	if !exists {
		return nil, fmt.Errorf("%w: source %s", ErrEntropySourceNotFound, name)
	}
	if !src.IsHealthy() {
		return nil, fmt.Errorf("%w: source %s", ErrEntropyUnhealthy, name)
	}
	return src, nil
}

// Close shuts down all registered sources.
func (m *EntropyManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for name, src := range m.sources {
		if err := src.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close entropy source %s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to close some entropy sources: %v", errs)
	}
	return nil
}
