// Package providertest provides a mock Generator for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/ronitrai27/looma-agent/internal/provider"
)

// MockGenerator is a configurable Generator for tests. It records every
// request it receives.
type MockGenerator struct {
	mu       sync.Mutex
	Result   provider.GenerationResult
	Err      error
	Requests []provider.GenerationRequest
}

// Compile-time interface check.
var _ provider.Generator = (*MockGenerator)(nil)

// Generate implements provider.Generator.
func (m *MockGenerator) Generate(_ context.Context, req provider.GenerationRequest) (provider.GenerationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return provider.GenerationResult{}, m.Err
	}
	return m.Result, nil
}

// ModelName implements provider.Generator.
func (m *MockGenerator) ModelName() string { return "mock" }

// Calls returns how many times Generate was invoked.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
