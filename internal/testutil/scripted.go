// Package testutil provides shared helpers for the test suite: scripted
// modules with recordable inputs, a capturing metric sink, and dataset
// fixtures for grouped-sample scenarios.
package testutil

import (
	"context"
	"sync"

	"github.com/vk/refgymgo/internal/module"
)

// ComputeFunc is the pluggable body of a Scripted module.
type ComputeFunc func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// Scripted is a module whose Compute behavior is supplied by the test. It
// records a copy of every input map it receives, in call order.
type Scripted struct {
	module.Base

	mu       sync.Mutex
	received []map[string]any
	fn       ComputeFunc
}

// NewScripted builds a scripted module with the given declared inputs.
func NewScripted(id string, inputs map[string]string, fn ComputeFunc) *Scripted {
	return &Scripted{
		Base: module.NewBase(id, "Scripted", nil, inputs, nil),
		fn:   fn,
	}
}

func (s *Scripted) Compute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	copied := make(map[string]any, len(inputs))
	for k, v := range inputs {
		copied[k] = v
	}
	s.mu.Lock()
	s.received = append(s.received, copied)
	s.mu.Unlock()

	if s.fn == nil {
		return map[string]any{}, nil
	}
	return s.fn(ctx, inputs)
}

// Calls returns how many times Compute ran.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

// Received returns the input map of the i-th Compute call.
func (s *Scripted) Received(i int) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received[i]
}
