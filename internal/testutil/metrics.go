package testutil

import (
	"strings"
	"sync"
)

// ScalarCall records one emitted metric.
type ScalarCall struct {
	Tag   string
	Value float64
	Step  int
}

// CaptureMetrics is a metrics.Logger that stores every scalar it receives.
type CaptureMetrics struct {
	mu    sync.Mutex
	calls []ScalarCall
}

func (c *CaptureMetrics) Scalar(tag string, value float64, step int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, ScalarCall{Tag: tag, Value: value, Step: step})
}

// Calls returns a snapshot of the recorded scalars.
func (c *CaptureMetrics) Calls() []ScalarCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ScalarCall, len(c.calls))
	copy(out, c.calls)
	return out
}

// ByTag returns the recorded scalars whose tag contains substr, in order.
func (c *CaptureMetrics) ByTag(substr string) []ScalarCall {
	var out []ScalarCall
	for _, call := range c.Calls() {
		if strings.Contains(call.Tag, substr) {
			out = append(out, call)
		}
	}
	return out
}
