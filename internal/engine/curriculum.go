package engine

import (
	"github.com/vk/refgymgo/internal/config"
	"github.com/vk/refgymgo/internal/tensor"
)

// curriculum tracks a running accuracy average over training iterations and
// decides when the distractor count may grow. The count is monotonically
// non-decreasing and capped per mode by the configured maximum.
type curriculum struct {
	enabled          bool
	windowSize       int
	threshold        float64
	windowedAccuracy float64
	windowCount      int
}

func newCurriculum(cfg *config.Experiment) *curriculum {
	return &curriculum{
		enabled:    cfg.UseCurriculumNbrDistractors,
		windowSize: cfg.CurriculumDistractorsWindowSize,
		threshold:  cfg.CurriculumAccuracyThreshold,
	}
}

// observe folds one accuracy reading into the window and reports whether
// the distractor count should be incremented now. On an increment decision
// the window resets to empty.
func (c *curriculum) observe(accuracy float64, current, maximum int) bool {
	c.windowedAccuracy = c.windowedAccuracy*float64(c.windowCount) + accuracy
	c.windowCount++
	c.windowedAccuracy /= float64(c.windowCount)

	if c.windowedAccuracy > c.threshold && c.windowCount > c.windowSize && current < maximum {
		c.windowedAccuracy = 0
		c.windowCount = 0
		return true
	}
	return false
}

// toScalar reduces the values modules emit into series entries (numbers or
// tensors) to a single float64.
func toScalar(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case *tensor.Tensor:
		return n.Mean(), true
	}
	return 0, false
}

// signalInt reads an integer signal, tolerating the integer widths a
// checkpoint round-trip may produce.
func (e *Engine) signalInt(path string, def int) int {
	if n, ok := coerceInt(e.handler.Get(path)); ok {
		return n
	}
	return def
}

// signalIntMap reads a per-mode counter map signal, seeding zero for every
// known mode when the signal is absent or partial.
func (e *Engine) signalIntMap(path string, modes []string) map[string]int {
	out := make(map[string]int, len(modes))
	for _, mode := range modes {
		out[mode] = 0
	}
	switch m := e.handler.Get(path).(type) {
	case map[string]int:
		for mode, n := range m {
			out[mode] = n
		}
	case map[string]any:
		for mode, v := range m {
			if n, ok := coerceInt(v); ok {
				out[mode] = n
			}
		}
	}
	return out
}

func coerceInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
