// Package epochlogger provides the module that accumulates logs_dict
// series across iterations and flushes their per-epoch means to the metric
// logger once every boundary flag of the current dataset is raised.
package epochlogger

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/refgymgo/internal/metrics"
	"github.com/vk/refgymgo/internal/module"
	"github.com/vk/refgymgo/internal/registry"
	"github.com/vk/refgymgo/internal/streams"
	"github.com/vk/refgymgo/internal/tensor"
)

// Module implements the registry.Provider interface for this package.
type Module struct{}

// Register registers the PerEpochLogger builder.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterBuilder("PerEpochLogger", Build)
}

func defaultInputs() map[string]string {
	return map[string]string{
		"logger":                     "modules:logger:ref",
		"logs_dict":                  "logs_dict",
		"epoch":                      "signals:epoch",
		"mode":                       "signals:mode",
		"end_of_dataset":             "signals:end_of_dataset",
		"end_of_repetition_sequence": "signals:end_of_repetition_sequence",
		"end_of_communication":       "signals:end_of_communication",
	}
}

// PerEpochLogger buffers every scalar that lands in logs_dict and emits the
// per-key mean when the dataset pass completes. The buffers are internal
// state accumulated across Compute calls within one epoch.
type PerEpochLogger struct {
	module.Base
	buffer map[string][]float64
}

// Build constructs a PerEpochLogger module.
func Build(id string, cfg module.Config, inputStreams map[string]string) (module.Module, error) {
	return &PerEpochLogger{
		Base:   module.NewBase(id, "PerEpochLogger", cfg, defaultInputs(), inputStreams),
		buffer: make(map[string][]float64),
	}, nil
}

func (p *PerEpochLogger) Compute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	p.accumulate("", inputs["logs_dict"])

	if !flag(inputs, "end_of_dataset") ||
		!flag(inputs, "end_of_repetition_sequence") ||
		!flag(inputs, "end_of_communication") {
		return map[string]any{}, nil
	}

	logger, ok := inputs["logger"].(metrics.Logger)
	if !ok {
		return nil, fmt.Errorf("logger stream does not provide a metrics.Logger")
	}
	epoch := 0
	if n, ok := inputs["epoch"].(int); ok {
		epoch = n
	}

	keys := make([]string, 0, len(p.buffer))
	for key := range p.buffer {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		values := p.buffer[key]
		if len(values) == 0 {
			continue
		}
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		logger.Scalar(key, sum/float64(len(values)), epoch)
	}
	p.buffer = make(map[string][]float64)
	return map[string]any{}, nil
}

// accumulate walks the logs_dict namespace and appends every scalar entry
// of every series to the matching buffer.
func (p *PerEpochLogger) accumulate(prefix string, node any) {
	switch v := node.(type) {
	case []any:
		for _, entry := range v {
			if s, ok := scalar(entry); ok {
				p.buffer[prefix] = append(p.buffer[prefix], s)
			}
		}
	case map[string]any:
		for key, child := range v {
			joined := key
			if prefix != "" {
				joined = prefix + streams.Separator + key
			}
			p.accumulate(joined, child)
		}
	}
}

func flag(inputs map[string]any, name string) bool {
	b, ok := inputs[name].(bool)
	return ok && b
}

func scalar(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case *tensor.Tensor:
		return n.Mean(), true
	}
	return 0, false
}
