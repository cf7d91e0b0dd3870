// Package tensorops provides the simplest module family: shape transforms
// over tensor streams. They exist so pipelines can adapt one module's
// output layout to the next module's expectation without either knowing
// about the other.
package tensorops

import (
	"context"
	"fmt"

	"github.com/vk/refgymgo/internal/module"
	"github.com/vk/refgymgo/internal/registry"
	"github.com/vk/refgymgo/internal/tensor"
)

// Module implements the registry.Provider interface for this package.
type Module struct{}

// Register registers the shape-transform builders.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterBuilder("Flatten", BuildFlatten)
	r.RegisterBuilder("Squeeze", BuildSqueeze)
	r.RegisterBuilder("BatchReshape", BuildBatchReshape)
}

func defaultInputs() map[string]string {
	return map[string]string{
		"input": "current_dataloader:sample:speaker_experiences",
	}
}

// Flatten collapses everything past the batch dimension of its input.
type Flatten struct {
	module.Base
}

// BuildFlatten constructs a Flatten module.
func BuildFlatten(id string, cfg module.Config, inputStreams map[string]string) (module.Module, error) {
	return &Flatten{Base: module.NewBase(id, "Flatten", cfg, defaultInputs(), inputStreams)}, nil
}

func (f *Flatten) Compute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	t, err := tensorInput(inputs, "input")
	if err != nil {
		return nil, err
	}
	out, err := t.Flatten()
	if err != nil {
		return nil, err
	}
	return map[string]any{"output": out}, nil
}

// Squeeze removes a configured singleton axis from its input.
type Squeeze struct {
	module.Base
	axis int
}

// BuildSqueeze constructs a Squeeze module; the "axis" option is required.
func BuildSqueeze(id string, cfg module.Config, inputStreams map[string]string) (module.Module, error) {
	axis, err := cfg.RequireInt("axis")
	if err != nil {
		return nil, err
	}
	return &Squeeze{
		Base: module.NewBase(id, "Squeeze", cfg, defaultInputs(), inputStreams),
		axis: axis,
	}, nil
}

func (s *Squeeze) Compute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	t, err := tensorInput(inputs, "input")
	if err != nil {
		return nil, err
	}
	out, err := t.Squeeze(s.axis)
	if err != nil {
		return nil, err
	}
	return map[string]any{"output": out}, nil
}

// BatchReshape reshapes everything past the batch dimension to a configured
// shape.
type BatchReshape struct {
	module.Base
	shape []int
}

// BuildBatchReshape constructs a BatchReshape module; the "shape" option is
// required.
func BuildBatchReshape(id string, cfg module.Config, inputStreams map[string]string) (module.Module, error) {
	shape, err := cfg.RequireIntSlice("shape")
	if err != nil {
		return nil, err
	}
	return &BatchReshape{
		Base:  module.NewBase(id, "BatchReshape", cfg, defaultInputs(), inputStreams),
		shape: shape,
	}, nil
}

func (b *BatchReshape) Compute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	t, err := tensorInput(inputs, "input")
	if err != nil {
		return nil, err
	}
	batch := t.Shape()[0]
	out, err := t.Reshape(append([]int{batch}, b.shape...)...)
	if err != nil {
		return nil, err
	}
	return map[string]any{"output": out}, nil
}

func tensorInput(inputs map[string]any, name string) (*tensor.Tensor, error) {
	v, ok := inputs[name]
	if !ok || v == nil {
		return nil, fmt.Errorf("input %q has not been produced yet", name)
	}
	t, ok := v.(*tensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("input %q: expected tensor, got %T", name, v)
	}
	return t, nil
}
