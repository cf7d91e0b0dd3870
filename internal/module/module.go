// Package module defines the contract every computation unit in a pipeline
// implements: a unique id, a type tag, an immutable configuration, a declared
// mapping from internal input names to stream paths, and a single Compute
// operation producing named outputs.
package module

import (
	"context"
	"fmt"
)

// Module is the single capability a pipeline needs from a computation unit.
//
// Compute must be a function of its declared inputs plus the module's own
// internal state. A module never reads or writes a stream path outside its
// declared input map and its own "modules:<id>:*" namespace; this is a
// convention every concrete module must honor. A Compute error propagates
// uncaught through the serving pipeline: a bad experiment fails fast and
// loud rather than silently producing wrong numbers.
type Module interface {
	ID() string
	Type() string
	InputStreams() map[string]string
	Compute(ctx context.Context, inputs map[string]any) (map[string]any, error)
}

// Stateful is implemented by modules that carry state worth persisting in a
// checkpoint (learned parameters, accumulated buffers).
type Stateful interface {
	StateMap() map[string]any
	RestoreState(state map[string]any) error
}

// Builder constructs a module of one registered type. inputStreams may be
// nil to accept the type's default input map, or a partial map to rewire
// individual inputs without changing the module's code.
type Builder func(id string, config Config, inputStreams map[string]string) (Module, error)

// Base carries the id/type/config/input-map plumbing shared by every
// module; concrete modules embed it and implement Compute.
type Base struct {
	id           string
	typeTag      string
	config       Config
	inputStreams map[string]string
}

// NewBase builds the shared module plumbing. defaults is the type's default
// input-stream map; overrides (may be nil) rewires individual internal
// names to different stream paths.
func NewBase(id, typeTag string, config Config, defaults, overrides map[string]string) Base {
	merged := make(map[string]string, len(defaults))
	for name, path := range defaults {
		merged[name] = path
	}
	for name, path := range overrides {
		merged[name] = path
	}
	if config == nil {
		config = Config{}
	}
	return Base{id: id, typeTag: typeTag, config: config, inputStreams: merged}
}

func (b *Base) ID() string     { return b.id }
func (b *Base) Type() string   { return b.typeTag }
func (b *Base) Config() Config { return b.config }

// InputStreams returns the declared internal-name to stream-path mapping.
// Callers must not mutate the returned map.
func (b *Base) InputStreams() map[string]string { return b.inputStreams }

// OutputPath returns the stream path a named output of this module is
// committed to by a serving pipeline.
func (b *Base) OutputPath(name string) string {
	return fmt.Sprintf("modules:%s:%s", b.id, name)
}

// RefPath returns the stream path under which the module instance itself is
// registered.
func RefPath(id string) string {
	return fmt.Sprintf("modules:%s:ref", id)
}
