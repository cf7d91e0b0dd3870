package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vk/refgymgo/internal/config"
	"github.com/vk/refgymgo/internal/module"
)

// Provider is the interface a built-in module package implements to be
// compiled into the binary.
type Provider interface {
	Register(r *Registry)
}

// Registry maps module type tags to their builder functions for a single
// application instance.
type Registry struct {
	builders map[string]module.Builder
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{builders: make(map[string]module.Builder)}
}

// RegisterBuilder registers the builder for a module type tag. Registering
// the same tag twice is a programmer error.
func (r *Registry) RegisterBuilder(typeTag string, b module.Builder) {
	if _, exists := r.builders[typeTag]; exists {
		panic(fmt.Sprintf("module builder for type %q already registered", typeTag))
	}
	slog.Debug("Registering module builder.", "type", typeTag)
	r.builders[typeTag] = b
}

// Builder returns the builder for a type tag.
func (r *Registry) Builder(typeTag string) (module.Builder, bool) {
	b, ok := r.builders[typeTag]
	return b, ok
}

// Build constructs a module instance of the given type.
func (r *Registry) Build(typeTag, id string, cfg module.Config, inputStreams map[string]string) (module.Module, error) {
	b, ok := r.builders[typeTag]
	if !ok {
		return nil, fmt.Errorf("no builder registered for module type %q", typeTag)
	}
	mod, err := b(id, cfg, inputStreams)
	if err != nil {
		return nil, fmt.Errorf("building module %q (type %q): %w", id, typeTag, err)
	}
	return mod, nil
}

// Types returns the registered type tags, sorted.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.builders))
	for tag := range r.builders {
		types = append(types, tag)
	}
	sort.Strings(types)
	return types
}

// Validate performs a strict parity check between the loaded experiment
// model and the registered builders: every module block must name a known
// type, and every pipeline entry must name a declared module instance.
func (r *Registry) Validate(model *config.Model) error {
	var errs []string

	declared := make(map[string]struct{}, len(model.Modules))
	for _, m := range model.Modules {
		declared[m.ID] = struct{}{}
		if _, ok := r.builders[m.Type]; !ok {
			errs = append(errs, fmt.Sprintf("module %q: no builder registered for type %q", m.ID, m.Type))
		}
	}

	for _, p := range model.Pipelines {
		if len(p.ModuleIDs) == 0 {
			errs = append(errs, fmt.Sprintf("pipeline %q: empty module list", p.ID))
		}
		for _, id := range p.ModuleIDs {
			if _, ok := declared[id]; !ok {
				errs = append(errs, fmt.Sprintf("pipeline %q: references undeclared module %q", p.ID, id))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
