// Package pipeline executes an author-declared, ordered list of modules
// against a stream handler. No topological ordering is computed and no
// module runs concurrently with another: later modules depend on earlier
// modules' freshly written outputs within the same serve pass.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/refgymgo/internal/ctxlog"
	"github.com/vk/refgymgo/internal/module"
	"github.com/vk/refgymgo/internal/streams"
)

// Pipeline is an ordered sequence of module identifiers defining one
// execution pass. The order is fixed for the whole run.
type Pipeline struct {
	ID        string
	ModuleIDs []string
}

// Serve executes the pipeline once. For each module id, in order, it
// resolves the module from "modules:<id>:ref", reads the module's declared
// input streams, invokes Compute, and commits each named output under
// "modules:<id>:<name>". An output name containing a path separator is
// treated as an absolute stream path, which is how modules append into
// losses_dict and logs_dict.
//
// A Compute error aborts the pass and propagates to the caller; there is no
// retry and no partial-result suppression.
func (p Pipeline) Serve(ctx context.Context, h *streams.Handler) error {
	logger := ctxlog.FromContext(ctx)

	for _, id := range p.ModuleIDs {
		ref := h.Get(module.RefPath(id))
		mod, ok := ref.(module.Module)
		if !ok {
			return fmt.Errorf("pipeline %q: module %q is not registered in the stream handler", p.ID, id)
		}

		inputs := make(map[string]any, len(mod.InputStreams()))
		for name, path := range mod.InputStreams() {
			inputs[name] = h.Get(path)
		}

		outputs, err := mod.Compute(ctx, inputs)
		if err != nil {
			return fmt.Errorf("pipeline %q: module %q compute failed: %w", p.ID, id, err)
		}

		for name, value := range outputs {
			if strings.Contains(name, streams.Separator) {
				h.Update(name, value)
				continue
			}
			h.Update(fmt.Sprintf("modules:%s:%s", id, name), value)
		}
		logger.Debug("Module served.", "pipeline", p.ID, "module", id, "outputs", len(outputs))
	}
	return nil
}
