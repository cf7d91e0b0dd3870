package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vk/refgymgo/internal/config"
	"github.com/vk/refgymgo/internal/ctxlog"
	"github.com/vk/refgymgo/internal/module"
	"github.com/vk/refgymgo/internal/pipeline"
	"github.com/vk/refgymgo/internal/streams"
)

// Checkpoint artifact names. Each artifact stands alone so a partial
// save or load can proceed for the rest.
const (
	configArtifact    = "config.conf"
	pipelinesArtifact = "pipelines.pipe"
	signalsArtifact   = "signals.conf"
	moduleArtifactExt = ".mod"
)

// Save persists the four checkpoint artifacts into path. Failures are
// logged per artifact and never abort the remaining ones.
func (e *Engine) Save(ctx context.Context, path string) {
	logger := ctxlog.FromContext(ctx)
	if path == "" {
		path = "./temp_save/"
		logger.Warn("No save path configured, using fallback.", "path", path)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		logger.Error("Cannot create checkpoint directory.", "path", path, "error", err)
		return
	}

	if err := writeArtifact(filepath.Join(path, configArtifact), e.cfg); err != nil {
		logger.Error("Failed to save config artifact.", "error", err)
	}
	e.saveModules(ctx, path)
	if err := writeArtifact(filepath.Join(path, pipelinesArtifact), e.pipelines); err != nil {
		logger.Error("Failed to save pipelines artifact.", "error", err)
	}
	if err := writeArtifact(filepath.Join(path, signalsArtifact), e.handler.Get(streams.Signals)); err != nil {
		logger.Error("Failed to save signals artifact.", "error", err)
	}

	logger.Info("Checkpoint saved.", "path", path)
}

func (e *Engine) saveModules(ctx context.Context, path string) {
	logger := ctxlog.FromContext(ctx)
	for id, m := range e.modules {
		stateful, ok := m.(module.Stateful)
		if !ok {
			continue
		}
		file := filepath.Join(path, id+moduleArtifactExt)
		if err := writeArtifact(file, stateful.StateMap()); err != nil {
			logger.Error("Failed to save module artifact.", "module", id, "error", err)
		}
	}
}

// load restores the artifacts found in path. Each artifact is attempted
// individually; a missing or corrupt one is logged and skipped.
func (e *Engine) load(ctx context.Context, path string) {
	logger := ctxlog.FromContext(ctx)

	var cfg config.Experiment
	if err := readArtifact(filepath.Join(path, configArtifact), &cfg); err != nil {
		logger.Error("Failed to load config artifact.", "error", err)
	} else {
		e.cfg = &cfg
	}

	for id, m := range e.modules {
		stateful, ok := m.(module.Stateful)
		if !ok {
			continue
		}
		var state map[string]any
		file := filepath.Join(path, id+moduleArtifactExt)
		if err := readArtifact(file, &state); err != nil {
			logger.Error("Failed to load module artifact.", "module", id, "error", err)
			continue
		}
		if err := stateful.RestoreState(state); err != nil {
			logger.Error("Failed to restore module state.", "module", id, "error", err)
		}
	}

	var pipelines []pipeline.Pipeline
	if err := readArtifact(filepath.Join(path, pipelinesArtifact), &pipelines); err != nil {
		logger.Error("Failed to load pipelines artifact.", "error", err)
	} else if len(pipelines) > 0 {
		e.pipelines = pipelines
	}

	var signals map[string]any
	if err := readArtifact(filepath.Join(path, signalsArtifact), &signals); err != nil {
		logger.Error("Failed to load signals artifact.", "error", err)
	} else if signals != nil {
		e.handler.Update(streams.Signals, signals)
	}

	logger.Info("Checkpoint loaded.", "path", path)
}

func writeArtifact(file string, v any) error {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", filepath.Base(file), err)
	}
	if err := os.WriteFile(file, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(file), err)
	}
	return nil
}

func readArtifact(file string, v any) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filepath.Base(file), err)
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("deserializing %s: %w", filepath.Base(file), err)
	}
	return nil
}
