package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/refgymgo/internal/config"
	"github.com/vk/refgymgo/internal/ctxlog"
	"github.com/vk/refgymgo/internal/dataset"
	"github.com/vk/refgymgo/internal/engine"
	"github.com/vk/refgymgo/internal/metrics"
	"github.com/vk/refgymgo/internal/module"
	"github.com/vk/refgymgo/internal/pipeline"
	"github.com/vk/refgymgo/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	model    *config.Model
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and registry, a
// loaded experiment model and a validated builder registry. Configuration
// failures at this stage are fatal startup errors and panic; the CLI
// boundary recovers them into a clean exit.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, providers ...registry.Provider) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, appConfig.ConfigPath)
	if err != nil {
		panic(fmt.Errorf("failed to load experiment configuration: %w", err))
	}
	logger.Debug("Experiment configuration loaded into unified model.")

	reg := registry.New()
	if len(providers) == 0 {
		providers = coreProviders
	}
	for _, p := range providers {
		p.Register(reg)
	}
	logger.Debug("All module providers registered.", "types", reg.Types())

	if err := reg.Validate(model); err != nil {
		// A mismatch between config and compiled builders is a startup
		// error, not something to discover mid-epoch.
		panic(err)
	}
	logger.Debug("Registry validation passed.")

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		model:    model,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry { return a.registry }

// Model returns the loaded experiment model. This is primarily for testing.
func (a *App) Model() *config.Model { return a.model }

// BuildEngine constructs every declared module through the registry and
// assembles the engine around the provided datasets and metric sink.
func (a *App) BuildEngine(ctx context.Context, datasets map[string]*dataset.DualLabeled, met metrics.Logger, loadPath string) (*engine.Engine, error) {
	mods := make(map[string]module.Module, len(a.model.Modules))
	for _, decl := range a.model.Modules {
		m, err := a.registry.Build(decl.Type, decl.ID, module.Config(decl.Config), decl.InputStreams)
		if err != nil {
			return nil, err
		}
		mods[decl.ID] = m
	}

	pipelines := make([]pipeline.Pipeline, 0, len(a.model.Pipelines))
	for _, decl := range a.model.Pipelines {
		pipelines = append(pipelines, pipeline.Pipeline{ID: decl.ID, ModuleIDs: decl.ModuleIDs})
	}

	eng, err := engine.New(ctx, engine.Options{
		Experiment:        a.model.Experiment,
		Datasets:          datasets,
		Modules:           mods,
		Pipelines:         pipelines,
		Metrics:           met,
		LoadPath:          loadPath,
		SavePath:          a.model.Experiment.SavePath,
		SaveEpochInterval: a.model.Experiment.SaveEpochInterval,
	})
	if err != nil {
		return nil, err
	}

	// The metric sink is itself addressable as a stream, so logger modules
	// can declare it as an input.
	eng.Handler().Update("modules:logger:ref", met)
	return eng, nil
}
