package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/vk/refgymgo/internal/config"
	"github.com/vk/refgymgo/internal/ctxlog"
	"github.com/vk/refgymgo/internal/dataset"
	"github.com/vk/refgymgo/internal/metrics"
	"github.com/vk/refgymgo/internal/module"
	"github.com/vk/refgymgo/internal/pipeline"
	"github.com/vk/refgymgo/internal/streams"
)

// prefetchDepth bounds how many batches the loader produces ahead of the
// iteration consuming them.
const prefetchDepth = 2

// Options configures an Engine.
type Options struct {
	Experiment *config.Experiment
	// Datasets maps dataset mode to its dual-labeled pairing. The train
	// mode is iterated before the test mode within an epoch.
	Datasets map[string]*dataset.DualLabeled
	Modules  map[string]module.Module
	// Pipelines execute in declared order. Pipelines whose id contains
	// "referential_game" are served once per communication round; all
	// others once per experience repetition, after the round loop.
	Pipelines []pipeline.Pipeline
	Metrics   metrics.Logger
	// LoadPath, when set, restores config, module state, pipeline
	// definitions and the signals namespace from a checkpoint directory.
	LoadPath string
	// SavePath receives periodic checkpoints every SaveEpochInterval
	// epochs when the interval is positive.
	SavePath          string
	SaveEpochInterval int
}

// Engine owns the stream handler and drives the whole training run.
type Engine struct {
	cfg       *config.Experiment
	handler   *streams.Handler
	datasets  map[string]*dataset.DualLabeled
	modules   map[string]module.Module
	pipelines []pipeline.Pipeline
	metrics   metrics.Logger
	rng       *rand.Rand
	runID     string

	savePath          string
	saveEpochInterval int
}

// New wires an engine: pre-registers the stream namespaces, restores any
// checkpoint, publishes config entries and module references into the
// handler, and seeds the shared random source exactly once.
func New(ctx context.Context, opts Options) (*Engine, error) {
	logger := ctxlog.FromContext(ctx)

	cfg := opts.Experiment
	if cfg == nil {
		cfg = config.Defaults()
	}
	if len(opts.Datasets) == 0 {
		return nil, fmt.Errorf("engine requires at least one dataset mode")
	}
	met := opts.Metrics
	if met == nil {
		met = metrics.Nop{}
	}

	e := &Engine{
		cfg:               cfg,
		handler:           streams.New(),
		datasets:          opts.Datasets,
		modules:           make(map[string]module.Module, len(opts.Modules)),
		pipelines:         append([]pipeline.Pipeline(nil), opts.Pipelines...),
		metrics:           met,
		runID:             uuid.NewString(),
		savePath:          opts.SavePath,
		saveEpochInterval: opts.SaveEpochInterval,
	}
	for id, m := range opts.Modules {
		if id != m.ID() {
			return nil, fmt.Errorf("module registered under %q reports id %q", id, m.ID())
		}
		e.modules[id] = m
	}

	if opts.LoadPath != "" {
		e.load(ctx, opts.LoadPath)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment configuration: %w", err)
	}
	e.rng = rand.New(rand.NewSource(e.cfg.Seed))

	// Hyperparameters and module references become streams so modules can
	// declare them as inputs like any other value.
	e.handler.Register("config")
	for key, value := range e.cfg.AsStreamMap() {
		e.handler.Update("config:"+key, value)
	}
	for id, m := range e.modules {
		e.handler.Update(module.RefPath(id), m)
	}
	e.handler.Update("signals:run_id", e.runID)

	logger.Debug("Engine constructed.",
		"run_id", e.runID, "modules", len(e.modules), "pipelines", len(e.pipelines))
	return e, nil
}

// Handler exposes the stream handler, primarily for tests and for external
// collaborators that need to seed extra streams before a run.
func (e *Engine) Handler() *streams.Handler { return e.handler }

// RunID returns the unique identifier of this run.
func (e *Engine) RunID() string { return e.runID }

// modes returns the dataset iteration order: train first, then test.
func (e *Engine) modes() []string {
	var order []string
	for _, mode := range []string{config.ModeTrain, config.ModeTest} {
		if _, ok := e.datasets[mode]; ok {
			order = append(order, mode)
		}
	}
	var extra []string
	for mode := range e.datasets {
		if mode != config.ModeTrain && mode != config.ModeTest {
			extra = append(extra, mode)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}
