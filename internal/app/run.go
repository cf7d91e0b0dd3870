package app

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/vk/refgymgo/internal/config"
	"github.com/vk/refgymgo/internal/ctxlog"
	"github.com/vk/refgymgo/internal/dataset"
	"github.com/vk/refgymgo/internal/metrics"
)

// Demo dataset dimensions for runs without a wired-in dataset
// collaborator: ten classes, striped synthetic features.
const (
	demoClasses       = 10
	demoTrainPerClass = 10
	demoTestPerClass  = 2
	demoFeatureDim    = 8
)

// Run executes the experiment end to end over the built-in synthetic
// dataset pairing.
func (a *App) Run(ctx context.Context, appConfig *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	datasets, err := a.demoDatasets()
	if err != nil {
		return fmt.Errorf("building synthetic datasets: %w", err)
	}

	met := metrics.NewSlog(a.logger)
	eng, err := a.BuildEngine(ctx, datasets, met, appConfig.LoadPath)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	a.logger.Info("Starting training run.",
		"run_id", eng.RunID(), "epochs", a.model.Experiment.NbrEpoch)
	if err := eng.Train(ctx, a.model.Experiment.NbrEpoch); err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	a.logger.Info("Training run finished.", "run_id", eng.RunID())

	a.logger.Debug("App.Run method finished.")
	return nil
}

// demoDatasets builds the synthetic train/test pairing used when no real
// dataset collaborator is wired in.
func (a *App) demoDatasets() (map[string]*dataset.DualLabeled, error) {
	exp := a.model.Experiment
	rng := rand.New(rand.NewSource(exp.Seed))

	train, err := dataset.NewSynthetic(demoClasses, demoTrainPerClass, demoFeatureDim)
	if err != nil {
		return nil, err
	}
	test, err := dataset.NewSynthetic(demoClasses, demoTestPerClass, demoFeatureDim)
	if err != nil {
		return nil, err
	}

	out := make(map[string]*dataset.DualLabeled, 2)
	for _, mode := range []string{config.ModeTrain, config.ModeTest} {
		dual, err := dataset.NewDualLabeled(dataset.DualConfig{
			Train:          train,
			Test:           test,
			Mode:           mode,
			NbrDistractors: exp.NbrDistractors,
			SampleRetryCap: exp.SampleRetryCap,
			Rng:            rng,
		})
		if err != nil {
			return nil, err
		}
		out[mode] = dual
	}
	return out, nil
}
