package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/refgymgo/internal/config"
	"github.com/vk/refgymgo/internal/ctxlog"
	"github.com/vk/refgymgo/internal/loader"
	"github.com/vk/refgymgo/internal/streams"
)

// communicationTag marks the pipelines served once per communication round.
const communicationTag = "referential_game"

// accuracyTag selects the logs_dict series the curriculum tracks.
const accuracyTag = "/referential_game_accuracy"

// Train runs the full iteration state machine for nbrEpoch epochs,
// resuming counters from the signals namespace when a checkpoint was
// loaded. Cancellation is honored at epoch boundaries only; there is no
// mid-iteration abort short of a module failure.
func (e *Engine) Train(ctx context.Context, nbrEpoch int) error {
	logger := ctxlog.FromContext(ctx)
	modes := e.modes()

	itDatasamples := e.signalIntMap("signals:it_datasamples", modes)
	itSamples := e.signalIntMap("signals:it_samples", modes)
	itSteps := e.signalIntMap("signals:it_steps", modes)

	cur := newCurriculum(e.cfg)
	if cur.enabled {
		start := e.signalInt("signals:curriculum_nbr_distractors", 1)
		for mode, ds := range e.datasets {
			ds.SetNbrDistractors(start, mode)
		}
	}

	initEpoch := e.signalInt("signals:epoch", 0)
	logger.Info("Launching training.",
		"run_id", e.runID, "from_epoch", initEpoch, "to_epoch", nbrEpoch, "modes", modes)

	for epoch := initEpoch; epoch < nbrEpoch; epoch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		e.handler.Update("signals:epoch", epoch)

		for itDataset, mode := range modes {
			ds := e.datasets[mode]
			ds.SetMode(mode)
			e.handler.Update("current_dataset:ref", ds)
			e.handler.Update("signals:mode", mode)
			e.handler.Update("signals:end_of_epoch_dataset", itDataset == len(modes)-1)

			nbrRepetition := 1
			if strings.Contains(mode, config.ModeTrain) {
				nbrRepetition = e.cfg.NbrExperienceRepetition
			}

			ld, err := loader.New(ds, e.cfg.BatchSize, prefetchDepth, e.rng)
			if err != nil {
				return fmt.Errorf("building loader for mode %q: %w", mode, err)
			}
			numBatches := ld.NumBatches()

			// The loader runs under its own cancellable context so that an
			// early return stops the prefetch goroutine rather than leaving
			// it parked on a full channel.
			ldCtx, stopLoader := context.WithCancel(ctx)
			idxStimulus := 0
			err = func() error {
				defer stopLoader()
				for result := range ld.Batches(ldCtx) {
					if result.Err != nil {
						return fmt.Errorf("data loading failed in mode %q: %w", mode, result.Err)
					}

					e.handler.Update("signals:end_of_dataset", idxStimulus == numBatches-1)
					itDatasamples[mode]++
					e.handler.Update("signals:it_datasamples", itDatasamples)
					e.handler.Update("signals:global_it_datasample", itDatasamples[mode])
					e.handler.Update("signals:it_datasample", idxStimulus)

					acc, accFound := 0.0, false
					for itRep := 0; itRep < nbrRepetition; itRep++ {
						itSamples[mode]++
						e.handler.Update("signals:it_samples", itSamples)
						e.handler.Update("signals:global_it_sample", itSamples[mode])
						e.handler.Update("signals:it_sample", itRep)
						e.handler.Update("signals:end_of_repetition_sequence", itRep == nbrRepetition-1)

						itStep, err := e.runCommunicationRounds(ctx, mode, itSteps, result.Batch)
						if err != nil {
							return err
						}

						for _, p := range e.pipelines {
							if strings.Contains(p.ID, communicationTag) {
								continue
							}
							if err := p.Serve(ctx, e.handler); err != nil {
								return err
							}
						}

						loss := e.sumLosses()
						if a, ok := e.lastAccuracy(); ok {
							acc, accFound = a, true
						}
						e.metrics.Scalar(mode+"/Loss", loss, itStep)

						logger.Debug("Iteration complete.",
							"epoch", epoch, "mode", mode,
							"batch", fmt.Sprintf("%d/%d", idxStimulus+1, numBatches),
							"loss", loss)

						e.handler.Reset(streams.LossesDict)
						e.handler.Reset(streams.LogsDict)

						if cur.enabled {
							n := ds.NbrDistractors(mode)
							e.handler.Update("signals:curriculum_nbr_distractors", n)
							e.metrics.Scalar(mode+"/CurriculumNbrDistractors", float64(n), itStep)
							e.metrics.Scalar(mode+"/CurriculumWindowedAcc", cur.windowedAccuracy, itStep)
						}
					}

					if cur.enabled && strings.Contains(mode, config.ModeTrain) && accFound {
						if cur.observe(acc, ds.NbrDistractors(mode), e.cfg.NbrDistractors[mode]) {
							for m, d := range e.datasets {
								d.SetNbrDistractors(d.NbrDistractors(m)+1, m)
							}
							logger.Info("Curriculum advanced: distractor count incremented.",
								"mode", mode, "nbr_distractors", ds.NbrDistractors(mode))
						}
					}
					idxStimulus++
				}
				return nil
			}()
			if err != nil {
				return err
			}
		}

		if e.saveEpochInterval > 0 && epoch%e.saveEpochInterval == 0 {
			e.Save(ctx, e.savePath)
		}
	}
	return nil
}

// runCommunicationRounds serves the communication pipelines once per round
// and returns the step counter after the last round.
func (e *Engine) runCommunicationRounds(ctx context.Context, mode string, itSteps map[string]int, batch loader.Batch) (int, error) {
	for idxRound := 0; idxRound < e.cfg.NbrCommunicationRound; idxRound++ {
		itSteps[mode]++
		e.handler.Update("signals:it_steps", itSteps)
		e.handler.Update("signals:global_it_step", itSteps[mode])
		e.handler.Update("signals:it_step", idxRound)

		endOfCommunication := idxRound == e.cfg.NbrCommunicationRound-1
		e.handler.Update("signals:end_of_communication", endOfCommunication)
		e.handler.Update("signals:multi_round", !endOfCommunication)
		e.handler.Update("current_dataloader:sample", map[string]any(batch))

		for _, p := range e.pipelines {
			if !strings.Contains(p.ID, communicationTag) {
				continue
			}
			if err := p.Serve(ctx, e.handler); err != nil {
				return 0, err
			}
		}
	}
	return itSteps[mode], nil
}

// sumLosses totals the most recent entry of every series in losses_dict.
func (e *Engine) sumLosses() float64 {
	total := 0.0
	for _, series := range flattenSeries("", e.handler.Get(streams.LossesDict)) {
		if len(series) == 0 {
			continue
		}
		if s, ok := toScalar(series[len(series)-1]); ok {
			total += s
		}
	}
	return total
}

// lastAccuracy returns the freshest accuracy reading in logs_dict, keyed by
// the accuracyTag convention.
func (e *Engine) lastAccuracy() (float64, bool) {
	logs := flattenSeries("", e.handler.Get(streams.LogsDict))
	var keys []string
	for k := range logs {
		if strings.Contains(k, accuracyTag) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return 0, false
	}
	sort.Strings(keys)
	series := logs[keys[len(keys)-1]]
	if len(series) == 0 {
		return 0, false
	}
	return toScalar(series[len(series)-1])
}

// flattenSeries collects every accumulated series under a namespace,
// joining nested keys with the stream separator.
func flattenSeries(prefix string, node any) map[string][]any {
	out := make(map[string][]any)
	switch v := node.(type) {
	case []any:
		out[prefix] = v
	case map[string]any:
		for key, child := range v {
			joined := key
			if prefix != "" {
				joined = prefix + streams.Separator + key
			}
			for k, series := range flattenSeries(joined, child) {
				out[k] = series
			}
		}
	}
	return out
}
