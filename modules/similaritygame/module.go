// Package similaritygame provides a non-neural referential game baseline:
// the listener picks the candidate whose features are closest to the
// speaker's target by cosine similarity. It gives pipelines a live game to
// play when the neural agent collaborators are not wired in, and its
// accuracy series feeds the distractor curriculum.
package similaritygame

import (
	"context"
	"fmt"
	"math"

	"github.com/vk/refgymgo/internal/module"
	"github.com/vk/refgymgo/internal/registry"
	"github.com/vk/refgymgo/internal/tensor"
)

// Module implements the registry.Provider interface for this package.
type Module struct{}

// Register registers the SimilarityGame builder.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterBuilder("SimilarityGame", Build)
}

func defaultInputs() map[string]string {
	return map[string]string{
		"speaker_experiences":  "current_dataloader:sample:speaker_experiences",
		"listener_experiences": "current_dataloader:sample:listener_experiences",
		"target_decision_idx":  "current_dataloader:sample:target_decision_idx",
		"mode":                 "signals:mode",
	}
}

// Game scores one batch per call and keeps running decision counts as
// internal state, persisted across checkpoints.
type Game struct {
	module.Base
	rounds  int
	correct int
}

// Build constructs a SimilarityGame module.
func Build(id string, cfg module.Config, inputStreams map[string]string) (module.Module, error) {
	return &Game{Base: module.NewBase(id, "SimilarityGame", cfg, defaultInputs(), inputStreams)}, nil
}

func (g *Game) Compute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	speaker, ok := inputs["speaker_experiences"].(*tensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("speaker_experiences: expected tensor, got %T", inputs["speaker_experiences"])
	}
	listener, ok := inputs["listener_experiences"].(*tensor.Tensor)
	if !ok {
		return nil, fmt.Errorf("listener_experiences: expected tensor, got %T", inputs["listener_experiences"])
	}
	decisions, ok := inputs["target_decision_idx"].([]int)
	if !ok {
		return nil, fmt.Errorf("target_decision_idx: expected []int, got %T", inputs["target_decision_idx"])
	}
	mode, _ := inputs["mode"].(string)
	if mode == "" {
		mode = "train"
	}

	// speaker: [batch, 1, 1, feat...]; listener: [batch, k, 1, feat...].
	sShape, lShape := speaker.Shape(), listener.Shape()
	if len(sShape) < 3 || len(lShape) < 3 || sShape[0] != lShape[0] {
		return nil, fmt.Errorf("mismatched experience shapes %v vs %v", sShape, lShape)
	}
	batch, candidates := lShape[0], lShape[1]
	feat := listener.Len() / (batch * candidates)
	if batch != len(decisions) {
		return nil, fmt.Errorf("got %d decisions for batch of %d", len(decisions), batch)
	}
	if speaker.Len()/batch != feat {
		return nil, fmt.Errorf("speaker feature size %d does not match listener feature size %d", speaker.Len()/batch, feat)
	}

	sData, lData := speaker.Data(), listener.Data()
	hits := 0
	for b := 0; b < batch; b++ {
		target := sData[b*feat : (b+1)*feat]
		best, bestScore := 0, math.Inf(-1)
		for c := 0; c < candidates; c++ {
			cand := lData[(b*candidates+c)*feat : (b*candidates+c+1)*feat]
			score := cosine(target, cand)
			if score > bestScore {
				best, bestScore = c, score
			}
		}
		if best == decisions[b] {
			hits++
		}
	}

	accuracy := 100.0 * float64(hits) / float64(batch)
	g.rounds++
	g.correct += hits

	return map[string]any{
		"accuracy": accuracy,
		"logs_dict:" + mode + "/referential_game_accuracy": accuracy,
		"losses_dict:" + g.ID() + ":loss":                   1.0 - accuracy/100.0,
	}, nil
}

// StateMap implements module.Stateful.
func (g *Game) StateMap() map[string]any {
	return map[string]any{"rounds": g.rounds, "correct": g.correct}
}

// RestoreState implements module.Stateful.
func (g *Game) RestoreState(state map[string]any) error {
	if v, ok := asInt(state["rounds"]); ok {
		g.rounds = v
	}
	if v, ok := asInt(state["correct"]); ok {
		g.correct = v
	}
	return nil
}

func cosine(a, b []float64) float64 {
	dot, na, nb := 0.0, 0.0, 0.0
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
