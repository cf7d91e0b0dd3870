package similaritygame

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/refgymgo/internal/registry"
	"github.com/vk/refgymgo/internal/tensor"
)

func TestRegister(t *testing.T) {
	t.Parallel()
	r := registry.New()
	(&Module{}).Register(r)
	require.Equal(t, []string{"SimilarityGame"}, r.Types())
}

func newTensor(t *testing.T, shape []int, data []float64) *tensor.Tensor {
	t.Helper()
	tr, err := tensor.New(shape, data)
	require.NoError(t, err)
	return tr
}

func TestGame_ScoresBatch(t *testing.T) {
	t.Parallel()

	m, err := Build("game", nil, nil)
	require.NoError(t, err)
	g := m.(*Game)

	// Two samples, two candidates, two features. The first decision points
	// at the candidate matching the target; the second points away.
	speaker := newTensor(t, []int{2, 1, 1, 2}, []float64{
		1, 0,
		0, 1,
	})
	listener := newTensor(t, []int{2, 2, 1, 2}, []float64{
		0, 1,
		1, 0,

		0, 1,
		1, 0,
	})

	outputs, err := g.Compute(context.Background(), map[string]any{
		"speaker_experiences":  speaker,
		"listener_experiences": listener,
		"target_decision_idx":  []int{1, 1},
		"mode":                 "train",
	})
	require.NoError(t, err)
	require.Equal(t, 50.0, outputs["accuracy"])
	require.Equal(t, 50.0, outputs["logs_dict:train/referential_game_accuracy"])
	require.Equal(t, 0.5, outputs["losses_dict:game:loss"])
}

func TestGame_DefaultsModeWhenUnset(t *testing.T) {
	t.Parallel()

	m, err := Build("game", nil, nil)
	require.NoError(t, err)

	speaker := newTensor(t, []int{1, 1, 1, 2}, []float64{1, 0})
	listener := newTensor(t, []int{1, 2, 1, 2}, []float64{
		1, 0,
		0, 1,
	})

	outputs, err := m.Compute(context.Background(), map[string]any{
		"speaker_experiences":  speaker,
		"listener_experiences": listener,
		"target_decision_idx":  []int{0},
	})
	require.NoError(t, err)
	require.Equal(t, 100.0, outputs["accuracy"])
	require.Contains(t, outputs, "logs_dict:train/referential_game_accuracy")
}

func TestGame_InputValidation(t *testing.T) {
	t.Parallel()

	m, err := Build("game", nil, nil)
	require.NoError(t, err)

	speaker := newTensor(t, []int{1, 1, 1, 2}, []float64{1, 0})
	listener := newTensor(t, []int{1, 2, 1, 2}, []float64{1, 0, 0, 1})

	cases := []struct {
		name   string
		inputs map[string]any
	}{
		{
			name: "missing speaker tensor",
			inputs: map[string]any{
				"listener_experiences": listener,
				"target_decision_idx":  []int{0},
			},
		},
		{
			name: "missing decisions",
			inputs: map[string]any{
				"speaker_experiences":  speaker,
				"listener_experiences": listener,
			},
		},
		{
			name: "decision count mismatch",
			inputs: map[string]any{
				"speaker_experiences":  speaker,
				"listener_experiences": listener,
				"target_decision_idx":  []int{0, 1},
			},
		},
		{
			name: "feature size mismatch",
			inputs: map[string]any{
				"speaker_experiences":  newTensor(t, []int{1, 1, 1, 3}, []float64{1, 0, 0}),
				"listener_experiences": listener,
				"target_decision_idx":  []int{0},
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := m.Compute(context.Background(), tc.inputs)
			require.Error(t, err)
		})
	}
}

func TestGame_StatePersistsAcrossCheckpoints(t *testing.T) {
	t.Parallel()

	m, err := Build("game", nil, nil)
	require.NoError(t, err)
	g := m.(*Game)

	speaker := newTensor(t, []int{1, 1, 1, 2}, []float64{1, 0})
	listener := newTensor(t, []int{1, 2, 1, 2}, []float64{
		1, 0,
		0, 1,
	})
	_, err = g.Compute(context.Background(), map[string]any{
		"speaker_experiences":  speaker,
		"listener_experiences": listener,
		"target_decision_idx":  []int{0},
	})
	require.NoError(t, err)

	state := g.StateMap()
	require.Equal(t, 1, state["rounds"])
	require.Equal(t, 1, state["correct"])

	fresh, err := Build("game", nil, nil)
	require.NoError(t, err)
	restored := fresh.(*Game)
	// Checkpoint round-trips may widen integer types.
	require.NoError(t, restored.RestoreState(map[string]any{
		"rounds":  int64(4),
		"correct": int8(3),
	}))
	require.Equal(t, map[string]any{"rounds": 4, "correct": 3}, restored.StateMap())
}
