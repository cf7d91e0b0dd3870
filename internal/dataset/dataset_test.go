package dataset_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/refgymgo/internal/config"
	"github.com/vk/refgymgo/internal/dataset"
	"github.com/vk/refgymgo/internal/tensor"
	"github.com/vk/refgymgo/internal/testutil"
)

const featDim = 2

func newDual(t *testing.T, trainLabels, testLabels []int, distractors int) *dataset.DualLabeled {
	t.Helper()
	d, err := dataset.NewDualLabeled(dataset.DualConfig{
		Train: testutil.NewMapDataset(trainLabels, featDim),
		Test:  testutil.NewMapDataset(testLabels, featDim),
		NbrDistractors: map[string]int{
			config.ModeTrain: distractors,
			config.ModeTest:  distractors,
		},
		Rng: rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)
	return d
}

func TestNewDualLabeled_Validation(t *testing.T) {
	t.Parallel()

	_, err := dataset.NewDualLabeled(dataset.DualConfig{
		Train: testutil.NewMapDataset([]int{0}, featDim),
		Test:  testutil.NewMapDataset([]int{0}, featDim),
	})
	require.Error(t, err, "a missing rng must be rejected")

	_, err = dataset.NewDualLabeled(dataset.DualConfig{
		Rng: rand.New(rand.NewSource(1)),
	})
	require.Error(t, err, "both partitions are mandatory")
}

func TestDualLabeled_PartitionUnion(t *testing.T) {
	t.Parallel()

	// Train knows classes 0 and 1; test adds class 2. Train classes are
	// unioned into the test side, test-only classes never leak back.
	d := newDual(t, []int{0, 0, 1}, []int{2}, 1)

	d.SetMode(config.ModeTrain)
	require.Equal(t, 2, d.NbrClasses())
	require.Equal(t, 3, d.Len())

	d.SetMode(config.ModeTest)
	require.Equal(t, 3, d.NbrClasses())
	require.Equal(t, 1, d.Len())
}

func TestSample_TargetPlusDistractors(t *testing.T) {
	t.Parallel()

	// Class 0 holds indices 0,1,2; class 1 holds indices 3,4.
	d := newDual(t, []int{0, 0, 0, 1, 1}, []int{0, 1}, 1)

	sample, err := d.Sample(0, nil, nil, false)
	require.NoError(t, err)

	indices, ok := sample[dataset.KeyIndices].([]int)
	require.True(t, ok)
	require.Len(t, indices, 2, "one target plus one distractor")
	require.Equal(t, 0, indices[0], "the target always leads the group")
	require.NotEqual(t, indices[0], indices[1])

	exp, ok := sample[dataset.KeyExperiences].(*tensor.Tensor)
	require.True(t, ok)
	require.Equal(t, []int{2, 1, featDim}, exp.Shape(), "experiences carry a singleton stimulus axis")

	labels, ok := sample[dataset.KeyLabels].([]int)
	require.True(t, ok)
	require.Len(t, labels, 2)
	require.Equal(t, 0, labels[0])
}

func TestSample_TargetOnly(t *testing.T) {
	t.Parallel()

	d := newDual(t, []int{0, 0, 0, 1, 1}, []int{0, 1}, 3)

	sample, err := d.Sample(2, nil, nil, true)
	require.NoError(t, err)
	require.Equal(t, []int{2}, sample[dataset.KeyIndices])

	exp := sample[dataset.KeyExperiences].(*tensor.Tensor)
	require.Equal(t, []int{1, 1, featDim}, exp.Shape())
}

func TestSample_ExceptsAreExcluded(t *testing.T) {
	t.Parallel()

	d := newDual(t, []int{0, 0, 0, 1, 1}, []int{0, 1}, 1)

	// Excluding everything but index 4 makes the draw deterministic.
	sample, err := d.Sample(0, nil, []int{1, 2, 3}, false)
	require.NoError(t, err)
	require.Equal(t, []int{0, 4}, sample[dataset.KeyIndices])
}

func TestSample_FromClassRestriction(t *testing.T) {
	t.Parallel()

	d := newDual(t, []int{0, 0, 0, 1, 1}, []int{0, 1}, 2)

	sample, err := d.Sample(0, []int{0}, nil, false)
	require.NoError(t, err)
	indices := sample[dataset.KeyIndices].([]int)
	require.ElementsMatch(t, []int{0, 1, 2}, indices, "distractors stay within the candidate class")
}

func TestSample_TargetMustBelongToCandidateClasses(t *testing.T) {
	t.Parallel()

	d := newDual(t, []int{0, 0, 0, 1, 1}, []int{0, 1}, 1)

	_, err := d.Sample(0, []int{1}, nil, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a member of candidate classes")
}

func TestSample_WidensToAllClassesWhenSparse(t *testing.T) {
	t.Parallel()

	// Class 0 holds only the target; classes must widen to satisfy two
	// distractors out of class 1.
	d := newDual(t, []int{0, 1, 1}, []int{0, 1}, 2)

	sample, err := d.Sample(0, []int{0}, nil, false)
	require.NoError(t, err)
	require.ElementsMatch(t, []int{0, 1, 2}, sample[dataset.KeyIndices].([]int))
}

func TestSample_FailsWhenWideningCannotHelp(t *testing.T) {
	t.Parallel()

	// Only two candidates exist in total; five distractors are impossible.
	d := newDual(t, []int{0, 1, 1}, []int{0, 1}, 5)

	_, err := d.Sample(0, nil, nil, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot sample 5 distractors")
}

func TestSample_OneHotLatents(t *testing.T) {
	t.Parallel()

	// Union over train {0,1} and test {2} spans three classes, so every
	// derived latent is a length-3 one-hot row.
	d := newDual(t, []int{0, 0, 1}, []int{2}, 1)

	sample, err := d.Sample(0, nil, nil, false)
	require.NoError(t, err)

	latents, ok := sample[dataset.KeyLatents].(*tensor.Tensor)
	require.True(t, ok)
	require.Equal(t, []int{2, 3}, latents.Shape())

	labels := sample[dataset.KeyLabels].([]int)
	for row, label := range labels {
		for col := 0; col < 3; col++ {
			want := 0.0
			if col == label {
				want = 1.0
			}
			require.Equal(t, want, latents.At(row, col), "row %d", row)
		}
	}

	values, ok := sample[dataset.KeyLatentsValues].(*tensor.Tensor)
	require.True(t, ok)
	require.Equal(t, []int{2, 3}, values.Shape())
}

// latentDataset supplies real-valued exp_latents but no exp_latents_values.
type latentDataset struct {
	*testutil.MapDataset
	latDim int
}

func (l *latentDataset) Get(idx int) (map[string]any, error) {
	item, err := l.MapDataset.Get(idx)
	if err != nil {
		return nil, err
	}
	data := make([]float64, l.latDim)
	for i := range data {
		data[i] = float64(idx) + float64(i)/10
	}
	latent, err := tensor.New([]int{l.latDim}, data)
	if err != nil {
		return nil, err
	}
	item[dataset.KeyLatents] = latent
	return item, nil
}

func TestSample_SuppliedLatentsDefaultTheValues(t *testing.T) {
	t.Parallel()

	const latDim = 4
	wrap := func(labels []int) *latentDataset {
		return &latentDataset{
			MapDataset: testutil.NewMapDataset(labels, featDim),
			latDim:     latDim,
		}
	}
	d, err := dataset.NewDualLabeled(dataset.DualConfig{
		Train:          wrap([]int{0, 0, 1, 1}),
		Test:           wrap([]int{0, 1}),
		NbrDistractors: map[string]int{config.ModeTrain: 1},
		Rng:            rand.New(rand.NewSource(1)),
	})
	require.NoError(t, err)

	sample, err := d.Sample(0, nil, nil, false)
	require.NoError(t, err)

	// The supplied latents pass through untouched (no one-hot derivation).
	latents, ok := sample[dataset.KeyLatents].(*tensor.Tensor)
	require.True(t, ok)
	require.Equal(t, []int{2, latDim}, latents.Shape())

	// The missing values key defaults to the supplied latents, one row
	// per sampled item.
	values, ok := sample[dataset.KeyLatentsValues].(*tensor.Tensor)
	require.True(t, ok)
	require.Equal(t, []int{2, latDim}, values.Shape())
	require.Equal(t, latents.Data(), values.Data())

	indices := sample[dataset.KeyIndices].([]int)
	require.Equal(t, 0.0, values.At(0, 0), "the target row carries its own latents")
	require.Equal(t, float64(indices[1]), values.At(1, 0))
}

func TestSample_TestModeUsesGlobalIndexSpace(t *testing.T) {
	t.Parallel()

	d := newDual(t, []int{0, 0, 1}, []int{0, 1}, 1)
	d.SetMode(config.ModeTest)

	// Test item 1 lives at global index 4 (train length 3 + local 1).
	sample, err := d.Sample(1, nil, nil, false)
	require.NoError(t, err)
	indices := sample[dataset.KeyIndices].([]int)
	require.Equal(t, 4, indices[0])
	require.Equal(t, 1, sample[dataset.KeyLabels].([]int)[0])
}

func TestSetNbrDistractors_GrowsTheGroup(t *testing.T) {
	t.Parallel()

	d := newDual(t, []int{0, 0, 0, 1, 1}, []int{0, 1}, 1)
	d.SetNbrDistractors(3, config.ModeTrain)
	require.Equal(t, 3, d.NbrDistractors(config.ModeTrain))

	sample, err := d.Sample(0, nil, nil, false)
	require.NoError(t, err)
	require.Len(t, sample[dataset.KeyIndices].([]int), 4)
}

func TestSynthetic(t *testing.T) {
	t.Parallel()

	s, err := dataset.NewSynthetic(3, 4, 5)
	require.NoError(t, err)
	require.Equal(t, 12, s.Len())

	cl, err := s.ClassOf(7)
	require.NoError(t, err)
	require.Equal(t, 1, cl)

	item, err := s.Get(7)
	require.NoError(t, err)
	require.Equal(t, 1, item[dataset.KeyLabels])
	exp := item[dataset.KeyExperiences].(*tensor.Tensor)
	require.Equal(t, []int{5}, exp.Shape())

	// Deterministic: the same index always yields the same features.
	again, err := s.Get(7)
	require.NoError(t, err)
	require.Equal(t, exp.Data(), again[dataset.KeyExperiences].(*tensor.Tensor).Data())

	_, err = s.ClassOf(12)
	require.Error(t, err)

	_, err = dataset.NewSynthetic(0, 1, 1)
	require.Error(t, err)
}
