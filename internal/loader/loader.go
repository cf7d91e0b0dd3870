// Package loader turns a dual-labeled dataset into shuffled, collated
// batches of grouped samples, produced ahead of consumption by a bounded
// prefetch worker. A delivered batch is immutable for the duration of its
// processing; the loader never touches it again.
package loader

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/vk/refgymgo/internal/dataset"
	"github.com/vk/refgymgo/internal/tensor"
)

// Speaker/listener key prefixes of a collated batch. The speaker view holds
// the target-only sample; the listener view holds target plus distractors
// in shuffled order, with the target's position recorded per sample.
const (
	SpeakerPrefix     = "speaker_"
	ListenerPrefix    = "listener_"
	KeyTargetDecision = "target_decision_idx"
)

// Batch is a collated mapping from stream-addressable keys to batched
// values (stacked tensors where shapes are uniform, plain sequences
// otherwise).
type Batch map[string]any

// Result delivers either a batch or the error that stopped production.
type Result struct {
	Batch Batch
	Err   error
}

// Loader produces batches over the active mode of a dual-labeled dataset.
type Loader struct {
	ds        *dataset.DualLabeled
	batchSize int
	prefetch  int
	rng       *rand.Rand
}

// New builds a loader. prefetch bounds how many batches may be produced
// ahead of consumption; zero means synchronous hand-off.
func New(ds *dataset.DualLabeled, batchSize, prefetch int, rng *rand.Rand) (*Loader, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("loader batch size must be >= 1, got %d", batchSize)
	}
	if rng == nil {
		return nil, fmt.Errorf("loader requires a seeded random source")
	}
	if prefetch < 0 {
		prefetch = 0
	}
	return &Loader{ds: ds, batchSize: batchSize, prefetch: prefetch, rng: rng}, nil
}

// NumBatches returns the number of batches one pass over the active mode
// yields.
func (l *Loader) NumBatches() int {
	n := l.ds.Len()
	return (n + l.batchSize - 1) / l.batchSize
}

// Batches starts one shuffled pass over the active mode. The returned
// channel is closed after the last result; production stops early when ctx
// is cancelled or a sample fails.
func (l *Loader) Batches(ctx context.Context) <-chan Result {
	order := l.rng.Perm(l.ds.Len())
	out := make(chan Result, l.prefetch)

	go func() {
		defer close(out)
		for start := 0; start < len(order); start += l.batchSize {
			end := start + l.batchSize
			if end > len(order) {
				end = len(order)
			}
			batch, err := l.collate(order[start:end])
			result := Result{Batch: batch, Err: err}
			select {
			case out <- result:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// collate draws one grouped sample per target index and merges the speaker
// and listener views into a single batch.
func (l *Loader) collate(targets []int) (Batch, error) {
	perKey := make(map[string][]any)

	for _, idx := range targets {
		speaker, err := l.ds.Sample(idx, nil, nil, true)
		if err != nil {
			return nil, fmt.Errorf("speaker sample for target %d: %w", idx, err)
		}
		listener, err := l.ds.Sample(idx, nil, nil, false)
		if err != nil {
			return nil, fmt.Errorf("listener sample for target %d: %w", idx, err)
		}

		decision, err := shuffleGrouped(listener, l.rng)
		if err != nil {
			return nil, fmt.Errorf("shuffling listener sample for target %d: %w", idx, err)
		}

		for key, value := range speaker {
			perKey[SpeakerPrefix+key] = append(perKey[SpeakerPrefix+key], value)
		}
		for key, value := range listener {
			perKey[ListenerPrefix+key] = append(perKey[ListenerPrefix+key], value)
		}
		perKey[KeyTargetDecision] = append(perKey[KeyTargetDecision], decision)
	}

	batch := make(Batch, len(perKey))
	for key, values := range perKey {
		batch[key] = stackBatch(values)
	}
	return batch, nil
}

// shuffleGrouped permutes the items of a grouped sample in place along the
// leading axis and returns the target's post-shuffle position. The sample
// arrives target-first from the selector.
func shuffleGrouped(sample map[string]any, rng *rand.Rand) (int, error) {
	indices, ok := sample[dataset.KeyIndices].([]int)
	if !ok {
		return 0, fmt.Errorf("grouped sample is missing its index list")
	}
	n := len(indices)
	perm := rng.Perm(n)

	decision := 0
	for pos, src := range perm {
		if src == 0 {
			decision = pos
			break
		}
	}

	for key, value := range sample {
		switch v := value.(type) {
		case *tensor.Tensor:
			permuted, err := permuteLeading(v, perm)
			if err != nil {
				return 0, fmt.Errorf("key %q: %w", key, err)
			}
			sample[key] = permuted
		case []int:
			if len(v) != n {
				continue
			}
			out := make([]int, n)
			for pos, src := range perm {
				out[pos] = v[src]
			}
			sample[key] = out
		case []any:
			if len(v) != n {
				continue
			}
			out := make([]any, n)
			for pos, src := range perm {
				out[pos] = v[src]
			}
			sample[key] = out
		}
	}
	return decision, nil
}

// permuteLeading reorders the rows of a tensor's leading axis.
func permuteLeading(t *tensor.Tensor, perm []int) (*tensor.Tensor, error) {
	shape := t.Shape()
	if len(shape) == 0 || shape[0] != len(perm) {
		return t, nil
	}
	rowLen := t.Len() / shape[0]
	src := t.Data()
	dst := make([]float64, len(src))
	for pos, from := range perm {
		copy(dst[pos*rowLen:(pos+1)*rowLen], src[from*rowLen:(from+1)*rowLen])
	}
	return tensor.New(shape, dst)
}

// stackBatch batches per-sample values: uniform tensors stack along a new
// leading axis, everything else stays a plain sequence.
func stackBatch(values []any) any {
	if len(values) == 0 {
		return values
	}
	if _, ok := values[0].(int); ok {
		ints := make([]int, 0, len(values))
		for _, v := range values {
			n, isInt := v.(int)
			if !isInt {
				return values
			}
			ints = append(ints, n)
		}
		return ints
	}
	ts := make([]*tensor.Tensor, 0, len(values))
	for _, v := range values {
		t, ok := v.(*tensor.Tensor)
		if !ok {
			return values
		}
		if len(ts) > 0 && !tensor.SameShape(ts[0], t) {
			return values
		}
		ts = append(ts, t)
	}
	stacked, err := tensor.Stack(ts)
	if err != nil {
		return values
	}
	return stacked
}
