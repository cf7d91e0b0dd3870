package dataset

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/refgymgo/internal/config"
	"github.com/vk/refgymgo/internal/tensor"
)

// Sample draws a grouped training experience: the target item plus the
// currently configured number of distractor items for the active mode.
//
// idx is a mode-local target index (offset into the global space for test
// mode). fromClass optionally restricts the candidate classes; excepts
// removes global indices from consideration; targetOnly skips distractor
// selection entirely.
//
// When the candidate classes cannot supply enough distractors, the
// restriction is widened to all known classes and the selection retried, a
// bounded number of times. This is a best-effort policy: a sparse class
// must not crash a run mid-epoch. Exhausting the bound is a configuration
// error, since after widening the working set cannot grow any further.
func (d *DualLabeled) Sample(idx int, fromClass []int, excepts []int, targetOnly bool) (map[string]any, error) {
	classes := d.trainClasses
	if d.mode == config.ModeTest {
		classes = d.testClasses
		idx += d.offset
	}

	nbrSamples := d.nbrDistractors[d.mode]
	if targetOnly {
		nbrSamples = 0
	}

	excluded := make(map[int]struct{}, len(excepts))
	for _, e := range excepts {
		excluded[e] = struct{}{}
	}

	var working []int
	candidates := fromClass
	for attempt := 0; ; attempt++ {
		if candidates == nil {
			candidates = allClasses(classes)
		}

		seen := make(map[int]struct{})
		targetFound := false
		working = working[:0]
		for _, cl := range candidates {
			for _, gidx := range classes[cl] {
				if _, dup := seen[gidx]; dup {
					continue
				}
				seen[gidx] = struct{}{}
				if gidx == idx {
					targetFound = true
					continue
				}
				if _, skip := excluded[gidx]; skip {
					continue
				}
				working = append(working, gidx)
			}
		}

		if !targetFound {
			// The target does not belong to any candidate class: the caller
			// misdeclared the target's class, which must fail loudly.
			return nil, fmt.Errorf("target index %d is not a member of candidate classes %v", idx, candidates)
		}

		if len(working) >= nbrSamples {
			break
		}
		if attempt >= d.retryCap {
			return nil, fmt.Errorf("cannot sample %d distractors for target %d: only %d candidates remain after widening to all classes", nbrSamples, idx, len(working))
		}
		slog.Warn("Dataset class has not enough elements to choose from, widening to all classes.",
			"target", idx, "candidates", len(working), "requested", nbrSamples)
		candidates = nil
	}
	sort.Ints(working)

	indices := make([]int, 0, 1+nbrSamples)
	indices = append(indices, idx)
	for i := 0; i < nbrSamples; i++ {
		pick := d.rng.Intn(len(working))
		indices = append(indices, working[pick])
		working = append(working[:pick], working[pick+1:]...)
	}

	return d.collect(indices, targetOnly)
}

// collect dereferences the selected global indices into their owning
// partitions and merges the per-item payloads into per-key sequences,
// deriving the latent encodings where the dataset does not supply them.
func (d *DualLabeled) collect(indices []int, targetOnly bool) (map[string]any, error) {
	lists := map[string][]any{
		KeyExperiences:   nil,
		KeyLabels:        nil,
		KeyLatents:       nil,
		KeyLatentsValues: nil,
	}

	for _, gidx := range indices {
		ds, local := d.train, gidx
		if gidx >= d.offset {
			ds, local = d.test, gidx-d.offset
		}
		item, err := ds.Get(local)
		if err != nil {
			return nil, fmt.Errorf("fetching item %d: %w", gidx, err)
		}

		label, err := labelOf(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", gidx, err)
		}

		// Merge item keys; a key absent from a later item is simply left
		// shorter for that item, never back-filled.
		for key, value := range item {
			lists[key] = append(lists[key], value)
		}

		// The two latent keys default independently: a missing exp_latents
		// becomes a one-hot of the label, and a missing exp_latents_values
		// aliases whichever latent exists, supplied or derived.
		latent := item[KeyLatents]
		if latent == nil {
			oneHot, err := tensor.OneHot(d.nbrClasses, label)
			if err != nil {
				return nil, fmt.Errorf("item %d: encoding latent: %w", gidx, err)
			}
			lists[KeyLatents] = append(lists[KeyLatents], oneHot)
			latent = oneHot
		}
		if _, hasValues := item[KeyLatentsValues]; !hasValues {
			if lt, ok := latent.(*tensor.Tensor); ok {
				lists[KeyLatentsValues] = append(lists[KeyLatentsValues], lt.Clone())
			} else {
				lists[KeyLatentsValues] = append(lists[KeyLatentsValues], latent)
			}
		}

		if targetOnly {
			break
		}
	}

	sample := make(map[string]any, len(lists)+1)
	for key, values := range lists {
		sample[key] = stackIfUniform(values)
	}

	// The primary experience payload gains a singleton stimulus axis.
	if exp, ok := sample[KeyExperiences].(*tensor.Tensor); ok {
		unsq, err := exp.Unsqueeze(1)
		if err != nil {
			return nil, fmt.Errorf("adding stimulus axis: %w", err)
		}
		sample[KeyExperiences] = unsq
	}

	sample[KeyIndices] = append([]int(nil), indices...)
	return sample, nil
}

// stackIfUniform batches a sequence of uniform-shape tensors into one
// tensor; any other sequence is left as-is. Label sequences collapse to
// []int for convenience.
func stackIfUniform(values []any) any {
	if len(values) == 0 {
		return values
	}

	if _, ok := values[0].(*tensor.Tensor); ok {
		ts := make([]*tensor.Tensor, 0, len(values))
		for _, v := range values {
			t, isTensor := v.(*tensor.Tensor)
			if !isTensor {
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

	return values
}

func allClasses(classes map[int][]int) []int {
	out := make([]int, 0, len(classes))
	for cl := range classes {
		out = append(out, cl)
	}
	sort.Ints(out)
	return out
}
