// Package dataset defines the dataset collaborator contract and implements
// the grouped-sample distractor selection over a paired train/test dataset.
package dataset

import (
	"fmt"
)

// Well-known payload keys. Every item must carry KeyLabels; the latent keys
// are derived from it when the underlying dataset does not supply them.
const (
	KeyExperiences   = "experiences"
	KeyLabels        = "exp_labels"
	KeyLatents       = "exp_latents"
	KeyLatentsValues = "exp_latents_values"
	KeyIndices       = "indices"
)

// Labeled is the contract an underlying dataset implements. Get returns the
// raw per-item payload; the KeyLabels entry (an int class label) is
// mandatory on every item.
type Labeled interface {
	Len() int
	Get(idx int) (map[string]any, error)
}

// ClassProvider is an optional fast path for partition building. When a
// dataset does not implement it, the class is derived from the item payload.
type ClassProvider interface {
	ClassOf(idx int) (int, error)
}

// classOf resolves the class of an item either through the fast path or by
// fetching the payload.
func classOf(ds Labeled, idx int) (int, error) {
	if cp, ok := ds.(ClassProvider); ok {
		return cp.ClassOf(idx)
	}
	item, err := ds.Get(idx)
	if err != nil {
		return 0, err
	}
	label, err := labelOf(item)
	if err != nil {
		return 0, fmt.Errorf("item %d: %w", idx, err)
	}
	return label, nil
}

// labelOf extracts the mandatory class label from an item payload.
func labelOf(item map[string]any) (int, error) {
	v, ok := item[KeyLabels]
	if !ok {
		return 0, fmt.Errorf("dataset item payload is missing the mandatory %q key", KeyLabels)
	}
	label, ok := v.(int)
	if !ok {
		return 0, fmt.Errorf("dataset item %q must be an int class label, got %T", KeyLabels, v)
	}
	return label, nil
}
