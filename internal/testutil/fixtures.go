package testutil

import (
	"fmt"

	"github.com/vk/refgymgo/internal/dataset"
	"github.com/vk/refgymgo/internal/tensor"
)

// MapDataset is an in-memory labeled dataset built from an explicit
// class-to-count layout, with a one-dimensional feature per item.
type MapDataset struct {
	labels  []int
	featDim int
}

// NewMapDataset builds a dataset whose i-th item carries class labels[i].
// NewMapDataset([]int{0, 0, 1}, 2) yields two items of class 0 followed by
// one of class 1, each with a two-element feature vector.
func NewMapDataset(labels []int, featDim int) *MapDataset {
	return &MapDataset{labels: append([]int(nil), labels...), featDim: featDim}
}

func (m *MapDataset) Len() int { return len(m.labels) }

// ClassOf implements the dataset partition fast path.
func (m *MapDataset) ClassOf(idx int) (int, error) {
	if idx < 0 || idx >= len(m.labels) {
		return 0, fmt.Errorf("index %d out of range [0,%d)", idx, len(m.labels))
	}
	return m.labels[idx], nil
}

func (m *MapDataset) Get(idx int) (map[string]any, error) {
	cl, err := m.ClassOf(idx)
	if err != nil {
		return nil, err
	}
	data := make([]float64, m.featDim)
	for i := range data {
		data[i] = float64(idx*m.featDim + i)
	}
	exp, err := tensor.New([]int{m.featDim}, data)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		dataset.KeyExperiences: exp,
		dataset.KeyLabels:      cl,
	}, nil
}
