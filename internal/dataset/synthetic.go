package dataset

import (
	"fmt"
	"math"

	"github.com/vk/refgymgo/internal/tensor"
)

// Synthetic is a deterministic labeled dataset: nbrClasses contiguous
// blocks of perClass items each, with a small feature vector derived from
// the item index. It backs the CLI demo run and the test suite; real image
// corpora are external collaborators.
type Synthetic struct {
	nbrClasses int
	perClass   int
	featDim    int
}

// NewSynthetic builds a synthetic dataset of nbrClasses*perClass items.
func NewSynthetic(nbrClasses, perClass, featDim int) (*Synthetic, error) {
	if nbrClasses < 1 || perClass < 1 || featDim < 1 {
		return nil, fmt.Errorf("synthetic dataset requires positive class count, class size and feature dim")
	}
	return &Synthetic{nbrClasses: nbrClasses, perClass: perClass, featDim: featDim}, nil
}

func (s *Synthetic) Len() int { return s.nbrClasses * s.perClass }

// ClassOf implements the ClassProvider fast path.
func (s *Synthetic) ClassOf(idx int) (int, error) {
	if idx < 0 || idx >= s.Len() {
		return 0, fmt.Errorf("synthetic index %d out of range [0,%d)", idx, s.Len())
	}
	return idx / s.perClass, nil
}

func (s *Synthetic) Get(idx int) (map[string]any, error) {
	cl, err := s.ClassOf(idx)
	if err != nil {
		return nil, err
	}
	data := make([]float64, s.featDim)
	for i := range data {
		data[i] = math.Sin(float64(idx*s.featDim + i + 1))
	}
	exp, err := tensor.New([]int{s.featDim}, data)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		KeyExperiences: exp,
		KeyLabels:      cl,
	}, nil
}
