package dataset

import (
	"fmt"
	"math/rand"

	"github.com/vk/refgymgo/internal/config"
)

// DualLabeled pairs a train and a test dataset in a single global index
// space: test indices are offset by the train length. Partition maps from
// class label to global indices are built once at construction. The train
// partitions are unioned into the test map so distractors are always
// samplable in test mode, but test-only classes never leak into the train
// map.
type DualLabeled struct {
	train, test Labeled
	offset      int
	mode        string

	trainClasses map[int][]int
	testClasses  map[int][]int
	nbrClasses   int

	nbrDistractors map[string]int
	retryCap       int
	rng            *rand.Rand
}

// DualConfig configures a DualLabeled pairing.
type DualConfig struct {
	Train Labeled
	Test  Labeled
	// Mode is the initially active dataset mode.
	Mode string
	// NbrDistractors is the starting distractor count per mode.
	NbrDistractors map[string]int
	// SampleRetryCap bounds the widen-and-retry fallback. Zero means the
	// default of one widening pass.
	SampleRetryCap int
	// Rng must be seeded once at run start; per-call seeding would break
	// reproducibility across runs.
	Rng *rand.Rand
}

// NewDualLabeled builds the partition maps for both modes.
func NewDualLabeled(cfg DualConfig) (*DualLabeled, error) {
	if cfg.Train == nil || cfg.Test == nil {
		return nil, fmt.Errorf("dual dataset requires both a train and a test dataset")
	}
	if cfg.Rng == nil {
		return nil, fmt.Errorf("dual dataset requires a seeded random source")
	}
	mode := cfg.Mode
	if mode == "" {
		mode = config.ModeTrain
	}

	d := &DualLabeled{
		train:          cfg.Train,
		test:           cfg.Test,
		offset:         cfg.Train.Len(),
		mode:           mode,
		trainClasses:   make(map[int][]int),
		testClasses:    make(map[int][]int),
		nbrDistractors: map[string]int{config.ModeTrain: 1, config.ModeTest: 1},
		retryCap:       cfg.SampleRetryCap,
		rng:            cfg.Rng,
	}
	if d.retryCap <= 0 {
		d.retryCap = 1
	}
	for m, n := range cfg.NbrDistractors {
		d.nbrDistractors[m] = n
	}

	for idx := 0; idx < cfg.Train.Len(); idx++ {
		cl, err := classOf(cfg.Train, idx)
		if err != nil {
			return nil, fmt.Errorf("train partition: %w", err)
		}
		d.trainClasses[cl] = append(d.trainClasses[cl], idx)
	}
	for idx := 0; idx < cfg.Test.Len(); idx++ {
		cl, err := classOf(cfg.Test, idx)
		if err != nil {
			return nil, fmt.Errorf("test partition: %w", err)
		}
		d.testClasses[cl] = append(d.testClasses[cl], d.offset+idx)
	}

	// Union the train indices into the test map so that distractors are
	// samplable regardless of the active mode.
	for cl, indices := range d.trainClasses {
		d.testClasses[cl] = append(d.testClasses[cl], indices...)
	}
	d.nbrClasses = len(d.testClasses)

	return d, nil
}

// SetMode switches the active dataset mode.
func (d *DualLabeled) SetMode(mode string) { d.mode = mode }

// Mode returns the active dataset mode.
func (d *DualLabeled) Mode() string { return d.mode }

// Len returns the length of the active partition, in mode-local indices.
func (d *DualLabeled) Len() int {
	if d.mode == config.ModeTest {
		return d.test.Len()
	}
	return d.train.Len()
}

// NbrClasses returns the number of classes known to the active mode.
func (d *DualLabeled) NbrClasses() int {
	if d.mode == config.ModeTest {
		return d.nbrClasses
	}
	return len(d.trainClasses)
}

// NbrDistractors returns the currently active distractor count for a mode.
func (d *DualLabeled) NbrDistractors(mode string) int {
	return d.nbrDistractors[mode]
}

// SetNbrDistractors updates the active distractor count for a mode. The
// curriculum uses this to grow the discrimination task over time.
func (d *DualLabeled) SetNbrDistractors(n int, mode string) {
	if n < 0 {
		n = 0
	}
	d.nbrDistractors[mode] = n
}
