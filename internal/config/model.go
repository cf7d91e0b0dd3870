package config

import (
	"context"
	"fmt"
)

// Dataset modes. A run drives one dataset per mode, train first.
const (
	ModeTrain = "train"
	ModeTest  = "test"
)

// Model is the unified representation of one experiment: run options plus
// the declared module instances and pipelines.
type Model struct {
	Experiment *Experiment
	Modules    []*ModuleDecl
	Pipelines  []*PipelineDecl
}

// Experiment holds the run options the engine consumes. Every field also
// lands in the stream handler under "config:<name>" so modules can declare
// them as inputs.
type Experiment struct {
	BatchSize               int
	NbrEpoch                int
	NbrCommunicationRound   int
	NbrExperienceRepetition int
	Seed                    int64

	// Distractor counts per mode; the curriculum cap.
	NbrDistractors map[string]int

	UseCurriculumNbrDistractors     bool
	CurriculumDistractorsWindowSize int
	CurriculumAccuracyThreshold     float64

	SampleRetryCap int

	SaveEpochInterval int
	SavePath          string
}

// ModuleDecl is the format-agnostic representation of a `module` block.
type ModuleDecl struct {
	Type         string
	ID           string
	Config       map[string]any
	InputStreams map[string]string
}

// PipelineDecl is the format-agnostic representation of a `pipeline` block.
type PipelineDecl struct {
	ID        string
	ModuleIDs []string
}

// Loader is the interface for a format-specific configuration loader.
type Loader interface {
	// Load reads configuration from the given paths and translates it into
	// the format-agnostic model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Defaults returns an Experiment populated with the documented defaults.
func Defaults() *Experiment {
	return &Experiment{
		BatchSize:                       32,
		NbrEpoch:                        10,
		NbrCommunicationRound:           1,
		NbrExperienceRepetition:         1,
		Seed:                            1,
		NbrDistractors:                  map[string]int{ModeTrain: 1, ModeTest: 1},
		CurriculumDistractorsWindowSize: 25,
		CurriculumAccuracyThreshold:     75,
		SampleRetryCap:                  1,
	}
}

// Validate rejects option combinations that would make a run undefined.
func (e *Experiment) Validate() error {
	if e.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1, got %d", e.BatchSize)
	}
	if e.NbrCommunicationRound < 1 {
		return fmt.Errorf("nbr_communication_round must be >= 1, got %d", e.NbrCommunicationRound)
	}
	if e.NbrExperienceRepetition < 1 {
		return fmt.Errorf("nbr_experience_repetition must be >= 1, got %d", e.NbrExperienceRepetition)
	}
	for mode, n := range e.NbrDistractors {
		if n < 0 {
			return fmt.Errorf("nbr_distractors[%s] must be >= 0, got %d", mode, n)
		}
	}
	if e.UseCurriculumNbrDistractors && e.CurriculumDistractorsWindowSize < 1 {
		return fmt.Errorf("curriculum_distractors_window_size must be >= 1, got %d", e.CurriculumDistractorsWindowSize)
	}
	return nil
}

// AsStreamMap flattens the experiment options into the key/value form the
// engine registers under "config:*".
func (e *Experiment) AsStreamMap() map[string]any {
	return map[string]any{
		"batch_size":                         e.BatchSize,
		"nbr_epoch":                          e.NbrEpoch,
		"nbr_communication_round":            e.NbrCommunicationRound,
		"nbr_experience_repetition":          e.NbrExperienceRepetition,
		"seed":                               e.Seed,
		"nbr_distractors":                    e.NbrDistractors,
		"use_curriculum_nbr_distractors":     e.UseCurriculumNbrDistractors,
		"curriculum_distractors_window_size": e.CurriculumDistractorsWindowSize,
		"curriculum_accuracy_threshold":      e.CurriculumAccuracyThreshold,
		"sample_retry_cap":                   e.SampleRetryCap,
		"save_epoch_interval":                e.SaveEpochInterval,
		"save_path":                          e.SavePath,
	}
}
