// Package schema holds the HCL block structures an experiment file is
// decoded into before translation to the format-agnostic config model.
package schema

import "github.com/hashicorp/hcl/v2"

// DistractorsBlock sets the (maximum) distractor count per dataset mode.
type DistractorsBlock struct {
	Train int `hcl:"train"`
	Test  int `hcl:"test"`
}

// ExperimentBlock represents the `experiment` block of run options.
// Pointer fields distinguish "absent" from zero so defaults apply cleanly.
type ExperimentBlock struct {
	BatchSize               *int   `hcl:"batch_size,optional"`
	NbrEpoch                *int   `hcl:"nbr_epoch,optional"`
	NbrCommunicationRound   *int   `hcl:"nbr_communication_round,optional"`
	NbrExperienceRepetition *int   `hcl:"nbr_experience_repetition,optional"`
	Seed                    *int64 `hcl:"seed,optional"`

	NbrDistractors *DistractorsBlock `hcl:"nbr_distractors,block"`

	UseCurriculumNbrDistractors     *bool    `hcl:"use_curriculum_nbr_distractors,optional"`
	CurriculumDistractorsWindowSize *int     `hcl:"curriculum_distractors_window_size,optional"`
	CurriculumAccuracyThreshold     *float64 `hcl:"curriculum_accuracy_threshold,optional"`

	SampleRetryCap *int `hcl:"sample_retry_cap,optional"`

	SaveEpochInterval *int    `hcl:"save_epoch_interval,optional"`
	SavePath          *string `hcl:"save_path,optional"`
}

// ConfigBlock carries a module's free-form option attributes.
type ConfigBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// InputBlock rewires one internal input name to a stream path.
type InputBlock struct {
	Name   string `hcl:"name,label"`
	Stream string `hcl:"stream"`
}

// ModuleBlock declares one module instance: its registered type tag, its
// unique instance name, free-form config options and input rewiring.
type ModuleBlock struct {
	Type   string        `hcl:"type,label"`
	Name   string        `hcl:"instance_name,label"`
	Config *ConfigBlock  `hcl:"config,block"`
	Inputs []*InputBlock `hcl:"input,block"`
}

// PipelineBlock declares one ordered execution pass over module instances.
type PipelineBlock struct {
	Name    string   `hcl:"instance_name,label"`
	Modules []string `hcl:"modules"`
}

// ExperimentConfig is the top-level structure of an experiment file.
type ExperimentConfig struct {
	Experiment *ExperimentBlock `hcl:"experiment,block"`
	Modules    []*ModuleBlock   `hcl:"module,block"`
	Pipelines  []*PipelineBlock `hcl:"pipeline,block"`
	Body       hcl.Body         `hcl:",remain"`
}
