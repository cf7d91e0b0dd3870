package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/refgymgo/internal/config"
	"github.com/vk/refgymgo/internal/ctxlog"
	"github.com/vk/refgymgo/internal/fsutil"
	"github.com/vk/refgymgo/internal/schema"
)

// Loader is the HCL implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new HCL loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads every .hcl file under the given paths (files or directories),
// decodes them into the schema structs, and translates the result into the
// format-agnostic model. Exactly one experiment block is allowed across all
// files; module and pipeline blocks merge in file order.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("config path %q: %w", path, err)
		}
		if info.IsDir() {
			found, err := fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, fmt.Errorf("walking config path %q: %w", path, err)
			}
			files = append(files, found...)
		} else {
			files = append(files, path)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl experiment files found in %v", paths)
	}
	logger.Debug("Found experiment files to load.", "files", files)

	parser := hclparse.NewParser()
	merged := &schema.ExperimentConfig{}
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %s: %w", file, diags)
		}

		var fileCfg schema.ExperimentConfig
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &fileCfg); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode %s: %w", file, diags)
		}

		if fileCfg.Experiment != nil {
			if merged.Experiment != nil {
				return nil, fmt.Errorf("%s: duplicate experiment block (already declared elsewhere)", file)
			}
			merged.Experiment = fileCfg.Experiment
		}
		merged.Modules = append(merged.Modules, fileCfg.Modules...)
		merged.Pipelines = append(merged.Pipelines, fileCfg.Pipelines...)
	}

	model, err := l.translate(merged)
	if err != nil {
		return nil, err
	}
	if err := model.Experiment.Validate(); err != nil {
		return nil, fmt.Errorf("invalid experiment configuration: %w", err)
	}
	logger.Debug("Experiment configuration loaded.",
		"modules", len(model.Modules), "pipelines", len(model.Pipelines))
	return model, nil
}

// translate converts the decoded schema into the agnostic model, applying
// defaults for absent experiment options.
func (l *Loader) translate(raw *schema.ExperimentConfig) (*config.Model, error) {
	exp := config.Defaults()
	if raw.Experiment != nil {
		applyExperiment(exp, raw.Experiment)
	}

	model := &config.Model{Experiment: exp}

	seen := make(map[string]struct{}, len(raw.Modules))
	for _, mb := range raw.Modules {
		if _, dup := seen[mb.Name]; dup {
			return nil, fmt.Errorf("duplicate module instance name %q", mb.Name)
		}
		seen[mb.Name] = struct{}{}

		cfg, err := decodeConfigBody(mb)
		if err != nil {
			return nil, err
		}

		inputs := make(map[string]string, len(mb.Inputs))
		for _, in := range mb.Inputs {
			inputs[in.Name] = in.Stream
		}
		model.Modules = append(model.Modules, &config.ModuleDecl{
			Type:         mb.Type,
			ID:           mb.Name,
			Config:       cfg,
			InputStreams: inputs,
		})
	}

	for _, pb := range raw.Pipelines {
		model.Pipelines = append(model.Pipelines, &config.PipelineDecl{
			ID:        pb.Name,
			ModuleIDs: pb.Modules,
		})
	}
	return model, nil
}

// decodeConfigBody evaluates the attributes of a module's config block into
// plain Go values.
func decodeConfigBody(mb *schema.ModuleBlock) (map[string]any, error) {
	cfg := make(map[string]any)
	if mb.Config == nil {
		return cfg, nil
	}
	attrs, diags := mb.Config.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, fmt.Errorf("module %q: invalid config block: %w", mb.Name, diags)
	}
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(&hcl.EvalContext{})
		if diags.HasErrors() {
			return nil, fmt.Errorf("module %q: config option %q: %w", mb.Name, name, diags)
		}
		goVal, err := ctyToGo(val)
		if err != nil {
			return nil, fmt.Errorf("module %q: config option %q: %w", mb.Name, name, err)
		}
		cfg[name] = goVal
	}
	return cfg, nil
}

func applyExperiment(exp *config.Experiment, raw *schema.ExperimentBlock) {
	if raw.BatchSize != nil {
		exp.BatchSize = *raw.BatchSize
	}
	if raw.NbrEpoch != nil {
		exp.NbrEpoch = *raw.NbrEpoch
	}
	if raw.NbrCommunicationRound != nil {
		exp.NbrCommunicationRound = *raw.NbrCommunicationRound
	}
	if raw.NbrExperienceRepetition != nil {
		exp.NbrExperienceRepetition = *raw.NbrExperienceRepetition
	}
	if raw.Seed != nil {
		exp.Seed = *raw.Seed
	}
	if raw.NbrDistractors != nil {
		exp.NbrDistractors = map[string]int{
			config.ModeTrain: raw.NbrDistractors.Train,
			config.ModeTest:  raw.NbrDistractors.Test,
		}
	}
	if raw.UseCurriculumNbrDistractors != nil {
		exp.UseCurriculumNbrDistractors = *raw.UseCurriculumNbrDistractors
	}
	if raw.CurriculumDistractorsWindowSize != nil {
		exp.CurriculumDistractorsWindowSize = *raw.CurriculumDistractorsWindowSize
	}
	if raw.CurriculumAccuracyThreshold != nil {
		exp.CurriculumAccuracyThreshold = *raw.CurriculumAccuracyThreshold
	}
	if raw.SampleRetryCap != nil {
		exp.SampleRetryCap = *raw.SampleRetryCap
	}
	if raw.SaveEpochInterval != nil {
		exp.SaveEpochInterval = *raw.SaveEpochInterval
	}
	if raw.SavePath != nil {
		exp.SavePath = *raw.SavePath
	}
}
