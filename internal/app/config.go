package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigPath points at an experiment .hcl file or a directory of them.
	ConfigPath string
	// LoadPath optionally resumes a run from a checkpoint directory.
	LoadPath string

	LogFormat string
	LogLevel  string
}

// NewConfig validates the raw configuration.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
