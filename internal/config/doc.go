// Package config defines the format-agnostic experiment configuration
// model, along with the Loader interface for reading it from a concrete
// format. The model is the single source of truth for the registry and
// engine packages; the HCL implementation lives in the hcl package.
package config
