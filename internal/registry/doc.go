// Package registry provides the central "glue" for the module system.
//
// The Registry stores mappings between the type tags used in experiment
// configuration (e.g., "Flatten") and the compiled Go builder functions
// that construct module instances. During application startup the registry
// is populated by the built-in module packages and then validated against
// the loaded configuration, so that a module block referencing an unknown
// type fails before the run starts rather than mid-epoch.
package registry
