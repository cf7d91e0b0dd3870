// Package app encapsulates application assembly: logger construction,
// experiment configuration loading, module builder registration and
// validation, engine construction and the run lifecycle.
package app
