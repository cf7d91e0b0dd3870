// Package cli parses command-line arguments into an app configuration and
// defines the exit-code carrying error type the entrypoint understands.
package cli
