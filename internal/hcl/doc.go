// Package hcl provides the concrete HCL implementation of the config.Loader
// interface. It is responsible for file discovery, parsing, HCL-to-model
// translation, and cty-to-Go conversion of module option attributes.
package hcl
