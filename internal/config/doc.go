// Package config defines the format-agnostic model of run inputs: seeded
// parameters, experimental bounds and certificate definitions.
//
// Format-specific parsers live in their own packages (hclload, yamlload) and
// plug into the Loader through the FileLoader interface. Apply turns a Model
// into registry state.
package config
