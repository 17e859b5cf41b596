// Package config loads the flat key-value configuration for a run:
// embedded defaults layered under an optional YAML override file, with
// typed getters and a validated settings struct on top. The merged
// mapping is immutable for the duration of a run and can be materialized
// back to disk for later invocations.
package config
