// Package config handles configuration loading, parsing, and validation
// from defaults, an optional YAML file and JND_-prefixed environment
// variables. It keeps configuration details separate from the review engine.
package config
