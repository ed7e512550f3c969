// Package config defines the stowage configuration.
//
//   - spec.go: Config struct definition
//   - default.go: default values
//   - verify.go: validation
//   - convert.go: mapping onto manager and factory settings
//
// Configuration is loaded via internal/infra/confloader from a YAML file,
// STOWAGE_* environment variables and command-line flags.
package config
