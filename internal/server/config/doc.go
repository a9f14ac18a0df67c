// Package config provides agent configuration for LockScope.
//
// This package defines the agent configuration structure and validation:
//
//   - spec.go: AgentConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Business validation (modes, directories, thresholds)
//   - sanitize.go: Log sanitization (hide sensitive values)
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config
