// Package config holds runtime configuration: defaults, environment
// overrides (JUSBR_* variables, optionally from a .env file) and the
// YAML portal-override file. Configuration is resolved once at startup
// and passed down by dependency injection.
package config
