// Package config loads, normalizes, and validates the TOML configuration
// shared by the CLI and the background worker. Paths are tilde-expanded and
// made absolute during load; category tables and status markers fall back to
// repository defaults so a minimal config file stays minimal.
package config
