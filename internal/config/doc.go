// Package config loads, normalizes, and validates the TOML configuration
// used by the scrollsafe daemon and CLI.
package config
