// Package config provides defaults and environment overrides for the sync
// pipeline.
package config

import (
	"os"
	"strconv"
	"time"
)

// Pipeline defaults. The RETRIES, TIMEOUT, and BACKOFF environment
// variables override them (CLI flags override both).
const (
	DefaultRetries = 3
	DefaultTimeout = 20 * time.Second
	DefaultBackoff = 2.0
)

// Environment variable names recognized by Defaults.
const (
	EnvRetries = "RETRIES"
	EnvTimeout = "TIMEOUT"
	EnvBackoff = "BACKOFF"
)

// Settings holds the effective retry parameters.
type Settings struct {
	Retries int
	Timeout time.Duration
	Backoff float64
}

// Defaults returns the built-in settings with any environment overrides
// applied. Unparseable values are ignored rather than fatal; the CLI layer
// validates the final values.
func Defaults() Settings {
	settings := Settings{
		Retries: DefaultRetries,
		Timeout: DefaultTimeout,
		Backoff: DefaultBackoff,
	}

	if raw := os.Getenv(EnvRetries); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val >= 0 {
			settings.Retries = val
		}
	}
	if raw := os.Getenv(EnvTimeout); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil && val > 0 {
			settings.Timeout = time.Duration(val) * time.Second
		}
	}
	if raw := os.Getenv(EnvBackoff); raw != "" {
		if val, err := strconv.ParseFloat(raw, 64); err == nil && val > 0 {
			settings.Backoff = val
		}
	}

	return settings
}
