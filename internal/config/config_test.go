package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	settings := Defaults()
	if settings.Retries != 3 {
		t.Errorf("Retries = %d, want 3", settings.Retries)
	}
	if settings.Timeout != 20*time.Second {
		t.Errorf("Timeout = %v, want 20s", settings.Timeout)
	}
	if settings.Backoff != 2.0 {
		t.Errorf("Backoff = %v, want 2.0", settings.Backoff)
	}
}

func TestDefaultsEnvOverrides(t *testing.T) {
	t.Setenv(EnvRetries, "5")
	t.Setenv(EnvTimeout, "45")
	t.Setenv(EnvBackoff, "1.5")

	settings := Defaults()
	if settings.Retries != 5 {
		t.Errorf("Retries = %d, want 5", settings.Retries)
	}
	if settings.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", settings.Timeout)
	}
	if settings.Backoff != 1.5 {
		t.Errorf("Backoff = %v, want 1.5", settings.Backoff)
	}
}

func TestDefaultsIgnoresInvalidEnv(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-numeric retries", EnvRetries, "many"},
		{"negative retries", EnvRetries, "-1"},
		{"zero timeout", EnvTimeout, "0"},
		{"non-numeric backoff", EnvBackoff, "fast"},
		{"negative backoff", EnvBackoff, "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			settings := Defaults()
			if settings.Retries != DefaultRetries ||
				settings.Timeout != DefaultTimeout ||
				settings.Backoff != DefaultBackoff {
				t.Errorf("Defaults() = %+v, want built-in defaults for invalid %s=%q",
					settings, tt.key, tt.val)
			}
		})
	}
}
