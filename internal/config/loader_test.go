package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "linear", cfg.ScorerBackend)
	assert.Equal(t, 20, cfg.ModelTTLMinutes)
	assert.Equal(t, 5, cfg.MinTrainingRows)
	assert.Equal(t, 60, cfg.IPLimitPerMin)
	assert.Equal(t, 365, cfg.RetentionDays)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VITALIS_ADDR", ":9090")
	t.Setenv("VITALIS_LOG_LEVEL", "debug")
	t.Setenv("VITALIS_SCORER_BACKEND", "heuristic")
	t.Setenv("VITALIS_MODEL_TTL_MINUTES", "45")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "heuristic", cfg.ScorerBackend)
	assert.Equal(t, 45, cfg.ModelTTLMinutes)

	// Untouched keys keep their defaults.
	assert.Equal(t, 5, cfg.MinTrainingRows)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7070\"\nip_limit_per_min: 120\n"), 0644))
	t.Setenv("VITALIS_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, 120, cfg.IPLimitPerMin)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("addr: \":7070\"\n"), 0644))
	t.Setenv("VITALIS_CONFIG", path)
	t.Setenv("VITALIS_ADDR", ":9999")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Addr)
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Setenv("VITALIS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown scorer backend", "VITALIS_SCORER_BACKEND", "quantum"},
		{"zero model ttl", "VITALIS_MODEL_TTL_MINUTES", "0"},
		{"zero training rows", "VITALIS_MIN_TRAINING_ROWS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
