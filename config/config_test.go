package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "openai", cfg.Oracle.Provider)
	assert.Equal(t, 120*time.Second, cfg.Oracle.Timeout.Std())
	assert.Equal(t, 12, cfg.Run.MaxSteps)
	assert.Equal(t, 4, cfg.Run.MapConcurrency)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "TRACKER_TOKEN", cfg.Tracker.TokenEnv)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
oracle:
  provider: anthropic
  model: claude-3-5-sonnet-20241022
  timeout: 60s
run:
  max_steps: 5
  per_step_timeout: 2m
logging:
  level: debug
  format: json
tracker:
  base_url: https://issues.example.com
  token_env: JIRA_TOKEN
codehost:
  token_env: GITHUB_TOKEN
`))
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Oracle.Provider)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Oracle.Model)
	assert.Equal(t, 60*time.Second, cfg.Oracle.Timeout.Std())
	assert.Equal(t, 5, cfg.Run.MaxSteps)
	assert.Equal(t, 2*time.Minute, cfg.Run.PerStepTimeout.Std())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "https://issues.example.com", cfg.Tracker.BaseURL)
	assert.Equal(t, "JIRA_TOKEN", cfg.Tracker.TokenEnv)

	// Unset fields keep their defaults.
	assert.Equal(t, 8, cfg.Run.MaxToolTurns)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown provider", yaml: "oracle:\n  provider: cohere\n"},
		{name: "negative steps", yaml: "run:\n  max_steps: -1\n"},
		{name: "bad level", yaml: "logging:\n  level: verbose\n"},
		{name: "bad format", yaml: "logging:\n  format: xml\n"},
		{name: "not yaml", yaml: "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskmesh.yaml")
	require.NoError(t, os.WriteFile(path, []byte("oracle:\n  provider: openai\n  model: gpt-4o-mini\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.Oracle.Model)
}

func TestTokenEnvLookup(t *testing.T) {
	t.Setenv("JIRA_TOKEN", "secret")

	cfg := TrackerConfig{TokenEnv: "JIRA_TOKEN"}
	assert.Equal(t, "secret", cfg.Token())
}
