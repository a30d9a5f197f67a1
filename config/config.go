// Package config loads the YAML runtime configuration: which oracle provider
// and model to use, run limits, logging, and the endpoints and credential
// environment variables of the external systems. Credentials themselves never
// live in the file; the file names the environment variable to read.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like "90s"
// or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// OracleConfig selects the model provider and its parameters.
type OracleConfig struct {
	// Provider is "openai" or "anthropic".
	Provider string `yaml:"provider"`

	// Model is the provider-specific model identifier. Empty selects the
	// provider's default.
	Model string `yaml:"model,omitempty"`

	// Timeout bounds a single model call.
	Timeout Duration `yaml:"timeout,omitempty"`

	// APIKeyEnv names the environment variable holding the API key. Empty
	// falls back to the provider SDK's own lookup.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`
}

// RunConfig carries the engine limits.
type RunConfig struct {
	// MaxSteps is the hard ceiling on executed steps per run.
	MaxSteps int `yaml:"max_steps,omitempty"`

	// PerStepTimeout bounds one execute-step including its tool calls.
	PerStepTimeout Duration `yaml:"per_step_timeout,omitempty"`

	// MapConcurrency bounds parallel map calls in the aggregator.
	MapConcurrency int `yaml:"map_concurrency,omitempty"`

	// MaxToolTurns bounds model/tool round trips within one step.
	MaxToolTurns int `yaml:"max_tool_turns,omitempty"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level,omitempty"`

	// Format is "text" or "json".
	Format string `yaml:"format,omitempty"`
}

// TrackerConfig points at the issue tracker.
type TrackerConfig struct {
	BaseURL string `yaml:"base_url"`

	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `yaml:"token_env,omitempty"`
}

// Token reads the tracker token from the configured environment variable.
func (c TrackerConfig) Token() string {
	return os.Getenv(c.TokenEnv)
}

// CodeHostConfig points at the code host.
type CodeHostConfig struct {
	// BaseURL is the API root. Empty selects the public GitHub API.
	BaseURL string `yaml:"base_url,omitempty"`

	// TokenEnv names the environment variable holding the API token.
	TokenEnv string `yaml:"token_env,omitempty"`
}

// Token reads the code-host token from the configured environment variable.
func (c CodeHostConfig) Token() string {
	return os.Getenv(c.TokenEnv)
}

// Config is the full runtime configuration.
type Config struct {
	Oracle   OracleConfig   `yaml:"oracle"`
	Run      RunConfig      `yaml:"run,omitempty"`
	Logging  LoggingConfig  `yaml:"logging,omitempty"`
	Tracker  TrackerConfig  `yaml:"tracker,omitempty"`
	CodeHost CodeHostConfig `yaml:"codehost,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates the configuration at path. A missing file yields
// the defaults rather than an error; a malformed file is always an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes and validates raw YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Oracle.Provider == "" {
		c.Oracle.Provider = "openai"
	}
	if c.Oracle.Timeout == 0 {
		c.Oracle.Timeout = Duration(120 * time.Second)
	}

	if c.Run.MaxSteps == 0 {
		c.Run.MaxSteps = 12
	}
	if c.Run.MapConcurrency == 0 {
		c.Run.MapConcurrency = 4
	}
	if c.Run.MaxToolTurns == 0 {
		c.Run.MaxToolTurns = 8
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}

	if c.Tracker.TokenEnv == "" {
		c.Tracker.TokenEnv = "TRACKER_TOKEN"
	}
	if c.CodeHost.TokenEnv == "" {
		c.CodeHost.TokenEnv = "CODEHOST_TOKEN"
	}
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Oracle.Provider) {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("oracle.provider must be 'openai' or 'anthropic', got %q", c.Oracle.Provider)
	}

	if c.Run.MaxSteps < 1 {
		return fmt.Errorf("run.max_steps must be >= 1")
	}
	if c.Run.MapConcurrency < 1 {
		return fmt.Errorf("run.map_concurrency must be >= 1")
	}
	if c.Run.MaxToolTurns < 1 {
		return fmt.Errorf("run.max_tool_turns must be >= 1")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", c.Logging.Format)
	}

	return nil
}
