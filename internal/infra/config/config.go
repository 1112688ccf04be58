// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Reader   ReaderConfig   `yaml:"reader"`
	Server   ServerConfig   `yaml:"server"`
	Control  ControlConfig  `yaml:"control"`
	Source   SourceConfig   `yaml:"source"`
	Messages MessagesConfig `yaml:"messages"`
}

// ReaderConfig represents playback pacing configuration.
type ReaderConfig struct {
	WPM           int `yaml:"wpm" default:"200" validate:"gte=1"`
	MaxWPM        int `yaml:"max_wpm" default:"2000" validate:"gte=1,lte=60000"`
	StopTimeoutMs int `yaml:"stop_timeout_ms" default:"500" validate:"gte=1,lte=10000"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr            string      `yaml:"addr" default:":8080"`
	NotifyTimeoutMs int         `yaml:"notify_timeout_ms" default:"500" validate:"gte=1,lte=10000"`
	Hooks           HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// ControlConfig represents remote control configuration.
type ControlConfig struct {
	Token string `yaml:"token" validate:"omitempty,min=8"`
}

// SourceConfig represents content acquisition configuration.
type SourceConfig struct {
	TimeoutSec int              `yaml:"timeout_sec" default:"120" validate:"gte=1,lte=3600"`
	Email      string           `yaml:"email"`
	Password   string           `yaml:"password"`
	Providers  []ProviderConfig `yaml:"providers" validate:"dive"`
}

// ProviderConfig represents a single content provider configuration.
type ProviderConfig struct {
	Type        string         `yaml:"type" validate:"required,oneof=file web"`
	DisplayName string         `yaml:"display_name" validate:"required"`
	Settings    map[string]any `yaml:"settings"`
}

// MessagesConfig represents user-facing messages.
type MessagesConfig struct {
	Ready        string `yaml:"ready" default:"Ready to start"`
	InvalidSpeed string `yaml:"invalid_speed" default:"Please enter a valid speed"`
	NoText       string `yaml:"no_text" default:"Please enter some text"`
	Busy         string `yaml:"busy" default:"Please wait for the current operation"`
	Fetching     string `yaml:"fetching" default:"Fetching text..."`
	Fetched      string `yaml:"fetched" default:"Book loaded successfully!"`
	DefaultError string `yaml:"default_error" default:"Error"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return finish(&cfg)
}

// LoadOrDefault loads configuration from path, falling back to the built-in
// defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default()
	}
	return cfg, err
}

// Default returns the built-in configuration.
func Default() (*Config, error) {
	return finish(&Config{})
}

func finish(cfg *Config) (*Config, error) {
	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if len(cfg.Source.Providers) == 0 {
		cfg.Source.Providers = DefaultProviders()
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

// DefaultProviders returns the providers used when none are configured:
// local files first, then plain web pages.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{Type: "file", DisplayName: "Local file", Settings: map[string]any{}},
		{Type: "web", DisplayName: "Web page", Settings: map[string]any{}},
	}
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("FLASHREAD_CONTROL_TOKEN"); v != "" {
		c.Control.Token = v
	}
	if v := os.Getenv("FLASHREAD_EMAIL"); v != "" {
		c.Source.Email = v
	}
	if v := os.Getenv("FLASHREAD_PASSWORD"); v != "" {
		c.Source.Password = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Reader.WPM > c.Reader.MaxWPM {
		return errors.Newf("reader wpm (%d) must not exceed max_wpm (%d)", c.Reader.WPM, c.Reader.MaxWPM)
	}

	return nil
}

// RequireControlToken checks that a control token is configured.
// The RPC server refuses to start without one.
func (c *Config) RequireControlToken() error {
	if c.Control.Token == "" {
		return errors.New("control token is required (set control.token or FLASHREAD_CONTROL_TOKEN)")
	}
	return nil
}

// StopTimeout returns the playback stop grace period.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.Reader.StopTimeoutMs) * time.Millisecond
}

// NotifyTimeout returns the per-subscriber notification send timeout.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Server.NotifyTimeoutMs) * time.Millisecond
}

// SourceTimeout returns the content acquisition timeout.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSec) * time.Second
}

// GetMessage returns the message for the given code.
func (c *Config) GetMessage(code string) string {
	switch code {
	case "ready":
		return c.Messages.Ready
	case "invalid_speed":
		return c.Messages.InvalidSpeed
	case "no_text":
		return c.Messages.NoText
	case "busy":
		return c.Messages.Busy
	case "fetching":
		return c.Messages.Fetching
	case "fetched":
		return c.Messages.Fetched
	default:
		return c.Messages.DefaultError
	}
}
