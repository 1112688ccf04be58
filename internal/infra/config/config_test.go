package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Reader: ReaderConfig{WPM: 200, MaxWPM: 2000, StopTimeoutMs: 500},
		Server: ServerConfig{Addr: ":8080", NotifyTimeoutMs: 500},
		Source: SourceConfig{
			TimeoutSec: 120,
			Providers:  DefaultProviders(),
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "zero wpm",
			modify:  func(c *Config) { c.Reader.WPM = 0 },
			wantErr: true,
			errMsg:  "WPM",
		},
		{
			name:    "wpm above max",
			modify:  func(c *Config) { c.Reader.WPM = 3000 },
			wantErr: true,
			errMsg:  "max_wpm",
		},
		{
			name:    "stop timeout out of range",
			modify:  func(c *Config) { c.Reader.StopTimeoutMs = 0 },
			wantErr: true,
			errMsg:  "StopTimeoutMs",
		},
		{
			name:    "short control token",
			modify:  func(c *Config) { c.Control.Token = "short" },
			wantErr: true,
			errMsg:  "Token",
		},
		{
			name: "unknown provider type",
			modify: func(c *Config) {
				c.Source.Providers = []ProviderConfig{{Type: "browser", DisplayName: "Browser"}}
			},
			wantErr: true,
			errMsg:  "Type",
		},
		{
			name: "provider without display name",
			modify: func(c *Config) {
				c.Source.Providers = []ProviderConfig{{Type: "web"}}
			},
			wantErr: true,
			errMsg:  "DisplayName",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err, "expected validation to fail")
				assert.Contains(t, err.Error(), tt.errMsg,
					"error message should mention the problematic field")
			} else {
				assert.NoError(t, err, "expected validation to pass")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flashread.yaml")
	content := `
reader:
  wpm: 350
control:
  token: "secret-token"
source:
  timeout_sec: 30
  providers:
    - type: web
      display_name: Library
      settings:
        content_selector: "article"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 350, cfg.Reader.WPM)
	assert.Equal(t, 2000, cfg.Reader.MaxWPM, "unset fields receive defaults")
	assert.Equal(t, 500*time.Millisecond, cfg.StopTimeout())
	assert.Equal(t, 30*time.Second, cfg.SourceTimeout())
	assert.Equal(t, "secret-token", cfg.Control.Token)
	require.Len(t, cfg.Source.Providers, 1)
	assert.Equal(t, "article", cfg.Source.Providers[0].Settings["content_selector"])
	assert.Equal(t, "Please enter a valid speed", cfg.GetMessage("invalid_speed"))
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reader: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Reader.WPM)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Len(t, cfg.Source.Providers, 2)
	assert.Equal(t, "Ready to start", cfg.GetMessage("ready"))
	assert.Equal(t, "Error", cfg.GetMessage("something_else"))
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("FLASHREAD_CONTROL_TOKEN", "env-control-token")
	t.Setenv("FLASHREAD_EMAIL", "reader@example.com")
	t.Setenv("FLASHREAD_PASSWORD", "hunter22")

	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "env-control-token", cfg.Control.Token)
	assert.Equal(t, "reader@example.com", cfg.Source.Email)
	assert.Equal(t, "hunter22", cfg.Source.Password)
	assert.NoError(t, cfg.RequireControlToken())
}

func TestConfig_RequireControlToken(t *testing.T) {
	cfg := validConfig()
	assert.Error(t, cfg.RequireControlToken())

	cfg.Control.Token = "long-enough-token"
	assert.NoError(t, cfg.RequireControlToken())
}
