package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/hooks"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30s", want: 30 * time.Second},
		{in: "10m", want: 10 * time.Minute},
		{in: "2h", want: 2 * time.Hour},
		{in: "7200", want: 2 * time.Hour},
		{in: " 45M ", want: 45 * time.Minute},
		{in: "0", want: 0},
		{in: "none", want: 0},
		{in: "Unlimited", want: 0},
		{in: "-5", wantErr: true},
		{in: "-5m", wantErr: true},
		{in: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeout(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Duration())
		})
	}
}

func TestTimeoutString(t *testing.T) {
	assert.Equal(t, "unlimited", Timeout(0).String())
	assert.Equal(t, "2h0m0s", Timeout(2*time.Hour).String())
	assert.True(t, Timeout(0).Unlimited())
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "metaclaude:latest", cfg.Image())
	assert.Equal(t, 10*time.Second, cfg.StopGrace())
	assert.Equal(t, 4*time.Hour, cfg.Execution.Timeout.Duration())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty image", func(c *Config) { c.Docker.ImageName = " " }},
		{"bad image", func(c *Config) { c.Docker.ImageName = "UPPER CASE" }},
		{"zero grace", func(c *Config) { c.Docker.StopGraceSeconds = 0 }},
		{"negative timeout", func(c *Config) { c.Execution.Timeout = Timeout(-time.Second) }},
		{"unknown model", func(c *Config) { c.Claude.Model = "gpt-4" }},
		{"thinking tokens", func(c *Config) { c.Claude.MaxThinkingTokens = 10 }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeConfigInvalid, errors.CodeOf(err))
		})
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
docker:
  image_name: custom-image
  image_tag: "1.2"
execution:
  timeout: 30m
  output_base_dir: /from/file
claude:
  model: sonnet
logging:
  level: warn
hooks:
  - name: notify
    type: webhook
    enabled: true
    events: [on_run_complete]
    timeout: 5s
    config:
      url: http://localhost:9999
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	model := "haiku"
	loader := &Loader{
		Path: path,
		Getenv: env(map[string]string{
			EnvTimeout:   "1h",
			EnvOutputDir: "/from/env",
			EnvModel:     "opus",
		}),
	}

	cfg, err := loader.Load(Overrides{Model: &model})
	require.NoError(t, err)

	assert.Equal(t, "custom-image:1.2", cfg.Image(), "file overrides defaults")
	assert.Equal(t, 32000, cfg.Claude.MaxThinkingTokens, "unset keys keep defaults")
	assert.Equal(t, time.Hour, cfg.Execution.Timeout.Duration(), "env overrides file")
	assert.Equal(t, "/from/env", cfg.Execution.OutputBaseDir)
	assert.Equal(t, "haiku", cfg.Claude.Model, "flags override env")
	assert.Equal(t, "warn", cfg.Logging.Level)

	require.Len(t, cfg.Hooks, 1)
	assert.Equal(t, []hooks.EventType{hooks.EventRunComplete}, cfg.Hooks[0].Events)
	assert.Equal(t, 5*time.Second, cfg.Hooks[0].Timeout)
	assert.Equal(t, "http://localhost:9999", cfg.Hooks[0].Config["url"])
}

func TestLoadMissingDefaultFileIsFine(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	loader := &Loader{Getenv: env(nil)}

	cfg, err := loader.Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "opus", cfg.Claude.Model)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	loader := &Loader{Path: filepath.Join(t.TempDir(), "nope.yaml"), Getenv: env(nil)}

	_, err := loader.Load(Overrides{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigUnreadable, errors.CodeOf(err))
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("execution:\n  timeout: forever\n"), 0644))

	_, err := (&Loader{Path: path, Getenv: env(nil)}).Load(Overrides{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigUnreadable, errors.CodeOf(err))
}

func TestLoadInvalidEnvTimeout(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	loader := &Loader{Getenv: env(map[string]string{EnvTimeout: "later"})}

	_, err := loader.Load(Overrides{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.CodeOf(err))
}

func TestImageOverrideDropsTag(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	image := "ghcr.io/acme/agent:2.0"
	cfg, err := (&Loader{Getenv: env(nil)}).Load(Overrides{Image: &image})
	require.NoError(t, err)
	assert.Equal(t, image, cfg.Image())
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Execution.Timeout = 0

	data, err := Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: unlimited")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))

	loaded, err := (&Loader{Path: path, Getenv: env(nil)}).Load(Overrides{})
	require.NoError(t, err)
	assert.True(t, loaded.Execution.Timeout.Unlimited())
}
