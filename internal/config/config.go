// Package config holds the layered metaforge configuration: built-in
// defaults, a YAML file, METAFORGE_* environment variables and finally
// command-line flags.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/metaforge/internal/container"
	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/hooks"
	"github.com/felixgeelhaar/metaforge/internal/log"
)

// ValidModels are the model identifiers the agent CLI accepts.
var ValidModels = []string{
	"opus", "sonnet", "haiku",
	"claude-3-opus-20240229",
	"claude-3-sonnet-20240229",
	"claude-3-haiku-20240307",
}

// Config is the complete metaforge configuration.
type Config struct {
	Docker     DockerConfig       `yaml:"docker"`
	Execution  ExecutionConfig    `yaml:"execution"`
	Claude     ClaudeConfig       `yaml:"claude"`
	Enrichment EnrichmentConfig   `yaml:"enrichment"`
	Logging    LoggingConfig      `yaml:"logging"`
	Metrics    MetricsConfig      `yaml:"metrics"`
	Hooks      []hooks.HookConfig `yaml:"hooks,omitempty"`
}

// DockerConfig configures the container runtime.
type DockerConfig struct {
	ImageName        string `yaml:"image_name"`
	ImageTag         string `yaml:"image_tag"`
	BuildContext     string `yaml:"build_context,omitempty"`
	NoCache          bool   `yaml:"no_cache"`
	StopGraceSeconds int    `yaml:"stop_grace_seconds"`
	Network          string `yaml:"network"`
	User             string `yaml:"user"`
}

// ExecutionConfig configures a generation run.
type ExecutionConfig struct {
	Timeout       Timeout `yaml:"timeout"`
	KeepContainer bool    `yaml:"keep_container"`
	OutputBaseDir string  `yaml:"output_base_dir"`
	Agentic       bool    `yaml:"agentic"`
}

// ClaudeConfig configures the agent CLI inside the container.
type ClaudeConfig struct {
	Model             string `yaml:"model"`
	MaxThinkingTokens int    `yaml:"max_thinking_tokens"`
	AutoCompact       bool   `yaml:"auto_compact"`
}

// EnrichmentConfig configures best-effort research for agent briefs.
// An empty Endpoint selects the offline static enricher.
type EnrichmentConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Endpoint    string        `yaml:"endpoint,omitempty"`
	APIKeyEnv   string        `yaml:"api_key_env,omitempty"`
	MaxResults  int           `yaml:"max_results"`
	Timeout     time.Duration `yaml:"timeout"`
	Window      time.Duration `yaml:"window"`
	Concurrency int           `yaml:"concurrency"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus textfile written after each run.
// An empty Textfile disables metrics.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Docker: DockerConfig{
			ImageName:        "metaclaude",
			ImageTag:         "latest",
			StopGraceSeconds: int(container.DefaultStopGrace / time.Second),
			Network:          container.DefaultNetwork,
			User:             container.DefaultUser,
		},
		Execution: ExecutionConfig{
			Timeout:       Timeout(4 * time.Hour),
			OutputBaseDir: ".",
			Agentic:       true,
		},
		Claude: ClaudeConfig{
			Model:             "opus",
			MaxThinkingTokens: 32000,
		},
		Enrichment: EnrichmentConfig{
			Enabled:     true,
			APIKeyEnv:   "METAFORGE_SEARCH_API_KEY",
			MaxResults:  5,
			Timeout:     10 * time.Second,
			Window:      60 * time.Second,
			Concurrency: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Image returns the full image reference, name:tag.
func (c *Config) Image() string {
	if c.Docker.ImageTag == "" || strings.ContainsAny(c.Docker.ImageName, "@") {
		return c.Docker.ImageName
	}
	return c.Docker.ImageName + ":" + c.Docker.ImageTag
}

// StopGrace returns the container stop grace period.
func (c *Config) StopGrace() time.Duration {
	return time.Duration(c.Docker.StopGraceSeconds) * time.Second
}

// OutputBase returns the absolute workspace base directory.
func (c *Config) OutputBase() (string, error) {
	dir := c.Execution.OutputBaseDir
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir)
}

// Validate reports the first invalid setting as a CONFIG-001 error.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Docker.ImageName) == "" {
		return errors.NewConfigInvalidError("docker.image_name must not be empty")
	}
	if _, err := container.ParseImage(c.Image()); err != nil {
		return err
	}
	if c.Docker.StopGraceSeconds <= 0 {
		return errors.NewConfigInvalidError(fmt.Sprintf("docker.stop_grace_seconds must be positive, got %d", c.Docker.StopGraceSeconds))
	}
	if c.Execution.Timeout < 0 {
		return errors.NewConfigInvalidError("execution.timeout must not be negative")
	}
	if !IsValidModel(c.Claude.Model) {
		return errors.NewConfigInvalidError(fmt.Sprintf("unknown model %q (valid: %s)", c.Claude.Model, strings.Join(ValidModels, ", ")))
	}
	if c.Claude.MaxThinkingTokens < 1000 || c.Claude.MaxThinkingTokens > 100000 {
		return errors.NewConfigInvalidError(fmt.Sprintf("claude.max_thinking_tokens must be between 1000 and 100000, got %d", c.Claude.MaxThinkingTokens))
	}
	if c.Enrichment.Timeout < 0 || c.Enrichment.Window < 0 {
		return errors.NewConfigInvalidError("enrichment timeouts must not be negative")
	}
	if c.Enrichment.Concurrency < 0 {
		return errors.NewConfigInvalidError("enrichment.concurrency must not be negative")
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		return errors.NewConfigInvalidError(fmt.Sprintf("logging.format must be text or json, got %q", c.Logging.Format))
	}
	if c.Logging.Level != "" && !validLevel(c.Logging.Level) {
		return errors.NewConfigInvalidError(fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	return nil
}

// IsValidModel reports whether model is a known model identifier.
func IsValidModel(model string) bool {
	for _, m := range ValidModels {
		if m == model {
			return true
		}
	}
	return false
}

func validLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// LogConfig converts the logging section into a logger configuration.
func (c *Config) LogConfig(verbose bool) log.Config {
	return log.CLIConfig(c.Logging.Level, c.Logging.Format, verbose)
}
