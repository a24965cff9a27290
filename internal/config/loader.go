package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/metaforge/internal/errors"
)

// Environment variables that override the file configuration.
const (
	EnvModel     = "METAFORGE_MODEL"
	EnvTimeout   = "METAFORGE_TIMEOUT"
	EnvImage     = "METAFORGE_IMAGE"
	EnvOutputDir = "METAFORGE_OUTPUT_DIR"
	EnvLogLevel  = "METAFORGE_LOG_LEVEL"
	EnvConfig    = "METAFORGE_CONFIG"
)

// DefaultPath returns ~/.metaforge/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".metaforge", "config.yaml"), nil
}

// Overrides are command-line values. Nil fields leave the configuration
// unchanged.
type Overrides struct {
	Model         *string
	Timeout       *Timeout
	Image         *string
	OutputDir     *string
	KeepContainer *bool
	NoCache       *bool
	Agentic       *bool
	Enrichment    *bool
	LogLevel      *string
	LogFormat     *string
	MetricsFile   *string
}

// Loader resolves the effective configuration.
type Loader struct {
	// Path is an explicit config file; empty selects METAFORGE_CONFIG or
	// DefaultPath. An explicit path must exist.
	Path string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load layers defaults, the config file, the environment and overrides,
// then validates the result.
func (l *Loader) Load(overrides Overrides) (*Config, error) {
	cfg := Default()

	path, explicit, err := l.resolvePath()
	if err != nil {
		return nil, err
	}
	if err := loadFile(cfg, path, explicit); err != nil {
		return nil, err
	}
	if err := l.applyEnv(cfg); err != nil {
		return nil, err
	}
	overrides.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolvedPath returns the config file the loader reads.
func (l *Loader) ResolvedPath() (string, error) {
	path, _, err := l.resolvePath()
	return path, err
}

func (l *Loader) getenv(key string) string {
	if l.Getenv != nil {
		return l.Getenv(key)
	}
	return os.Getenv(key)
}

func (l *Loader) resolvePath() (string, bool, error) {
	if l.Path != "" {
		return l.Path, true, nil
	}
	if p := l.getenv(EnvConfig); p != "" {
		return p, true, nil
	}
	p, err := DefaultPath()
	return p, false, err
}

func loadFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return errors.NewConfigUnreadableError(path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return errors.NewConfigUnreadableError(path, err)
	}
	return nil
}

func (l *Loader) applyEnv(cfg *Config) error {
	if v := l.getenv(EnvModel); v != "" {
		cfg.Claude.Model = v
	}
	if v := l.getenv(EnvTimeout); v != "" {
		t, err := ParseTimeout(v)
		if err != nil {
			return errors.NewConfigInvalidError(fmt.Sprintf("%s: %v", EnvTimeout, err))
		}
		cfg.Execution.Timeout = t
	}
	if v := l.getenv(EnvImage); v != "" {
		cfg.Docker.ImageName = v
		cfg.Docker.ImageTag = ""
	}
	if v := l.getenv(EnvOutputDir); v != "" {
		cfg.Execution.OutputBaseDir = v
	}
	if v := l.getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

func (o Overrides) apply(cfg *Config) {
	if o.Model != nil {
		cfg.Claude.Model = *o.Model
	}
	if o.Timeout != nil {
		cfg.Execution.Timeout = *o.Timeout
	}
	if o.Image != nil {
		cfg.Docker.ImageName = *o.Image
		cfg.Docker.ImageTag = ""
	}
	if o.OutputDir != nil {
		cfg.Execution.OutputBaseDir = *o.OutputDir
	}
	if o.KeepContainer != nil {
		cfg.Execution.KeepContainer = *o.KeepContainer
	}
	if o.NoCache != nil {
		cfg.Docker.NoCache = *o.NoCache
	}
	if o.Agentic != nil {
		cfg.Execution.Agentic = *o.Agentic
	}
	if o.Enrichment != nil {
		cfg.Enrichment.Enabled = *o.Enrichment
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
	if o.MetricsFile != nil {
		cfg.Metrics.Textfile = *o.MetricsFile
	}
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
