package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/metaforge/internal/config"
	"github.com/felixgeelhaar/metaforge/internal/log"
	"github.com/felixgeelhaar/metaforge/internal/ux"
)

// CommandContext holds the persistent flags of one command invocation.
type CommandContext struct {
	Verbose    bool
	Format     string
	ConfigPath string
	LogLevel   string
	LogFormat  string

	out    io.Writer
	errOut io.Writer
}

// NewCommandContext extracts the persistent flags from cmd.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	flags := cmd.Flags()

	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, err
	}
	format, err := flags.GetString("format")
	if err != nil {
		return nil, err
	}
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	logLevel, err := flags.GetString("log-level")
	if err != nil {
		return nil, err
	}
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Verbose:    verbose,
		Format:     format,
		ConfigPath: configPath,
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		out:        cmd.OutOrStdout(),
		errOut:     cmd.ErrOrStderr(),
	}, nil
}

// LoadConfig resolves the configuration with the logging flags applied on
// top of overrides, and installs the resulting process logger.
func (c *CommandContext) LoadConfig(overrides config.Overrides) (*config.Config, *log.Logger, error) {
	if c.LogLevel != "" {
		overrides.LogLevel = &c.LogLevel
	}
	if c.LogFormat != "" {
		overrides.LogFormat = &c.LogFormat
	}

	loader := &config.Loader{Path: c.ConfigPath}
	cfg, err := loader.Load(overrides)
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.LogConfig(c.Verbose)
	logCfg.Output = log.NewOutput(c.errOut)
	logger := log.New(logCfg)
	log.SetDefaultLogger(logger)
	return cfg, logger, nil
}

// Print writes v to the command output in the selected format.
func (c *CommandContext) Print(v any) error {
	formatter, err := ux.NewFormatter(c.Format, &ux.FormatterOptions{Writer: c.out})
	if err != nil {
		return err
	}
	return formatter.Format(v)
}
