package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/metaforge/internal/config"
	"github.com/felixgeelhaar/metaforge/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or initialize metaforge configuration",
	Long: `Inspect the configuration metaforge runs with.

Values are layered: built-in defaults, then the config file
(~/.metaforge/config.yaml, $METAFORGE_CONFIG or --config), then
METAFORGE_* environment variables, then command flags.

Examples:
  # Show the effective configuration
  metaforge config view

  # Write the defaults to the config file
  metaforge config init

  # Show the config file path
  metaforge config path
`,
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "Display the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigView,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

var configInitForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configViewCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}

func runConfigView(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, _, err := cmdCtx.LoadConfig(config.Overrides{})
	if err != nil {
		return err
	}

	if cmdCtx.Format != "text" {
		return cmdCtx.Print(cfg)
	}
	data, err := config.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(data))
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	path, err := configPath(cmdCtx)
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil && !configInitForce {
		return errors.NewConfigInvalidError(fmt.Sprintf("%s already exists", path)).
			WithSuggestion("Use --force to overwrite it")
	}

	data, err := config.Marshal(config.Default())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return err
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	path, err := configPath(cmdCtx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
	return err
}

func configPath(cmdCtx *CommandContext) (string, error) {
	loader := &config.Loader{Path: cmdCtx.ConfigPath}
	return loader.ResolvedPath()
}
