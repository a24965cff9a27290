package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "metaforge",
	Short: "Generate whole projects with a team of AI agents in a container",
	Long: `metaforge turns a one-line project idea into a working codebase.

It analyzes the idea, designs a team of specialized agents (or lets an agent
inside the container design one), renders their configuration into a fresh
workspace and runs the generation inside a sandboxed container, following its
output until the project is complete or the deadline expires.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx, which is cancelled on
// SIGINT and SIGTERM by the binary.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $METAFORGE_CONFIG or ~/.metaforge/config.yaml)")
	flags.BoolP("verbose", "v", false, "debug logging, including container output")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.StringP("format", "o", "text", "output format: text, json or yaml")
}
