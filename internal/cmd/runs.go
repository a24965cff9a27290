package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/metaforge/internal/checkpoint"
	"github.com/felixgeelhaar/metaforge/internal/config"
	"github.com/felixgeelhaar/metaforge/internal/ux"
	"github.com/felixgeelhaar/metaforge/internal/workspace"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List generation runs in the output directory",
	Long: `List the runs recorded under the output directory, newest first. Each
workspace keeps its run record in .metaforge/run.json, updated after every
state transition, so interrupted runs show the state they stopped in.`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

var (
	runsOutputDir string
	runsLimit     int
)

func init() {
	runsCmd.Flags().StringVar(&runsOutputDir, "output-dir", "", "directory to scan (default execution.output_base_dir)")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 0, "show at most n runs")

	rootCmd.AddCommand(runsCmd)
}

func runRuns(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	var overrides config.Overrides
	if cmd.Flags().Changed("output-dir") {
		overrides.OutputDir = &runsOutputDir
	}
	cfg, _, err := cmdCtx.LoadConfig(overrides)
	if err != nil {
		return err
	}
	base, err := cfg.OutputBase()
	if err != nil {
		return err
	}

	entries, err := checkpoint.List(base, workspace.StateDir)
	if err != nil {
		return err
	}
	if runsLimit > 0 && len(entries) > runsLimit {
		entries = entries[:runsLimit]
	}
	return cmdCtx.Print(ux.NewRunsView(entries))
}
