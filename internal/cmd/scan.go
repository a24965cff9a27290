package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/metaforge/internal/config"
	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/security"
	"github.com/felixgeelhaar/metaforge/internal/ux"
)

var scanCmd = &cobra.Command{
	Use:   "scan <directory>",
	Short: "Scan a generated project for hardcoded secrets",
	Long: `Scan a generated project for credentials the agents may have written
into it: API keys, cloud access keys, private keys, tokens, passwords and
database URLs with credentials. Matches are printed redacted.

generate runs the same scan on the output directory after every run and
logs a warning when it finds something.

Examples:
  metaforge scan ./20250101_120000_todo_app/output
  metaforge scan --exclude fixtures --strict ./my-project
`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var scanFlags struct {
	exclude []string
	strict  bool
}

func init() {
	scanCmd.Flags().StringSliceVar(&scanFlags.exclude, "exclude", nil, "additional directory names to skip")
	scanCmd.Flags().BoolVar(&scanFlags.strict, "strict", false, "exit non-zero when any secret is found")

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	_, logger, err := cmdCtx.LoadConfig(config.Overrides{})
	if err != nil {
		return err
	}

	root := args[0]
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return errors.New(errors.ErrCodeWorkspaceFailed, fmt.Sprintf("%s is not a directory", root))
	}

	scanner := security.NewScanner(logger)
	for _, dir := range scanFlags.exclude {
		scanner.AddExcludeDir(dir)
	}
	findings, err := scanner.ScanDir(cmd.Context(), root)
	if err != nil {
		return err
	}

	if err := cmdCtx.Print(ux.ScanView{Root: root, Findings: findings}); err != nil {
		return err
	}
	if scanFlags.strict && len(findings) > 0 {
		return fmt.Errorf("found %d potential secret(s)", len(findings))
	}
	return nil
}
