package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/config"
	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/ux"
)

var planCmd = &cobra.Command{
	Use:   "plan <idea>",
	Short: "Show the analysis and agent blueprint for an idea",
	Long: `Analyze an idea and print the agent blueprint the built-in scheduler
designs for it: agents, execution order, parallel phases and estimate.

No container is started. Use --format json or yaml for the full blueprint.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

var planRequire []string

func init() {
	planCmd.Flags().StringSliceVar(&planRequire, "require", nil, "capabilities every agent must have, e.g. Bash,WebSearch")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	_, logger, err := cmdCtx.LoadConfig(config.Overrides{})
	if err != nil {
		return err
	}

	idea := strings.Join(args, " ")
	if strings.TrimSpace(idea) == "" {
		return errors.New(errors.ErrCodeAnalysisDegraded, "idea could not be analyzed").
			WithSuggestion("Describe the project with its purpose and main features")
	}
	a := analysis.NewAnalyzer(logger).Analyze(idea)
	if a.Degraded {
		logger.Warn("idea names no known domain or technology, planning from the generic analysis")
	}

	bp := newScheduler(logger).Design(a)
	if len(planRequire) > 0 {
		required, err := blueprint.ParseCapabilities(planRequire...)
		if err != nil {
			return err
		}
		bp = withCapabilities(bp, required)
	}
	if err := blueprint.Validate(bp); err != nil {
		return err
	}
	return cmdCtx.Print(ux.PlanView{Analysis: a.Summarize(), Blueprint: bp})
}

// withCapabilities grants every spec the required capabilities.
func withCapabilities(bp *blueprint.Blueprint, required []blueprint.Capability) *blueprint.Blueprint {
	out := bp.Clone()
	for i := range out.Specs {
		have := make(map[blueprint.Capability]bool, len(out.Specs[i].Tools))
		for _, t := range out.Specs[i].Tools {
			have[t] = true
		}
		for _, r := range required {
			if !have[r] {
				out.Specs[i].Tools = append(out.Specs[i].Tools, r)
			}
		}
	}
	return out
}
