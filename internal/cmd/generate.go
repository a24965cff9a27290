package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/metaforge/internal/config"
	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/log"
	"github.com/felixgeelhaar/metaforge/internal/orchestrator"
	"github.com/felixgeelhaar/metaforge/internal/security"
	"github.com/felixgeelhaar/metaforge/internal/ux"
)

var generateCmd = &cobra.Command{
	Use:   "generate [idea]",
	Short: "Generate a project from an idea",
	Long: `Generate a complete project from a natural language idea.

The idea is analyzed, an agent team is designed (inside the container when
agentic mode is enabled, by the built-in scheduler otherwise), and the
generation runs in a fresh container until a completion marker appears or
the timeout expires. The container is always stopped and removed afterwards
unless --keep-container is set.

Without an argument the idea is asked for interactively.

Examples:
  metaforge generate "REST API for a bookstore with PostgreSQL and React admin UI"
  metaforge generate --model sonnet --timeout 90m "CLI tool to rename photos by EXIF date"
  metaforge generate --traditional --keep-container "Tetris clone in the browser"
  metaforge generate --env HTTP_PROXY=http://proxy:3128 "Slack bot that posts stand-up reminders"
`,
	Args: cobra.ArbitraryArgs,
	RunE: runGenerate,
}

var generateFlags struct {
	model         string
	timeout       string
	image         string
	outputDir     string
	keepContainer bool
	noCache       bool
	traditional   bool
	noEnrichment  bool
	metricsFile   string
	env           []string
}

// Seams for tests.
var (
	shouldPrompt = ux.ShouldPrompt
	promptIdea   = ux.PromptForIdea
)

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&generateFlags.model, "model", "m", "", "model: opus, sonnet, haiku or a full model id")
	f.StringVarP(&generateFlags.timeout, "timeout", "t", "", "run deadline, e.g. 30m, 2h, 3600 or unlimited")
	f.StringVar(&generateFlags.image, "image", "", "container image reference")
	f.StringVar(&generateFlags.outputDir, "output-dir", "", "directory that receives the project workspace")
	f.BoolVar(&generateFlags.keepContainer, "keep-container", false, "stop but do not remove the container")
	f.BoolVar(&generateFlags.noCache, "no-cache", false, "rebuild the image without cache before running")
	f.BoolVar(&generateFlags.traditional, "traditional", false, "design the team with the built-in scheduler instead of in the container")
	f.BoolVar(&generateFlags.noEnrichment, "no-enrichment", false, "skip research enrichment of agent briefs")
	f.StringVar(&generateFlags.metricsFile, "metrics-file", "", "write Prometheus run metrics to this textfile")
	f.StringArrayVarP(&generateFlags.env, "env", "e", nil, "extra container environment KEY=VALUE (repeatable)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cmdCtx, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	idea, err := resolveIdea(args)
	if err != nil {
		return err
	}
	env, err := parseEnv(generateFlags.env)
	if err != nil {
		return err
	}
	overrides, err := generateOverrides(cmd)
	if err != nil {
		return err
	}

	cfg, logger, err := cmdCtx.LoadConfig(overrides)
	if err != nil {
		return err
	}

	docker, err := newDocker(cfg, logger)
	if err != nil {
		return err
	}
	if err := docker.Available(cmd.Context()); err != nil {
		return err
	}

	rm := newRunMetrics(cfg)
	o, err := newOrchestrator(cfg, docker, rm, logger)
	if err != nil {
		return err
	}

	outcome := <-o.Start(cmd.Context(), orchestrator.Request{
		Idea:             idea,
		Model:            cfg.Claude.Model,
		Deadline:         cfg.Execution.Timeout.Duration(),
		KeepContainer:    cfg.Execution.KeepContainer,
		ForceTraditional: generateFlags.traditional,
		NoCache:          cfg.Docker.NoCache,
		EnvOverrides:     env,
	})
	rm.flush(logger)
	if outcome.Result != nil {
		scanOutput(cmd.Context(), outcome.Result, logger)
	}

	if outcome.Result != nil && outcome.Result.RunID != "" {
		if err := cmdCtx.Print(ux.ResultView{Result: outcome.Result}); err != nil {
			return err
		}
	}
	return outcome.Err
}

// scanOutput warns about secrets written into a finished project.
func scanOutput(ctx context.Context, res *orchestrator.Result, logger *log.Logger) {
	if res.OutputPath == "" || (res.Status != orchestrator.StatusCompleted && res.Status != orchestrator.StatusPartial) {
		return
	}
	findings, err := security.NewScanner(logger).ScanDir(ctx, res.OutputPath)
	if err != nil {
		logger.Debug("secret scan skipped", "error", err)
		return
	}
	if len(findings) == 0 {
		return
	}
	counts := security.CountBySeverity(findings)
	logger.Warn("generated project contains potential secrets",
		"findings", len(findings),
		"critical", counts[security.SeverityCritical],
		"high", counts[security.SeverityHigh],
		"hint", "metaforge scan "+res.OutputPath)
}

// resolveIdea joins the arguments or, with none, prompts when possible.
func resolveIdea(args []string) (string, error) {
	idea := strings.TrimSpace(strings.Join(args, " "))
	if idea != "" {
		return idea, nil
	}
	if !shouldPrompt() {
		return "", errors.NewConfigInvalidError("project idea is empty").
			WithSuggestion(`Pass the idea as an argument: metaforge generate "a todo app with a REST API"`)
	}
	return promptIdea()
}

// parseEnv turns KEY=VALUE pairs into a map.
func parseEnv(pairs []string) (map[string]string, error) {
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.NewConfigInvalidError(fmt.Sprintf("--env %q must be KEY=VALUE", p))
		}
		env[key] = value
	}
	return env, nil
}

// generateOverrides returns the flags the user actually set.
func generateOverrides(cmd *cobra.Command) (config.Overrides, error) {
	var o config.Overrides
	flags := cmd.Flags()

	if flags.Changed("model") {
		o.Model = &generateFlags.model
	}
	if flags.Changed("timeout") {
		t, err := config.ParseTimeout(generateFlags.timeout)
		if err != nil {
			return o, errors.NewConfigInvalidError(fmt.Sprintf("--timeout: %v", err))
		}
		o.Timeout = &t
	}
	if flags.Changed("image") {
		o.Image = &generateFlags.image
	}
	if flags.Changed("output-dir") {
		o.OutputDir = &generateFlags.outputDir
	}
	if flags.Changed("keep-container") {
		o.KeepContainer = &generateFlags.keepContainer
	}
	if flags.Changed("no-cache") {
		o.NoCache = &generateFlags.noCache
	}
	if flags.Changed("metrics-file") {
		o.MetricsFile = &generateFlags.metricsFile
	}
	if flags.Changed("traditional") && generateFlags.traditional {
		agentic := false
		o.Agentic = &agentic
	}
	if flags.Changed("no-enrichment") && generateFlags.noEnrichment {
		enabled := false
		o.Enrichment = &enabled
	}
	return o, nil
}
