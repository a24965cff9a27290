package cmd

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/felixgeelhaar/metaforge/internal/agentic"
	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/binder"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/config"
	"github.com/felixgeelhaar/metaforge/internal/container"
	"github.com/felixgeelhaar/metaforge/internal/hooks"
	"github.com/felixgeelhaar/metaforge/internal/log"
	"github.com/felixgeelhaar/metaforge/internal/metrics"
	"github.com/felixgeelhaar/metaforge/internal/orchestrator"
	"github.com/felixgeelhaar/metaforge/internal/workspace"
)

// blueprintCacheSize bounds the per-process blueprint cache.
const blueprintCacheSize = 64

func newDocker(cfg *config.Config, logger *log.Logger) (*container.Docker, error) {
	return container.NewDocker(container.DockerConfig{
		Image:   cfg.Image(),
		User:    cfg.Docker.User,
		Network: cfg.Docker.Network,
	}, logger)
}

func newScheduler(logger *log.Logger) *blueprint.Scheduler {
	return blueprint.NewScheduler(logger, blueprint.NewCache(blueprintCacheSize))
}

// newBinder selects the enricher: none when enrichment is disabled, the
// search client when an endpoint is configured, the static enricher
// otherwise.
func newBinder(cfg *config.Config, logger *log.Logger) (*binder.Binder, error) {
	ec := cfg.Enrichment
	bc := binder.Config{
		Enabled:     ec.Enabled,
		CallTimeout: ec.Timeout,
		Window:      ec.Window,
		Concurrency: ec.Concurrency,
	}
	if !ec.Enabled {
		return binder.New(nil, bc, logger), nil
	}
	if ec.Endpoint == "" {
		return binder.New(binder.StaticEnricher{}, bc, logger), nil
	}

	var apiKey string
	if ec.APIKeyEnv != "" {
		apiKey = os.Getenv(ec.APIKeyEnv)
	}
	search, err := binder.NewSearchEnricher(ec.Endpoint, apiKey, ec.MaxResults)
	if err != nil {
		return nil, err
	}
	return binder.New(search, bc, logger), nil
}

func newHookRegistry(cfg *config.Config, logger *log.Logger) (*hooks.Registry, error) {
	registry := hooks.NewRegistry(logger)
	if err := registry.Load(cfg.Hooks); err != nil {
		return nil, err
	}
	return registry, nil
}

// runMetrics collects the metrics of one invocation for the textfile.
type runMetrics struct {
	path string
	reg  *prometheus.Registry
	hook *metrics.Hook
}

// newRunMetrics returns nil when no textfile is configured.
func newRunMetrics(cfg *config.Config) *runMetrics {
	if cfg.Metrics.Textfile == "" {
		return nil
	}
	reg, m := metrics.NewRegistry()
	return &runMetrics{path: cfg.Metrics.Textfile, reg: reg, hook: metrics.NewHook(m)}
}

func (r *runMetrics) flush(logger *log.Logger) {
	if r == nil {
		return
	}
	if err := metrics.WriteTextfile(r.path, r.reg); err != nil {
		logger.Warn("failed to write metrics", "path", r.path, "error", err)
		return
	}
	logger.Debug("metrics written", "path", r.path)
}

func newOrchestrator(cfg *config.Config, rt container.Runtime, rm *runMetrics, logger *log.Logger) (*orchestrator.Orchestrator, error) {
	base, err := cfg.OutputBase()
	if err != nil {
		return nil, err
	}
	b, err := newBinder(cfg, logger)
	if err != nil {
		return nil, err
	}

	o, err := orchestrator.NewOrchestrator(orchestrator.Deps{
		Runtime:  rt,
		Store:    workspace.NewStore(base, logger),
		Renderer: workspace.NewRenderer(logger),
		Analyzer: analysis.NewAnalyzer(logger),
		Designer: newScheduler(logger),
		Binder:   b,
		Planner:  agentic.NewPlanner(rt, nil, logger),
	}, orchestrator.Config{
		Agentic:           cfg.Execution.Agentic,
		BuildContext:      cfg.Docker.BuildContext,
		NoCache:           cfg.Docker.NoCache,
		StopGrace:         cfg.StopGrace(),
		MaxThinkingTokens: cfg.Claude.MaxThinkingTokens,
		AutoCompact:       cfg.Claude.AutoCompact,
		APIKey:            os.Getenv("ANTHROPIC_API_KEY"),
	}, logger)
	if err != nil {
		return nil, err
	}

	registry, err := newHookRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}
	if rm != nil {
		if err := registry.Register(rm.hook); err != nil {
			return nil, err
		}
	}
	o.SetHookRegistry(registry)
	return o, nil
}
