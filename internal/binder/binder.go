// Package binder turns agent specs into runnable agent definitions,
// optionally enriched with research from an external search source.
package binder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/log"
)

// BoundAgent is a spec rendered into an operating brief.
type BoundAgent struct {
	Name             string                   `json:"name" yaml:"name"`
	Description      string                   `json:"description" yaml:"description"`
	Brief            string                   `json:"brief" yaml:"brief"`
	KnowledgeBase    string                   `json:"knowledge_base,omitempty" yaml:"knowledge_base,omitempty"`
	Research         Research                 `json:"research" yaml:"-"`
	Tools            []blueprint.Capability   `json:"tools" yaml:"tools"`
	ExpertiseLevel   blueprint.ExpertiseLevel `json:"expertise_level" yaml:"expertise_level"`
	ExpertiseAreas   []string                 `json:"expertise_areas" yaml:"expertise_areas"`
	Category         blueprint.Category       `json:"category" yaml:"category"`
	Priority         int                      `json:"priority" yaml:"priority"`
	Dependencies     []string                 `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Collaboration    string                   `json:"collaboration" yaml:"collaboration"`
	QualityStandards []string                 `json:"quality_standards,omitempty" yaml:"quality_standards,omitempty"`
	SuccessMetrics   []string                 `json:"success_metrics" yaml:"success_metrics"`
	Enhanced         bool                     `json:"enhanced" yaml:"enhanced"`
	Degradation      *errors.Degradation      `json:"degradation,omitempty" yaml:"degradation,omitempty"`
	CreatedAt        time.Time                `json:"created_at" yaml:"created_at"`
}

// ToolList renders the capability set as a comma separated list.
func (a BoundAgent) ToolList() string {
	return strings.Join(blueprint.CapabilityNames(a.Tools), ", ")
}

// Config controls enrichment.
type Config struct {
	Enabled bool
	// CallTimeout bounds each search call.
	CallTimeout time.Duration
	// Window bounds the whole enrichment phase of BindAll.
	Window time.Duration
	// Concurrency caps the number of specs enriched at once.
	Concurrency int
}

// DefaultConfig returns enrichment settings used by the CLI.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		CallTimeout: 10 * time.Second,
		Window:      60 * time.Second,
		Concurrency: 4,
	}
}

// Binder binds specs. It is safe for concurrent use.
type Binder struct {
	enricher Enricher
	config   Config
	logger   *log.Logger
	now      func() time.Time

	flight singleflight.Group
	mu     sync.Mutex
	cache  map[string][]Finding
}

// New creates a Binder. A nil enricher disables enrichment.
func New(enricher Enricher, config Config, logger *log.Logger) *Binder {
	if config.CallTimeout <= 0 {
		config.CallTimeout = DefaultConfig().CallTimeout
	}
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConfig().Concurrency
	}
	return &Binder{
		enricher: enricher,
		config:   config,
		logger:   log.OrDefault(logger).WithComponent("binder"),
		now:      time.Now,
		cache:    make(map[string][]Finding),
	}
}

// Bind produces a BoundAgent for spec. It never fails: when enrichment is
// unavailable or errors the agent is bound from the spec and analysis alone
// and carries an ENRICH-001 degradation.
func (b *Binder) Bind(ctx context.Context, spec blueprint.AgentSpec, a analysis.ProjectAnalysis) BoundAgent {
	if b.enricher == nil || !b.config.Enabled {
		return b.basic(spec, a)
	}

	research, err := b.research(ctx, Queries(spec, a, b.now().Year()))
	if err != nil {
		b.logger.Warn("research enhancement failed, using basic brief",
			"agent", spec.Name, "error", err)
		agent := b.basic(spec, a)
		d := errors.Degrade(errors.ErrCodeEnrichmentSkipped, fmt.Errorf("%s: %w", spec.Name, err))
		agent.Degradation = &d
		return agent
	}

	now := b.now()
	knowledge := Synthesize(research, spec, now)
	b.logger.Debug("research enhanced agent", "agent", spec.Name,
		"quality_score", research.QualityScore, "knowledge_chars", len(knowledge))

	agent := b.base(spec, a)
	agent.Description = spec.Description + " (Research-Enhanced)"
	agent.Brief = enhancedBrief(spec, a, knowledge, now.Year())
	agent.KnowledgeBase = knowledge
	agent.Research = research
	agent.Enhanced = true
	return agent
}

// BindAll binds every spec concurrently inside the enrichment window and
// returns agents in spec order together with any degradations.
func (b *Binder) BindAll(ctx context.Context, specs []blueprint.AgentSpec, a analysis.ProjectAnalysis) ([]BoundAgent, []errors.Degradation) {
	if b.config.Window > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Window)
		defer cancel()
	}

	agents := make([]BoundAgent, len(specs))
	var g errgroup.Group
	g.SetLimit(b.config.Concurrency)
	for i, spec := range specs {
		g.Go(func() error {
			agents[i] = b.Bind(ctx, spec, a)
			return nil
		})
	}
	_ = g.Wait()

	var degradations []errors.Degradation
	for _, agent := range agents {
		if agent.Degradation != nil {
			degradations = append(degradations, *agent.Degradation)
		}
	}
	return agents, degradations
}

// research runs queries in order. Individual query failures are skipped;
// the call fails when the window closes or every query failed.
func (b *Binder) research(ctx context.Context, queries []Query) (Research, error) {
	var r Research
	var failed int
	var lastErr error

	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return Research{}, fmt.Errorf("enrichment window closed: %w", err)
		}
		findings, err := b.search(ctx, q)
		if err != nil {
			failed++
			lastErr = err
			b.logger.Debug("research query failed", "query", q.Term, "error", err)
			continue
		}
		r.collect(q, findings)
	}

	if len(queries) > 0 && failed == len(queries) {
		return Research{}, fmt.Errorf("all %d research queries failed: %w", failed, lastErr)
	}
	r.QualityScore = r.Score()
	return r, nil
}

type searchResult struct {
	findings []Finding
	err      error
}

// search answers q from the cache or the enricher. Concurrent identical
// queries share one call. The shared call is detached from any single
// caller's cancellation and bounded by CallTimeout instead; each caller
// stops waiting when its own ctx ends, even if the enricher ignores ctx.
func (b *Binder) search(ctx context.Context, q Query) ([]Finding, error) {
	key := string(q.Focus) + "|" + q.Term

	b.mu.Lock()
	cached, ok := b.cache[key]
	b.mu.Unlock()
	if ok {
		return cached, nil
	}

	ch := b.flight.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.config.CallTimeout)
		defer cancel()

		resc := make(chan searchResult, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					resc <- searchResult{err: fmt.Errorf("enricher panic: %v", r)}
				}
			}()
			findings, err := b.enricher.Search(callCtx, q)
			resc <- searchResult{findings: findings, err: err}
		}()

		select {
		case res := <-resc:
			if res.err != nil {
				return nil, res.err
			}
			b.mu.Lock()
			b.cache[key] = res.findings
			b.mu.Unlock()
			return res.findings, nil
		case <-callCtx.Done():
			return nil, callCtx.Err()
		}
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]Finding), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Binder) base(spec blueprint.AgentSpec, a analysis.ProjectAnalysis) BoundAgent {
	return BoundAgent{
		Name:             spec.Name,
		Description:      spec.Description,
		Tools:            append([]blueprint.Capability(nil), spec.Tools...),
		ExpertiseLevel:   spec.ExpertiseLevel,
		ExpertiseAreas:   append([]string(nil), spec.ExpertiseAreas...),
		Category:         spec.Category,
		Priority:         spec.Priority,
		Dependencies:     append([]string(nil), spec.Dependencies...),
		Collaboration:    CollaborationInstructions(spec),
		QualityStandards: append([]string(nil), spec.QualityStandards...),
		SuccessMetrics:   SuccessMetrics(spec, a),
		CreatedAt:        b.now(),
	}
}

func (b *Binder) basic(spec blueprint.AgentSpec, a analysis.ProjectAnalysis) BoundAgent {
	agent := b.base(spec, a)
	agent.Brief = basicBrief(spec, a)
	return agent
}

// Fallback is the single generalist used when no team could be planned.
func Fallback(idea string) BoundAgent {
	return BoundAgent{
		Name:        FallbackAgentName,
		Description: "General-purpose developer capable of handling various development tasks",
		Brief: fmt.Sprintf("You are a versatile software developer tasked with creating a project based on this idea: %q\n\n"+
			"Please analyze the requirements and implement a complete solution following best practices.\n", idea),
		Tools: []blueprint.Capability{
			blueprint.CapRead, blueprint.CapWrite, blueprint.CapEdit, blueprint.CapMultiEdit,
			blueprint.CapGlob, blueprint.CapGrep, blueprint.CapBash, blueprint.CapWebFetch, blueprint.CapTodoWrite,
		},
		ExpertiseLevel:   blueprint.LevelExpert,
		ExpertiseAreas:   []string{"General Development"},
		Category:         blueprint.CategoryGeneralist,
		Priority:         1,
		Collaboration:    "Work independently to complete the project",
		QualityStandards: []string{"Code Quality", "Basic Testing"},
		SuccessMetrics:   []string{"Project functionality complete", "Code quality maintained"},
		CreatedAt:        time.Now(),
	}
}
