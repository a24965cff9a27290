package binder

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/log"
)

func backendSpec() blueprint.AgentSpec {
	return blueprint.AgentSpec{
		Name:             blueprint.NameBackend,
		Role:             "Backend Developer",
		Description:      "Builds the API",
		Category:         blueprint.CategoryBackend,
		ExpertiseAreas:   []string{"REST APIs", "Databases"},
		Responsibilities: []string{"Implement endpoints"},
		Tools:            []blueprint.Capability{blueprint.CapRead, blueprint.CapWrite},
		ExpertiseLevel:   blueprint.LevelExpert,
		Priority:         2,
		QualityStandards: []string{"API documentation"},
	}
}

func sampleAnalysis() analysis.ProjectAnalysis {
	return analysis.ProjectAnalysis{
		Domains:                 []string{analysis.DomainBackend},
		Technologies:            []string{"postgresql"},
		Complexity:              analysis.ComplexityModerate,
		ProjectType:             "api_service",
		SecurityRequirements:    []string{"authentication"},
		PerformanceRequirements: []string{"low latency"},
	}
}

func fixedBinder(e Enricher, cfg Config) *Binder {
	b := New(e, cfg, log.Nop())
	b.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return b
}

func TestQueries(t *testing.T) {
	qs := Queries(backendSpec(), sampleAnalysis(), 2026)

	require.Len(t, qs, 6)
	assert.Equal(t, "REST APIs best practices 2026 latest trends", qs[0].Term)
	assert.Equal(t, FocusBestPractices, qs[1].Focus)
	assert.Equal(t, "postgresql 2026 updates features performance optimization", qs[2].Term)
	assert.Equal(t, "Backend Developer security vulnerabilities 2026 best practices", qs[3].Term)
	assert.Equal(t, "REST APIs Databases performance optimization 2026", qs[4].Term)
	assert.Equal(t, "backend development 2026 common pitfalls mistakes", qs[5].Term)
	assert.Equal(t, FocusPitfalls, qs[5].Focus)
}

func TestResearchScore(t *testing.T) {
	full := Research{
		BestPractices:     []string{"a"},
		TechnologyUpdates: []TechnologyUpdate{{Term: "t", Content: "c"}},
		SecurityInsights:  []string{"s"},
		PerformanceTips:   []string{"p"},
		CommonPitfalls:    []string{"x"},
		DomainKnowledge:   []DomainNote{{Context: "d", Items: []string{"i"}}},
	}
	assert.LessOrEqual(t, full.Score(), 1.0)
	assert.InDelta(t, 1.0, full.Score(), 1e-9)
	assert.InDelta(t, 0.35, Research{BestPractices: []string{"a"}, PerformanceTips: []string{"p"}}.Score(), 1e-9)
	assert.Zero(t, Research{}.Score())
}

func TestBindEnhanced(t *testing.T) {
	b := fixedBinder(StaticEnricher{}, DefaultConfig())

	agent := b.Bind(context.Background(), backendSpec(), sampleAnalysis())

	assert.True(t, agent.Enhanced)
	assert.Nil(t, agent.Degradation)
	assert.Equal(t, blueprint.NameBackend, agent.Name)
	assert.Contains(t, agent.Description, "Research-Enhanced")
	assert.Contains(t, agent.KnowledgeBase, "## Latest Best Practices (2026)")
	assert.Contains(t, agent.KnowledgeBase, "## Current Security Considerations")
	assert.Contains(t, agent.Brief, "# Backend Developer - Research-Enhanced AI Agent")
	assert.Contains(t, agent.Brief, "Read, Write")
	assert.InDelta(t, 0.85, agent.Research.QualityScore, 1e-9)
	assert.Contains(t, agent.SuccessMetrics, "APIs functional and documented")
}

func TestBindNeverFails(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	tests := []struct {
		name     string
		enricher Enricher
	}{
		{"error", EnricherFunc(func(context.Context, Query) ([]Finding, error) {
			return nil, fmt.Errorf("search unavailable")
		})},
		{"panic", EnricherFunc(func(context.Context, Query) ([]Finding, error) {
			panic("malformed response")
		})},
		{"ignores deadline", EnricherFunc(func(context.Context, Query) ([]Finding, error) {
			<-release
			return nil, nil
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fixedBinder(tt.enricher, Config{Enabled: true, CallTimeout: 20 * time.Millisecond})

			start := time.Now()
			agent := b.Bind(context.Background(), backendSpec(), sampleAnalysis())

			assert.Less(t, time.Since(start), 2*time.Second)
			assert.False(t, agent.Enhanced)
			assert.Empty(t, agent.KnowledgeBase)
			require.NotNil(t, agent.Degradation)
			assert.Equal(t, errors.ErrCodeEnrichmentSkipped, agent.Degradation.Code)
			assert.Contains(t, agent.Brief, "You are a Backend Developer specializing in REST APIs, Databases.")
			assert.Equal(t, backendSpec().Tools, agent.Tools)
		})
	}
}

func TestBindPartialFailureStillEnhanced(t *testing.T) {
	e := EnricherFunc(func(ctx context.Context, q Query) ([]Finding, error) {
		if q.Focus == FocusTechnologyUpdates {
			return nil, fmt.Errorf("rate limited")
		}
		return StaticEnricher{}.Search(ctx, q)
	})
	agent := fixedBinder(e, DefaultConfig()).Bind(context.Background(), backendSpec(), sampleAnalysis())

	assert.True(t, agent.Enhanced)
	assert.Empty(t, agent.Research.TechnologyUpdates)
	assert.NotEmpty(t, agent.Research.BestPractices)
}

func TestBindDisabled(t *testing.T) {
	for _, b := range []*Binder{
		fixedBinder(nil, DefaultConfig()),
		fixedBinder(StaticEnricher{}, Config{Enabled: false}),
	} {
		agent := b.Bind(context.Background(), backendSpec(), sampleAnalysis())
		assert.False(t, agent.Enhanced)
		assert.Nil(t, agent.Degradation)
		assert.NotEmpty(t, agent.Brief)
	}
}

func TestBindAllWindow(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	blocking := EnricherFunc(func(context.Context, Query) ([]Finding, error) {
		<-release
		return nil, nil
	})

	b := fixedBinder(blocking, Config{Enabled: true, CallTimeout: time.Minute, Window: 50 * time.Millisecond, Concurrency: 2})
	specs := []blueprint.AgentSpec{backendSpec(), backendSpec(), backendSpec()}
	specs[1].Name = "Second"
	specs[2].Name = "Third"

	start := time.Now()
	agents, degradations := b.BindAll(context.Background(), specs, sampleAnalysis())

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, agents, 3)
	assert.Equal(t, []string{blueprint.NameBackend, "Second", "Third"},
		[]string{agents[0].Name, agents[1].Name, agents[2].Name})
	assert.Len(t, degradations, 3)
}

func TestSearchDeduplicatesQueries(t *testing.T) {
	var calls atomic.Int32
	e := EnricherFunc(func(ctx context.Context, q Query) ([]Finding, error) {
		calls.Add(1)
		return StaticEnricher{}.Search(ctx, q)
	})
	b := fixedBinder(e, DefaultConfig())

	b.Bind(context.Background(), backendSpec(), sampleAnalysis())
	first := calls.Load()
	b.Bind(context.Background(), backendSpec(), sampleAnalysis())

	assert.Equal(t, int32(6), first)
	assert.Equal(t, first, calls.Load())
}

func TestSearchSharedCallOutlivesCanceledCaller(t *testing.T) {
	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	e := EnricherFunc(func(ctx context.Context, q Query) ([]Finding, error) {
		calls.Add(1)
		close(started)
		select {
		case <-release:
			return []Finding{{Title: "shared"}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	b := fixedBinder(e, DefaultConfig())
	q := Query{Term: "postgres indexing", Focus: FocusBestPractices}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := b.search(ctx, q)
		firstErr <- err
	}()
	<-started

	second := make(chan []Finding, 1)
	go func() {
		findings, err := b.search(context.Background(), q)
		assert.NoError(t, err)
		second <- findings
	}()

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("canceled caller kept waiting")
	}

	close(release)
	select {
	case findings := <-second:
		require.Len(t, findings, 1)
		assert.Equal(t, "shared", findings[0].Title)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller never got the shared result")
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestCollaborationInstructions(t *testing.T) {
	spec := backendSpec()
	spec.Priority = 1
	assert.Contains(t, CollaborationInstructions(spec), "Take leadership role")

	spec.Priority = 3
	spec.Dependencies = []string{"A", "B"}
	text := CollaborationInstructions(spec)
	assert.True(t, strings.HasPrefix(text, "As a Backend Developer, you should:"))
	assert.Contains(t, text, "Support development agents")
	assert.Contains(t, text, "- Wait for completion from: A, B")
}

func TestSuccessMetrics(t *testing.T) {
	spec := backendSpec()
	spec.Category = blueprint.CategoryQA
	metrics := SuccessMetrics(spec, sampleAnalysis())

	assert.Len(t, metrics, 8)
	assert.Contains(t, metrics, "Test coverage meets standards")
	assert.Contains(t, metrics, "Security requirements validated")
	assert.Contains(t, metrics, "Performance benchmarks met")

	spec.Category = blueprint.CategoryMobile
	assert.Len(t, SuccessMetrics(spec, analysis.ProjectAnalysis{}), 3)
}

func TestSynthesizeCaps(t *testing.T) {
	r := Research{
		BestPractices:  []string{"b1", "b2", "b3", "b4", "b5", "b6", "b7"},
		CommonPitfalls: []string{"p1", "p2", "p3", "p4"},
		DomainKnowledge: []DomainNote{
			{Context: "payments", Items: []string{"d1", "d2", "d3"}},
		},
	}
	out := Synthesize(r, backendSpec(), time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))

	assert.Contains(t, out, "*Generated on 2026-01-02")
	assert.Contains(t, out, "- b5")
	assert.NotContains(t, out, "- b6")
	assert.Contains(t, out, "- p3")
	assert.NotContains(t, out, "- p4")
	assert.Contains(t, out, "### payments")
	assert.NotContains(t, out, "- d3")
}

func TestFallback(t *testing.T) {
	agent := Fallback("a todo app")
	assert.Equal(t, FallbackAgentName, agent.Name)
	assert.Contains(t, agent.Brief, `"a todo app"`)
	assert.False(t, agent.Enhanced)
	assert.Contains(t, agent.ToolList(), "TodoWrite")
}
