package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/metaforge/internal/log"
)

func TestAnalyzeEmptyIdeaFallsBack(t *testing.T) {
	a := NewAnalyzer(log.Nop())

	for _, idea := range []string{"", "   \n\t"} {
		got := a.Analyze(idea)
		assert.True(t, got.Degraded)
		assert.Equal(t, []string{DomainGeneral}, got.Domains)
		assert.Equal(t, ComplexityModerate, got.Complexity)
		assert.Equal(t, 0.3, got.Confidence)
		assert.Len(t, got.TechnicalChallenges, 3)
	}
}

func TestAnalyzeIdeaWithoutSignalFallsBack(t *testing.T) {
	a := NewAnalyzer(log.Nop())

	got := a.Analyze("something nice for my grandmother")
	assert.True(t, got.Degraded)
	assert.Equal(t, []string{DomainGeneral}, got.Domains)
	assert.Equal(t, []string{"general"}, got.Technologies)
	assert.Equal(t, 5, got.WordCount)

	assert.False(t, a.Analyze("a todo list in python").Degraded)
}

func TestAnalyzeBackendIdea(t *testing.T) {
	a := NewAnalyzer(log.Nop())

	got := a.Analyze("Build a REST API backend in Go with PostgreSQL storage")

	assert.False(t, got.Degraded)
	assert.Contains(t, got.Domains, DomainBackend)
	assert.Contains(t, got.Technologies, "golang")
	assert.Contains(t, got.Technologies, "postgresql")
	assert.Contains(t, got.SecurityRequirements, "API Rate Limiting")
	assert.Equal(t, 10, got.WordCount)
	assert.Greater(t, got.Confidence, 0.0)
}

func TestAnalyzeComplexityTiers(t *testing.T) {
	a := NewAnalyzer(log.Nop())

	simple := a.Analyze("todo list with a react ui")
	assert.Equal(t, ComplexitySimple, simple.Complexity)
	assert.Equal(t, ScopeSmall, simple.EstimatedScope)

	enterprise := a.Analyze("enterprise distributed microservices platform with machine learning, " +
		"real-time analytics dashboard, security compliance, kubernetes docker aws deployment, " +
		"react frontend, postgresql database, third-party api integrations, high-performance concurrent processing")
	assert.Equal(t, ComplexityEnterprise, enterprise.Complexity)
	assert.Contains(t, enterprise.QualityRequirements, "Architecture Review")
	assert.Contains(t, enterprise.DeploymentNeeds, "Infrastructure as Code")
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	a := NewAnalyzer(log.Nop())
	idea := "A mobile app with machine learning recommendations and a react dashboard"

	first := a.Analyze(idea)
	second := a.Analyze(idea)
	require.Equal(t, first, second)
}

func TestAnalyzeListsHaveNoDuplicates(t *testing.T) {
	a := NewAnalyzer(log.Nop())
	got := a.Analyze("secure backend api with authentication, encryption and compliance audit for blockchain and ai")

	for name, list := range map[string][]string{
		"challenges":  got.TechnicalChallenges,
		"quality":     got.QualityRequirements,
		"security":    got.SecurityRequirements,
		"performance": got.PerformanceRequirements,
		"deployment":  got.DeploymentNeeds,
	} {
		seen := map[string]bool{}
		for _, v := range list {
			assert.False(t, seen[v], "%s has duplicate %q", name, v)
			seen[v] = true
		}
	}
}

func TestEstimateScope(t *testing.T) {
	tests := []struct {
		name       string
		complexity Complexity
		words      int
		domains    int
		want       Scope
	}{
		{"tiny", ComplexitySimple, 5, 0, ScopeSmall},
		{"medium by domains", ComplexityModerate, 10, 3, ScopeMedium},
		{"medium by words", ComplexitySimple, 60, 2, ScopeMedium},
		{"large", ComplexityEnterprise, 120, 1, ScopeLarge},
		{"domains capped at three", ComplexitySimple, 0, 10, ScopeSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EstimateScope(tt.complexity, tt.words, tt.domains))
		})
	}
}

func TestClassifyProjectTypeFallsBackToDomains(t *testing.T) {
	assert.Equal(t, "mobile_application", classifyProjectType("something", []string{DomainMobile}))
	assert.Equal(t, "api_service", classifyProjectType("something", []string{DomainBackend}))
	assert.Equal(t, "web_application", classifyProjectType("something", []string{DomainFrontend, DomainBackend}))
	assert.Equal(t, "general_application", classifyProjectType("something", nil))
	assert.Equal(t, "cli_tool", classifyProjectType("a small cli for renaming files", nil))
}

func TestComplexityHelpers(t *testing.T) {
	assert.Equal(t, 1, ComplexitySimple.Rank())
	assert.Equal(t, 4, ComplexityEnterprise.Rank())
	assert.True(t, ComplexityComplex.IsHigh())
	assert.False(t, ComplexityModerate.IsHigh())
	assert.False(t, Complexity("huge").Valid())
}
