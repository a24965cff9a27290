package blueprint

import (
	"fmt"
	"math"
	"sort"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/log"
)

const (
	// MaxAgents bounds both the target cardinality and the generated specs.
	MaxAgents = 8
	// maxDomainAgents caps the per-domain specialists.
	maxDomainAgents = 4
)

var complexityMultiplier = map[analysis.Complexity]int{
	analysis.ComplexitySimple:     1,
	analysis.ComplexityModerate:   2,
	analysis.ComplexityComplex:    3,
	analysis.ComplexityEnterprise: 4,
}

var baseHours = map[analysis.Complexity]float64{
	analysis.ComplexitySimple:     8,
	analysis.ComplexityModerate:   24,
	analysis.ComplexityComplex:    48,
	analysis.ComplexityEnterprise: 96,
}

var scopeMultiplier = map[analysis.Scope]float64{
	analysis.ScopeSmall:  1.0,
	analysis.ScopeMedium: 1.5,
	analysis.ScopeLarge:  2.0,
}

// domainAgents pairs a detected domain with the specialist it triggers,
// in generation order.
var domainAgents = []struct {
	domain string
	build  func() AgentSpec
}{
	{analysis.DomainFrontend, frontendSpec},
	{analysis.DomainBackend, backendSpec},
	{analysis.DomainMobile, mobileSpec},
	{analysis.DomainML, mlSpec},
}

// Scheduler is the deterministic blueprint designer. It has no I/O and
// never fails for an analysis within contract.
type Scheduler struct {
	categories CategoryTable
	cache      *Cache
	logger     *log.Logger
}

// NewScheduler creates a scheduler. cache may be nil to disable memoization;
// a nil logger uses the default logger.
func NewScheduler(logger *log.Logger, cache *Cache) *Scheduler {
	return &Scheduler{
		categories: DefaultCategories(),
		cache:      cache,
		logger:     log.OrDefault(logger).WithComponent("blueprint"),
	}
}

// WithCategories replaces the category table used to classify specs.
func (s *Scheduler) WithCategories(t CategoryTable) *Scheduler {
	s.categories = t
	return s
}

// Design converts an analysis into a blueprint.
func (s *Scheduler) Design(a analysis.ProjectAnalysis) *Blueprint {
	var key string
	if s.cache != nil {
		key = CacheKey(a)
		if bp, ok := s.cache.Get(key); ok {
			s.logger.Debug("blueprint cache hit", "key", key[:12])
			return bp
		}
	}

	specs := s.generateSpecs(a)
	s.assignPriorities(specs)
	assignDependencies(specs)

	order := executionOrder(specs)
	bp := &Blueprint{
		Specs:                specs,
		ExecutionOrder:       order,
		ParallelGroups:       parallelGroups(specs, order),
		CollaborationMatrix:  collaborationMatrix(specs),
		CoordinationStrategy: coordinationStrategy(a.Complexity, len(specs)),
		QualityGates:         qualityGates(a),
		SuccessCriteria:      successCriteria(a),
		TargetAgentCount:     TargetAgentCount(a),
	}
	bp.EstimatedHours = EstimateHours(a, len(specs))
	bp.EstimatedDuration = FormatDuration(bp.EstimatedHours)

	s.logger.Info("blueprint designed",
		"agents", len(specs),
		"target_agents", bp.TargetAgentCount,
		"strategy", string(bp.CoordinationStrategy),
		"duration", bp.EstimatedDuration,
	)

	if s.cache != nil {
		s.cache.Put(key, bp)
	}
	return bp
}

// TargetAgentCount is multiplier(complexity) + min(domains,3) +
// min(challenges/2,2), clamped to [1, MaxAgents].
func TargetAgentCount(a analysis.ProjectAnalysis) int {
	mult, ok := complexityMultiplier[a.Complexity]
	if !ok {
		mult = 1
	}
	n := mult + min(len(a.Domains), 3) + min(len(a.TechnicalChallenges)/2, 2)
	return max(1, min(n, MaxAgents))
}

func (s *Scheduler) generateSpecs(a analysis.ProjectAnalysis) []AgentSpec {
	var specs []AgentSpec

	if a.Complexity.IsHigh() {
		specs = append(specs, architectSpec())
	}

	domainCount := 0
	for _, da := range domainAgents {
		if domainCount == maxDomainAgents {
			break
		}
		if a.HasDomain(da.domain) {
			specs = append(specs, da.build())
			domainCount++
		}
	}

	// Unknown tiers rank as simple.
	if a.Complexity.Rank() > analysis.ComplexitySimple.Rank() || len(a.QualityRequirements) > 2 {
		specs = append(specs, qaSpec())
	}
	if len(a.DeploymentNeeds) > 2 || a.Complexity.IsHigh() {
		specs = append(specs, devopsSpec())
	}
	if len(a.SecurityRequirements) > 3 {
		specs = append(specs, securitySpec())
	}
	if len(a.PerformanceRequirements) > 2 {
		specs = append(specs, performanceSpec())
	}
	if a.HasDomain(analysis.DomainDataEngineering) || a.HasDomain(analysis.DomainML) {
		specs = append(specs, dataSpec())
	}
	if len(a.IntegrationNeeds) > 3 {
		specs = append(specs, integrationSpec())
	}

	if len(specs) > MaxAgents {
		specs = specs[:MaxAgents]
	}
	if len(specs) == 0 {
		specs = append(specs, fullStackSpec())
	}

	for i := range specs {
		specs[i].Category = s.categories.Classify(specs[i].Name)
	}
	return specs
}

func (s *Scheduler) assignPriorities(specs []AgentSpec) {
	for i := range specs {
		switch c := specs[i].Category; {
		case c == CategoryArchitecture:
			specs[i].Priority = 1
		case c.IsDomain():
			specs[i].Priority = 2
		case c.IsSupport():
			specs[i].Priority = max(specs[i].Priority, 3)
		}
		if specs[i].Priority < 1 {
			specs[i].Priority = 1
		}
	}
}

// assignDependencies wires QA after everything at priority <= 2 and DevOps
// after everything at priority <= 3. Edges only point to lower tiers.
func assignDependencies(specs []AgentSpec) {
	for i := range specs {
		var limit int
		switch specs[i].Category {
		case CategoryQA:
			limit = 2
		case CategoryDevOps:
			limit = 3
		default:
			continue
		}
		var deps []string
		for _, other := range specs {
			if other.Name != specs[i].Name && other.Priority <= limit && other.Priority < specs[i].Priority {
				deps = append(deps, other.Name)
			}
		}
		specs[i].Dependencies = deps
	}
}

func executionOrder(specs []AgentSpec) []string {
	sorted := make([]AgentSpec, len(specs))
	copy(sorted, specs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	order := make([]string, len(sorted))
	for i, s := range sorted {
		order[i] = s.Name
	}
	return order
}

func parallelGroups(specs []AgentSpec, order []string) [][]string {
	priority := make(map[string]int, len(specs))
	for _, s := range specs {
		priority[s.Name] = s.Priority
	}

	groups := [][]string{}
	var current []string
	flush := func() {
		if len(current) > 1 {
			groups = append(groups, current)
		}
		current = nil
	}
	for i, name := range order {
		if i > 0 && priority[name] != priority[order[i-1]] {
			flush()
		}
		current = append(current, name)
	}
	flush()
	return groups
}

func collaborationMatrix(specs []AgentSpec) map[string][]string {
	matrix := make(map[string][]string, len(specs))
	for _, spec := range specs {
		var match func(AgentSpec) bool
		switch spec.Category {
		case CategoryArchitecture, CategoryDevOps:
			match = func(AgentSpec) bool { return true }
		case CategoryFrontend:
			match = inCategories(CategoryBackend, CategoryQA, CategoryPerformance, CategorySecurity)
		case CategoryBackend:
			match = inCategories(CategoryFrontend, CategoryData, CategoryIntegration, CategoryQA, CategorySecurity)
		case CategoryQA:
			match = func(o AgentSpec) bool { return o.Priority <= 2 }
		default:
			match = func(AgentSpec) bool { return false }
		}

		peers := []string{}
		for _, other := range specs {
			if other.Name != spec.Name && match(other) {
				peers = append(peers, other.Name)
			}
		}
		matrix[spec.Name] = peers
	}
	return matrix
}

func inCategories(cats ...Category) func(AgentSpec) bool {
	return func(s AgentSpec) bool {
		for _, c := range cats {
			if s.Category == c {
				return true
			}
		}
		return false
	}
}

func coordinationStrategy(c analysis.Complexity, n int) Strategy {
	switch {
	case c == analysis.ComplexityEnterprise && n >= 5:
		return StrategyHierarchical
	case n >= 4:
		return StrategyPriorityCollaborative
	case n >= 2:
		return StrategyPeerToPeer
	default:
		return StrategySingleAgent
	}
}

// EstimateHours scales the tier's base hours by scope and a parallelization
// discount of 20% per extra agent, capped at three extra agents.
func EstimateHours(a analysis.ProjectAnalysis, agents int) float64 {
	hours, ok := baseHours[a.Complexity]
	if !ok {
		hours = baseHours[analysis.ComplexitySimple]
	}

	scope := a.EstimatedScope
	if scope == "" {
		scope = analysis.EstimateScope(a.Complexity, a.WordCount, len(a.Domains))
	}
	if m, ok := scopeMultiplier[scope]; ok {
		hours *= m
	}

	if agents > 1 {
		hours *= 1.0 - 0.2*float64(min(agents-1, 3))
	}
	// Keep the value free of float noise so rendering is stable.
	return math.Round(hours*100) / 100
}

// FormatDuration renders hours in the coarsest unit that stays >= 1:
// hours up to 8, 8-hour days up to 48, then 40-hour weeks.
func FormatDuration(hours float64) string {
	switch {
	case hours <= 8:
		return plural(int(hours), "hour")
	case hours <= 48:
		return plural(int(math.Floor(hours/8)), "day")
	default:
		return plural(int(math.Floor(hours/40)), "week")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func qualityGates(a analysis.ProjectAnalysis) []string {
	gates := []string{"Code Quality Review", "Basic Testing"}
	if a.Complexity.IsHigh() {
		gates = append(gates, "Architecture Review", "Security Assessment", "Performance Testing", "Integration Testing")
	}
	if len(a.SecurityRequirements) > 0 {
		gates = append(gates, "Security Compliance Check")
	}
	if len(a.PerformanceRequirements) > 0 {
		gates = append(gates, "Performance Benchmarking")
	}
	return gates
}

func successCriteria(a analysis.ProjectAnalysis) []string {
	criteria := []string{
		"All core functionality implemented",
		"Code quality standards met",
		"Basic testing completed",
	}
	if len(a.PerformanceRequirements) > 0 {
		criteria = append(criteria, "Performance requirements satisfied")
	}
	if len(a.SecurityRequirements) > 0 {
		criteria = append(criteria, "Security standards implemented")
	}
	if len(a.DeploymentNeeds) > 0 {
		criteria = append(criteria, "Deployment pipeline configured")
	}
	if a.Complexity.IsHigh() {
		criteria = append(criteria,
			"Architecture documentation complete",
			"Comprehensive testing suite implemented",
			"Production readiness validated",
		)
	}
	return criteria
}
