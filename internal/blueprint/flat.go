package blueprint

import "github.com/felixgeelhaar/metaforge/internal/analysis"

// Flat builds a blueprint around externally planned specs: one priority
// tier, no dependencies, everyone collaborating with everyone, and a
// peer_to_peer strategy (single_agent for one spec).
func Flat(specs []AgentSpec, a analysis.ProjectAnalysis, categories CategoryTable) *Blueprint {
	if len(specs) > MaxAgents {
		specs = specs[:MaxAgents]
	}
	if categories == nil {
		categories = DefaultCategories()
	}

	out := make([]AgentSpec, len(specs))
	order := make([]string, len(specs))
	for i, s := range specs {
		c := s.clone()
		c.Priority = 1
		c.Dependencies = nil
		if c.Category == "" {
			c.Category = categories.Classify(c.Name)
		}
		out[i] = c
		order[i] = c.Name
	}

	matrix := make(map[string][]string, len(out))
	for _, s := range out {
		peers := []string{}
		for _, o := range out {
			if o.Name != s.Name {
				peers = append(peers, o.Name)
			}
		}
		matrix[s.Name] = peers
	}

	groups := [][]string{}
	strategy := StrategySingleAgent
	if len(out) > 1 {
		groups = append(groups, append([]string(nil), order...))
		strategy = StrategyPeerToPeer
	}

	hours := EstimateHours(a, len(out))
	return &Blueprint{
		Specs:                out,
		ExecutionOrder:       order,
		ParallelGroups:       groups,
		CollaborationMatrix:  matrix,
		CoordinationStrategy: strategy,
		EstimatedHours:       hours,
		EstimatedDuration:    FormatDuration(hours),
		QualityGates:         qualityGates(a),
		SuccessCriteria:      successCriteria(a),
		TargetAgentCount:     TargetAgentCount(a),
	}
}
