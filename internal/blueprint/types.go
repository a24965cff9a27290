package blueprint

import "github.com/felixgeelhaar/metaforge/internal/analysis"

// ExpertiseLevel describes how senior an agent is expected to act.
type ExpertiseLevel string

const (
	LevelSpecialist ExpertiseLevel = "specialist"
	LevelExpert     ExpertiseLevel = "expert"
	LevelArchitect  ExpertiseLevel = "architect"
	LevelMaster     ExpertiseLevel = "master"
)

// Strategy is the collaboration topology attached to a blueprint.
type Strategy string

const (
	StrategyHierarchical          Strategy = "hierarchical"
	StrategyPriorityCollaborative Strategy = "priority_collaborative"
	StrategyPeerToPeer            Strategy = "peer_to_peer"
	StrategySingleAgent           Strategy = "single_agent"
)

// AgentSpec is the declarative description of one agent before binding.
type AgentSpec struct {
	Name                string         `json:"name" yaml:"name"`
	Role                string         `json:"role" yaml:"role"`
	Description         string         `json:"description" yaml:"description"`
	Category            Category       `json:"category" yaml:"category"`
	ExpertiseAreas      []string       `json:"expertise_areas" yaml:"expertise_areas"`
	Responsibilities    []string       `json:"responsibilities" yaml:"responsibilities"`
	Tools               []Capability   `json:"tools" yaml:"tools"`
	ExpertiseLevel      ExpertiseLevel `json:"expertise_level" yaml:"expertise_level"`
	Priority            int            `json:"priority" yaml:"priority"`
	Dependencies        []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	QualityStandards    []string       `json:"quality_standards,omitempty" yaml:"quality_standards,omitempty"`
	SpecializationFocus string         `json:"specialization_focus,omitempty" yaml:"specialization_focus,omitempty"`
}

// Blueprint is the full multi-agent execution plan.
type Blueprint struct {
	Specs                []AgentSpec         `json:"specs" yaml:"specs"`
	ExecutionOrder       []string            `json:"execution_order" yaml:"execution_order"`
	ParallelGroups       [][]string          `json:"parallel_groups" yaml:"parallel_groups"`
	CollaborationMatrix  map[string][]string `json:"collaboration_matrix" yaml:"collaboration_matrix"`
	CoordinationStrategy Strategy            `json:"coordination_strategy" yaml:"coordination_strategy"`
	EstimatedDuration    string              `json:"estimated_duration" yaml:"estimated_duration"`
	EstimatedHours       float64             `json:"estimated_hours" yaml:"estimated_hours"`
	QualityGates         []string            `json:"quality_gates" yaml:"quality_gates"`
	SuccessCriteria      []string            `json:"success_criteria" yaml:"success_criteria"`

	// TargetAgentCount is the cardinality the analysis calls for. Generation
	// may produce fewer specs when the analysis triggers fewer roles.
	TargetAgentCount int `json:"target_agent_count" yaml:"target_agent_count"`
}

// Names returns spec names in generation order.
func (b *Blueprint) Names() []string {
	out := make([]string, len(b.Specs))
	for i, s := range b.Specs {
		out[i] = s.Name
	}
	return out
}

// Spec looks up a spec by name.
func (b *Blueprint) Spec(name string) (AgentSpec, bool) {
	for _, s := range b.Specs {
		if s.Name == name {
			return s, true
		}
	}
	return AgentSpec{}, false
}

// OrderedSpecs returns specs in execution order.
func (b *Blueprint) OrderedSpecs() []AgentSpec {
	out := make([]AgentSpec, 0, len(b.ExecutionOrder))
	for _, name := range b.ExecutionOrder {
		if s, ok := b.Spec(name); ok {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy so cached blueprints are never shared mutably.
func (b *Blueprint) Clone() *Blueprint {
	if b == nil {
		return nil
	}
	c := *b
	c.Specs = make([]AgentSpec, len(b.Specs))
	for i, s := range b.Specs {
		c.Specs[i] = s.clone()
	}
	c.ExecutionOrder = cloneStrings(b.ExecutionOrder)
	c.ParallelGroups = make([][]string, len(b.ParallelGroups))
	for i, g := range b.ParallelGroups {
		c.ParallelGroups[i] = cloneStrings(g)
	}
	c.CollaborationMatrix = make(map[string][]string, len(b.CollaborationMatrix))
	for k, v := range b.CollaborationMatrix {
		c.CollaborationMatrix[k] = cloneStrings(v)
	}
	c.QualityGates = cloneStrings(b.QualityGates)
	c.SuccessCriteria = cloneStrings(b.SuccessCriteria)
	return &c
}

func (s AgentSpec) clone() AgentSpec {
	c := s
	c.ExpertiseAreas = cloneStrings(s.ExpertiseAreas)
	c.Responsibilities = cloneStrings(s.Responsibilities)
	c.Tools = append([]Capability(nil), s.Tools...)
	c.Dependencies = cloneStrings(s.Dependencies)
	c.QualityStandards = cloneStrings(s.QualityStandards)
	return c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// Designer produces blueprints from analyses.
type Designer interface {
	Design(a analysis.ProjectAnalysis) *Blueprint
}
