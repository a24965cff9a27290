package analysis

// Complexity is the coarse difficulty tier of a project idea.
type Complexity string

const (
	ComplexitySimple     Complexity = "simple"
	ComplexityModerate   Complexity = "moderate"
	ComplexityComplex    Complexity = "complex"
	ComplexityEnterprise Complexity = "enterprise"
)

// Rank maps the tier onto 1..4. Unknown tiers rank as simple.
func (c Complexity) Rank() int {
	switch c {
	case ComplexityModerate:
		return 2
	case ComplexityComplex:
		return 3
	case ComplexityEnterprise:
		return 4
	default:
		return 1
	}
}

// IsHigh reports whether the tier is complex or enterprise.
func (c Complexity) IsHigh() bool {
	return c == ComplexityComplex || c == ComplexityEnterprise
}

// Valid reports whether c is one of the four known tiers.
func (c Complexity) Valid() bool {
	switch c {
	case ComplexitySimple, ComplexityModerate, ComplexityComplex, ComplexityEnterprise:
		return true
	}
	return false
}

// Scope is the estimated size of the work.
type Scope string

const (
	ScopeSmall  Scope = "small"
	ScopeMedium Scope = "medium"
	ScopeLarge  Scope = "large"
)

// Well-known domain identifiers produced by the Analyzer.
const (
	DomainFrontend        = "frontend"
	DomainBackend         = "backend"
	DomainMobile          = "mobile"
	DomainML              = "ml_ai"
	DomainDevOps          = "devops"
	DomainDataEngineering = "data_engineering"
	DomainSecurity        = "security"
	DomainBlockchain      = "blockchain"
	DomainGaming          = "gaming"
	DomainIoT             = "iot"
	DomainGeneral         = "general"
)

// ProjectAnalysis is the structured reading of a free-text project idea.
// It is produced once per run and treated as read-only afterwards.
//
// The list fields are ordered sets: no duplicates, insertion order kept.
type ProjectAnalysis struct {
	Domains                 []string   `json:"domains" yaml:"domains"`
	Technologies            []string   `json:"technologies" yaml:"technologies"`
	Complexity              Complexity `json:"complexity" yaml:"complexity"`
	ProjectType             string     `json:"project_type" yaml:"project_type"`
	EstimatedScope          Scope      `json:"estimated_scope" yaml:"estimated_scope"`
	TechnicalChallenges     []string   `json:"technical_challenges" yaml:"technical_challenges"`
	QualityRequirements     []string   `json:"quality_requirements" yaml:"quality_requirements"`
	SecurityRequirements    []string   `json:"security_requirements" yaml:"security_requirements"`
	PerformanceRequirements []string   `json:"performance_requirements" yaml:"performance_requirements"`
	IntegrationNeeds        []string   `json:"integration_needs" yaml:"integration_needs"`
	DeploymentNeeds         []string   `json:"deployment_needs" yaml:"deployment_needs"`
	Confidence              float64    `json:"confidence" yaml:"confidence"`
	WordCount               int        `json:"word_count" yaml:"word_count"`

	// Degraded marks the generic analysis substituted for an unusable idea.
	Degraded bool `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// HasDomain reports whether d was detected.
func (a ProjectAnalysis) HasDomain(d string) bool {
	for _, got := range a.Domains {
		if got == d {
			return true
		}
	}
	return false
}

// Summary is the compact view of an analysis carried on run results.
type Summary struct {
	Domains      []string   `json:"domains" yaml:"domains"`
	Technologies []string   `json:"technologies" yaml:"technologies"`
	Complexity   Complexity `json:"complexity" yaml:"complexity"`
	ProjectType  string     `json:"project_type" yaml:"project_type"`
	Scope        Scope      `json:"scope" yaml:"scope"`
	Confidence   float64    `json:"confidence" yaml:"confidence"`
}

// Summarize returns the compact view of a.
func (a ProjectAnalysis) Summarize() Summary {
	return Summary{
		Domains:      a.Domains,
		Technologies: a.Technologies,
		Complexity:   a.Complexity,
		ProjectType:  a.ProjectType,
		Scope:        a.EstimatedScope,
		Confidence:   a.Confidence,
	}
}
