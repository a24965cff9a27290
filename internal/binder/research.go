package binder

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
)

// Focus classifies what a research query is looking for.
type Focus string

const (
	FocusBestPractices     Focus = "best_practices"
	FocusTechnologyUpdates Focus = "technology_updates"
	FocusSecurity          Focus = "security_insights"
	FocusPerformance       Focus = "performance_optimization"
	FocusPitfalls          Focus = "common_pitfalls"
	FocusDomainKnowledge   Focus = "domain_knowledge"
)

// Query is one research request issued on behalf of a spec.
type Query struct {
	Term     string `json:"term"`
	Focus    Focus  `json:"focus"`
	Priority string `json:"priority"`
	Context  string `json:"context"`
}

// Finding is a single search hit.
type Finding struct {
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	URL       string  `json:"url"`
	Relevance float64 `json:"relevance"`
}

// TechnologyUpdate pairs a technology query with what was found for it.
type TechnologyUpdate struct {
	Term    string `json:"term"`
	Content string `json:"content"`
}

// DomainNote groups domain knowledge under the context that produced it.
type DomainNote struct {
	Context string   `json:"context"`
	Items   []string `json:"items"`
}

// Research is the compiled output of every query for one spec.
type Research struct {
	BestPractices     []string           `json:"best_practices,omitempty"`
	TechnologyUpdates []TechnologyUpdate `json:"technology_updates,omitempty"`
	SecurityInsights  []string           `json:"security_insights,omitempty"`
	PerformanceTips   []string           `json:"performance_tips,omitempty"`
	CommonPitfalls    []string           `json:"common_pitfalls,omitempty"`
	DomainKnowledge   []DomainNote       `json:"domain_knowledge,omitempty"`
	QualityScore      float64            `json:"quality_score"`
}

// Empty reports whether no findings were collected.
func (r Research) Empty() bool {
	return len(r.BestPractices) == 0 && len(r.TechnologyUpdates) == 0 &&
		len(r.SecurityInsights) == 0 && len(r.PerformanceTips) == 0 &&
		len(r.CommonPitfalls) == 0 && len(r.DomainKnowledge) == 0
}

// Queries derives the research queries for a spec in a fixed order:
// expertise areas, technologies, security, performance, domains, and the
// spec's specialization focus.
func Queries(spec blueprint.AgentSpec, a analysis.ProjectAnalysis, year int) []Query {
	var qs []Query

	for _, area := range spec.ExpertiseAreas {
		qs = append(qs, Query{
			Term:     fmt.Sprintf("%s best practices %d latest trends", area, year),
			Focus:    FocusBestPractices,
			Priority: "high",
			Context:  "Agent specialization in " + area,
		})
	}

	for _, tech := range a.Technologies {
		qs = append(qs, Query{
			Term:     fmt.Sprintf("%s %d updates features performance optimization", tech, year),
			Focus:    FocusTechnologyUpdates,
			Priority: "high",
			Context:  "Technology stack for " + spec.Role,
		})
	}

	if len(a.SecurityRequirements) > 0 {
		qs = append(qs, Query{
			Term:     fmt.Sprintf("%s security vulnerabilities %d best practices", spec.Role, year),
			Focus:    FocusSecurity,
			Priority: "medium",
			Context:  "Security considerations for agent specialization",
		})
	}

	if len(a.PerformanceRequirements) > 0 && len(spec.ExpertiseAreas) > 0 {
		qs = append(qs, Query{
			Term:     fmt.Sprintf("%s performance optimization %d", strings.Join(spec.ExpertiseAreas, " "), year),
			Focus:    FocusPerformance,
			Priority: "medium",
			Context:  "Performance optimization techniques",
		})
	}

	for _, domain := range a.Domains {
		qs = append(qs, Query{
			Term:     fmt.Sprintf("%s development %d common pitfalls mistakes", domain, year),
			Focus:    FocusPitfalls,
			Priority: "medium",
			Context:  "Domain expertise in " + domain,
		})
	}

	if spec.SpecializationFocus != "" {
		qs = append(qs, Query{
			Term:     fmt.Sprintf("%s %d expert guide", spec.SpecializationFocus, year),
			Focus:    FocusDomainKnowledge,
			Priority: "low",
			Context:  spec.SpecializationFocus,
		})
	}

	return qs
}

// collect files findings into r according to the query focus.
func (r *Research) collect(q Query, findings []Finding) {
	for _, f := range findings {
		content := strings.TrimSpace(f.Content)
		if content == "" {
			continue
		}
		switch q.Focus {
		case FocusBestPractices:
			r.BestPractices = append(r.BestPractices, content)
		case FocusTechnologyUpdates:
			r.setTechnologyUpdate(q.Term, content)
		case FocusSecurity:
			r.SecurityInsights = append(r.SecurityInsights, content)
		case FocusPerformance:
			r.PerformanceTips = append(r.PerformanceTips, content)
		case FocusPitfalls:
			r.CommonPitfalls = append(r.CommonPitfalls, content)
		default:
			r.addDomainNote(q.Context, content)
		}
	}
}

// setTechnologyUpdate keeps the last finding per term.
func (r *Research) setTechnologyUpdate(term, content string) {
	for i := range r.TechnologyUpdates {
		if r.TechnologyUpdates[i].Term == term {
			r.TechnologyUpdates[i].Content = content
			return
		}
	}
	r.TechnologyUpdates = append(r.TechnologyUpdates, TechnologyUpdate{Term: term, Content: content})
}

func (r *Research) addDomainNote(context, content string) {
	for i := range r.DomainKnowledge {
		if r.DomainKnowledge[i].Context == context {
			r.DomainKnowledge[i].Items = append(r.DomainKnowledge[i].Items, content)
			return
		}
	}
	r.DomainKnowledge = append(r.DomainKnowledge, DomainNote{Context: context, Items: []string{content}})
}

// Score weights each populated section; the result is in [0,1].
func (r Research) Score() float64 {
	var score float64
	if len(r.BestPractices) > 0 {
		score += 0.2
	}
	if len(r.TechnologyUpdates) > 0 {
		score += 0.2
	}
	if len(r.SecurityInsights) > 0 {
		score += 0.15
	}
	if len(r.PerformanceTips) > 0 {
		score += 0.15
	}
	if len(r.CommonPitfalls) > 0 {
		score += 0.15
	}
	if len(r.DomainKnowledge) > 0 {
		score += 0.15
	}
	return min(score, 1.0)
}
