package binder

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
)

// FallbackAgentName is the single agent used when no team can be planned.
const FallbackAgentName = "GeneralDeveloper"

// Synthesize renders research into a markdown knowledge base.
func Synthesize(r Research, spec blueprint.AgentSpec, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Research-Enhanced Knowledge Base for %s\n", spec.Role)
	fmt.Fprintf(&b, "*Generated on %s with research quality score: %.2f*\n\n", now.Format("2006-01-02"), r.QualityScore)

	if len(r.BestPractices) > 0 {
		fmt.Fprintf(&b, "## Latest Best Practices (%d)\n", now.Year())
		bullets(&b, r.BestPractices, 5)
	}

	if len(r.TechnologyUpdates) > 0 {
		b.WriteString("## Technology Updates & Features\n")
		for _, u := range r.TechnologyUpdates {
			fmt.Fprintf(&b, "### %s\n%s\n\n", u.Term, u.Content)
		}
	}

	if len(r.SecurityInsights) > 0 {
		b.WriteString("## Current Security Considerations\n")
		bullets(&b, r.SecurityInsights, 3)
	}

	if len(r.PerformanceTips) > 0 {
		b.WriteString("## Performance Optimization Techniques\n")
		bullets(&b, r.PerformanceTips, 4)
	}

	if len(r.CommonPitfalls) > 0 {
		b.WriteString("## Common Pitfalls to Avoid\n")
		bullets(&b, r.CommonPitfalls, 3)
	}

	if len(r.DomainKnowledge) > 0 {
		b.WriteString("## Domain-Specific Expertise\n")
		for _, note := range r.DomainKnowledge {
			fmt.Fprintf(&b, "### %s\n", note.Context)
			for _, item := range head(note.Items, 2) {
				fmt.Fprintf(&b, "- %s\n", item)
			}
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func bullets(b *strings.Builder, items []string, limit int) {
	for _, item := range head(items, limit) {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// CollaborationInstructions describes how an agent works with the team,
// keyed on its priority tier.
func CollaborationInstructions(spec blueprint.AgentSpec) string {
	lines := []string{fmt.Sprintf("As a %s, you should:", spec.Role)}

	switch spec.Priority {
	case 1:
		lines = append(lines,
			"- Take leadership role in architectural decisions",
			"- Guide other agents on technical standards",
			"- Review and approve major design decisions",
			"- Coordinate overall project structure",
		)
	case 2:
		lines = append(lines,
			"- Collaborate closely with other development agents",
			"- Share progress and coordinate feature development",
			"- Provide domain expertise to guide implementation",
			"- Review related code and provide feedback",
		)
	default:
		lines = append(lines,
			"- Support development agents with specialized expertise",
			"- Review implementations for quality and compliance",
			"- Provide feedback and recommendations",
			"- Ensure standards are maintained",
		)
	}

	if len(spec.Dependencies) > 0 {
		lines = append(lines, "- Wait for completion from: "+strings.Join(spec.Dependencies, ", "))
	}

	return strings.Join(lines, "\n")
}

// SuccessMetrics lists what done means for spec in this project.
func SuccessMetrics(spec blueprint.AgentSpec, a analysis.ProjectAnalysis) []string {
	metrics := []string{
		"All assigned tasks completed",
		"Code quality standards met",
		"Documentation provided",
	}

	switch spec.Category {
	case blueprint.CategoryFrontend:
		metrics = append(metrics,
			"UI components implemented and responsive",
			"Accessibility standards met",
			"Performance optimization applied",
		)
	case blueprint.CategoryBackend:
		metrics = append(metrics,
			"APIs functional and documented",
			"Database integration working",
			"Security measures implemented",
		)
	case blueprint.CategoryQA:
		metrics = append(metrics,
			"Test coverage meets standards",
			"Automated testing pipeline setup",
			"Quality gates implemented",
		)
	case blueprint.CategoryDevOps:
		metrics = append(metrics,
			"Deployment pipeline configured",
			"Infrastructure provisioned",
			"Monitoring setup complete",
		)
	}

	if len(a.SecurityRequirements) > 0 {
		metrics = append(metrics, "Security requirements validated")
	}
	if len(a.PerformanceRequirements) > 0 {
		metrics = append(metrics, "Performance benchmarks met")
	}
	return metrics
}

func enhancedBrief(spec blueprint.AgentSpec, a analysis.ProjectAnalysis, knowledge string, year int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s - Research-Enhanced AI Agent\n\n", spec.Role)
	fmt.Fprintf(&b, "You are a %s with cutting-edge expertise in %s.\n", spec.Role, strings.Join(spec.ExpertiseAreas, ", "))
	fmt.Fprintf(&b, "You have been created for this project with current %d industry knowledge and best practices.\n\n", year)

	fmt.Fprintf(&b, "## Your Specialization\n%s\n\n", spec.Description)

	b.WriteString("## Core Responsibilities\n")
	list(&b, spec.Responsibilities)

	b.WriteString("## Expertise Areas\n")
	for _, area := range spec.ExpertiseAreas {
		fmt.Fprintf(&b, "- **%s**: Advanced knowledge with latest industry insights\n", area)
	}
	b.WriteString("\n")

	b.WriteString("## Project Context\n")
	fmt.Fprintf(&b, "- **Project Type**: %s\n", a.ProjectType)
	fmt.Fprintf(&b, "- **Complexity Level**: %s\n", a.Complexity)
	fmt.Fprintf(&b, "- **Domains**: %s\n", strings.Join(a.Domains, ", "))
	fmt.Fprintf(&b, "- **Technologies**: %s\n", strings.Join(a.Technologies, ", "))
	fmt.Fprintf(&b, "- **Estimated Scope**: %s\n", a.EstimatedScope)
	fmt.Fprintf(&b, "- **Key Challenges**: %s\n\n", strings.Join(head(a.TechnicalChallenges, 3), ", "))

	b.WriteString("## Research-Enhanced Knowledge Base\n")
	b.WriteString(knowledge)
	b.WriteString("\n")

	b.WriteString("## Your Working Approach\n\n### 1. Quality Standards\n")
	list(&b, spec.QualityStandards)
	b.WriteString(`### 2. Collaboration Style
- Work collaboratively with other specialized agents
- Share knowledge and coordinate effectively
- Review and validate other agents' work when relevant
- Provide expert guidance in your specialization areas

### 3. Implementation Guidelines
- Always use the latest best practices from your knowledge base
- Implement current security measures and compliance requirements
- Follow performance optimization techniques specific to your domain
- Avoid deprecated methods and outdated patterns
- Include comprehensive error handling and logging
- Write clean, maintainable, and well-documented code

### 4. Quality Assurance
- Implement thorough testing strategies appropriate to your specialization
- Conduct code reviews focusing on your areas of expertise
- Validate implementations against current industry standards
- Ensure compatibility with modern tooling and frameworks

`)

	fmt.Fprintf(&b, "## Tools Available\n%s\n\n", strings.Join(blueprint.CapabilityNames(spec.Tools), ", "))

	b.WriteString(`## Success Criteria
Your work will be considered successful when:
- All assigned responsibilities are completed to current industry standards
- Code quality meets or exceeds current best practices
- Implementations are secure, performant, and maintainable
- Integration with other agents' work is seamless
- Documentation is comprehensive and current
`)
	return b.String()
}

func basicBrief(spec blueprint.AgentSpec, a analysis.ProjectAnalysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a %s specializing in %s.\n\n", spec.Role, strings.Join(spec.ExpertiseAreas, ", "))
	b.WriteString("## Responsibilities\n")
	list(&b, spec.Responsibilities)
	b.WriteString("## Project Context\n")
	fmt.Fprintf(&b, "- Type: %s\n", a.ProjectType)
	fmt.Fprintf(&b, "- Domains: %s\n", strings.Join(a.Domains, ", "))
	fmt.Fprintf(&b, "- Technologies: %s\n", strings.Join(a.Technologies, ", "))
	fmt.Fprintf(&b, "- Complexity: %s\n\n", a.Complexity)
	b.WriteString("Please implement your assigned tasks following current best practices and industry standards.\n")
	return b.String()
}

func list(b *strings.Builder, items []string) {
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
