package workspace

import (
	"strings"
	"unicode"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
)

const maxProjectName = 50

// ProjectName derives a CamelCase name from the first five words of idea,
// suffixed with the primary domain when the words do not already name it.
func ProjectName(idea string, a analysis.ProjectAnalysis) string {
	words := strings.Fields(idea)
	if len(words) > 5 {
		words = words[:5]
	}

	var b strings.Builder
	for _, w := range words {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, w)
		if len([]rune(clean)) > 2 {
			b.WriteString(titleCase(clean))
		}
	}

	name := b.String()
	if name == "" {
		name = "GeneratedProject"
	}

	if len(a.Domains) > 0 {
		suffix := strings.ReplaceAll(titleCase(a.Domains[0]), "_", "")
		if !strings.Contains(strings.ToLower(name), strings.ToLower(suffix)) {
			name += suffix
		}
	}

	if r := []rune(name); len(r) > maxProjectName {
		name = string(r[:maxProjectName])
	}
	return name
}

// ProjectDescription appends the analysis findings to the idea.
func ProjectDescription(idea string, a analysis.ProjectAnalysis) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(idea))
	if len(a.Domains) > 0 {
		b.WriteString("\n\nDomains: " + strings.Join(a.Domains, ", "))
	}
	if len(a.Technologies) > 0 {
		b.WriteString("\nTechnologies: " + strings.Join(a.Technologies, ", "))
	}
	b.WriteString("\nComplexity: " + string(a.Complexity))
	b.WriteString("\nProject Type: " + a.ProjectType)
	return b.String()
}

// titleCase upper-cases the first letter of every letter run and
// lower-cases the rest, so "ml_ai" becomes "Ml_Ai" and "web3app" "Web3App".
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
