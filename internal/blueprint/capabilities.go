package blueprint

import (
	"strings"

	"github.com/felixgeelhaar/metaforge/internal/errors"
)

// Capability is a tool an agent may use inside the container.
// The set is closed: anything else is rejected when a spec is built.
type Capability string

const (
	CapRead      Capability = "Read"
	CapWrite     Capability = "Write"
	CapEdit      Capability = "Edit"
	CapMultiEdit Capability = "MultiEdit"
	CapGlob      Capability = "Glob"
	CapGrep      Capability = "Grep"
	CapBash      Capability = "Bash"
	CapWebFetch  Capability = "WebFetch"
	CapWebSearch Capability = "WebSearch"
	CapTodoWrite Capability = "TodoWrite"
)

// AllCapabilities lists every known capability in canonical order.
var AllCapabilities = []Capability{
	CapRead, CapWrite, CapEdit, CapMultiEdit, CapGlob, CapGrep,
	CapBash, CapWebFetch, CapWebSearch, CapTodoWrite,
}

// ParseCapability resolves a tool name case-insensitively.
func ParseCapability(name string) (Capability, error) {
	trimmed := strings.TrimSpace(name)
	for _, c := range AllCapabilities {
		if strings.EqualFold(string(c), trimmed) {
			return c, nil
		}
	}
	return "", errors.NewUnknownCapabilityError(name)
}

// ParseCapabilities resolves and de-duplicates a list of tool names,
// keeping first-seen order. The first unknown name aborts the parse.
func ParseCapabilities(names ...string) ([]Capability, error) {
	out := make([]Capability, 0, len(names))
	seen := make(map[Capability]bool, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		c, err := ParseCapability(n)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

// mustCapabilities is for the built-in catalog only.
func mustCapabilities(names ...string) []Capability {
	caps, err := ParseCapabilities(names...)
	if err != nil {
		panic(err)
	}
	return caps
}

// CapabilityNames renders capabilities as plain strings.
func CapabilityNames(caps []Capability) []string {
	out := make([]string, len(caps))
	for i, c := range caps {
		out[i] = string(c)
	}
	return out
}
