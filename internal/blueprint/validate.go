package blueprint

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/metaforge/internal/errors"
)

// Validate checks the structural invariants of a blueprint: 1..MaxAgents
// uniquely named specs, no self or dangling dependencies, an execution order
// that is a topological permutation of the specs, conflict-free parallel
// groups, and a strategy consistent with the spec count.
func Validate(b *Blueprint) error {
	if b == nil {
		return errors.New(errors.ErrCodeBlueprintInvalid, "blueprint is nil")
	}

	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if n := len(b.Specs); n < 1 || n > MaxAgents {
		add("spec count %d outside [1,%d]", n, MaxAgents)
	}

	names := make(map[string]AgentSpec, len(b.Specs))
	for _, s := range b.Specs {
		if s.Name == "" {
			add("spec with empty name")
			continue
		}
		if _, dup := names[s.Name]; dup {
			add("duplicate spec name %q", s.Name)
		}
		names[s.Name] = s
		if s.Priority < 1 {
			add("spec %q has priority %d", s.Name, s.Priority)
		}
	}

	for _, s := range b.Specs {
		for _, d := range s.Dependencies {
			if d == s.Name {
				add("spec %q depends on itself", s.Name)
			} else if _, ok := names[d]; !ok {
				add("spec %q depends on unknown %q", s.Name, d)
			}
		}
	}

	position := make(map[string]int, len(b.ExecutionOrder))
	for i, name := range b.ExecutionOrder {
		if _, ok := names[name]; !ok {
			add("execution order names unknown spec %q", name)
		}
		if _, dup := position[name]; dup {
			add("execution order repeats %q", name)
		}
		position[name] = i
	}
	if len(b.ExecutionOrder) != len(names) {
		add("execution order has %d entries for %d specs", len(b.ExecutionOrder), len(names))
	}
	for _, s := range b.Specs {
		p, ok := position[s.Name]
		if !ok {
			continue
		}
		for _, d := range s.Dependencies {
			if dp, ok := position[d]; ok && dp >= p {
				add("%q runs before its dependency %q", s.Name, d)
			}
		}
	}

	for gi, group := range b.ParallelGroups {
		members := make(map[string]bool, len(group))
		for _, name := range group {
			if _, ok := position[name]; !ok {
				add("parallel group %d names %q outside the execution order", gi, name)
			}
			members[name] = true
		}
		for _, name := range group {
			for _, d := range names[name].Dependencies {
				if members[d] {
					add("parallel group %d: %q depends on %q", gi, name, d)
				}
			}
		}
	}

	single := len(b.Specs) == 1
	if single != (b.CoordinationStrategy == StrategySingleAgent) {
		add("strategy %q does not fit %d specs", b.CoordinationStrategy, len(b.Specs))
	}

	if len(problems) > 0 {
		return errors.New(errors.ErrCodeBlueprintInvalid, "invalid blueprint: "+strings.Join(problems, "; "))
	}
	return nil
}
