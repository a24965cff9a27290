// Package agentic asks the AI agent running inside the container to design
// its own team and turns the agent files it writes into a blueprint.
package agentic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/binder"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/container"
	"github.com/felixgeelhaar/metaforge/internal/log"
	"github.com/felixgeelhaar/metaforge/internal/workspace"
)

// Paths used by the planner, relative to the workspace.
const (
	PromptFile = ".metaforge/agent-creation-prompt.md"
	agentsDir  = ".claude/agents"
)

// Planning stages reported by PlanningError.
const (
	StagePrompt = "prompt"
	StageExec   = "exec"
	StageParse  = "parse"
)

// PlanningError explains why in-container planning produced no team.
type PlanningError struct {
	Stage string
	Err   error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("agent planning failed at %s: %v", e.Stage, e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// Outcome is a successful planning result.
type Outcome struct {
	Blueprint *blueprint.Blueprint
	Agents    []binder.BoundAgent
	Created   []Agent
	// Degraded is set when the planner only produced the generalist fallback.
	Degraded bool
}

// Planner runs agent creation inside a running container.
type Planner struct {
	runtime    container.Runtime
	categories blueprint.CategoryTable
	logger     *log.Logger
}

// NewPlanner creates a planner. A nil table selects the default categories.
func NewPlanner(rt container.Runtime, categories blueprint.CategoryTable, logger *log.Logger) *Planner {
	if categories == nil {
		categories = blueprint.DefaultCategories()
	}
	return &Planner{
		runtime:    rt,
		categories: categories,
		logger:     log.OrDefault(logger).WithComponent("agentic"),
	}
}

// Plan writes the creation prompt into the workspace, runs the agent CLI in
// h and parses the agent files it leaves in .claude/agents. Any failure is
// returned as a *PlanningError; Plan never panics on bad planner output.
func (p *Planner) Plan(ctx context.Context, h container.Handle, workspacePath, idea string, a analysis.ProjectAnalysis) (*Outcome, error) {
	promptPath := filepath.Join(workspacePath, PromptFile)
	if err := os.MkdirAll(filepath.Dir(promptPath), 0o755); err != nil {
		return nil, &PlanningError{Stage: StagePrompt, Err: err}
	}
	if err := os.WriteFile(promptPath, []byte(CreationPrompt(idea)), 0o644); err != nil {
		return nil, &PlanningError{Stage: StagePrompt, Err: err}
	}

	if _, err := p.runtime.Exec(ctx, h, []string{"mkdir", "-p", container.WorkspaceMount + "/" + agentsDir}, container.WorkspaceMount); err != nil {
		return nil, &PlanningError{Stage: StageExec, Err: err}
	}

	p.logger.Info("asking agent to create its team", "container", h.ShortID())
	res, err := p.runtime.Exec(ctx, h, []string{
		"sh", "-c",
		fmt.Sprintf(`claude --dangerously-skip-permissions -p "$(cat %s/%s)"`, container.WorkspaceMount, PromptFile),
	}, container.WorkspaceMount)
	if err != nil {
		return nil, &PlanningError{Stage: StageExec, Err: err}
	}
	if res.ExitCode != 0 {
		// The CLI may still have written agent files before failing.
		p.logger.Warn("agent creation exited non-zero", "exit_code", res.ExitCode,
			"output", truncate(res.Output, 500))
	}

	created, err := p.readAgents(workspacePath)
	if err != nil {
		return nil, &PlanningError{Stage: StageParse, Err: err}
	}
	if len(created) == 0 {
		return nil, &PlanningError{Stage: StageParse, Err: fmt.Errorf("no agent files found in %s", agentsDir)}
	}
	if len(created) > blueprint.MaxAgents {
		p.logger.Warn("planner created too many agents, truncating", "created", len(created), "max", blueprint.MaxAgents)
		created = created[:blueprint.MaxAgents]
	}

	out := p.outcome(created, a)
	p.logger.Info("agent team created", "agents", out.Blueprint.Names(), "degraded", out.Degraded)
	return out, nil
}

// readAgents parses every agent file in name order. Invalid files are
// skipped. Agents whose names map to the same definition file keep the
// first one.
func (p *Planner) readAgents(workspacePath string) ([]Agent, error) {
	paths, err := filepath.Glob(filepath.Join(workspacePath, agentsDir, "*.md"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	seen := make(map[string]string)
	var agents []Agent
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			p.logger.Warn("cannot read agent file", "path", path, "error", err)
			continue
		}
		agent, err := ParseAgentFile(string(content), path)
		if err != nil {
			p.logger.Warn("skipping agent file", "error", err)
			continue
		}
		key := workspace.FileName(agent.Name)
		if first, ok := seen[key]; ok {
			p.logger.Warn("duplicate agent name", "name", agent.Name, "kept", first, "path", path)
			continue
		}
		seen[key] = agent.Name
		agents = append(agents, agent)
	}
	return agents, nil
}

func (p *Planner) outcome(created []Agent, a analysis.ProjectAnalysis) *Outcome {
	specs := make([]blueprint.AgentSpec, len(created))
	for i, c := range created {
		specs[i] = blueprint.AgentSpec{
			Name:           c.Name,
			Role:           c.Name,
			Description:    c.Description,
			Category:       p.categories.Classify(c.Name),
			Tools:          c.Tools,
			ExpertiseLevel: blueprint.LevelExpert,
			Priority:       1,
		}
	}
	bp := blueprint.Flat(specs, a, p.categories)

	agents := make([]binder.BoundAgent, len(bp.Specs))
	for i, spec := range bp.Specs {
		agents[i] = binder.BoundAgent{
			Name:           spec.Name,
			Description:    spec.Description + " (Claude-created)",
			Brief:          created[i].Instructions,
			Tools:          spec.Tools,
			ExpertiseLevel: spec.ExpertiseLevel,
			Category:       spec.Category,
			Priority:       spec.Priority,
			Collaboration:  binder.CollaborationInstructions(spec),
			SuccessMetrics: binder.SuccessMetrics(spec, a),
		}
	}

	return &Outcome{
		Blueprint: bp,
		Agents:    agents,
		Created:   created,
		Degraded:  len(created) == 1 && created[0].Name == binder.FallbackAgentName,
	}
}

// CreationPrompt asks the agent to design a team for idea and write one
// definition file per agent.
func CreationPrompt(idea string) string {
	tools := strings.Join(blueprint.CapabilityNames(blueprint.AllCapabilities), ", ")
	return fmt.Sprintf(`# Agent Creation Task

Analyze this project idea and create the specialized sub-agents that would work together best to build it.

**Project Idea:** %[1]s

## Your Task

1. Understand what needs to be built, which technologies are involved and which expertise is required.
2. Decide on 1 to %[2]d agents with clear, distinct roles that complement each other.
3. For each agent create a file %[3]s/<AgentName>.md with this structure:

---
name: AgentName
description: One line describing what this agent does
tools: [Read, Write, Edit, Bash, TodoWrite]
---

# AgentName

## Role & Expertise
The agent's primary role and expertise areas.

## System Instructions
How the agent approaches tasks, collaborates with the other agents and which quality standards it follows.

## Guidelines

- Only use tools from: %[4]s
- If the project is small, a single agent named %[5]s is acceptable.
- Do not write any project code yet; only create the agent files.

Create the agents that make the most sense for: **%[1]s**
`, idea, blueprint.MaxAgents, container.WorkspaceMount+"/"+agentsDir, tools, binder.FallbackAgentName)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
