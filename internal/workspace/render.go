package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/metaforge/internal/binder"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/log"
)

// CompletionMarker is echoed by the generation script when it finishes.
const CompletionMarker = "Project generation complete"

// Settings are the agent CLI settings written to .claude/settings.json.
type Settings struct {
	Model             string `json:"model"`
	MaxThinkingTokens int    `json:"maxThinkingTokens"`
	AutoCompact       bool   `json:"autoCompact"`
}

// RenderInput is everything the container needs to start work.
type RenderInput struct {
	ProjectName string
	Description string
	Idea        string
	Mode        string
	Settings    Settings
	Blueprint   *blueprint.Blueprint
	Agents      []binder.BoundAgent
}

// agentFrontMatter is the YAML header of an agent definition file.
type agentFrontMatter struct {
	Name           string   `yaml:"name"`
	Description    string   `yaml:"description"`
	Tools          []string `yaml:"tools"`
	Priority       int      `yaml:"priority,omitempty"`
	Dependencies   []string `yaml:"dependencies,omitempty"`
	ExpertiseLevel string   `yaml:"expertise_level,omitempty"`
	Enhanced       bool     `yaml:"research_enhanced"`
}

type executionPlan struct {
	Project   string               `yaml:"project"`
	Mode      string               `yaml:"mode"`
	Agents    []string             `yaml:"agents"`
	Blueprint *blueprint.Blueprint `yaml:"blueprint"`
}

// Renderer materializes agent configuration into a workspace.
type Renderer struct {
	logger *log.Logger
}

// NewRenderer creates a renderer.
func NewRenderer(logger *log.Logger) *Renderer {
	return &Renderer{logger: log.OrDefault(logger).WithComponent("renderer")}
}

// Render writes settings, project memory, agent definitions, the execution
// plan and the startup script. Existing agent files are replaced so the
// container sees exactly the bound agents. It returns the written paths
// relative to the workspace.
func (r *Renderer) Render(workspacePath string, in RenderInput) ([]string, error) {
	if in.Blueprint == nil {
		return nil, errors.New(errors.ErrCodeRenderFailed, "no blueprint to render")
	}
	if err := checkFileNames(in.Agents); err != nil {
		return nil, err
	}

	agentsDir := filepath.Join(workspacePath, AgentsDir)
	if err := os.RemoveAll(agentsDir); err != nil {
		return nil, renderErr(AgentsDir, err)
	}
	if err := os.MkdirAll(agentsDir, 0o755); err != nil {
		return nil, renderErr(AgentsDir, err)
	}

	var written []string
	write := func(rel string, data []byte, mode os.FileMode) error {
		if err := os.WriteFile(filepath.Join(workspacePath, rel), data, mode); err != nil {
			return renderErr(rel, err)
		}
		written = append(written, rel)
		return nil
	}

	settings, err := json.MarshalIndent(in.Settings, "", "  ")
	if err != nil {
		return nil, renderErr("settings.json", err)
	}
	if err := write(filepath.Join(ClaudeDir, "settings.json"), append(settings, '\n'), 0o644); err != nil {
		return nil, err
	}

	if err := write(filepath.Join(ClaudeDir, "CLAUDE.md"), []byte(projectMemory(in)), 0o644); err != nil {
		return nil, err
	}

	for _, agent := range in.Agents {
		content, err := AgentFile(agent)
		if err != nil {
			return nil, renderErr(agent.Name, err)
		}
		if err := write(filepath.Join(AgentsDir, FileName(agent.Name)), content, 0o644); err != nil {
			return nil, err
		}
	}

	names := make([]string, len(in.Agents))
	for i, a := range in.Agents {
		names[i] = a.Name
	}
	plan, err := yaml.Marshal(executionPlan{
		Project:   in.ProjectName,
		Mode:      in.Mode,
		Agents:    names,
		Blueprint: in.Blueprint,
	})
	if err != nil {
		return nil, renderErr("execution-plan.yaml", err)
	}
	if err := write(filepath.Join(ClaudeDir, "execution-plan.yaml"), plan, 0o644); err != nil {
		return nil, err
	}

	if err := write(filepath.Join(ClaudeDir, "generation-prompt.md"), []byte(generationPrompt(in)), 0o644); err != nil {
		return nil, err
	}
	if err := write(StartupFile, []byte(startupScript()), 0o755); err != nil {
		return nil, err
	}

	r.logger.Info("configuration rendered", "workspace", workspacePath,
		"agents", len(in.Agents), "files", len(written))
	return written, nil
}

func renderErr(what string, err error) error {
	return errors.Wrap(errors.ErrCodeRenderFailed, "failed to render "+what, err)
}

// checkFileNames rejects agents whose definition files would overwrite
// each other.
func checkFileNames(agents []binder.BoundAgent) error {
	owner := make(map[string]string, len(agents))
	for _, a := range agents {
		name := FileName(a.Name)
		if prev, ok := owner[name]; ok {
			return errors.New(errors.ErrCodeRenderFailed,
				fmt.Sprintf("agents %q and %q both map to %s", prev, a.Name, name))
		}
		owner[name] = a.Name
	}
	return nil
}

// FileName maps an agent name to its definition file name.
func FileName(agentName string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		}
		return -1
	}, agentName)
	if safe == "" {
		safe = "agent"
	}
	return safe + ".md"
}

// AgentFile renders a bound agent as front matter plus markdown body.
func AgentFile(agent binder.BoundAgent) ([]byte, error) {
	fm, err := yaml.Marshal(agentFrontMatter{
		Name:           agent.Name,
		Description:    agent.Description,
		Tools:          blueprint.CapabilityNames(agent.Tools),
		Priority:       agent.Priority,
		Dependencies:   agent.Dependencies,
		ExpertiseLevel: string(agent.ExpertiseLevel),
		Enhanced:       agent.Enhanced,
	})
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimSpace(agent.Brief))
	b.WriteString("\n")
	if agent.Collaboration != "" {
		b.WriteString("\n## Collaboration\n")
		b.WriteString(agent.Collaboration)
		b.WriteString("\n")
	}
	if len(agent.SuccessMetrics) > 0 {
		b.WriteString("\n## Success Metrics\n")
		for _, m := range agent.SuccessMetrics {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}
	return []byte(b.String()), nil
}

func projectMemory(in RenderInput) string {
	bp := in.Blueprint
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", in.ProjectName)
	fmt.Fprintf(&b, "## Project Description\n%s\n\n", in.Description)

	b.WriteString("## Team\n")
	fmt.Fprintf(&b, "- Coordination strategy: %s\n", bp.CoordinationStrategy)
	fmt.Fprintf(&b, "- Estimated duration: %s\n", bp.EstimatedDuration)
	fmt.Fprintf(&b, "- Execution order: %s\n", strings.Join(bp.ExecutionOrder, " -> "))
	for i, g := range bp.ParallelGroups {
		fmt.Fprintf(&b, "- Parallel group %d: %s\n", i+1, strings.Join(g, ", "))
	}
	b.WriteString("\n")

	b.WriteString("## Agents\n")
	for _, a := range in.Agents {
		fmt.Fprintf(&b, "- **%s** (priority %d): %s\n", a.Name, a.Priority, a.Description)
	}
	b.WriteString("\n")

	if len(bp.QualityGates) > 0 {
		b.WriteString("## Quality Gates\n")
		for _, g := range bp.QualityGates {
			fmt.Fprintf(&b, "- %s\n", g)
		}
		b.WriteString("\n")
	}
	if len(bp.SuccessCriteria) > 0 {
		b.WriteString("## Success Criteria\n")
		for _, c := range bp.SuccessCriteria {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Output\nWrite all project files to /workspace/output.\n")
	return b.String()
}

func generationPrompt(in RenderInput) string {
	return fmt.Sprintf(`Please create a complete software project based on this idea: %q

Instructions:
1. Analyze the requirements and create a full project structure
2. Generate all necessary files including source code, configuration, and documentation
3. Follow best practices for the chosen technology stack
4. Create a comprehensive README with setup and usage instructions
5. Include any necessary build scripts, package files, or configuration
6. Make sure the project is ready to run with minimal setup

Delegate work to the sub-agents in /workspace/.claude/agents following the execution
order in /workspace/.claude/CLAUDE.md (%s).

Please create this project in the current directory and provide a summary when complete.
`, in.Idea, strings.Join(in.Blueprint.ExecutionOrder, " -> "))
}

func startupScript() string {
	return `#!/bin/bash
set -e
echo "Starting generation session..."
cd /workspace/output

if [ -z "$ANTHROPIC_API_KEY" ]; then
    echo "WARNING: No ANTHROPIC_API_KEY found. Creating a placeholder project."
    mkdir -p src
    cp /workspace/.claude/generation-prompt.md README.md
else
    claude --dangerously-skip-permissions --print "$(cat /workspace/.claude/generation-prompt.md)"
fi

echo "Generated files:"
ls -la /workspace/output/
echo "` + CompletionMarker + `"
`
}
