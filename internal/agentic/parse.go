package agentic

import (
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/metaforge/internal/blueprint"
)

// defaultTools are granted when an agent file names none.
var defaultTools = []blueprint.Capability{
	blueprint.CapRead, blueprint.CapWrite, blueprint.CapEdit, blueprint.CapTodoWrite,
}

// Agent is an agent definition written by the in-container planner.
type Agent struct {
	Name         string
	Description  string
	Instructions string
	Tools        []blueprint.Capability
	FilePath     string
}

// toolList accepts both a YAML sequence and a comma separated scalar.
type toolList []string

func (t *toolList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*t = items
	case yaml.ScalarNode:
		var items []string
		for _, part := range strings.Split(node.Value, ",") {
			if p := strings.Trim(strings.TrimSpace(part), `"'`); p != "" {
				items = append(items, p)
			}
		}
		*t = items
	default:
		return fmt.Errorf("tools must be a list or a comma separated string")
	}
	return nil
}

type frontMatter struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Tools       toolList `yaml:"tools"`
}

// ParseAgentFile parses "---\n<yaml>\n---\n<instructions>". The name
// defaults to the file stem. Unknown tool names are rejected.
func ParseAgentFile(content, path string) (Agent, error) {
	text := strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if !strings.HasPrefix(text, "---\n") {
		return Agent{}, fmt.Errorf("%s: missing front matter", path)
	}
	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return Agent{}, fmt.Errorf("%s: unterminated front matter", path)
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return Agent{}, fmt.Errorf("%s: invalid front matter: %w", path, err)
	}

	body := rest[end+len("\n---"):]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = ""
	}

	agent := Agent{
		Name:         strings.TrimSpace(fm.Name),
		Description:  strings.TrimSpace(fm.Description),
		Instructions: strings.TrimSpace(body),
		FilePath:     path,
	}
	if agent.Name == "" {
		agent.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if agent.Description == "" {
		agent.Description = "Claude-created agent"
	}

	if len(fm.Tools) == 0 {
		agent.Tools = append([]blueprint.Capability(nil), defaultTools...)
		return agent, nil
	}
	tools, err := blueprint.ParseCapabilities(fm.Tools...)
	if err != nil {
		return Agent{}, fmt.Errorf("%s: %w", path, err)
	}
	agent.Tools = tools
	return agent, nil
}
