package ux

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
)

// minIdeaLength is the shortest idea worth analyzing.
const minIdeaLength = 10

// PromptForIdea asks for a project idea in a multi-line editor.
func PromptForIdea() (string, error) {
	var idea string

	form := huh.NewForm(huh.NewGroup(
		huh.NewText().
			Title("What should metaforge build?").
			Description("Describe the project in a sentence or two. Mention the stack if you have one in mind.").
			Placeholder("A REST API for a todo app with React frontend and PostgreSQL").
			CharLimit(2000).
			Validate(ValidateIdea).
			Value(&idea),
	))

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("prompt failed: %w", err)
	}
	return strings.TrimSpace(idea), nil
}

// ValidateIdea rejects blank and very short ideas.
func ValidateIdea(idea string) error {
	if len(strings.TrimSpace(idea)) < minIdeaLength {
		return fmt.Errorf("please describe the project in at least %d characters", minIdeaLength)
	}
	return nil
}

// PromptForConfirmation displays a yes/no confirmation prompt
func PromptForConfirmation(message string, defaultValue bool) (bool, error) {
	confirmed := defaultValue

	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(message).
			Value(&confirmed),
	))

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return confirmed, nil
}

// IsInteractive returns true if stdin is a terminal (not piped)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

var ciEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"BUILDKITE",
}

// ShouldPrompt is false in CI and when stdin is not a terminal.
func ShouldPrompt() bool {
	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return false
		}
	}
	return IsInteractive()
}
