package ux

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/metaforge/internal/errors"
)

// ErrorWithSuggestion wraps an uncoded error with a recovery hint.
type ErrorWithSuggestion struct {
	Err        error
	Suggestion string
}

func (e *ErrorWithSuggestion) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v\n\nSuggestion: %s", e.Err, e.Suggestion)
	}
	return e.Err.Error()
}

func (e *ErrorWithSuggestion) Unwrap() error {
	return e.Err
}

// NewErrorWithSuggestion creates a new error with a suggestion
func NewErrorWithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}
	return &ErrorWithSuggestion{
		Err:        err,
		Suggestion: suggestion,
	}
}

// EnhanceError adds a suggestion to errors that carry none. Coded errors
// already carry their own and are returned unchanged.
func EnhanceError(err error) error {
	if err == nil {
		return nil
	}
	if errors.CodeOf(err) != "" {
		return err
	}

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "permission denied") && strings.Contains(errMsg, "docker.sock"):
		return NewErrorWithSuggestion(err,
			"Add your user to the docker group: sudo usermod -aG docker $USER (then logout/login)")
	case strings.Contains(errMsg, "Cannot connect to the Docker daemon"):
		return NewErrorWithSuggestion(err,
			"Docker is not running. Start Docker and run 'metaforge doctor' to verify")
	case strings.Contains(errMsg, "permission denied"):
		return NewErrorWithSuggestion(err,
			"Check that the output directory is writable or set execution.output_base_dir")
	case strings.Contains(errMsg, "no space left on device"):
		return NewErrorWithSuggestion(err,
			"Free disk space or prune old containers and images with 'docker system prune'")
	}
	return err
}

// RenderError renders err as a panel with its code, message, cause and
// suggestions.
func RenderError(err error) string {
	var me *errors.MetaError
	if !stderrors.As(err, &me) {
		var ws *ErrorWithSuggestion
		if stderrors.As(err, &ws) {
			return errorPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
				errorStyle.Render("Error: ")+ws.Err.Error(),
				"",
				labelStyle.Render("Suggestion: ")+ws.Suggestion,
			))
		}
		return errorPanelStyle.Render(errorStyle.Render("Error: ") + err.Error())
	}

	lines := []string{errorStyle.Render(fmt.Sprintf("[%s] ", me.Code)) + me.Message}
	suggestions := append([]string(nil), me.Suggestions...)
	for cause := me.Cause; cause != nil; {
		inner, ok := cause.(*errors.MetaError)
		if !ok {
			lines = append(lines, mutedStyle.Render("cause: ")+cause.Error())
			break
		}
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("cause: [%s] ", inner.Code))+inner.Message)
		suggestions = append(suggestions, inner.Suggestions...)
		cause = inner.Cause
	}
	if len(suggestions) > 0 {
		lines = append(lines, "", labelStyle.Render("Suggestions:"))
		for _, s := range dedupe(suggestions) {
			lines = append(lines, "  • "+s)
		}
	}
	if me.DocsURL != "" {
		lines = append(lines, "", labelStyle.Render("Docs: ")+me.DocsURL)
	}
	return errorPanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := items[:0:0]
	for _, s := range items {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
