package ux

import "github.com/charmbracelet/lipgloss"

// Styles used by the text views.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1)

	errorPanelStyle = panelStyle.
			BorderForeground(lipgloss.Color("9"))
)

// statusStyle picks the style for a status word.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "completed", "healthy":
		return successStyle
	case "partial", "degraded", "running", "medium":
		return warningStyle
	default:
		return errorStyle
	}
}

// row renders "label: value" with a fixed label column.
func row(label, value string) string {
	return labelStyle.Render(padRight(label+":", 12)) + " " + valueStyle.Render(value)
}

func padRight(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s
}
