package ux

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/checkpoint"
	"github.com/felixgeelhaar/metaforge/internal/health"
	"github.com/felixgeelhaar/metaforge/internal/orchestrator"
	"github.com/felixgeelhaar/metaforge/internal/security"
)

// ResultView renders the outcome of `metaforge generate`.
type ResultView struct {
	Result *orchestrator.Result
}

func (v ResultView) Data() any { return v.Result }

func (v ResultView) String() string {
	r := v.Result
	lines := []string{
		titleStyle.Render(r.ProjectName),
		labelStyle.Render(padRight("Status:", 12)) + " " + statusStyle(string(r.Status)).Render(string(r.Status)),
		row("Mode", string(r.Mode)),
		row("Model", r.Model),
		row("Run", r.RunID),
	}
	if len(r.Agents) > 0 {
		lines = append(lines, row("Agents", strings.Join(r.Agents, ", ")))
	}
	if r.CoordinationStrategy != "" {
		lines = append(lines, row("Strategy", string(r.CoordinationStrategy)))
	}
	if r.WorkspacePath != "" {
		lines = append(lines, row("Workspace", r.WorkspacePath), row("Output", r.OutputPath))
	}
	if r.ContainerKept {
		lines = append(lines, row("Container", r.ContainerID+" (kept)"))
	}
	lines = append(lines, row("Duration", r.ExecutionTime.Round(time.Second).String()))
	if r.ErrorLines > 0 {
		lines = append(lines, warningStyle.Render(fmt.Sprintf("%d error line(s) reported by the container", r.ErrorLines)))
	}
	for _, d := range r.Degradations {
		lines = append(lines, warningStyle.Render("! ")+mutedStyle.Render(fmt.Sprintf("[%s] %s", d.Code, d.Message)))
	}

	style := panelStyle
	if r.Status == orchestrator.StatusFailed || r.Status == orchestrator.StatusTimeout {
		style = errorPanelStyle
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// PlanView renders an analysis and the blueprint designed for it.
type PlanView struct {
	Analysis  analysis.Summary     `json:"analysis" yaml:"analysis"`
	Blueprint *blueprint.Blueprint `json:"blueprint" yaml:"blueprint"`
}

func (v PlanView) Data() any { return v }

func (v PlanView) String() string {
	a, bp := v.Analysis, v.Blueprint
	var b strings.Builder

	b.WriteString(titleStyle.Render("Analysis") + "\n")
	b.WriteString(row("Complexity", string(a.Complexity)) + "\n")
	b.WriteString(row("Type", a.ProjectType) + "\n")
	b.WriteString(row("Scope", string(a.Scope)) + "\n")
	b.WriteString(row("Domains", orNone(a.Domains)) + "\n")
	b.WriteString(row("Tech", orNone(a.Technologies)) + "\n")
	b.WriteString(row("Confidence", fmt.Sprintf("%.0f%%", a.Confidence*100)) + "\n\n")

	b.WriteString(titleStyle.Render(fmt.Sprintf("Blueprint (%d agents, %s)", len(bp.Specs), bp.CoordinationStrategy)) + "\n")
	for i, name := range bp.ExecutionOrder {
		spec, _ := bp.Spec(name)
		line := fmt.Sprintf("%d. %s", i+1, valueStyle.Render(name)) +
			mutedStyle.Render(fmt.Sprintf("  %s, priority %d", spec.Category, spec.Priority))
		if len(spec.Dependencies) > 0 {
			line += mutedStyle.Render(", after " + strings.Join(spec.Dependencies, ", "))
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	for i, group := range bp.ParallelGroups {
		b.WriteString(row(fmt.Sprintf("Phase %d", i+1), strings.Join(group, " | ")) + "\n")
	}
	b.WriteString(row("Estimate", bp.EstimatedDuration))
	return panelStyle.Render(b.String())
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// HealthView renders doctor reports.
type HealthView struct {
	Reports []health.Report `json:"checks" yaml:"checks"`
	Overall health.Status   `json:"overall" yaml:"overall"`
}

// NewHealthView computes the overall status of reports.
func NewHealthView(reports []health.Report) HealthView {
	return HealthView{Reports: reports, Overall: health.OverallStatus(reports)}
}

func (v HealthView) Data() any { return v }

func (v HealthView) String() string {
	var b strings.Builder
	for _, r := range v.Reports {
		status := string(r.Result.Status)
		b.WriteString(statusStyle(status).Render(padRight(status, 10)) + " " +
			valueStyle.Render(padRight(r.Name, 16)) + " " + r.Result.Message + "\n")
		if s := r.Result.Details["suggestion"]; s != "" && r.Result.Status != health.StatusHealthy {
			b.WriteString(mutedStyle.Render("           -> "+s) + "\n")
		}
	}
	b.WriteString("\n" + labelStyle.Render("Overall: ") + statusStyle(string(v.Overall)).Render(string(v.Overall)))
	return b.String()
}

// RunSummary is one row of `metaforge runs`.
type RunSummary struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	Workspace string    `json:"workspace" yaml:"workspace"`
	Status    string    `json:"status" yaml:"status"`
	Mode      string    `json:"mode,omitempty" yaml:"mode,omitempty"`
	State     string    `json:"state" yaml:"state"`
	Agents    int       `json:"agents" yaml:"agents"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	Idea      string    `json:"idea" yaml:"idea"`
}

// RunsView renders persisted run records, newest first.
type RunsView struct {
	Runs []RunSummary
}

// NewRunsView summarizes checkpoint entries.
func NewRunsView(entries []checkpoint.Entry) RunsView {
	runs := make([]RunSummary, 0, len(entries))
	for _, e := range entries {
		runs = append(runs, RunSummary{
			RunID:     e.Record.RunID,
			Workspace: e.Workspace,
			Status:    e.Record.Status,
			Mode:      e.Record.Mode,
			State:     e.Record.State,
			Agents:    len(e.Record.Agents),
			StartedAt: e.Record.StartedAt,
			Idea:      e.Record.Idea,
		})
	}
	return RunsView{Runs: runs}
}

func (v RunsView) Data() any { return v.Runs }

func (v RunsView) String() string {
	if len(v.Runs) == 0 {
		return mutedStyle.Render("No runs found.")
	}
	var b strings.Builder
	for i, r := range v.Runs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(statusStyle(r.Status).Render(padRight(r.Status, 10)) + " " +
			valueStyle.Render(r.StartedAt.Local().Format("2006-01-02 15:04")) + " " +
			mutedStyle.Render(fmt.Sprintf("%s, %d agents", orDash(r.Mode), r.Agents)) + "\n")
		b.WriteString("           " + truncate(r.Idea, 70) + "\n")
		b.WriteString("           " + mutedStyle.Render(r.Workspace))
	}
	return b.String()
}

// ScanView renders secret findings for a generated project.
type ScanView struct {
	Root     string             `json:"root" yaml:"root"`
	Findings []security.Finding `json:"findings" yaml:"findings"`
}

func (v ScanView) Data() any { return v }

func (v ScanView) String() string {
	if len(v.Findings) == 0 {
		return successStyle.Render("No secrets detected") + " " + mutedStyle.Render(v.Root)
	}
	var b strings.Builder
	b.WriteString(errorStyle.Render(fmt.Sprintf("%d potential secret(s)", len(v.Findings))) + " " +
		mutedStyle.Render(v.Root) + "\n")
	for _, f := range v.Findings {
		b.WriteString("\n" + statusStyle(f.Severity).Render(padRight(f.Severity, 10)) + " " +
			valueStyle.Render(fmt.Sprintf("%s:%d", f.File, f.Line)) + " " + f.Description + "\n")
		b.WriteString("           " + mutedStyle.Render(f.Match) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var (
	_ View = ResultView{}
	_ View = PlanView{}
	_ View = HealthView{}
	_ View = RunsView{}
)
