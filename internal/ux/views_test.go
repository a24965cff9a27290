package ux

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/checkpoint"
	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/health"
	"github.com/felixgeelhaar/metaforge/internal/log"
	"github.com/felixgeelhaar/metaforge/internal/orchestrator"
	"github.com/felixgeelhaar/metaforge/internal/security"
)

func TestResultView(t *testing.T) {
	res := &orchestrator.Result{
		RunID:         "0b7c",
		Status:        orchestrator.StatusPartial,
		Mode:          orchestrator.ModeFallback,
		Model:         "opus",
		ProjectName:   "TodoApiBackend",
		WorkspacePath: "/tmp/ws",
		OutputPath:    "/tmp/ws/output",
		ContainerID:   "abc123",
		ContainerKept: true,
		Agents:        []string{"BackendDeveloper", "QAEngineer"},
		ErrorLines:    2,
		Degradations:  []errors.Degradation{errors.Degrade(errors.ErrCodeBlueprintFallback, stderrors.New("no agent files"))},
		ExecutionTime: 90 * time.Second,
	}
	out := ResultView{Result: res}.String()

	for _, want := range []string{"TodoApiBackend", "partial", "fallback", "BackendDeveloper, QAEngineer", "/tmp/ws/output", "abc123 (kept)", "1m30s", "2 error line(s)", "BLUEPRINT-001", "no agent files"} {
		assert.Contains(t, out, want)
	}
	assert.Same(t, res, ResultView{Result: res}.Data())
}

func TestPlanView(t *testing.T) {
	a := analysis.NewAnalyzer(log.Nop()).Analyze("Build a REST API backend with a React frontend and PostgreSQL database")
	bp := blueprint.NewScheduler(log.Nop(), nil).Design(a)

	out := PlanView{Analysis: a.Summarize(), Blueprint: bp}.String()
	assert.Contains(t, out, string(a.Complexity))
	assert.Contains(t, out, fmt.Sprintf("Blueprint (%d agents, %s)", len(bp.Specs), bp.CoordinationStrategy))
	for _, name := range bp.ExecutionOrder {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, bp.EstimatedDuration)
}

func TestHealthView(t *testing.T) {
	view := NewHealthView([]health.Report{
		{Name: "docker-daemon", Result: health.Healthy("Docker daemon is running")},
		{Name: "container-image", Result: health.Degraded("Image not found locally").WithDetail("suggestion", "build it")},
	})
	assert.Equal(t, health.StatusDegraded, view.Overall)

	out := view.String()
	assert.Contains(t, out, "docker-daemon")
	assert.Contains(t, out, "-> build it")
	assert.Contains(t, out, "degraded")
}

func TestRunsView(t *testing.T) {
	assert.Contains(t, RunsView{}.String(), "No runs found.")

	rec := checkpoint.NewRecord("run-1", "a chat app with websockets", "cleaned_up")
	rec.Status = "completed"
	rec.Mode = "agentic"
	rec.Agents = []string{"A", "B", "C"}

	view := NewRunsView([]checkpoint.Entry{{Workspace: "/tmp/chat", Record: rec}})
	assert.Equal(t, []RunSummary{{
		RunID:     "run-1",
		Workspace: "/tmp/chat",
		Status:    "completed",
		Mode:      "agentic",
		State:     "cleaned_up",
		Agents:    3,
		StartedAt: rec.StartedAt,
		Idea:      "a chat app with websockets",
	}}, view.Data())

	out := view.String()
	assert.Contains(t, out, "agentic, 3 agents")
	assert.Contains(t, out, "/tmp/chat")
}

func TestScanView(t *testing.T) {
	assert.Contains(t, ScanView{Root: "/tmp/app"}.String(), "No secrets detected")

	view := ScanView{Root: "/tmp/app", Findings: []security.Finding{{
		Type:        security.SecretPrivateKey,
		File:        "keys/id_rsa",
		Line:        1,
		Match:       "----***REDACTED***",
		Severity:    security.SeverityCritical,
		Description: "Private Key",
	}}}
	out := view.String()
	assert.Contains(t, out, "1 potential secret(s)")
	assert.Contains(t, out, "keys/id_rsa:1")
	assert.Contains(t, out, "Private Key")
	assert.Equal(t, view, view.Data())
}

func TestRenderError(t *testing.T) {
	inner := errors.Wrap(errors.ErrCodeRuntimeStartFailed, "failed to start container", stderrors.New("port is already allocated"))
	err := errors.NewExecutionFailure(inner)
	before := len(err.Suggestions)

	out := RenderError(err)
	assert.Contains(t, out, "EXEC-002")
	assert.Contains(t, out, "RUNTIME-003")
	assert.Contains(t, out, "port is already allocated")
	assert.Contains(t, out, "metaforge doctor")
	assert.Len(t, err.Suggestions, before, "rendering must not modify the error")

	plain := RenderError(stderrors.New("boom"))
	assert.Contains(t, plain, "boom")

	hinted := RenderError(NewErrorWithSuggestion(stderrors.New("disk"), "free space"))
	assert.Contains(t, hinted, "free space")
}

func TestEnhanceError(t *testing.T) {
	assert.Nil(t, EnhanceError(nil))

	coded := errors.NewConfigInvalidError("bad model")
	assert.Same(t, coded, EnhanceError(coded))

	sock := EnhanceError(stderrors.New("dial unix /var/run/docker.sock: connect: permission denied"))
	var ws *ErrorWithSuggestion
	assert.ErrorAs(t, sock, &ws)
	assert.Contains(t, ws.Suggestion, "docker group")

	plain := stderrors.New("something else")
	assert.Equal(t, plain, EnhanceError(plain))
}
