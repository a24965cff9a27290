package orchestrator

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/metaforge/internal/agentic"
	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/binder"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/checkpoint"
	"github.com/felixgeelhaar/metaforge/internal/container"
	"github.com/felixgeelhaar/metaforge/internal/container/containertest"
	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/hooks"
	"github.com/felixgeelhaar/metaforge/internal/log"
	"github.com/felixgeelhaar/metaforge/internal/workspace"
)

const idea = "Build a REST API backend with a React frontend and PostgreSQL database"

var happyStates = []State{
	StateInit, StateWorkspaceReady, StateRuntimeReady, StateBlueprintReady,
	StateContainerRunning, StateMonitoring, StateCompleted, StateCleanedUp,
}

func newOrchestrator(t *testing.T, rt *containertest.Runtime, cfg Config, planner Planner) *Orchestrator {
	t.Helper()
	logger := log.Nop()
	o, err := NewOrchestrator(Deps{
		Runtime:  rt,
		Store:    workspace.NewStore(t.TempDir(), logger),
		Renderer: workspace.NewRenderer(logger),
		Analyzer: analysis.NewAnalyzer(logger),
		Designer: blueprint.NewScheduler(logger, nil),
		Binder:   binder.New(nil, binder.DefaultConfig(), logger),
		Planner:  planner,
	}, cfg, logger)
	require.NoError(t, err)
	return o
}

func traditional() Config {
	cfg := DefaultConfig()
	cfg.Agentic = false
	return cfg
}

func expectedBlueprint() *blueprint.Blueprint {
	a := analysis.NewAnalyzer(log.Nop()).Analyze(idea)
	return blueprint.NewScheduler(log.Nop(), nil).Design(a)
}

// assertReleased checks the cleanup invariant: one stop, then one remove,
// and nothing left running.
func assertReleased(t *testing.T, rt *containertest.Runtime) {
	t.Helper()
	assert.Equal(t, 1, rt.Count(containertest.OpStop))
	assert.Equal(t, 1, rt.Count(containertest.OpRemove))
	assert.Empty(t, rt.Running())

	ops := rt.Ops()
	require.GreaterOrEqual(t, len(ops), 2)
	assert.Equal(t, []string{containertest.OpStop, containertest.OpRemove}, ops[len(ops)-2:])
}

func runSpec(rt *containertest.Runtime) container.RunSpec {
	for _, c := range rt.Calls() {
		if c.Op == containertest.OpRun {
			return c.Spec
		}
	}
	return container.RunSpec{}
}

func TestExecuteTraditional(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{"Starting generation session...", "ERROR: npm warn", workspace.CompletionMarker}
	o := newOrchestrator(t, rt, traditional(), nil)

	res, err := o.Execute(context.Background(), Request{Idea: idea, Model: "sonnet"})
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, res.Status)
	assert.Equal(t, ModeTraditional, res.Mode)
	assert.Equal(t, happyStates, res.States)
	assert.Equal(t, 1, res.ErrorLines)
	assert.NotEmpty(t, res.RunID)
	assert.NotEmpty(t, res.ContainerID)
	assert.NotNil(t, res.Analysis)
	assert.Empty(t, res.Error)

	bp := expectedBlueprint()
	assert.Equal(t, bp.ExecutionOrder, res.Agents)
	assert.Equal(t, bp.CoordinationStrategy, res.CoordinationStrategy)
	assert.Equal(t, bp.EstimatedDuration, res.EstimatedDuration)

	assert.Equal(t, []string{
		containertest.OpImageExists, containertest.OpRun, containertest.OpStreamLogs,
		containertest.OpStop, containertest.OpRemove,
	}, rt.Ops())
	assertReleased(t, rt)

	spec := runSpec(rt)
	assert.Equal(t, StartupCommand, spec.Command)
	assert.Equal(t, "sonnet", spec.Env["CLAUDE_MODEL"])
	assert.Equal(t, res.WorkspacePath, spec.WorkspacePath)
	assert.Equal(t, res.OutputPath, spec.OutputPath)

	for _, rel := range []string{workspace.StartupFile, ".claude/settings.json", ".claude/CLAUDE.md", ".claude/execution-plan.yaml"} {
		assert.FileExists(t, filepath.Join(res.WorkspacePath, rel))
	}

	rec, err := checkpoint.NewManager(filepath.Join(res.WorkspacePath, workspace.StateDir)).Load()
	require.NoError(t, err)
	assert.Equal(t, res.RunID, rec.RunID)
	assert.Equal(t, string(StateCleanedUp), rec.State)
	assert.Equal(t, string(StatusCompleted), rec.Status)
	assert.Equal(t, string(ModeTraditional), rec.Mode)
	assert.Len(t, rec.States(), len(happyStates))
}

func TestExecutePartialWhenStreamEnds(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{"working", "still working"}
	o := newOrchestrator(t, rt, traditional(), nil)

	res, err := o.Execute(context.Background(), Request{Idea: idea})
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)
	assert.Equal(t, DefaultModel, res.Model)
	assertReleased(t, rt)
}

func TestExecuteStreamFailureIsDegradation(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{"working"}
	rt.StreamErr = stderrors.New("connection reset")
	o := newOrchestrator(t, rt, traditional(), nil)

	res, err := o.Execute(context.Background(), Request{Idea: idea})
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, res.Status)
	require.True(t, res.Degraded())
	assert.Equal(t, errors.ErrCodeRuntimeStreamFailed, res.Degradations[len(res.Degradations)-1].Code)
}

func TestExecuteTimeout(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{"working"}
	rt.Hold = true
	o := newOrchestrator(t, rt, traditional(), nil)

	start := time.Now()
	res, err := o.Execute(context.Background(), Request{Idea: idea, Deadline: time.Second})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err), "got %v", err)
	assert.True(t, stderrors.Is(err, context.DeadlineExceeded))
	require.NotNil(t, res)
	assert.Equal(t, StatusTimeout, res.Status)
	assert.Equal(t, []State{StateTimedOut, StateCleanedUp}, res.States[len(res.States)-2:])
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 10*time.Second)
	assert.NotEmpty(t, res.WorkspacePath)
	assertReleased(t, rt)
}

func TestExecuteCallerCancellation(t *testing.T) {
	rt := containertest.New()
	rt.Hold = true
	o := newOrchestrator(t, rt, traditional(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	res, err := o.Execute(ctx, Request{Idea: idea})
	require.Error(t, err)
	assert.True(t, errors.IsExecutionFailure(err))
	assert.True(t, stderrors.Is(err, context.Canceled))
	assert.Equal(t, StatusFailed, res.Status)
	assertReleased(t, rt)
}

func TestExecuteKeepContainer(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{workspace.CompletionMarker}
	o := newOrchestrator(t, rt, traditional(), nil)

	res, err := o.Execute(context.Background(), Request{Idea: idea, KeepContainer: true})
	require.NoError(t, err)

	assert.True(t, res.ContainerKept)
	assert.Equal(t, 1, rt.Count(containertest.OpStop))
	assert.Equal(t, 0, rt.Count(containertest.OpRemove))
	assert.Len(t, rt.Running(), 1)
}

func TestExecuteStopFailureStillRemoves(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{workspace.CompletionMarker}
	rt.StopErr = stderrors.New("already stopped")
	o := newOrchestrator(t, rt, traditional(), nil)

	res, err := o.Execute(context.Background(), Request{Idea: idea})
	require.NoError(t, err, "cleanup failures are never returned")
	assert.Equal(t, StatusCompleted, res.Status)
	assertReleased(t, rt)
}

func TestExecuteRemoveFailureIsLogged(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{workspace.CompletionMarker}
	rt.RemoveErr = stderrors.New("in use")
	o := newOrchestrator(t, rt, traditional(), nil)

	_, err := o.Execute(context.Background(), Request{Idea: idea})
	require.NoError(t, err)
	assert.Equal(t, 1, rt.Count(containertest.OpRemove))
}

func TestExecuteStartFailure(t *testing.T) {
	rt := containertest.New()
	rt.RunErr = stderrors.New("port in use")
	o := newOrchestrator(t, rt, traditional(), nil)

	res, err := o.Execute(context.Background(), Request{Idea: idea})
	require.Error(t, err)
	assert.True(t, errors.IsExecutionFailure(err))
	assert.True(t, stderrors.Is(err, errors.New(errors.ErrCodeRuntimeStartFailed, "")))
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, []State{StateBlueprintReady, StateFailed, StateCleanedUp}, res.States[len(res.States)-3:])
	assert.Equal(t, 0, rt.Count(containertest.OpStop), "no container was started")
	assert.NotEmpty(t, res.Agents, "result still carries the chosen team")
}

func TestExecuteMissingImage(t *testing.T) {
	t.Run("no build context", func(t *testing.T) {
		rt := containertest.New()
		rt.HasImage = false
		o := newOrchestrator(t, rt, traditional(), nil)

		_, err := o.Execute(context.Background(), Request{Idea: idea})
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.New(errors.ErrCodeRuntimeBuildFailed, "")))
		assert.Equal(t, 0, rt.Count(containertest.OpRun))
	})

	t.Run("builds from context", func(t *testing.T) {
		rt := containertest.New()
		rt.HasImage = false
		rt.Lines = []string{workspace.CompletionMarker}
		cfg := traditional()
		cfg.BuildContext = "/srv/metaclaude"
		o := newOrchestrator(t, rt, cfg, nil)

		_, err := o.Execute(context.Background(), Request{Idea: idea})
		require.NoError(t, err)
		assert.Equal(t, 1, rt.Count(containertest.OpBuild))
	})

	t.Run("build failure", func(t *testing.T) {
		rt := containertest.New()
		rt.HasImage = false
		rt.BuildErr = stderrors.New("dockerfile not found")
		cfg := traditional()
		cfg.BuildContext = "/srv/metaclaude"
		o := newOrchestrator(t, rt, cfg, nil)

		_, err := o.Execute(context.Background(), Request{Idea: idea})
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.New(errors.ErrCodeRuntimeBuildFailed, "")))
	})
}

func TestExecuteNoCacheRebuilds(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{workspace.CompletionMarker}
	cfg := traditional()
	cfg.BuildContext = "/srv/metaclaude"
	o := newOrchestrator(t, rt, cfg, nil)

	_, err := o.Execute(context.Background(), Request{Idea: idea, NoCache: true})
	require.NoError(t, err)
	calls := rt.Calls()
	require.Equal(t, containertest.OpBuild, calls[1].Op)
	assert.Equal(t, []string{"/srv/metaclaude", "true"}, calls[1].Command)
}

type genericAnalyzer struct{}

func (genericAnalyzer) Analyze(idea string) analysis.ProjectAnalysis { return analysis.Fallback(idea) }

func TestExecuteGenericAnalysisIsDegradation(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{workspace.CompletionMarker}
	o := newOrchestrator(t, rt, traditional(), nil)
	o.deps.Analyzer = genericAnalyzer{}

	res, err := o.Execute(context.Background(), Request{Idea: idea})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	require.True(t, res.Degraded())
	assert.Equal(t, errors.ErrCodeAnalysisDegraded, res.Degradations[0].Code)
	assert.Equal(t, "general_application", res.Analysis.ProjectType)
	assertReleased(t, rt)
}

func TestExecuteVagueIdeaIsDegradation(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{workspace.CompletionMarker}
	o := newOrchestrator(t, rt, traditional(), nil)

	res, err := o.Execute(context.Background(), Request{Idea: "something nice for my grandmother"})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, res.Status)
	require.True(t, res.Degraded())
	assert.Equal(t, errors.ErrCodeAnalysisDegraded, res.Degradations[0].Code)
}

func TestExecuteEmptyIdea(t *testing.T) {
	rt := containertest.New()
	o := newOrchestrator(t, rt, traditional(), nil)

	res, err := o.Execute(context.Background(), Request{Idea: "   "})
	require.Error(t, err)
	assert.True(t, errors.IsExecutionFailure(err))
	assert.Equal(t, []State{StateInit, StateFailed, StateCleanedUp}, res.States)
	assert.Empty(t, rt.Calls())
}

const plannedAgent = `---
name: ApiBuilder
description: Builds the REST API
tools: [Read, Write, Edit, Bash]
---
Build the API first.
`

// plannerRuntime writes files into the mounted workspace when the agent
// CLI is exec'd, simulating in-container planning.
func plannerRuntime(t *testing.T, files map[string]string) *containertest.Runtime {
	rt := containertest.New()
	rt.Lines = []string{"planning done", workspace.CompletionMarker}
	rt.ExecFunc = func(command []string) (container.ExecResult, error) {
		if len(command) == 3 && strings.Contains(command[2], "claude --dangerously-skip-permissions -p") {
			dir := filepath.Join(runSpec(rt).WorkspacePath, workspace.AgentsDir)
			require.NoError(t, os.MkdirAll(dir, 0o755))
			for name, content := range files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
			}
		}
		return container.ExecResult{}, nil
	}
	return rt
}

func TestExecuteAgentic(t *testing.T) {
	rt := plannerRuntime(t, map[string]string{"ApiBuilder.md": plannedAgent})
	o := newOrchestrator(t, rt, DefaultConfig(), agentic.NewPlanner(rt, nil, log.Nop()))

	res, err := o.Execute(context.Background(), Request{Idea: idea})
	require.NoError(t, err)

	assert.Equal(t, ModeAgentic, res.Mode)
	assert.Equal(t, []string{"ApiBuilder"}, res.Agents)
	assert.Equal(t, blueprint.StrategySingleAgent, res.CoordinationStrategy)
	assert.False(t, res.Degraded())
	assert.Equal(t, happyStates, res.States)

	assert.Equal(t, 1, rt.Count(containertest.OpRun), "planning container is reused")
	assert.Equal(t, "", runSpec(rt).Command)

	var trigger []string
	for _, c := range rt.Calls() {
		if c.Op == containertest.OpExec {
			trigger = c.Command
		}
	}
	assert.Equal(t, []string{"sh", "-c", TriggerCommand}, trigger)
	assert.FileExists(t, filepath.Join(res.WorkspacePath, workspace.AgentsDir, "ApiBuilder.md"))
	assertReleased(t, rt)
}

func TestExecuteAgenticFallback(t *testing.T) {
	rt := plannerRuntime(t, nil)
	o := newOrchestrator(t, rt, DefaultConfig(), agentic.NewPlanner(rt, nil, log.Nop()))

	res, err := o.Execute(context.Background(), Request{Idea: idea})
	require.NoError(t, err)

	assert.Equal(t, ModeFallback, res.Mode)
	require.True(t, res.Degraded())
	assert.Equal(t, errors.ErrCodeBlueprintFallback, res.Degradations[0].Code)

	bp := expectedBlueprint()
	assert.Equal(t, bp.ExecutionOrder, res.Agents)
	assert.Equal(t, bp.CoordinationStrategy, res.CoordinationStrategy)
	assert.Equal(t, bp.EstimatedDuration, res.EstimatedDuration)

	assert.Equal(t, 1, rt.Count(containertest.OpRun))
	assertReleased(t, rt)
}

func TestExecuteAgenticGeneralistOnly(t *testing.T) {
	generalist := "---\nname: " + binder.FallbackAgentName + "\ndescription: Does everything\ntools: [Read, Write]\n---\nBuild it.\n"
	rt := plannerRuntime(t, map[string]string{"GeneralDeveloper.md": generalist})
	o := newOrchestrator(t, rt, DefaultConfig(), agentic.NewPlanner(rt, nil, log.Nop()))

	res, err := o.Execute(context.Background(), Request{Idea: idea})
	require.NoError(t, err)
	assert.Equal(t, ModeAgentic, res.Mode)
	assert.True(t, res.Degraded())
}

func TestExecuteForceTraditional(t *testing.T) {
	rt := plannerRuntime(t, map[string]string{"ApiBuilder.md": plannedAgent})
	o := newOrchestrator(t, rt, DefaultConfig(), agentic.NewPlanner(rt, nil, log.Nop()))

	res, err := o.Execute(context.Background(), Request{Idea: idea, ForceTraditional: true})
	require.NoError(t, err)
	assert.Equal(t, ModeTraditional, res.Mode)
	assert.Equal(t, 0, rt.Count(containertest.OpExec))
}

func TestExecuteTriggerFailure(t *testing.T) {
	rt := plannerRuntime(t, map[string]string{"ApiBuilder.md": plannedAgent})
	planExec := rt.ExecFunc
	rt.ExecFunc = func(command []string) (container.ExecResult, error) {
		if len(command) == 3 && command[2] == TriggerCommand {
			return container.ExecResult{ExitCode: 127, Output: "bash: not found"}, nil
		}
		return planExec(command)
	}
	o := newOrchestrator(t, rt, DefaultConfig(), agentic.NewPlanner(rt, nil, log.Nop()))

	res, err := o.Execute(context.Background(), Request{Idea: idea})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.New(errors.ErrCodeRuntimeExecFailed, "")))
	assert.Equal(t, StatusFailed, res.Status)
	assertReleased(t, rt)
}

func TestExecuteEnvOverrides(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{workspace.CompletionMarker}
	cfg := traditional()
	cfg.APIKey = "sk-test"
	o := newOrchestrator(t, rt, cfg, nil)

	_, err := o.Execute(context.Background(), Request{
		Idea:         idea,
		EnvOverrides: map[string]string{"HTTP_PROXY": "http://proxy:3128", "CLAUDE_MODEL": "haiku"},
	})
	require.NoError(t, err)

	env := runSpec(rt).Env
	assert.Equal(t, "sk-test", env["ANTHROPIC_API_KEY"])
	assert.Equal(t, "http://proxy:3128", env["HTTP_PROXY"])
	assert.Equal(t, "haiku", env["CLAUDE_MODEL"])
	assert.Equal(t, "32000", env["CLAUDE_MAX_THINKING_TOKENS"])
}

func TestStart(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{workspace.CompletionMarker}
	o := newOrchestrator(t, rt, traditional(), nil)

	select {
	case out, ok := <-o.Start(context.Background(), Request{Idea: idea}):
		require.True(t, ok)
		require.NoError(t, out.Err)
		assert.Equal(t, StatusCompleted, out.Result.Status)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestExecuteRejectsConcurrentRun(t *testing.T) {
	rt := containertest.New()
	rt.Hold = true
	o := newOrchestrator(t, rt, traditional(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	first := o.Start(ctx, Request{Idea: idea})

	require.Eventually(t, func() bool { return rt.Count(containertest.OpStreamLogs) == 1 }, 5*time.Second, 10*time.Millisecond)

	res, err := o.Execute(context.Background(), Request{Idea: idea})
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)

	cancel()
	out := <-first
	assert.True(t, errors.IsExecutionFailure(out.Err))
	assertReleased(t, rt)
}

type recordingHook struct {
	mu     sync.Mutex
	events []*hooks.Event
}

func (h *recordingHook) Name() string { return "recorder" }
func (h *recordingHook) EventTypes() []hooks.EventType { return hooks.AllEventTypes() }
func (h *recordingHook) Enabled() bool { return true }
func (h *recordingHook) Execute(ctx context.Context, e *hooks.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return stderrors.New("hook failures never block the run")
}

func TestExecuteTriggersHooks(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{workspace.CompletionMarker}
	o := newOrchestrator(t, rt, traditional(), nil)

	registry := hooks.NewRegistry(log.Nop())
	hook := &recordingHook{}
	require.NoError(t, registry.Register(hook))
	o.SetHookRegistry(registry)

	res, err := o.Execute(context.Background(), Request{Idea: idea})
	require.NoError(t, err)

	hook.mu.Lock()
	defer hook.mu.Unlock()
	require.Len(t, hook.events, len(happyStates)+1)
	assert.Equal(t, hooks.EventRunStart, hook.events[0].Type)
	assert.Equal(t, hooks.EventRunComplete, hook.events[len(hook.events)-1].Type)
	for _, e := range hook.events {
		assert.Equal(t, res.RunID, e.RunID)
	}
	assert.Equal(t, string(StateWorkspaceReady), hook.events[1].Get("state"))
}

// slowHook blocks every event until its context ends or two seconds pass.
type slowHook struct {
	mu    sync.Mutex
	types []hooks.EventType
}

func (h *slowHook) Name() string                  { return "slow" }
func (h *slowHook) EventTypes() []hooks.EventType { return hooks.AllEventTypes() }
func (h *slowHook) Enabled() bool                 { return true }
func (h *slowHook) Execute(ctx context.Context, e *hooks.Event) error {
	h.mu.Lock()
	h.types = append(h.types, e.Type)
	h.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Second):
		return nil
	}
}

func TestExecuteSlowHooksRespectDeadline(t *testing.T) {
	rt := containertest.New()
	rt.Lines = []string{"working"}
	rt.Hold = true
	cfg := traditional()
	cfg.StopGrace = 500 * time.Millisecond
	o := newOrchestrator(t, rt, cfg, nil)

	registry := hooks.NewRegistry(log.Nop())
	hook := &slowHook{}
	require.NoError(t, registry.Register(hook))
	o.SetHookRegistry(registry)

	start := time.Now()
	res, err := o.Execute(context.Background(), Request{Idea: idea, Deadline: time.Second})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.IsTimeout(err), "got %v", err)
	assert.Equal(t, StatusTimeout, res.Status)
	assert.GreaterOrEqual(t, elapsed, time.Second)
	assert.Less(t, elapsed, 3*time.Second)
	assert.Empty(t, rt.Running())

	hook.mu.Lock()
	defer hook.mu.Unlock()
	require.NotEmpty(t, hook.types)
	assert.Equal(t, hooks.EventRunStart, hook.types[0])
	assert.Equal(t, hooks.EventRunFailed, hook.types[len(hook.types)-1])
}
