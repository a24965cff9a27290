// Package orchestrator drives one project generation run end to end: it
// prepares the workspace and image, chooses the agent team, starts the
// container, follows its output under a deadline and always cleans up.
package orchestrator

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/metaforge/internal/agentic"
	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/binder"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/checkpoint"
	"github.com/felixgeelhaar/metaforge/internal/container"
	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/hooks"
	"github.com/felixgeelhaar/metaforge/internal/log"
	"github.com/felixgeelhaar/metaforge/internal/workspace"
)

// DefaultModel is used when a request names no model.
const DefaultModel = "opus"

// cleanupSlack is added to the stop grace period to bound cleanup.
const cleanupSlack = 30 * time.Second

// maxTerminalHookBudget caps the time hooks may take once the run has
// reached a terminal state.
const maxTerminalHookBudget = 5 * time.Second

// Request is one generation run.
type Request struct {
	Idea  string
	Model string
	// Deadline bounds the run from Init; zero is unlimited.
	Deadline         time.Duration
	KeepContainer    bool
	ForceTraditional bool
	NoCache          bool
	// EnvOverrides are added to the container environment last.
	EnvOverrides map[string]string
}

// Outcome is delivered by Start when the run ends.
type Outcome struct {
	Result *Result
	Err    error
}

// Analyzer produces the structured analysis of an idea.
type Analyzer interface {
	Analyze(idea string) analysis.ProjectAnalysis
}

// Planner creates the agent team inside a running container.
type Planner interface {
	Plan(ctx context.Context, h container.Handle, workspacePath, idea string, a analysis.ProjectAnalysis) (*agentic.Outcome, error)
}

// Config holds run settings that do not vary per request.
type Config struct {
	// Agentic enables in-container planning when a planner is set.
	Agentic bool
	// BuildContext is the image build directory; empty disables builds.
	BuildContext      string
	NoCache           bool
	StopGrace         time.Duration
	MaxThinkingTokens int
	AutoCompact       bool
	// APIKey is passed to the container as ANTHROPIC_API_KEY.
	APIKey string
}

// DefaultConfig returns the orchestrator defaults.
func DefaultConfig() Config {
	return Config{
		Agentic:           true,
		StopGrace:         container.DefaultStopGrace,
		MaxThinkingTokens: 32000,
	}
}

// Deps are the collaborators of the orchestrator. Runtime, Store, Renderer,
// Analyzer, Designer and Binder are required; Planner is optional.
type Deps struct {
	Runtime  container.Runtime
	Store    *workspace.Store
	Renderer *workspace.Renderer
	Analyzer Analyzer
	Designer blueprint.Designer
	Binder   *binder.Binder
	Planner  Planner
}

// Orchestrator runs generation requests one at a time.
type Orchestrator struct {
	deps   Deps
	config Config
	hooks  *hooks.Registry
	logger *log.Logger
	now    func() time.Time
	active atomic.Bool
}

// NewOrchestrator validates deps and returns an orchestrator.
func NewOrchestrator(deps Deps, config Config, logger *log.Logger) (*Orchestrator, error) {
	switch {
	case deps.Runtime == nil:
		return nil, fmt.Errorf("orchestrator: runtime is required")
	case deps.Store == nil:
		return nil, fmt.Errorf("orchestrator: workspace store is required")
	case deps.Renderer == nil:
		return nil, fmt.Errorf("orchestrator: renderer is required")
	case deps.Analyzer == nil:
		return nil, fmt.Errorf("orchestrator: analyzer is required")
	case deps.Designer == nil:
		return nil, fmt.Errorf("orchestrator: designer is required")
	case deps.Binder == nil:
		return nil, fmt.Errorf("orchestrator: binder is required")
	}
	if config.StopGrace <= 0 {
		config.StopGrace = container.DefaultStopGrace
	}
	return &Orchestrator{
		deps:   deps,
		config: config,
		logger: log.OrDefault(logger).WithComponent("orchestrator"),
		now:    time.Now,
	}, nil
}

// SetHookRegistry sets the registry notified of lifecycle events.
func (o *Orchestrator) SetHookRegistry(registry *hooks.Registry) {
	o.hooks = registry
}

// Start runs Execute on its own goroutine. The channel yields exactly one
// Outcome and is then closed.
func (o *Orchestrator) Start(ctx context.Context, req Request) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		res, err := o.Execute(ctx, req)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}

// Execute runs the request to completion. On failure it returns the result
// with status failed or timeout together with an EXEC-001 (deadline) or
// EXEC-002 (anything else) error. Cleanup has always run when it returns.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.Model == "" {
		req.Model = DefaultModel
	}
	ec := newExecutionContext(req, o.now())
	ec.record.SetMetadata("model", req.Model)

	if !o.active.CompareAndSwap(false, true) {
		err := errors.NewExecutionFailure(fmt.Errorf("another run is already active on this orchestrator"))
		ec.Status, ec.Err = StatusFailed, err
		return ec.result(0), err
	}
	defer o.active.Store(false)

	logger := o.logger.With("run_id", ec.RunID)
	logger.Info("run started", "idea", truncate(req.Idea, 100), "model", req.Model,
		"deadline", deadlineString(req.Deadline))

	runCtx, cancel := ec.withDeadline(ctx)
	o.trigger(runCtx, hooks.EventRunStart, ec, map[string]string{"idea": req.Idea, "model": req.Model})
	runErr := o.run(runCtx, ec, logger)
	timedOut := stderrors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancel()

	// Hooks after the forward path share one budget so a slow hook cannot
	// stretch the run far past its deadline.
	hookCtx, hookCancel := context.WithTimeout(context.Background(), o.terminalHookBudget())
	defer hookCancel()

	var err error
	switch {
	case runErr == nil:
		o.advance(hookCtx, ec, StateCompleted, nil, logger)
	case timedOut:
		err = errors.NewTimeoutError(req.Deadline, runErr)
		ec.Status, ec.Err = StatusTimeout, err
		o.advance(hookCtx, ec, StateTimedOut, err, logger)
	default:
		err = errors.NewExecutionFailure(runErr)
		ec.Status, ec.Err = StatusFailed, err
		o.advance(hookCtx, ec, StateFailed, err, logger)
	}

	o.cleanup(ec, logger)
	o.advance(hookCtx, ec, StateCleanedUp, nil, logger)

	res := ec.result(o.now().Sub(ec.StartedAt))
	o.finish(hookCtx, ec, res, logger)
	return res, err
}

// terminalHookBudget bounds all hooks fired after the forward path ends.
func (o *Orchestrator) terminalHookBudget() time.Duration {
	return min(o.config.StopGrace, maxTerminalHookBudget)
}

// run executes the forward path up to the end of monitoring.
func (o *Orchestrator) run(ctx context.Context, ec *ExecutionContext, logger *log.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()

	if strings.TrimSpace(ec.Request.Idea) == "" {
		return errors.NewConfigInvalidError("project idea is empty")
	}

	paths, err := o.deps.Store.Prepare(ec.Request.Idea)
	if err != nil {
		return err
	}
	ec.Paths = paths
	ec.record.SetMetadata("workspace", paths.Workspace)
	ec.Analysis = o.deps.Analyzer.Analyze(ec.Request.Idea)
	if ec.Analysis.Degraded {
		ec.degrade(errors.ErrCodeAnalysisDegraded, fmt.Errorf("idea could not be analyzed, using generic analysis"))
	}
	ec.ProjectName = workspace.ProjectName(ec.Request.Idea, ec.Analysis)
	if err := o.advance(ctx, ec, StateWorkspaceReady, nil, logger); err != nil {
		return err
	}

	if err := o.prepareRuntime(ctx, ec, logger); err != nil {
		return err
	}
	if err := o.advance(ctx, ec, StateRuntimeReady, nil, logger); err != nil {
		return err
	}

	if err := o.prepareBlueprint(ctx, ec, logger); err != nil {
		return err
	}
	if err := o.advance(ctx, ec, StateBlueprintReady, nil, logger); err != nil {
		return err
	}

	if err := o.launchWorkload(ctx, ec, logger); err != nil {
		return err
	}
	if err := o.advance(ctx, ec, StateContainerRunning, nil, logger); err != nil {
		return err
	}

	if err := o.advance(ctx, ec, StateMonitoring, nil, logger); err != nil {
		return err
	}
	return o.monitor(ctx, ec, logger)
}

// prepareRuntime makes sure the image exists, building it when missing or
// when a rebuild was requested.
func (o *Orchestrator) prepareRuntime(ctx context.Context, ec *ExecutionContext, logger *log.Logger) error {
	noCache := o.config.NoCache || ec.Request.NoCache

	exists, err := o.deps.Runtime.ImageExists(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.NewRuntimeUnavailableError(err)
	}
	if exists && !noCache {
		logger.Debug("image present, skipping build")
		return nil
	}
	if o.config.BuildContext == "" {
		if exists {
			logger.Warn("rebuild requested but no build context configured, using existing image")
			return nil
		}
		return errors.New(errors.ErrCodeRuntimeBuildFailed, "image not found and no build context configured").
			WithSuggestion("Set docker.build_context in the config file or build the image manually")
	}

	logger.Info("building image", "context", o.config.BuildContext, "no_cache", noCache)
	img, err := o.deps.Runtime.BuildImage(ctx, o.config.BuildContext, noCache)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrCodeRuntimeBuildFailed, "image build failed", err)
	}
	ec.record.SetMetadata("image_id", img.ID)
	return nil
}

// prepareBlueprint chooses the team and renders its configuration.
func (o *Orchestrator) prepareBlueprint(ctx context.Context, ec *ExecutionContext, logger *log.Logger) error {
	if o.config.Agentic && o.deps.Planner != nil && !ec.Request.ForceTraditional {
		if err := o.planAgentic(ctx, ec, logger); err != nil {
			return err
		}
	} else {
		ec.Mode = ModeTraditional
		o.planScheduled(ctx, ec)
	}
	ec.record.Mode = string(ec.Mode)
	ec.record.Agents = ec.agentNames()

	_, err := o.deps.Renderer.Render(ec.Paths.Workspace, workspace.RenderInput{
		ProjectName: ec.ProjectName,
		Description: workspace.ProjectDescription(ec.Request.Idea, ec.Analysis),
		Idea:        ec.Request.Idea,
		Mode:        string(ec.Mode),
		Settings: workspace.Settings{
			Model:             ec.Request.Model,
			MaxThinkingTokens: o.config.MaxThinkingTokens,
			AutoCompact:       o.config.AutoCompact,
		},
		Blueprint: ec.Blueprint,
		Agents:    ec.Agents,
	})
	return err
}

// planAgentic starts the run's container and asks the agent inside it to
// design the team. Planning failures fall back to the scheduler.
func (o *Orchestrator) planAgentic(ctx context.Context, ec *ExecutionContext, logger *log.Logger) error {
	h, err := o.startContainer(ctx, ec, "")
	if err != nil {
		return err
	}

	out, err := o.deps.Planner.Plan(ctx, h, ec.Paths.Workspace, ec.Request.Idea, ec.Analysis)
	if err == nil {
		err = blueprint.Validate(out.Blueprint)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("agentic planning failed, using scheduler blueprint", "error", err)
		ec.Mode = ModeFallback
		ec.degrade(errors.ErrCodeBlueprintFallback, err)
		o.planScheduled(ctx, ec)
		return nil
	}

	ec.Mode = ModeAgentic
	ec.Blueprint = out.Blueprint
	ec.Agents = out.Agents
	if out.Degraded {
		ec.degrade(errors.ErrCodeBlueprintFallback, fmt.Errorf("planner produced only the %s fallback agent", binder.FallbackAgentName))
	}
	return nil
}

// planScheduled builds the deterministic blueprint and binds its specs.
func (o *Orchestrator) planScheduled(ctx context.Context, ec *ExecutionContext) {
	ec.Blueprint = o.deps.Designer.Design(ec.Analysis)
	agents, degradations := o.deps.Binder.BindAll(ctx, ec.Blueprint.OrderedSpecs(), ec.Analysis)
	ec.Agents = agents
	ec.Degradations = append(ec.Degradations, degradations...)
}

// launchWorkload starts the generation script: in the planning container
// when one is running, otherwise in a new container.
func (o *Orchestrator) launchWorkload(ctx context.Context, ec *ExecutionContext, logger *log.Logger) error {
	if ec.Container == nil {
		_, err := o.startContainer(ctx, ec, StartupCommand)
		return err
	}

	res, err := o.deps.Runtime.Exec(ctx, *ec.Container, []string{"sh", "-c", TriggerCommand}, container.WorkspaceMount)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Wrap(errors.ErrCodeRuntimeExecFailed, "failed to start generation", err)
	}
	if res.ExitCode != 0 {
		return errors.New(errors.ErrCodeRuntimeExecFailed,
			fmt.Sprintf("generation trigger exited with code %d: %s", res.ExitCode, truncate(res.Output, 200)))
	}
	logger.Info("generation started", "container", ec.Container.ShortID())
	return nil
}

// Commands that run the generation script written by the renderer.
const (
	StartupCommand = "bash " + container.WorkspaceMount + "/" + workspace.StartupFile
	// TriggerCommand runs the script in the background of an idle container
	// with its output sent to the container log.
	TriggerCommand = "nohup " + StartupCommand + " > /proc/1/fd/1 2>&1 &"
)

func (o *Orchestrator) startContainer(ctx context.Context, ec *ExecutionContext, command string) (container.Handle, error) {
	h, err := o.deps.Runtime.Run(ctx, container.RunSpec{
		Name:          "metaforge-" + shortRunID(ec.RunID),
		WorkspacePath: ec.Paths.Workspace,
		OutputPath:    ec.Paths.Output,
		Env:           o.containerEnv(ec.Request),
		Command:       command,
	})
	if err != nil {
		if ctx.Err() != nil {
			return container.Handle{}, ctx.Err()
		}
		return container.Handle{}, errors.Wrap(errors.ErrCodeRuntimeStartFailed, "failed to start container", err)
	}
	if err := ec.attach(h); err != nil {
		// Never lose track of a started container.
		o.release(h, false, o.logger)
		return container.Handle{}, err
	}
	o.logger.Info("container started", "run_id", ec.RunID, "container", h.ShortID())
	return h, nil
}

func (o *Orchestrator) containerEnv(req Request) map[string]string {
	env := map[string]string{
		"CLAUDE_MODEL":               req.Model,
		"CLAUDE_AUTO_COMPACT":        strconv.FormatBool(o.config.AutoCompact),
		"CLAUDE_MAX_THINKING_TOKENS": strconv.Itoa(o.config.MaxThinkingTokens),
		"ANTHROPIC_API_KEY":          o.config.APIKey,
	}
	if o.config.APIKey == "" {
		o.logger.Warn("ANTHROPIC_API_KEY is not set; the container will create a placeholder project")
	}
	for k, v := range req.EnvOverrides {
		env[k] = v
	}
	return env
}

// cleanup stops the run's container and removes it unless retention was
// requested. It uses a fresh context so it runs after deadline expiry and
// caller cancellation. Failures are logged, never returned.
func (o *Orchestrator) cleanup(ec *ExecutionContext, logger *log.Logger) {
	if ec.Container == nil {
		return
	}
	o.release(*ec.Container, ec.Request.KeepContainer, logger)
}

func (o *Orchestrator) release(h container.Handle, keep bool, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), o.config.StopGrace+cleanupSlack)
	defer cancel()

	if err := o.deps.Runtime.Stop(ctx, h, o.config.StopGrace); err != nil {
		logger.Warn("failed to stop container", "container", h.ShortID(), "error", err)
	}
	if keep {
		logger.Info("container kept for inspection", "container", h.ShortID())
		return
	}
	if err := o.deps.Runtime.Remove(ctx, h); err != nil {
		logger.Warn("failed to remove container", "container", h.ShortID(), "error", err)
		return
	}
	logger.Debug("container removed", "container", h.ShortID())
}

// advance moves the state machine, persists the run record and notifies
// hooks.
func (o *Orchestrator) advance(ctx context.Context, ec *ExecutionContext, to State, cause error, logger *log.Logger) error {
	from := ec.State
	if err := ec.transition(to, cause); err != nil {
		logger.Error("state machine violation", "error", err)
		return err
	}
	logger.Debug("state changed", "from", string(from), "to", string(to))

	ec.record.Status = string(ec.Status)
	o.checkpoint(ec, logger)
	o.trigger(ctx, hooks.EventStateChange, ec, map[string]string{"from": string(from), "state": string(to)})
	return nil
}

func (o *Orchestrator) checkpoint(ec *ExecutionContext, logger *log.Logger) {
	if ec.Paths.Workspace == "" {
		return
	}
	m := checkpoint.NewManager(filepath.Join(ec.Paths.Workspace, workspace.StateDir))
	if err := m.Save(ec.record); err != nil {
		logger.Warn("failed to save run record", "error", err)
	}
}

func (o *Orchestrator) finish(ctx context.Context, ec *ExecutionContext, res *Result, logger *log.Logger) {
	data := map[string]string{
		"status":         string(res.Status),
		"mode":           string(res.Mode),
		"workspace":      res.WorkspacePath,
		"output":         res.OutputPath,
		"execution_time": res.ExecutionTime.String(),
		"agents":         strconv.Itoa(len(res.Agents)),
	}
	if res.Error != "" {
		data["error"] = res.Error
		data["error_code"] = string(errors.CodeOf(ec.Err))
		logger.Error("run failed", "status", string(res.Status), "duration", res.ExecutionTime, "error", ec.Err)
		o.trigger(ctx, hooks.EventRunFailed, ec, data)
		return
	}
	logger.Info("run finished", "status", string(res.Status), "mode", string(res.Mode),
		"agents", len(res.Agents), "duration", res.ExecutionTime)
	o.trigger(ctx, hooks.EventRunComplete, ec, data)
}

// trigger runs the hooks for t. Hooks see ctx, so a slow hook ends no later
// than the run deadline or the terminal hook budget.
func (o *Orchestrator) trigger(ctx context.Context, t hooks.EventType, ec *ExecutionContext, data map[string]string) {
	if o.hooks == nil {
		return
	}
	o.hooks.Trigger(ctx, hooks.NewEvent(t, ec.RunID, data))
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func deadlineString(d time.Duration) string {
	if d <= 0 {
		return "unlimited"
	}
	return d.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
