package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/binder"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/checkpoint"
	"github.com/felixgeelhaar/metaforge/internal/container"
	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/workspace"
)

// ExecutionContext is the mutable state of one run. It is owned by a single
// Execute call and never shared.
type ExecutionContext struct {
	RunID     string
	Request   Request
	State     State
	States    []State
	StartedAt time.Time

	Paths       workspace.Paths
	ProjectName string
	Container   *container.Handle
	Mode        Mode
	Analysis    analysis.ProjectAnalysis
	Blueprint   *blueprint.Blueprint
	Agents      []binder.BoundAgent

	Status       Status
	ErrorLines   int
	Degradations []errors.Degradation
	Err          error

	record *checkpoint.Record
}

func newExecutionContext(req Request, now time.Time) *ExecutionContext {
	id := uuid.New().String()
	rec := checkpoint.NewRecord(id, req.Idea, string(StateInit))
	rec.StartedAt = now
	return &ExecutionContext{
		RunID:     id,
		Request:   req,
		State:     StateInit,
		States:    []State{StateInit},
		StartedAt: now,
		Status:    StatusRunning,
		record:    rec,
	}
}

// withDeadline derives the run context. A zero deadline is unlimited.
func (ec *ExecutionContext) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if ec.Request.Deadline <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, ec.StartedAt.Add(ec.Request.Deadline))
}

func (ec *ExecutionContext) transition(to State, cause error) error {
	if !CanTransition(ec.State, to) {
		return transitionError(ec.State, to)
	}
	ec.State = to
	ec.States = append(ec.States, to)
	ec.record.Transition(string(to), cause)
	return nil
}

// attach binds the run's only container.
func (ec *ExecutionContext) attach(h container.Handle) error {
	if ec.Container != nil {
		return fmt.Errorf("container %s already attached to run %s", ec.Container.ShortID(), ec.RunID)
	}
	ec.Container = &h
	ec.record.ContainerID = h.ID
	return nil
}

func (ec *ExecutionContext) degrade(code errors.ErrorCode, cause error) {
	ec.Degradations = append(ec.Degradations, errors.Degrade(code, cause))
}

func (ec *ExecutionContext) agentNames() []string {
	names := make([]string, len(ec.Agents))
	for i, a := range ec.Agents {
		names[i] = a.Name
	}
	return names
}

func (ec *ExecutionContext) result(elapsed time.Duration) *Result {
	res := &Result{
		RunID:         ec.RunID,
		Idea:          ec.Request.Idea,
		Status:        ec.Status,
		Mode:          ec.Mode,
		Model:         ec.Request.Model,
		ProjectName:   ec.ProjectName,
		WorkspacePath: ec.Paths.Workspace,
		OutputPath:    ec.Paths.Output,
		ContainerKept: ec.Container != nil && ec.Request.KeepContainer,
		Agents:        ec.agentNames(),
		Degradations:  ec.Degradations,
		States:        append([]State(nil), ec.States...),
		ErrorLines:    ec.ErrorLines,
		StartedAt:     ec.StartedAt,
		ExecutionTime: elapsed,
	}
	if ec.Container != nil {
		res.ContainerID = ec.Container.ShortID()
	}
	if ec.Blueprint != nil {
		res.CoordinationStrategy = ec.Blueprint.CoordinationStrategy
		res.EstimatedDuration = ec.Blueprint.EstimatedDuration
	}
	if ec.Analysis.Complexity != "" {
		summary := ec.Analysis.Summarize()
		res.Analysis = &summary
	}
	if ec.Err != nil {
		res.Error = ec.Err.Error()
	}
	return res
}
