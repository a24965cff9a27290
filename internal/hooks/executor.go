package hooks

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// Executor runs hooks concurrently with a per-hook timeout.
type Executor struct {
	maxConcurrency int
	defaultTimeout time.Duration
}

// NewExecutor creates a new hook executor
func NewExecutor() *Executor {
	return &Executor{
		maxConcurrency: 4,
		defaultTimeout: DefaultTimeout,
	}
}

// ExecuteAll runs every hook for event and returns one result per hook in
// input order.
func (e *Executor) ExecuteAll(ctx context.Context, hooks []Hook, event *Event) []ExecutionResult {
	if len(hooks) == 0 {
		return nil
	}

	results := make([]ExecutionResult, len(hooks))
	var g errgroup.Group
	g.SetLimit(e.maxConcurrency)

	for i, h := range hooks {
		g.Go(func() error {
			results[i] = e.Execute(ctx, h, event)
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Execute runs a single hook. A panic inside the hook is reported as a
// failed result.
func (e *Executor) Execute(ctx context.Context, hook Hook, event *Event) (result ExecutionResult) {
	result = ExecutionResult{
		HookName:  hook.Name(),
		EventType: event.Type,
	}

	timeout := e.defaultTimeout
	if t, ok := hook.(interface{ Timeout() time.Duration }); ok && t.Timeout() > 0 {
		timeout = t.Timeout()
	}
	hookCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		if r := recover(); r != nil {
			result.Success = false
			result.Error = fmt.Sprintf("hook panicked: %v", r)
		}
	}()

	if err := hook.Execute(hookCtx, event); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Success = true
	return result
}

// SetMaxConcurrency sets the maximum number of concurrent hook executions
func (e *Executor) SetMaxConcurrency(max int) {
	if max < 1 {
		max = 1
	}
	e.maxConcurrency = max
}

// SetDefaultTimeout sets the default timeout for hook execution
func (e *Executor) SetDefaultTimeout(timeout time.Duration) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	e.defaultTimeout = timeout
}
