// Package containertest provides a recording container.Runtime for tests.
package containertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/metaforge/internal/container"
)

// Operation names recorded by Runtime.
const (
	OpImageExists = "image_exists"
	OpBuild       = "build"
	OpRun         = "run"
	OpExec        = "exec"
	OpStreamLogs  = "stream_logs"
	OpStop        = "stop"
	OpRemove      = "remove"
)

// Call is one recorded runtime operation.
type Call struct {
	Op        string
	Container string
	Command   []string
	Spec      container.RunSpec
}

// Runtime is an in-memory container.Runtime that records every call in order.
type Runtime struct {
	// HasImage is returned by ImageExists.
	HasImage bool
	// Lines are emitted by StreamLogs, one every LineDelay.
	Lines     []string
	LineDelay time.Duration
	// Hold keeps the stream open after Lines until ctx is done.
	Hold bool
	// StreamErr ends the stream after Lines with this error.
	StreamErr error

	BuildErr  error
	RunErr    error
	StopErr   error
	RemoveErr error
	// ExecFunc answers Exec; nil returns exit code 0 with no output.
	ExecFunc func(command []string) (container.ExecResult, error)

	mu      sync.Mutex
	calls   []Call
	seq     int
	running map[string]bool
}

var _ container.Runtime = (*Runtime)(nil)

// New returns a runtime whose image already exists.
func New() *Runtime {
	return &Runtime{HasImage: true}
}

func (r *Runtime) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns a copy of the recorded calls.
func (r *Runtime) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the recorded operation names in order.
func (r *Runtime) Ops() []string {
	calls := r.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many times op was called.
func (r *Runtime) Count(op string) int {
	n := 0
	for _, c := range r.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Running returns IDs of containers started and not yet removed.
func (r *Runtime) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id := range r.running {
		ids = append(ids, id)
	}
	return ids
}

func (r *Runtime) ImageExists(ctx context.Context) (bool, error) {
	r.record(Call{Op: OpImageExists})
	return r.HasImage, ctx.Err()
}

func (r *Runtime) BuildImage(ctx context.Context, contextPath string, noCache bool) (container.Image, error) {
	r.record(Call{Op: OpBuild, Command: []string{contextPath, fmt.Sprint(noCache)}})
	if r.BuildErr != nil {
		return container.Image{}, r.BuildErr
	}
	r.mu.Lock()
	r.HasImage = true
	r.mu.Unlock()
	return container.Image{Ref: "metaclaude:latest", ID: "sha256:test"}, nil
}

func (r *Runtime) Run(ctx context.Context, spec container.RunSpec) (container.Handle, error) {
	r.record(Call{Op: OpRun, Spec: spec})
	if r.RunErr != nil {
		return container.Handle{}, r.RunErr
	}
	if err := ctx.Err(); err != nil {
		return container.Handle{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	id := fmt.Sprintf("container-%d", r.seq)
	if r.running == nil {
		r.running = make(map[string]bool)
	}
	r.running[id] = true
	return container.Handle{ID: id, Name: spec.Name}, nil
}

func (r *Runtime) Exec(ctx context.Context, h container.Handle, command []string, workdir string) (container.ExecResult, error) {
	r.record(Call{Op: OpExec, Container: h.ID, Command: append([]string(nil), command...)})
	if err := ctx.Err(); err != nil {
		return container.ExecResult{}, err
	}
	if r.ExecFunc != nil {
		return r.ExecFunc(command)
	}
	return container.ExecResult{}, nil
}

func (r *Runtime) StreamLogs(ctx context.Context, h container.Handle) (<-chan string, <-chan error) {
	r.record(Call{Op: OpStreamLogs, Container: h.ID})
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(lines)
		for _, line := range r.Lines {
			if r.LineDelay > 0 {
				select {
				case <-time.After(r.LineDelay):
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if r.Hold {
			<-ctx.Done()
			errc <- ctx.Err()
			return
		}
		errc <- r.StreamErr
	}()

	return lines, errc
}

func (r *Runtime) Stop(ctx context.Context, h container.Handle, grace time.Duration) error {
	r.record(Call{Op: OpStop, Container: h.ID})
	return r.StopErr
}

func (r *Runtime) Remove(ctx context.Context, h container.Handle) error {
	r.record(Call{Op: OpRemove, Container: h.ID})
	if r.RemoveErr != nil {
		return r.RemoveErr
	}
	r.mu.Lock()
	delete(r.running, h.ID)
	r.mu.Unlock()
	return nil
}
