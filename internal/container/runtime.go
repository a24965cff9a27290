// Package container defines the isolated execution environment used to run
// the AI coding agent, and a docker CLI implementation of it.
package container

import (
	"context"
	"time"
)

// Paths and defaults inside the container.
const (
	WorkspaceMount = "/workspace"
	OutputMount    = "/workspace/output"
	DefaultUser    = "metaclaude"
	DefaultNetwork = "bridge"
	// IdleCommand keeps a container alive until work is exec'd into it.
	IdleCommand = "tail -f /dev/null"
	// DefaultStopGrace is how long a container may take to stop before it is killed.
	DefaultStopGrace = 10 * time.Second
)

// Image identifies a built image.
type Image struct {
	Ref string
	ID  string
}

// Handle identifies a started container.
type Handle struct {
	ID   string
	Name string
}

// ShortID returns the first 12 characters of the container ID.
func (h Handle) ShortID() string {
	if len(h.ID) > 12 {
		return h.ID[:12]
	}
	return h.ID
}

// RunSpec describes a container to start.
type RunSpec struct {
	Name          string
	WorkspacePath string
	OutputPath    string
	Env           map[string]string
	// Command runs via sh -c; empty selects IdleCommand.
	Command string
}

// ExecResult is the outcome of a command executed in a running container.
type ExecResult struct {
	ExitCode int
	Output   string
}

// Runtime is the set of container primitives the orchestrator consumes.
// Every call blocks and must honour ctx.
type Runtime interface {
	ImageExists(ctx context.Context) (bool, error)
	BuildImage(ctx context.Context, contextPath string, noCache bool) (Image, error)
	Run(ctx context.Context, spec RunSpec) (Handle, error)
	Exec(ctx context.Context, h Handle, command []string, workdir string) (ExecResult, error)
	// StreamLogs follows container output. The lines channel closes when the
	// stream ends or ctx is done; errc then yields the terminal error (nil on
	// a clean end of stream) and closes. A stream is not restartable.
	StreamLogs(ctx context.Context, h Handle) (lines <-chan string, errc <-chan error)
	Stop(ctx context.Context, h Handle, grace time.Duration) error
	Remove(ctx context.Context, h Handle) error
}
