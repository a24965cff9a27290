package orchestrator

import "fmt"

// State is a step of the run state machine.
type State string

const (
	StateInit             State = "init"
	StateWorkspaceReady   State = "workspace_ready"
	StateRuntimeReady     State = "runtime_ready"
	StateBlueprintReady   State = "blueprint_ready"
	StateContainerRunning State = "container_running"
	StateMonitoring       State = "monitoring"
	StateCompleted        State = "completed"
	StateTimedOut         State = "timed_out"
	StateFailed           State = "failed"
	StateCleanedUp        State = "cleaned_up"
)

// next lists the forward transitions of the happy path. Failed and TimedOut
// are reachable from every non-terminal state because the deadline and
// caller cancellation apply at every blocking boundary.
var next = map[State]State{
	StateInit:             StateWorkspaceReady,
	StateWorkspaceReady:   StateRuntimeReady,
	StateRuntimeReady:     StateBlueprintReady,
	StateBlueprintReady:   StateContainerRunning,
	StateContainerRunning: StateMonitoring,
	StateMonitoring:       StateCompleted,
}

// IsTerminal reports whether s ends the run. Only CleanedUp may follow it.
func IsTerminal(s State) bool {
	switch s {
	case StateCompleted, StateTimedOut, StateFailed:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	switch {
	case from == StateCleanedUp:
		return false
	case IsTerminal(from):
		return to == StateCleanedUp
	case to == StateFailed || to == StateTimedOut:
		return true
	default:
		return next[from] == to
	}
}

func transitionError(from, to State) error {
	return fmt.Errorf("illegal state transition %s -> %s", from, to)
}
