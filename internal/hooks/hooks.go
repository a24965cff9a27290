// Package hooks delivers run lifecycle events to user-configured scripts and
// webhooks. Hook failures are reported, never propagated to the run.
package hooks

import (
	"context"
	"time"
)

// EventType represents the type of lifecycle event
type EventType string

const (
	EventRunStart    EventType = "on_run_start"
	EventStateChange EventType = "on_state_change"
	EventRunComplete EventType = "on_run_complete"
	EventRunFailed   EventType = "on_run_failed"
)

// AllEventTypes lists every event the orchestrator emits.
func AllEventTypes() []EventType {
	return []EventType{EventRunStart, EventStateChange, EventRunComplete, EventRunFailed}
}

// Event is one lifecycle notification.
type Event struct {
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	RunID     string            `json:"run_id"`
	Data      map[string]string `json:"data"`
}

// Hook is the interface that all hooks must implement
type Hook interface {
	Name() string
	EventTypes() []EventType
	Execute(ctx context.Context, event *Event) error
	Enabled() bool
}

// HookConfig is the configuration of one hook.
type HookConfig struct {
	Name    string            `yaml:"name" json:"name"`
	Type    string            `yaml:"type" json:"type"`
	Events  []EventType       `yaml:"events" json:"events"`
	Enabled bool              `yaml:"enabled" json:"enabled"`
	Config  map[string]string `yaml:"config" json:"config"`
	Timeout time.Duration     `yaml:"timeout" json:"timeout"`
}

// ExecutionResult contains the result of hook execution
type ExecutionResult struct {
	HookName  string        `json:"hook_name"`
	EventType EventType     `json:"event_type"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HookFactory creates hooks from configuration
type HookFactory func(config *HookConfig) (Hook, error)

// DefaultTimeout bounds a single hook execution.
const DefaultTimeout = 10 * time.Second

// IsValidEventType reports whether t is an emitted event.
func IsValidEventType(t EventType) bool {
	for _, valid := range AllEventTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// NewEvent creates a new event
func NewEvent(eventType EventType, runID string, data map[string]string) *Event {
	if data == nil {
		data = map[string]string{}
	}
	return &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		RunID:     runID,
		Data:      data,
	}
}

// Get returns a data value or "".
func (e *Event) Get(key string) string {
	return e.Data[key]
}
