package orchestrator

import (
	"time"

	"github.com/felixgeelhaar/metaforge/internal/analysis"
	"github.com/felixgeelhaar/metaforge/internal/blueprint"
	"github.com/felixgeelhaar/metaforge/internal/errors"
)

// Status is the final outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	// StatusPartial means the container output ended without a completion
	// marker.
	StatusPartial Status = "partial"
	StatusTimeout Status = "timeout"
	StatusFailed  Status = "failed"
)

// Mode is how the agent team was chosen.
type Mode string

const (
	ModeAgentic     Mode = "agentic"
	ModeTraditional Mode = "traditional"
	// ModeFallback is agentic mode after in-container planning failed and the
	// deterministic scheduler took over.
	ModeFallback Mode = "fallback"
)

// Result is the record of one run. It is returned on success and, with
// status failed or timeout, alongside the error on failure.
type Result struct {
	RunID                string               `json:"run_id" yaml:"run_id"`
	Idea                 string               `json:"idea" yaml:"idea"`
	Status               Status               `json:"status" yaml:"status"`
	Mode                 Mode                 `json:"mode" yaml:"mode"`
	Model                string               `json:"model" yaml:"model"`
	ProjectName          string               `json:"project_name,omitempty" yaml:"project_name,omitempty"`
	WorkspacePath        string               `json:"workspace_path,omitempty" yaml:"workspace_path,omitempty"`
	OutputPath           string               `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	ContainerID          string               `json:"container_id,omitempty" yaml:"container_id,omitempty"`
	ContainerKept        bool                 `json:"container_kept,omitempty" yaml:"container_kept,omitempty"`
	Agents               []string             `json:"agents" yaml:"agents"`
	CoordinationStrategy blueprint.Strategy   `json:"coordination_strategy,omitempty" yaml:"coordination_strategy,omitempty"`
	EstimatedDuration    string               `json:"estimated_duration,omitempty" yaml:"estimated_duration,omitempty"`
	Analysis             *analysis.Summary    `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Degradations         []errors.Degradation `json:"degradations,omitempty" yaml:"degradations,omitempty"`
	States               []State              `json:"states" yaml:"states"`
	ErrorLines           int                  `json:"error_lines" yaml:"error_lines"`
	Error                string               `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt            time.Time            `json:"started_at" yaml:"started_at"`
	ExecutionTime        time.Duration        `json:"execution_time" yaml:"execution_time"`
}

// Degraded reports whether any non-fatal failure was absorbed.
func (r *Result) Degraded() bool {
	return len(r.Degradations) > 0
}
