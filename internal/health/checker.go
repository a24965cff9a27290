// Package health runs the dependency checks behind `metaforge doctor`.
//
// Each Checker verifies one dependency of a generation run (the docker
// daemon, the generation image, the API key) and reports a Result:
//
//	manager := health.NewManager()
//	manager.AddChecker(health.NewDockerChecker(docker))
//	manager.AddChecker(health.NewImageChecker(docker, docker.ImageRef()))
//
//	for _, report := range manager.Check(ctx) {
//	    fmt.Println(report.Name, report.Result.Status)
//	}
package health

import (
	"context"
	"time"
)

// Checker verifies a single dependency.
type Checker interface {
	// Name is lowercase with hyphens, e.g. "docker-daemon".
	Name() string

	// Check must honour the context deadline.
	Check(ctx context.Context) *Result
}

// Status is the outcome of a check.
type Status string

const (
	// StatusHealthy means the dependency is ready for a run.
	StatusHealthy Status = "healthy"

	// StatusDegraded means a run can proceed with reduced results, for
	// example when the image must be built first.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy means a run would fail.
	StatusUnhealthy Status = "unhealthy"
)

func (s Status) String() string {
	return string(s)
}

// Result is the outcome of one check.
type Result struct {
	Status  Status            `json:"status" yaml:"status"`
	Message string            `json:"message" yaml:"message"`
	Details map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
	Latency time.Duration     `json:"latency" yaml:"latency"`
}

// NewResult creates a result with the given status and message.
func NewResult(status Status, message string) *Result {
	return &Result{
		Status:  status,
		Message: message,
		Details: make(map[string]string),
	}
}

// WithDetail adds a detail and returns the result for chaining.
func (r *Result) WithDetail(key, value string) *Result {
	r.Details[key] = value
	return r
}

// WithLatency sets the latency and returns the result for chaining.
func (r *Result) WithLatency(latency time.Duration) *Result {
	r.Latency = latency
	return r
}

// Healthy creates a healthy result.
func Healthy(message string) *Result {
	return NewResult(StatusHealthy, message)
}

// Degraded creates a degraded result.
func Degraded(message string) *Result {
	return NewResult(StatusDegraded, message)
}

// Unhealthy creates an unhealthy result.
func Unhealthy(message string) *Result {
	return NewResult(StatusUnhealthy, message)
}
