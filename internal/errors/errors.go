package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Analysis errors (ANALYSIS-001 to ANALYSIS-099)
	ErrCodeAnalysisDegraded ErrorCode = "ANALYSIS-001"

	// Blueprint errors (BLUEPRINT-001 to BLUEPRINT-099)
	ErrCodeBlueprintFallback ErrorCode = "BLUEPRINT-001"
	ErrCodeBlueprintInvalid  ErrorCode = "BLUEPRINT-002"
	ErrCodeUnknownCapability ErrorCode = "BLUEPRINT-003"

	// Enrichment errors (ENRICH-001 to ENRICH-099)
	ErrCodeEnrichmentSkipped ErrorCode = "ENRICH-001"

	// Container runtime errors (RUNTIME-001 to RUNTIME-099)
	ErrCodeRuntimeUnavailable  ErrorCode = "RUNTIME-001"
	ErrCodeRuntimeBuildFailed  ErrorCode = "RUNTIME-002"
	ErrCodeRuntimeStartFailed  ErrorCode = "RUNTIME-003"
	ErrCodeRuntimeExecFailed   ErrorCode = "RUNTIME-004"
	ErrCodeRuntimeStreamFailed ErrorCode = "RUNTIME-005"

	// Execution errors (EXEC-001 to EXEC-099)
	ErrCodeTimeout          ErrorCode = "EXEC-001"
	ErrCodeExecutionFailure ErrorCode = "EXEC-002"

	// Configuration errors (CONFIG-001 to CONFIG-099)
	ErrCodeConfigInvalid    ErrorCode = "CONFIG-001"
	ErrCodeConfigUnreadable ErrorCode = "CONFIG-002"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeWorkspaceFailed ErrorCode = "IO-001"
	ErrCodeRenderFailed    ErrorCode = "IO-002"
)

// MetaError is a coded error carrying remediation hints for the CLI.
type MetaError struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	DocsURL     string
	Cause       error
}

// Error implements the error interface
func (e *MetaError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	if e.DocsURL != "" {
		b.WriteString(fmt.Sprintf("\n\nDocumentation: %s", e.DocsURL))
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *MetaError) Unwrap() error {
	return e.Cause
}

// Is reports a match when target is a *MetaError with the same code.
func (e *MetaError) Is(target error) bool {
	t, ok := target.(*MetaError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new MetaError
func New(code ErrorCode, message string) *MetaError {
	return &MetaError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new MetaError wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *MetaError {
	return &MetaError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *MetaError) WithSuggestion(suggestion string) *MetaError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *MetaError) WithSuggestions(suggestions ...string) *MetaError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// WithDocs adds a documentation URL to the error
func (e *MetaError) WithDocs(url string) *MetaError {
	e.DocsURL = url
	return e
}

// CodeOf returns the code of the first MetaError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var me *MetaError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// IsTimeout reports whether err is a run deadline failure.
func IsTimeout(err error) bool {
	return CodeOf(err) == ErrCodeTimeout
}

// IsExecutionFailure reports whether err is a non-timeout fatal run failure.
func IsExecutionFailure(err error) bool {
	return CodeOf(err) == ErrCodeExecutionFailure
}

// Degradation records a non-fatal failure that was absorbed at a component
// boundary and replaced with a deterministic substitute.
type Degradation struct {
	Code    ErrorCode `json:"code" yaml:"code"`
	Message string    `json:"message" yaml:"message"`
}

// Degrade builds a Degradation from a code and a cause.
func Degrade(code ErrorCode, cause error) Degradation {
	d := Degradation{Code: code}
	if cause != nil {
		d.Message = cause.Error()
	}
	return d
}

// Common error constructors for frequently used errors

// NewTimeoutError creates the run deadline error.
func NewTimeoutError(deadline fmt.Stringer, cause error) *MetaError {
	return Wrap(ErrCodeTimeout, fmt.Sprintf("execution timed out after %s", deadline), cause).
		WithSuggestion("Increase the deadline with --timeout or use --timeout unlimited").
		WithSuggestion("Re-run with --keep-container to inspect the partial output")
}

// NewExecutionFailure wraps any other unrecoverable run error.
func NewExecutionFailure(cause error) *MetaError {
	return Wrap(ErrCodeExecutionFailure, "project generation failed", cause).
		WithSuggestion("Run 'metaforge doctor' to verify the container runtime").
		WithSuggestion("Re-run with --verbose for container output")
}

// NewRuntimeUnavailableError creates a Docker not available error
func NewRuntimeUnavailableError(cause error) *MetaError {
	return Wrap(ErrCodeRuntimeUnavailable, "Docker is not available", cause).
		WithSuggestion("Install Docker Desktop or Docker Engine").
		WithSuggestion("Make sure Docker daemon is running").
		WithSuggestion("Run 'docker version' to verify Docker installation").
		WithDocs("https://docs.docker.com/get-docker/")
}

// NewUnknownCapabilityError reports a tool name outside the capability set.
func NewUnknownCapabilityError(tool string) *MetaError {
	return New(ErrCodeUnknownCapability, fmt.Sprintf("unknown capability tag: %q", tool)).
		WithSuggestion("Use one of: Read, Write, Edit, MultiEdit, Glob, Grep, Bash, WebFetch, WebSearch, TodoWrite")
}

// NewConfigInvalidError creates a configuration validation error
func NewConfigInvalidError(details string) *MetaError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", details)).
		WithSuggestion("Run 'metaforge config view' to inspect the effective configuration")
}

// NewConfigUnreadableError creates a config file read/parse error
func NewConfigUnreadableError(path string, cause error) *MetaError {
	return Wrap(ErrCodeConfigUnreadable, fmt.Sprintf("failed to read config file: %s", path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion("Ensure the file is valid yaml")
}
