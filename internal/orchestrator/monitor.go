package orchestrator

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/log"
	"github.com/felixgeelhaar/metaforge/internal/security"
	"github.com/felixgeelhaar/metaforge/internal/workspace"
)

// CompletionMarkers end monitoring successfully when a container line
// contains one of them, ignoring case.
var CompletionMarkers = []string{
	workspace.CompletionMarker,
	"All tasks completed",
	"Claude Code session ended",
	"Generation successful",
}

// ErrorMarkers flag a container line as an error. Such lines are counted
// and logged; they do not fail the run.
var ErrorMarkers = []string{"ERROR:", "FATAL:", "Exception:"}

// IsCompletionLine reports whether line signals the end of generation.
func IsCompletionLine(line string) bool {
	return containsAny(line, CompletionMarkers)
}

// IsErrorLine reports whether line reports an error.
func IsErrorLine(line string) bool {
	return containsAny(line, ErrorMarkers)
}

func containsAny(line string, markers []string) bool {
	lower := strings.ToLower(line)
	for _, m := range markers {
		if strings.Contains(lower, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// monitor follows the container output until a completion marker, the end
// of the stream or ctx expiry. A stream that ends without a marker leaves
// the run partial.
func (o *Orchestrator) monitor(ctx context.Context, ec *ExecutionContext, logger *log.Logger) error {
	streamCtx, stop := context.WithCancel(ctx)
	defer stop()

	lines, errc := o.deps.Runtime.StreamLogs(streamCtx, *ec.Container)
	for line := range lines {
		logger.Debug("container output", "container_line", security.Redact(line))

		if IsErrorLine(line) {
			ec.ErrorLines++
			logger.Warn("error reported by container", "line", security.Redact(line))
		}
		if IsCompletionLine(line) {
			logger.Info("completion marker seen")
			ec.Status = StatusCompleted
			return nil
		}
	}

	err := <-errc
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		logger.Warn("container log stream failed", "error", err)
		ec.degrade(errors.ErrCodeRuntimeStreamFailed, err)
	}
	logger.Warn("container output ended without a completion marker")
	ec.Status = StatusPartial
	return nil
}
