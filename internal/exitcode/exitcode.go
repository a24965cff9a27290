// Package exitcode maps run errors to process exit codes.
package exitcode

import (
	"context"
	stderrors "errors"
	"os"
	"strings"

	"github.com/felixgeelhaar/metaforge/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a failed run or any unclassified error
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ConfigError indicates an invalid or unreadable configuration
	ConfigError = 3

	// RuntimeError indicates the container runtime failed
	RuntimeError = 4

	// Timeout indicates the run deadline expired
	Timeout = 5

	// Interrupted indicates the run was cancelled by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with the code DetermineExitCode selects for err.
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DetermineExitCode classifies err by its coded error chain, falling back to
// the usage messages cobra produces.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	switch {
	case errors.IsTimeout(err):
		return Timeout
	case stderrors.Is(err, context.Canceled):
		return Interrupted
	case hasCategory(err, "CONFIG-"):
		return ConfigError
	case hasCategory(err, "RUNTIME-"):
		return RuntimeError
	}

	errMsg := strings.ToLower(err.Error())
	for _, usage := range []string{"unknown flag", "invalid argument", "unknown command", "required flag", "accepts ", "requires at least"} {
		if strings.Contains(errMsg, usage) {
			return UsageError
		}
	}
	return GeneralError
}

// hasCategory reports whether any coded error in err's chain has a code
// starting with prefix.
func hasCategory(err error, prefix string) bool {
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if me, ok := e.(*errors.MetaError); ok && strings.HasPrefix(string(me.Code), prefix) {
			return true
		}
	}
	return false
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ConfigError:
		return "Configuration error"
	case RuntimeError:
		return "Container runtime error"
	case Timeout:
		return "Run deadline exceeded"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
