// Package workspace prepares per-run working directories and renders the
// configuration the agent container reads from them.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/felixgeelhaar/metaforge/internal/errors"
	"github.com/felixgeelhaar/metaforge/internal/log"
)

// Layout inside a workspace.
const (
	OutputDir   = "output"
	ClaudeDir   = ".claude"
	AgentsDir   = ".claude/agents"
	StateDir    = ".metaforge"
	StartupFile = "startup.sh"
)

// Paths locates a prepared workspace.
type Paths struct {
	Workspace string `json:"workspace" yaml:"workspace"`
	Output    string `json:"output" yaml:"output"`
}

// Store creates workspaces under a base directory.
type Store struct {
	base   string
	now    func() time.Time
	logger *log.Logger
}

// NewStore returns a store rooted at base.
func NewStore(base string, logger *log.Logger) *Store {
	return &Store{
		base:   base,
		now:    time.Now,
		logger: log.OrDefault(logger).WithComponent("workspace"),
	}
}

// Base returns the directory workspaces are created in.
func (s *Store) Base() string {
	return s.base
}

// Prepare creates a fresh workspace for idea with its output and
// configuration directories. An existing directory with the same name is
// never reused; a numeric suffix is added instead.
func (s *Store) Prepare(idea string) (Paths, error) {
	if err := os.MkdirAll(s.base, 0o755); err != nil {
		return Paths{}, errors.Wrap(errors.ErrCodeWorkspaceFailed, "failed to create output base directory", err).
			WithSuggestion("Check permissions on " + s.base)
	}

	name := Name(idea, s.now())
	dir := filepath.Join(s.base, name)
	for i := 2; ; i++ {
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			break
		}
		if !os.IsExist(err) {
			return Paths{}, errors.Wrap(errors.ErrCodeWorkspaceFailed, "failed to create workspace", err)
		}
		if i > 100 {
			return Paths{}, errors.New(errors.ErrCodeWorkspaceFailed, "could not allocate a unique workspace name for "+name)
		}
		dir = filepath.Join(s.base, fmt.Sprintf("%s_%d", name, i))
	}

	for _, sub := range []string{OutputDir, AgentsDir, StateDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return Paths{}, errors.Wrap(errors.ErrCodeWorkspaceFailed, "failed to create "+sub, err)
		}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	paths := Paths{Workspace: abs, Output: filepath.Join(abs, OutputDir)}
	s.logger.Info("workspace prepared", "workspace", paths.Workspace)
	return paths, nil
}

// Name builds "<YYYYmmdd_HHMMSS>_<safe idea prefix>". The prefix keeps
// letters, digits, '-' and '_' from the first 30 characters of idea.
func Name(idea string, t time.Time) string {
	runes := []rune(idea)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	var b strings.Builder
	for _, r := range runes {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	safe := strings.Trim(b.String(), "-_")
	if safe == "" {
		safe = "project"
	}
	return t.Format("20060102_150405") + "_" + safe
}
