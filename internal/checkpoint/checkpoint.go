// Package checkpoint persists the record of a generation run inside its
// workspace so an interrupted or finished run can be inspected later.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// FileName is the run record file inside a workspace state directory.
const FileName = "run.json"

// Transition is one state change of a run.
type Transition struct {
	From  string    `json:"from"`
	To    string    `json:"to"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// Record is the persisted state of one run.
type Record struct {
	Version     string            `json:"version"`
	RunID       string            `json:"run_id"`
	Idea        string            `json:"idea"`
	StartedAt   time.Time         `json:"started_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	State       string            `json:"state"`
	Status      string            `json:"status"`
	Mode        string            `json:"mode,omitempty"`
	ContainerID string            `json:"container_id,omitempty"`
	Agents      []string          `json:"agents,omitempty"`
	Error       string            `json:"error,omitempty"`
	Transitions []Transition      `json:"transitions"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// NewRecord starts a record in the given initial state.
func NewRecord(runID, idea, state string) *Record {
	now := time.Now()
	return &Record{
		Version:   "1.0",
		RunID:     runID,
		Idea:      idea,
		StartedAt: now,
		UpdatedAt: now,
		State:     state,
		Status:    "running",
		Metadata:  make(map[string]string),
	}
}

// Transition records a move to state. A non-nil err is kept on the
// transition and as the record error.
func (r *Record) Transition(to string, err error) {
	now := time.Now()
	t := Transition{From: r.State, To: to, At: now}
	if err != nil {
		t.Error = err.Error()
		r.Error = err.Error()
	}
	r.Transitions = append(r.Transitions, t)
	r.State = to
	r.UpdatedAt = now
}

// States returns the visited states in order, starting with the initial one.
func (r *Record) States() []string {
	if len(r.Transitions) == 0 {
		return []string{r.State}
	}
	states := []string{r.Transitions[0].From}
	for _, t := range r.Transitions {
		states = append(states, t.To)
	}
	return states
}

// SetMetadata sets a metadata key-value pair
func (r *Record) SetMetadata(key, value string) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]string)
	}
	r.Metadata[key] = value
	r.UpdatedAt = time.Now()
}

// GetMetadata retrieves a metadata value
func (r *Record) GetMetadata(key string) (string, bool) {
	if r.Metadata == nil {
		return "", false
	}
	value, ok := r.Metadata[key]
	return value, ok
}

// Manager reads and writes the run record of one workspace.
type Manager struct {
	dir string
}

// NewManager creates a manager storing its record in dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

// Path returns the record file path.
func (m *Manager) Path() string {
	return filepath.Join(m.dir, FileName)
}

// Save writes the record atomically.
func (m *Manager) Save(r *Record) error {
	if r == nil {
		return fmt.Errorf("run record is nil")
	}
	r.UpdatedAt = time.Now()

	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}

	tmp, err := os.CreateTemp(m.dir, FileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write run record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write run record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write run record: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.Path()); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write run record: %w", err)
	}
	return nil
}

// Load reads the record.
func (m *Manager) Load() (*Record, error) {
	data, err := os.ReadFile(m.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("run record not found: %s", m.Path())
		}
		return nil, fmt.Errorf("failed to read run record: %w", err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run record: %w", err)
	}
	return &r, nil
}

// Entry pairs a record with the workspace it was found in.
type Entry struct {
	Workspace string
	Record    *Record
}

// List loads the records of every workspace directly under base that has
// one, newest first. stateDir is the record directory inside a workspace.
func List(base, stateDir string) ([]Entry, error) {
	dirs, err := os.ReadDir(base)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}

	entries := []Entry{}
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		ws := filepath.Join(base, d.Name())
		r, err := NewManager(filepath.Join(ws, stateDir)).Load()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Workspace: ws, Record: r})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Record.StartedAt.After(entries[j].Record.StartedAt)
	})
	return entries, nil
}
