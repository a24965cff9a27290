package hooks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/felixgeelhaar/metaforge/internal/log"
)

type mockHook struct {
	name       string
	eventTypes []EventType
	enabled    bool
	calls      atomic.Int32
	err        error
	panics     bool
	block      bool
}

func (m *mockHook) Name() string            { return m.name }
func (m *mockHook) EventTypes() []EventType { return m.eventTypes }
func (m *mockHook) Enabled() bool           { return m.enabled }
func (m *mockHook) Execute(ctx context.Context, event *Event) error {
	m.calls.Add(1)
	if m.panics {
		panic("boom")
	}
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry(log.Nop())

	hook := &mockHook{
		name:       "test-hook",
		eventTypes: []EventType{EventRunStart, EventRunComplete},
		enabled:    true,
	}
	if err := registry.Register(hook); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if !registry.HasHooksFor(EventRunStart) || !registry.HasHooksFor(EventRunComplete) {
		t.Error("hook not registered for all of its events")
	}
	if registry.HasHooksFor(EventRunFailed) {
		t.Error("hook registered for an event it does not handle")
	}
	if registry.Count() != 1 {
		t.Errorf("Count mismatch: got %d, want 1", registry.Count())
	}
}

func TestRegistryRegisterDisabled(t *testing.T) {
	registry := NewRegistry(log.Nop())

	err := registry.Register(&mockHook{name: "off", eventTypes: []EventType{EventRunStart}})
	if err != nil {
		t.Errorf("Register failed: %v", err)
	}
	if registry.Count() != 0 {
		t.Errorf("disabled hook should not be registered")
	}
}

func TestRegistryRegisterInvalid(t *testing.T) {
	registry := NewRegistry(log.Nop())

	if err := registry.Register(nil); err == nil {
		t.Error("expected error for nil hook")
	}
	err := registry.Register(&mockHook{name: "bad", enabled: true, eventTypes: []EventType{"on_plan_created"}})
	if err == nil {
		t.Error("expected error for unknown event type")
	}
}

func TestRegistryTriggerIsolatesFailures(t *testing.T) {
	registry := NewRegistry(log.Nop())

	ok := &mockHook{name: "ok", enabled: true, eventTypes: []EventType{EventRunFailed}}
	failing := &mockHook{name: "failing", enabled: true, eventTypes: []EventType{EventRunFailed}, err: errors.New("nope")}
	panicking := &mockHook{name: "panicking", enabled: true, eventTypes: []EventType{EventRunFailed}, panics: true}

	for _, h := range []Hook{ok, failing, panicking} {
		if err := registry.Register(h); err != nil {
			t.Fatal(err)
		}
	}

	results := registry.Trigger(context.Background(), NewEvent(EventRunFailed, "run-1", nil))
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Success {
		t.Errorf("ok hook reported failure: %s", results[0].Error)
	}
	if results[1].Success || results[1].Error != "nope" {
		t.Errorf("unexpected failing result %+v", results[1])
	}
	if results[2].Success || results[2].Error == "" {
		t.Errorf("panic should be reported as failure, got %+v", results[2])
	}
}

func TestRegistryTriggerNoHooks(t *testing.T) {
	registry := NewRegistry(log.Nop())
	if results := registry.Trigger(context.Background(), NewEvent(EventRunStart, "r", nil)); results != nil {
		t.Errorf("expected nil results, got %v", results)
	}

	var nilRegistry *Registry
	if results := nilRegistry.Trigger(context.Background(), NewEvent(EventRunStart, "r", nil)); results != nil {
		t.Errorf("nil registry should be a no-op")
	}
}

func TestExecutorTimeout(t *testing.T) {
	e := NewExecutor()
	e.SetDefaultTimeout(20 * time.Millisecond)

	hook := &mockHook{name: "slow", enabled: true, eventTypes: []EventType{EventStateChange}, block: true}
	res := e.Execute(context.Background(), hook, NewEvent(EventStateChange, "r", nil))

	if res.Success {
		t.Fatal("blocking hook should time out")
	}
	if res.Duration < 20*time.Millisecond {
		t.Errorf("duration %s shorter than timeout", res.Duration)
	}
}

func TestLoadFromConfig(t *testing.T) {
	registry := NewRegistry(log.Nop())

	err := registry.Load([]HookConfig{
		{Name: "notify", Type: "webhook", Enabled: true, Events: []EventType{EventRunComplete}, Config: map[string]string{"url": "http://localhost"}},
		{Name: "skipped", Type: "script", Enabled: false},
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if registry.Count() != 1 {
		t.Errorf("expected 1 hook, got %d", registry.Count())
	}

	err = registry.Load([]HookConfig{{Name: "x", Type: "carrier-pigeon", Enabled: true}})
	if err == nil {
		t.Error("expected error for unknown hook type")
	}
}
