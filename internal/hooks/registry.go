package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/metaforge/internal/log"
)

// Registry manages hooks and their lifecycle
type Registry struct {
	mu        sync.RWMutex
	hooks     map[EventType][]Hook
	factories map[string]HookFactory
	executor  *Executor
	logger    *log.Logger
}

// NewRegistry creates a registry with the builtin hook factories.
func NewRegistry(logger *log.Logger) *Registry {
	r := &Registry{
		hooks:     make(map[EventType][]Hook),
		factories: make(map[string]HookFactory),
		executor:  NewExecutor(),
		logger:    log.OrDefault(logger).WithComponent("hooks"),
	}
	r.RegisterFactory("script", NewScriptHook)
	r.RegisterFactory("webhook", NewWebhookHook)
	return r
}

// RegisterFactory registers a hook factory
func (r *Registry) RegisterFactory(hookType string, factory HookFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[hookType] = factory
}

// Register adds a hook to the registry. Disabled hooks are ignored.
func (r *Registry) Register(hook Hook) error {
	if hook == nil {
		return fmt.Errorf("hook cannot be nil")
	}
	if !hook.Enabled() {
		return nil
	}
	for _, t := range hook.EventTypes() {
		if !IsValidEventType(t) {
			return fmt.Errorf("hook %s: unknown event type %q", hook.Name(), t)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, eventType := range hook.EventTypes() {
		r.hooks[eventType] = append(r.hooks[eventType], hook)
	}
	return nil
}

// RegisterFromConfig creates and registers a hook from configuration
func (r *Registry) RegisterFromConfig(config *HookConfig) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}
	if !config.Enabled {
		return nil
	}

	r.mu.RLock()
	factory, exists := r.factories[config.Type]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("unknown hook type: %s", config.Type)
	}

	hook, err := factory(config)
	if err != nil {
		return fmt.Errorf("failed to create hook %s: %w", config.Name, err)
	}
	return r.Register(hook)
}

// Load registers every configured hook, stopping at the first invalid one.
func (r *Registry) Load(configs []HookConfig) error {
	for i := range configs {
		if err := r.RegisterFromConfig(&configs[i]); err != nil {
			return err
		}
	}
	return nil
}

// Trigger runs all hooks registered for the event type. Failed hooks are
// logged at warn level and otherwise ignored.
func (r *Registry) Trigger(ctx context.Context, event *Event) []ExecutionResult {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	hooks := r.hooks[event.Type]
	r.mu.RUnlock()

	if len(hooks) == 0 {
		return nil
	}

	results := r.executor.ExecuteAll(ctx, hooks, event)
	for _, res := range results {
		if res.Success {
			r.logger.Debug("hook executed", "hook", res.HookName, "event", string(res.EventType), "duration", res.Duration)
			continue
		}
		r.logger.Warn("hook failed", "hook", res.HookName, "event", string(res.EventType), "error", res.Error)
	}
	return results
}

// Count returns the number of distinct registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, hooks := range r.hooks {
		for _, hook := range hooks {
			seen[hook.Name()] = true
		}
	}
	return len(seen)
}

// HasHooksFor checks if there are any hooks registered for an event type
func (r *Registry) HasHooksFor(eventType EventType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.hooks[eventType]) > 0
}
