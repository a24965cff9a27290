package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/felixgeelhaar/metaforge/internal/hooks"
)

// HookName is the name the metrics hook registers under.
const HookName = "metrics"

// Hook records run lifecycle events into Metrics.
type Hook struct {
	m *Metrics
}

// NewHook returns a hook that feeds m.
func NewHook(m *Metrics) *Hook {
	return &Hook{m: m}
}

func (h *Hook) Name() string                  { return HookName }
func (h *Hook) EventTypes() []hooks.EventType { return hooks.AllEventTypes() }
func (h *Hook) Enabled() bool                 { return h.m != nil }

// Execute updates the metrics for one event.
func (h *Hook) Execute(_ context.Context, event *hooks.Event) error {
	switch event.Type {
	case hooks.EventRunStart:
		h.m.RunsActive.Inc()
	case hooks.EventStateChange:
		h.m.StateTransitions.WithLabelValues(event.Get("state")).Inc()
	case hooks.EventRunComplete, hooks.EventRunFailed:
		h.m.RunsActive.Dec()
		mode := event.Get("mode")
		h.m.Runs.WithLabelValues(event.Get("status"), mode).Inc()
		if d, err := time.ParseDuration(event.Get("execution_time")); err == nil {
			h.m.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
		}
		if n, err := strconv.Atoi(event.Get("agents")); err == nil && n > 0 {
			h.m.RunAgents.Observe(float64(n))
		}
		if code := event.Get("error_code"); code != "" {
			h.m.Errors.WithLabelValues(code).Inc()
		}
	}
	return nil
}
