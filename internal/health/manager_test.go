package health

import (
	"context"
	"testing"
	"time"
)

// mockChecker is a test double for health checks
type mockChecker struct {
	name   string
	result *Result
	delay  time.Duration
}

func (m *mockChecker) Name() string {
	return m.name
}

func (m *mockChecker) Check(ctx context.Context) *Result {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return Unhealthy("check cancelled").
				WithDetail("error", ctx.Err().Error())
		}
	}
	return m.result
}

func TestNewManager(t *testing.T) {
	manager := NewManager()

	if manager.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", manager.timeout, DefaultTimeout)
	}
	if manager.Count() != 0 {
		t.Errorf("checkers should be empty, got %d", manager.Count())
	}
}

func TestWithTimeout(t *testing.T) {
	manager := NewManager()
	returned := manager.WithTimeout(10 * time.Second)

	if returned != manager {
		t.Error("WithTimeout should return same manager for chaining")
	}
	if manager.timeout != 10*time.Second {
		t.Errorf("timeout = %v, want 10s", manager.timeout)
	}
}

func TestCheckKeepsRegistrationOrder(t *testing.T) {
	manager := NewManager()
	manager.AddChecker(&mockChecker{name: "healthy", result: Healthy("all good"), delay: 30 * time.Millisecond})
	manager.AddChecker(&mockChecker{name: "degraded", result: Degraded("partial")})
	manager.AddChecker(&mockChecker{name: "unhealthy", result: Unhealthy("broken")})

	reports := manager.Check(context.Background())
	if len(reports) != 3 {
		t.Fatalf("Check() returned %d reports, want 3", len(reports))
	}

	want := []struct {
		name   string
		status Status
	}{
		{"healthy", StatusHealthy},
		{"degraded", StatusDegraded},
		{"unhealthy", StatusUnhealthy},
	}
	for i, w := range want {
		if reports[i].Name != w.name || reports[i].Result.Status != w.status {
			t.Errorf("reports[%d] = %s/%s, want %s/%s", i, reports[i].Name, reports[i].Result.Status, w.name, w.status)
		}
	}
	if reports[0].Result.Latency <= 0 {
		t.Errorf("latency should be measured, got %v", reports[0].Result.Latency)
	}
}

func TestCheckWithTimeout(t *testing.T) {
	manager := NewManager().WithTimeout(100 * time.Millisecond)
	manager.AddChecker(&mockChecker{name: "slow", result: Healthy("should timeout"), delay: 2 * time.Second})

	reports := manager.Check(context.Background())

	if reports[0].Result.Status != StatusUnhealthy {
		t.Errorf("slow check should be unhealthy due to timeout, got %v", reports[0].Result.Status)
	}
	if reports[0].Result.Message != "check cancelled" {
		t.Errorf("Message = %q, want %q", reports[0].Result.Message, "check cancelled")
	}
}

func TestCheckNilResult(t *testing.T) {
	manager := NewManager()
	manager.AddChecker(&mockChecker{name: "broken"})

	reports := manager.Check(context.Background())
	if reports[0].Result == nil || reports[0].Result.Status != StatusUnhealthy {
		t.Errorf("nil result should become unhealthy, got %+v", reports[0].Result)
	}
}

func TestCheckConcurrency(t *testing.T) {
	manager := NewManager()
	for i := 0; i < 5; i++ {
		manager.AddChecker(&mockChecker{
			name:   "checker-" + string(rune('0'+i)),
			result: Healthy("ok"),
			delay:  100 * time.Millisecond,
		})
	}

	start := time.Now()
	reports := manager.Check(context.Background())
	elapsed := time.Since(start)

	// Sequential execution would take 500ms.
	if elapsed > 400*time.Millisecond {
		t.Errorf("Check took %v, expected parallel execution", elapsed)
	}
	if len(reports) != 5 {
		t.Errorf("Check() returned %d reports, want 5", len(reports))
	}
}

func TestOverallStatus(t *testing.T) {
	report := func(r *Result) Report { return Report{Name: "x", Result: r} }

	tests := []struct {
		name     string
		reports  []Report
		expected Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Report{report(Healthy("ok")), report(Healthy("ok"))}, StatusHealthy},
		{"one degraded", []Report{report(Healthy("ok")), report(Degraded("partial"))}, StatusDegraded},
		{"one unhealthy", []Report{report(Degraded("partial")), report(Unhealthy("broken")), report(Healthy("ok"))}, StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.reports); got != tt.expected {
				t.Errorf("OverallStatus() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCheckNames(t *testing.T) {
	manager := NewManager()
	manager.AddChecker(&mockChecker{name: "alpha", result: Healthy("ok")})
	manager.AddChecker(&mockChecker{name: "beta", result: Healthy("ok")})

	names := manager.CheckNames()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("CheckNames() = %v, want [alpha beta]", names)
	}
}
