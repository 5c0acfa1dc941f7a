package actionstate

import (
	"testing"
	"time"
)

func TestRegisterAction_AttemptNumberAndSimplification(t *testing.T) {
	m := NewManager()

	a1 := m.RegisterAction("web_search", []string{"climate change causes and effects in depth"}, ActionContext{})
	if a1.AttemptNumber != 1 {
		t.Fatalf("first attempt number = %d, want 1", a1.AttemptNumber)
	}
	if a1.QuerySimplified {
		t.Fatal("first attempt should not be marked simplified")
	}

	a2 := m.RegisterAction("web_search", []string{"climate change"}, ActionContext{})
	if a2.AttemptNumber != 2 {
		t.Fatalf("second attempt number = %d, want 2", a2.AttemptNumber)
	}
	if !a2.QuerySimplified {
		t.Fatal("shorter retried query should be marked simplified")
	}
}

func TestRegisterAction_DistinctToolsDoNotShareAttempts(t *testing.T) {
	m := NewManager()
	m.RegisterAction("web_search", []string{"same query"}, ActionContext{})
	a := m.RegisterAction("calculator", []string{"same query"}, ActionContext{})
	if a.AttemptNumber != 1 {
		t.Fatalf("different tool with same query should start at attempt 1, got %d", a.AttemptNumber)
	}
}

func TestActionLifecycle_CompleteAndFail(t *testing.T) {
	m := NewManager()
	a := m.RegisterAction("calculator", []string{"2+2"}, ActionContext{})
	m.MarkInProgress(a.ID)

	if got, _ := m.Get(a.ID); got.Status != StatusInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", got.Status)
	}

	m.CompleteAction(a.ID, "4")
	got, ok := m.Get(a.ID)
	if !ok || got.Status != StatusCompleted || got.Result != "4" {
		t.Fatalf("unexpected completed action: %+v", got)
	}

	if m.IsToolCurrentlyExecuting("calculator") {
		t.Fatal("tool should not be executing after completion")
	}
}

func TestShouldThrottleTool_PendingActionAlwaysThrottles(t *testing.T) {
	m := NewManager()
	a := m.RegisterAction("web_search", []string{"q"}, ActionContext{})
	m.MarkInProgress(a.ID)

	throttle, reason := m.ShouldThrottleTool("web_search", 0)
	if !throttle || reason == "" {
		t.Fatalf("expected throttle with reason while action is in flight, got %v %q", throttle, reason)
	}
}

// TestShouldThrottleTool_RepeatedFailureWindow covers the three-failures
// throttle rule: three FAILED actions for a tool, the most recent within 30s,
// throttles; once that most recent failure ages past 30s, it no longer does.
func TestShouldThrottleTool_RepeatedFailureWindow(t *testing.T) {
	m := NewManager()

	backfillFailedAction(m, "flaky_tool", 40*time.Second)
	backfillFailedAction(m, "flaky_tool", 20*time.Second)
	backfillFailedAction(m, "flaky_tool", 10*time.Second)

	throttle, _ := m.ShouldThrottleTool("flaky_tool", 0)
	if !throttle {
		t.Fatal("expected throttle true with last failure 10s ago")
	}

	m2 := NewManager()
	backfillFailedAction(m2, "flaky_tool", 70*time.Second)
	backfillFailedAction(m2, "flaky_tool", 50*time.Second)
	backfillFailedAction(m2, "flaky_tool", 35*time.Second)

	throttle2, _ := m2.ShouldThrottleTool("flaky_tool", 0)
	if throttle2 {
		t.Fatal("expected throttle false with last failure 35s ago")
	}
}

// backfillFailedAction registers and fails an action for toolName, then
// rewrites its timestamps to look like it happened `age` ago.
func backfillFailedAction(m *Manager, toolName string, age time.Duration) {
	a := m.RegisterAction(toolName, []string{"q"}, ActionContext{})
	m.MarkInProgress(a.ID)
	m.FailAction(a.ID, "boom", "error")

	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.actions[a.ID]
	stored.InitiatedAt = time.Now().Add(-age)
	stored.CompletedAt = time.Now().Add(-age)
}

func TestShouldThrottleTool_MinIntervalRule(t *testing.T) {
	m := NewManager()
	a := m.RegisterAction("rate_limited_tool", []string{"q"}, ActionContext{})
	m.CompleteAction(a.ID, "ok")

	throttle, reason := m.ShouldThrottleTool("rate_limited_tool", 5*time.Second)
	if !throttle || reason == "" {
		t.Fatalf("expected throttle within min interval, got %v %q", throttle, reason)
	}
}

func TestGetRecentToolResult_RespectsMaxAge(t *testing.T) {
	m := NewManager()
	a := m.RegisterAction("calculator", []string{"2+2"}, ActionContext{})
	m.CompleteAction(a.ID, "4")

	if _, ok := m.GetRecentToolResult("calculator", time.Minute); !ok {
		t.Fatal("expected recent result within a minute window")
	}

	m.mu.Lock()
	m.actions[a.ID].CompletedAt = time.Now().Add(-time.Hour)
	m.mu.Unlock()

	if _, ok := m.GetRecentToolResult("calculator", time.Minute); ok {
		t.Fatal("expected no recent result once past max age")
	}
}

func TestCleanupOldActions_PurgesTerminalPastMaxAge(t *testing.T) {
	m := NewManager()
	a := m.RegisterAction("calculator", []string{"2+2"}, ActionContext{})
	m.CompleteAction(a.ID, "4")

	m.mu.Lock()
	m.actions[a.ID].CompletedAt = time.Now().Add(-10 * time.Minute)
	m.mu.Unlock()

	pending := m.RegisterAction("web_search", []string{"still running"}, ActionContext{})

	m.CleanupOldActions(DefaultCleanupMaxAge)

	if _, ok := m.Get(a.ID); ok {
		t.Fatal("expected stale completed action to be purged")
	}
	if _, ok := m.Get(pending.ID); !ok {
		t.Fatal("pending action should survive cleanup regardless of age")
	}
}

func TestGetToolsHealthSummary_CountsByOutcome(t *testing.T) {
	m := NewManager()

	ok := m.RegisterAction("web_search", []string{"a"}, ActionContext{})
	m.CompleteAction(ok.ID, "result")

	failed := m.RegisterAction("web_search", []string{"b"}, ActionContext{})
	m.FailAction(failed.ID, "bad request", "error")

	timedOut := m.RegisterAction("web_search", []string{"c"}, ActionContext{})
	m.MarkTimeout(timedOut.ID)

	summary := m.GetToolsHealthSummary()
	if summary == "" {
		t.Fatal("expected non-empty health summary")
	}
	if !containsAll(summary, "web_search", "1 ok", "1 failed", "1 timed out") {
		t.Errorf("health summary missing expected counts: %q", summary)
	}
}

func containsAll(s string, substrs ...string) bool {
	for _, sub := range substrs {
		found := false
		for i := 0; i+len(sub) <= len(s); i++ {
			if s[i:i+len(sub)] == sub {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
