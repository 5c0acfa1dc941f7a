package actionstate

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultCleanupMaxAge is the default age after which completed/failed
// actions are purged (spec §4.2, 300s).
const DefaultCleanupMaxAge = 300 * time.Second

// maxAttemptEntries bounds the per-query attempt tracking map; once exceeded
// it is pruned down to the most recent entries (spec §4.2).
const (
	maxAttemptEntries   = 100
	prunedAttemptsKeep  = 50
)

type queryAttempt struct {
	lastSeen      time.Time
	lastTokens    int
	attemptNumber int
}

// Manager exclusively owns all Action records (spec §3 Ownership).
type Manager struct {
	mu sync.Mutex

	counter uint64
	actions map[string]*Action
	// order preserves insertion order for stable iteration / cleanup.
	order []string

	perQuery map[string]*queryAttempt
}

// NewManager creates an empty Action State Manager.
func NewManager() *Manager {
	return &Manager{
		actions:  make(map[string]*Action),
		perQuery: make(map[string]*queryAttempt),
	}
}

// RegisterAction assigns an attempt number, detects query simplification
// relative to the previous attempt for the same (tool, query) pair, and
// stores a new PENDING action record.
func (m *Manager) RegisterAction(toolName string, args []string, context ActionContext) *Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counter++
	id := newActionID(m.counter)

	key := queryKey(toolName, args)
	var firstArg string
	if len(args) > 0 {
		firstArg = args[0]
	}
	tokens := approxTokenCount(firstArg)

	prev, ok := m.perQuery[key]
	attemptNumber := 1
	simplified := false
	if ok {
		attemptNumber = prev.attemptNumber + 1
		simplified = tokens < prev.lastTokens
	}
	m.perQuery[key] = &queryAttempt{
		lastSeen:      time.Now(),
		lastTokens:    tokens,
		attemptNumber: attemptNumber,
	}
	m.pruneAttemptsLocked()

	action := &Action{
		ID:              id,
		ToolName:        toolName,
		Args:            args,
		Status:          StatusPending,
		InitiatedAt:     time.Now(),
		Context:         context,
		AttemptNumber:   attemptNumber,
		QuerySimplified: simplified,
	}
	m.actions[id] = action
	m.order = append(m.order, id)
	return action
}

func (m *Manager) pruneAttemptsLocked() {
	if len(m.perQuery) <= maxAttemptEntries {
		return
	}
	type kv struct {
		key  string
		seen time.Time
	}
	entries := make([]kv, 0, len(m.perQuery))
	for k, v := range m.perQuery {
		entries = append(entries, kv{k, v.lastSeen})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seen.After(entries[j].seen) })
	kept := make(map[string]*queryAttempt, prunedAttemptsKeep)
	for i := 0; i < prunedAttemptsKeep && i < len(entries); i++ {
		kept[entries[i].key] = m.perQuery[entries[i].key]
	}
	m.perQuery = kept
}

// MarkInProgress transitions a PENDING action to IN_PROGRESS.
func (m *Manager) MarkInProgress(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.actions[id]; ok {
		a.Status = StatusInProgress
	}
}

// CompleteAction transitions an action to COMPLETED with its result.
func (m *Manager) CompleteAction(id, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.actions[id]; ok {
		a.Status = StatusCompleted
		a.Result = result
		a.CompletedAt = time.Now()
	}
}

// FailAction transitions an action to FAILED with an error and optional
// failure reason (e.g. "enforcement", "timeout").
func (m *Manager) FailAction(id, errMsg, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.actions[id]; ok {
		a.Status = StatusFailed
		a.Err = errMsg
		a.Context.FailureReason = reason
		a.CompletedAt = time.Now()
	}
}

// MarkTimeout fails an action with reason "timeout" (spec §4.4, §7).
func (m *Manager) MarkTimeout(id string) {
	m.FailAction(id, "tool execution timed out", "timeout")
}

// Get returns a copy of the action record by ID.
func (m *Manager) Get(id string) (Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[id]
	if !ok {
		return Action{}, false
	}
	return *a, true
}

// GetPendingActions returns all actions not yet COMPLETED/FAILED/CANCELLED.
func (m *Manager) GetPendingActions() []Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Action
	for _, id := range m.order {
		a := m.actions[id]
		if a == nil {
			continue
		}
		if a.Status == StatusPending || a.Status == StatusInProgress {
			out = append(out, *a)
		}
	}
	return out
}

// GetRecentToolResult returns the most recent COMPLETED action for a tool
// within maxAge, if any.
func (m *Manager) GetRecentToolResult(toolName string, maxAge time.Duration) (Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *Action
	for i := len(m.order) - 1; i >= 0; i-- {
		a := m.actions[m.order[i]]
		if a == nil || a.ToolName != toolName || a.Status != StatusCompleted {
			continue
		}
		if time.Since(a.CompletedAt) > maxAge {
			continue
		}
		best = a
		break
	}
	if best == nil {
		return Action{}, false
	}
	return *best, true
}

// IsToolCurrentlyExecuting reports whether any pending/in-progress action
// exists for the given tool.
func (m *Manager) IsToolCurrentlyExecuting(toolName string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		a := m.actions[id]
		if a != nil && a.ToolName == toolName && (a.Status == StatusPending || a.Status == StatusInProgress) {
			return true
		}
	}
	return false
}

// recentActionsForTool returns up to n most-recent actions for a tool,
// most-recent first.
func (m *Manager) recentActionsForTool(toolName string, n int) []*Action {
	var out []*Action
	for i := len(m.order) - 1; i >= 0 && len(out) < n; i-- {
		a := m.actions[m.order[i]]
		if a != nil && a.ToolName == toolName {
			out = append(out, a)
		}
	}
	return out
}

// ShouldThrottleTool implements the §4.2 throttle rule: throttle when called
// within minInterval of the last call, when >=2 of the last 3 attempts
// failed and the last call was <30s ago, or when an action for this tool is
// already pending.
func (m *Manager) ShouldThrottleTool(toolName string, minInterval time.Duration) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range m.order {
		a := m.actions[id]
		if a != nil && a.ToolName == toolName && (a.Status == StatusPending || a.Status == StatusInProgress) {
			return true, "an action for this tool is already in flight"
		}
	}

	recent := m.recentActionsForTool(toolName, 3)
	if len(recent) == 0 {
		return false, ""
	}

	last := recent[0]
	sinceLast := time.Since(last.InitiatedAt)
	if minInterval > 0 && sinceLast < minInterval {
		return true, fmt.Sprintf("called %s ago, below the minimum interval of %s", sinceLast.Round(time.Second), minInterval)
	}

	failures := 0
	for _, a := range recent {
		if a.Status == StatusFailed {
			failures++
		}
	}
	if failures >= 2 && sinceLast < 30*time.Second {
		return true, "repeated recent failures for this tool"
	}

	return false, ""
}

// GetToolAwarenessContext renders a markdown summary of in-flight actions so
// the model does not re-issue calls that are already running.
func (m *Manager) GetToolAwarenessContext() string {
	pending := m.GetPendingActions()
	if len(pending) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Currently running tool actions\n")
	for _, a := range pending {
		fmt.Fprintf(&sb, "- %s (%s) started %s ago, status=%s\n",
			a.ToolName, a.ID, time.Since(a.InitiatedAt).Round(time.Second), a.Status)
	}
	return sb.String()
}

// GetRecentFailuresSummary renders a markdown summary of recently failed
// actions, most recent first, so the model can decide whether to retry.
func (m *Manager) GetRecentFailuresSummary() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sb strings.Builder
	count := 0
	for i := len(m.order) - 1; i >= 0 && count < 10; i-- {
		a := m.actions[m.order[i]]
		if a == nil || a.Status != StatusFailed {
			continue
		}
		if count == 0 {
			sb.WriteString("## Recent tool failures\n")
		}
		reason := a.Context.FailureReason
		if reason == "" {
			reason = "error"
		}
		fmt.Fprintf(&sb, "- %s: %s (%s)\n", a.ToolName, a.Err, reason)
		count++
	}
	return sb.String()
}

// toolHealth aggregates success/failure counts for one tool.
type toolHealth struct {
	successes int
	failures  int
	timeouts  int
}

// GetToolsHealthSummary renders a per-tool health summary (success/failure/
// timeout counts) across all tracked actions.
func (m *Manager) GetToolsHealthSummary() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	health := make(map[string]*toolHealth)
	for _, id := range m.order {
		a := m.actions[id]
		if a == nil {
			continue
		}
		h, ok := health[a.ToolName]
		if !ok {
			h = &toolHealth{}
			health[a.ToolName] = h
		}
		switch {
		case a.Status == StatusCompleted:
			h.successes++
		case a.Status == StatusFailed && a.Context.FailureReason == "timeout":
			h.timeouts++
		case a.Status == StatusFailed:
			h.failures++
		}
	}
	if len(health) == 0 {
		return ""
	}

	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("## Tool health\n")
	for _, name := range names {
		h := health[name]
		fmt.Fprintf(&sb, "- %s: %d ok, %d failed, %d timed out\n", name, h.successes, h.failures, h.timeouts)
	}
	return sb.String()
}

// CleanupOldActions purges COMPLETED/FAILED/CANCELLED actions older than
// maxAge and prunes the per-query attempt map if it exceeds its bound.
func (m *Manager) CleanupOldActions(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.order[:0]
	for _, id := range m.order {
		a := m.actions[id]
		if a == nil {
			continue
		}
		terminal := a.Status == StatusCompleted || a.Status == StatusFailed || a.Status == StatusCancelled
		if terminal && !a.CompletedAt.IsZero() && time.Since(a.CompletedAt) > maxAge {
			delete(m.actions, id)
			continue
		}
		kept = append(kept, id)
	}
	m.order = append([]string(nil), kept...)
	m.pruneAttemptsLocked()
}
