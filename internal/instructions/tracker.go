// Package instructions implements the Instruction Persistence Tracker
// (spec §4.5): the gate that forces a tool's usage instructions to be
// explicitly retrieved before that tool can be invoked, and expires that
// grant after a fixed window so stale guidance does not linger across a long
// session.
package instructions

import (
	"sync"
	"time"
)

// DefaultTTL is how long a retrieved-instructions grant stays active
// before it must be retrieved again (spec §4.5).
const DefaultTTL = 360 * time.Second

// Tracker records, per tool, the expiry time of its most recent
// instructions-retrieval grant. Expiry is lazy: entries are only pruned
// when looked at, never on a background timer.
type Tracker struct {
	mu  sync.Mutex
	ttl time.Duration
	// expiresAt[toolName] is the instant at which the tool's retrieved
	// instructions grant lapses.
	expiresAt map[string]time.Time
}

// NewTracker creates a Tracker with the given grant TTL. A zero ttl uses
// DefaultTTL.
func NewTracker(ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tracker{
		ttl:       ttl,
		expiresAt: make(map[string]time.Time),
	}
}

// MarkInstructionsRetrieved grants toolName an active instructions window
// starting now, refreshing any prior grant.
func (t *Tracker) MarkInstructionsRetrieved(toolName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expiresAt[toolName] = time.Now().Add(t.ttl)
}

// HasActiveInstructions reports whether toolName currently has a live
// instructions grant, pruning it if it has lapsed.
func (t *Tracker) HasActiveInstructions(toolName string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hasActiveLocked(toolName)
}

func (t *Tracker) hasActiveLocked(toolName string) bool {
	exp, ok := t.expiresAt[toolName]
	if !ok {
		return false
	}
	if time.Now().After(exp) {
		delete(t.expiresAt, toolName)
		return false
	}
	return true
}

// GetActiveToolNames returns the names of all tools with a currently live
// instructions grant, pruning any that have lapsed along the way.
func (t *Tracker) GetActiveToolNames() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	var active []string
	for name, exp := range t.expiresAt {
		if now.After(exp) {
			delete(t.expiresAt, name)
			continue
		}
		active = append(active, name)
	}
	return active
}

// ClearInstructionsForDisabledTools removes any grant for a tool not present
// in enabledTools, so a disabled-then-reenabled tool must have its
// instructions retrieved again (spec §4.5).
func (t *Tracker) ClearInstructionsForDisabledTools(enabledTools map[string]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for name := range t.expiresAt {
		if !enabledTools[name] {
			delete(t.expiresAt, name)
		}
	}
}

// TimeRemaining returns how long toolName's grant has left, or zero if it
// has no active grant.
func (t *Tracker) TimeRemaining(toolName string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasActiveLocked(toolName) {
		return 0
	}
	return time.Until(t.expiresAt[toolName])
}
