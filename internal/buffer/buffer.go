// Package buffer implements the Thought Buffer (spec §4.1): the bounded
// store of raw events and processed thoughts that every other cognitive
// component reads from or writes into.
package buffer

import (
	"sync"
	"time"
)

// DefaultCapacity is the default bound N on processed thoughts (spec §3: N≈25).
const DefaultCapacity = 25

// Buffer owns the raw event queue and the processed thought list exclusively
// (spec §3 "Ownership"). All mutating operations are serialized by mu; reads
// that return snapshots copy under a brief lock, matching §5's shared
// resource policy.
type Buffer struct {
	mu sync.Mutex

	capacity  int
	agentName string

	rawEvents []Event
	thoughts  []Thought

	lastUserInputTimestamp time.Time
	consecutiveProactive   int
	hasUrgentReminders     bool

	unengagedChat  []ChatMessage
	nextChatIndex  uint64
	engagedIndices map[uint64]struct{}

	shutdownRequested bool
}

// New creates a Thought Buffer bounded at capacity (DefaultCapacity if <= 0).
// agentName is used to refine chat-message urgency (a direct name mention
// escalates to CRITICAL, per §4.1).
func New(capacity int, agentName string) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity:       capacity,
		agentName:      agentName,
		engagedIndices: make(map[uint64]struct{}),
	}
}

// IngestRawData appends an event with no interpretation.
func (b *Buffer) IngestRawData(source, data string) Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ev := Event{Source: source, Data: data, Timestamp: time.Now()}
	b.rawEvents = append(b.rawEvents, ev)
	if source == "user_input" {
		b.lastUserInputTimestamp = ev.Timestamp
	}
	return ev
}

// GetUnprocessedEvents returns a snapshot of events awaiting processing.
func (b *Buffer) GetUnprocessedEvents() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.rawEvents))
	copy(out, b.rawEvents)
	return out
}

// MarkEventsProcessed drains the first n raw events (drain semantics, §4.1).
func (b *Buffer) MarkEventsProcessed(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= 0 {
		return
	}
	if n >= len(b.rawEvents) {
		b.rawEvents = b.rawEvents[:0]
		return
	}
	b.rawEvents = append([]Event(nil), b.rawEvents[n:]...)
}

// AddProcessedThought formats content with its priority tag and appends it,
// evicting the oldest thought FIFO if the buffer is at capacity (§3, §4.8
// back-pressure: priority affects decisions, never retention).
func (b *Buffer) AddProcessedThought(content, source, originalRef string, priorityOverride *Priority, timestamp *time.Time) Thought {
	b.mu.Lock()
	defer b.mu.Unlock()

	priority := derivePriority(source)
	if priorityOverride != nil {
		priority = *priorityOverride
	}
	ts := time.Now()
	if timestamp != nil {
		ts = *timestamp
	}
	th := Thought{
		Content:     content,
		Source:      source,
		OriginalRef: originalRef,
		Priority:    priority,
		Timestamp:   ts,
	}
	b.appendThoughtLocked(th)
	return th
}

// AddProactiveThought records an internally generated thought (strategic
// "think", memory integration, etc). Source is always "internal" and it
// increments the consecutive-proactive-thoughts counter.
func (b *Buffer) AddProactiveThought(content string) Thought {
	b.mu.Lock()
	defer b.mu.Unlock()
	th := Thought{
		Content:   content,
		Source:    "internal",
		Priority:  PriorityLow,
		Timestamp: time.Now(),
	}
	b.appendThoughtLocked(th)
	b.consecutiveProactive++
	return th
}

// AddResponseEcho records the agent's just-spoken reply so future reflective
// thinking can see it.
func (b *Buffer) AddResponseEcho(responseText string, timestamp time.Time) Thought {
	b.mu.Lock()
	defer b.mu.Unlock()
	th := Thought{
		Content:   responseText,
		Source:    "response_echo",
		Priority:  PriorityLow,
		Timestamp: timestamp,
	}
	b.appendThoughtLocked(th)
	return th
}

func (b *Buffer) appendThoughtLocked(th Thought) {
	b.thoughts = append(b.thoughts, th)
	if len(b.thoughts) > b.capacity {
		b.thoughts = append([]Thought(nil), b.thoughts[len(b.thoughts)-b.capacity:]...)
	}
}

// GetThoughtsForResponse returns the canonical formatted view, oldest first,
// used by the response decider and prompt constructors.
func (b *Buffer) GetThoughtsForResponse() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.thoughts))
	for i, t := range b.thoughts {
		out[i] = t.Formatted()
	}
	return out
}

// RecentThoughts returns a snapshot of the last k thoughts (oldest first
// within the slice), or all thoughts if k <= 0 or exceeds the count.
func (b *Buffer) RecentThoughts(k int) []Thought {
	b.mu.Lock()
	defer b.mu.Unlock()
	if k <= 0 || k > len(b.thoughts) {
		k = len(b.thoughts)
	}
	start := len(b.thoughts) - k
	out := make([]Thought, k)
	copy(out, b.thoughts[start:])
	return out
}

// ThoughtCount returns the number of processed thoughts currently held.
func (b *Buffer) ThoughtCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.thoughts)
}

// PendingEventCount returns the number of raw events awaiting processing.
func (b *Buffer) PendingEventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.rawEvents)
}

// GetTimeSinceLastUserInput reports the elapsed time since the last
// user_input event, or a very large duration if none has ever arrived.
func (b *Buffer) GetTimeSinceLastUserInput() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lastUserInputTimestamp.IsZero() {
		return time.Duration(1<<62 - 1)
	}
	return time.Since(b.lastUserInputTimestamp)
}

// LastUserInputTimestamp returns the raw timestamp (zero value if none).
func (b *Buffer) LastUserInputTimestamp() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUserInputTimestamp
}

// IngestChatMessage adds a line of chat-platform traffic to the unengaged
// queue with a monotonic index (§4.1), refining its priority by scanning for
// the agent name, '?', and '!'.
func (b *Buffer) IngestChatMessage(platform, username, message string, hasBotMention bool) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := b.nextChatIndex
	b.nextChatIndex++

	base := PriorityMedium
	if hasBotMention {
		base = PriorityCritical
	}
	priority := refineChatPriority(base, message, b.agentName)

	b.unengagedChat = append(b.unengagedChat, ChatMessage{
		Index:         idx,
		Platform:      platform,
		Username:      username,
		Message:       message,
		HasBotMention: hasBotMention,
		Priority:      priority,
		Timestamp:     time.Now(),
	})
	return idx
}

// GetUnengagedMessages returns up to max unengaged chat messages (all of
// them if max <= 0), oldest first.
func (b *Buffer) GetUnengagedMessages(max int) []ChatMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []ChatMessage
	for _, m := range b.unengagedChat {
		if _, engaged := b.engagedIndices[m.Index]; engaged {
			continue
		}
		out = append(out, m)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}

// MarkChatEngaged marks the given indices as converted to events so they are
// not promoted again.
func (b *Buffer) MarkChatEngaged(indices []uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, idx := range indices {
		b.engagedIndices[idx] = struct{}{}
	}
	b.compactChatLocked()
}

// compactChatLocked drops chat messages that have already been engaged,
// once the engaged set grows large enough to be worth the copy.
func (b *Buffer) compactChatLocked() {
	if len(b.engagedIndices) < 2*len(b.unengagedChat)/3+8 {
		return
	}
	kept := b.unengagedChat[:0]
	for _, m := range b.unengagedChat {
		if _, engaged := b.engagedIndices[m.Index]; !engaged {
			kept = append(kept, m)
		}
	}
	b.unengagedChat = append([]ChatMessage(nil), kept...)
}

// ShouldEngageWithChat reports whether there is any unengaged chat message.
func (b *Buffer) ShouldEngageWithChat() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, m := range b.unengagedChat {
		if _, engaged := b.engagedIndices[m.Index]; !engaged {
			return true
		}
	}
	return false
}

// ResetConsecutiveCounter zeroes the consecutive-proactive-thoughts counter,
// called after a responsive or spoken tick breaks a proactive streak.
func (b *Buffer) ResetConsecutiveCounter() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveProactive = 0
}

// ConsecutiveProactiveThoughts returns the current streak count.
func (b *Buffer) ConsecutiveProactiveThoughts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveProactive
}

// SetHasUrgentReminders flips the urgent-reminders flag consulted by the
// response decider (§4.7 rule 1).
func (b *Buffer) SetHasUrgentReminders(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hasUrgentReminders = v
}

// HasUrgentReminders reports the current urgent-reminders flag.
func (b *Buffer) HasUrgentReminders() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasUrgentReminders
}

// ForceShutdown requests cooperative shutdown of the cognitive loop.
func (b *Buffer) ForceShutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownRequested = true
}

// IsShutdownRequested reports whether shutdown has been requested.
func (b *Buffer) IsShutdownRequested() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.shutdownRequested
}
