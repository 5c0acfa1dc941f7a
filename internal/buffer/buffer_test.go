package buffer

import (
	"testing"
	"time"
)

func TestAddProcessedThought_PriorityTagRoundTrip(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		b := New(DefaultCapacity, "Nova")
		b.AddProcessedThought("hello", "internal", "", &p, nil)
		thoughts := b.GetThoughtsForResponse()
		if len(thoughts) != 1 {
			t.Fatalf("expected 1 thought, got %d", len(thoughts))
		}
		want := "[" + p.String() + "]"
		if got := thoughts[0]; !contains(got, want) {
			t.Errorf("thought %q does not contain tag %q", got, want)
		}
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

func TestAddProcessedThought_DefaultPriorityBySource(t *testing.T) {
	cases := map[string]Priority{
		"user_input":          PriorityHigh,
		"chat_direct_mention": PriorityCritical,
		"chat_question":       PriorityHigh,
		"vision_result":       PriorityMedium,
		"tool_failed":         PriorityHigh,
		"tool_timeout":        PriorityHigh,
		"tool_result":         PriorityMedium,
		"internal":            PriorityLow,
		"unknown_source":      PriorityLow,
	}
	for source, want := range cases {
		b := New(DefaultCapacity, "")
		th := b.AddProcessedThought("x", source, "", nil, nil)
		if th.Priority != want {
			t.Errorf("source %q: priority = %s, want %s", source, th.Priority, want)
		}
	}
}

func TestBuffer_FIFOEvictionAtCapacity(t *testing.T) {
	b := New(3, "")
	for i := 0; i < 5; i++ {
		b.AddProactiveThought(string(rune('a' + i)))
	}
	thoughts := b.RecentThoughts(0)
	if len(thoughts) != 3 {
		t.Fatalf("expected 3 thoughts retained, got %d", len(thoughts))
	}
	if thoughts[0].Content != "c" || thoughts[2].Content != "e" {
		t.Errorf("unexpected FIFO eviction order: %+v", thoughts)
	}
}

func TestBuffer_EventDrainSemantics(t *testing.T) {
	b := New(DefaultCapacity, "")
	b.IngestRawData("user_input", "one")
	b.IngestRawData("user_input", "two")
	b.IngestRawData("user_input", "three")

	if got := len(b.GetUnprocessedEvents()); got != 3 {
		t.Fatalf("expected 3 pending events, got %d", got)
	}
	b.MarkEventsProcessed(2)
	remaining := b.GetUnprocessedEvents()
	if len(remaining) != 1 || remaining[0].Data != "three" {
		t.Fatalf("unexpected remaining events: %+v", remaining)
	}
}

func TestBuffer_TimeSinceLastUserInput(t *testing.T) {
	b := New(DefaultCapacity, "")
	b.IngestRawData("user_input", "hi")
	time.Sleep(5 * time.Millisecond)
	if got := b.GetTimeSinceLastUserInput(); got < 5*time.Millisecond {
		t.Errorf("time since last input too small: %v", got)
	}
}

func TestBuffer_ChatEngagementTracking(t *testing.T) {
	b := New(DefaultCapacity, "Nova")
	idx1 := b.IngestChatMessage("twitch", "alice", "hey nova, what's up?", false)
	idx2 := b.IngestChatMessage("twitch", "bob", "lol", false)

	if !b.ShouldEngageWithChat() {
		t.Fatal("expected pending chat to engage")
	}
	msgs := b.GetUnengagedMessages(0)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 unengaged messages, got %d", len(msgs))
	}
	if msgs[0].Priority != PriorityCritical {
		t.Errorf("expected agent-name mention to be CRITICAL, got %s", msgs[0].Priority)
	}

	b.MarkChatEngaged([]uint64{idx1, idx2})
	if b.ShouldEngageWithChat() {
		t.Fatal("expected no pending chat after engaging all")
	}
}

func TestBuffer_ShutdownFlag(t *testing.T) {
	b := New(DefaultCapacity, "")
	if b.IsShutdownRequested() {
		t.Fatal("shutdown should not be requested initially")
	}
	b.ForceShutdown()
	if !b.IsShutdownRequested() {
		t.Fatal("expected shutdown requested after ForceShutdown")
	}
}
