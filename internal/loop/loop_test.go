package loop

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cortexcore/cortex/internal/actionstate"
	"github.com/cortexcore/cortex/internal/buffer"
	"github.com/cortexcore/cortex/internal/config"
	"github.com/cortexcore/cortex/internal/instructions"
	"github.com/cortexcore/cortex/internal/llm"
	"github.com/cortexcore/cortex/internal/tools"
)

// fakeLLM returns a canned reply regardless of prompt, recording every
// prompt it was asked to complete so tests can assert on mode selection
// indirectly (via the prompt's shape) without parsing it.
type fakeLLM struct {
	reply   string
	prompts []string
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.prompts = append(f.prompts, req.Prompt)
	return f.reply, nil
}

func (f *fakeLLM) Name() string { return "fake" }

func newTestLoop(t *testing.T, fake *fakeLLM) *Loop {
	t.Helper()
	buf := buffer.New(buffer.DefaultCapacity, "Nova")
	am := actionstate.NewManager()
	instr := instructions.NewTracker(instructions.DefaultTTL)
	registry := tools.NewRegistry(t.TempDir(), nil)
	if err := registry.DiscoverManifests(); err != nil {
		t.Fatal(err)
	}
	engine := tools.NewEngine(registry, instr, am, buf, nil)

	return New(Deps{
		Config:       config.AgentConfig{Name: "Nova"},
		Buffer:       buf,
		ActionState:  am,
		ToolRegistry: registry,
		Instructions: instr,
		Engine:       engine,
		LLM:          fake,
		LLMConfig:    config.LLMConfig{Timeout: 5 * time.Second},
	})
}

// S1: a user_input event produces exactly one thought, priority HIGH,
// containing the model's reply text, with no actions dispatched.
func TestTick_S1_UserInputProducesHighPriorityThought(t *testing.T) {
	fake := &fakeLLM{reply: "<thoughts>[1] user greeted me</thoughts><action_list>[]</action_list>"}
	l := newTestLoop(t, fake)

	reply, shuttingDown := l.ProcessUserMessage(context.Background(), "hi")
	if shuttingDown || reply != "" {
		t.Fatalf("expected ordinary ingestion, got reply=%q shuttingDown=%v", reply, shuttingDown)
	}

	busy, err := l.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !busy {
		t.Fatal("expected tick to report busy after processing a new event")
	}

	thoughts := l.buf.GetThoughtsForResponse()
	if len(thoughts) != 1 {
		t.Fatalf("expected 1 thought, got %d: %v", len(thoughts), thoughts)
	}
	if !strings.HasPrefix(thoughts[0], "[HIGH]") {
		t.Errorf("expected HIGH priority tag, got %q", thoughts[0])
	}
	if !strings.Contains(thoughts[0], "user greeted me") {
		t.Errorf("expected reply content in thought, got %q", thoughts[0])
	}

	stats := l.GetPerformanceStats()
	if stats.ActionsDispatched != 0 {
		t.Errorf("expected no actions dispatched, got %d", stats.ActionsDispatched)
	}
}

// S3: a chat_direct_mention event is stored at CRITICAL priority even
// though the model's reply carries no priority markup itself.
func TestTick_S3_DirectMentionIsCritical(t *testing.T) {
	fake := &fakeLLM{reply: "<thoughts>[1] someone pinged me directly</thoughts><action_list>[]</action_list>"}
	l := newTestLoop(t, fake)

	l.buf.IngestRawData("chat_direct_mention", "@bot hello")

	if _, err := l.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	thoughts := l.buf.GetThoughtsForResponse()
	if len(thoughts) != 1 {
		t.Fatalf("expected 1 thought, got %d: %v", len(thoughts), thoughts)
	}
	if !strings.HasPrefix(thoughts[0], "[CRITICAL]") {
		t.Errorf("expected CRITICAL priority tag, got %q", thoughts[0])
	}
}

// S4: dispatching a regular action for a tool with no active instruction
// grant never reaches the tool and leaves a HIGH thought behind instead.
func TestTick_S4_ActionWithoutInstructionsIsBlocked(t *testing.T) {
	fake := &fakeLLM{reply: `<thoughts>[1] let me check the weather</thoughts>` +
		`<action_list>[{"tool":"search.query","args":["weather"]}]</action_list>`}
	l := newTestLoop(t, fake)

	l.buf.IngestRawData("user_input", "what's the weather?")
	if _, err := l.Tick(context.Background()); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	thoughts := l.buf.GetThoughtsForResponse()
	found := false
	for _, th := range thoughts {
		if strings.Contains(th, "search") && strings.Contains(th, "not enabled") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a thought rejecting the disabled tool, got %v", thoughts)
	}
}

// Kill phrase: ProcessUserMessage short-circuits before any ingestion and
// never touches the language model.
func TestProcessUserMessage_KillPhraseShutsDownWithoutLLMCall(t *testing.T) {
	fake := &fakeLLM{reply: "should never be used"}
	l := newTestLoop(t, fake)
	l.cfg.KillPhrase = "goodbye nova"
	l.cfg.ShutdownNotice = "Shutting down now."

	reply, shuttingDown := l.ProcessUserMessage(context.Background(), "Goodbye Nova")
	if !shuttingDown {
		t.Fatal("expected shuttingDown=true")
	}
	if reply != "Shutting down now." {
		t.Errorf("expected configured shutdown notice, got %q", reply)
	}
	if !l.IsShutdownRequested() {
		t.Error("expected shutdown to be requested")
	}
	if len(fake.prompts) != 0 {
		t.Errorf("expected no LLM calls, got %d", len(fake.prompts))
	}
	if len(l.buf.GetUnprocessedEvents()) != 0 {
		t.Error("expected kill phrase to never reach the event queue")
	}
}

// Kill phrase matching is substring, not whole-text equality: it must fire
// even when the phrase is embedded in a longer message.
func TestProcessUserMessage_KillPhraseMatchesAsSubstring(t *testing.T) {
	fake := &fakeLLM{reply: "should never be used"}
	l := newTestLoop(t, fake)
	l.cfg.KillPhrase = "shutdown now"

	_, shuttingDown := l.ProcessUserMessage(context.Background(), "bot, SHUTDOWN NOW please")
	if !shuttingDown {
		t.Fatal("expected the kill phrase embedded in a longer message to trigger shutdown")
	}
}

// A failed/unparseable language-model call produces no thought but still
// marks the triggering events processed so they are not redelivered.
func TestTick_LLMFailureProducesNoThoughtButDrainsEvents(t *testing.T) {
	l := newTestLoop(t, &fakeLLM{reply: "no tags here at all"})
	l.buf.IngestRawData("user_input", "hello")

	busy, err := l.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if !busy {
		t.Error("expected busy=true since a new event was present")
	}
	if len(l.buf.GetThoughtsForResponse()) != 0 {
		t.Errorf("expected no thoughts from malformed output, got %v", l.buf.GetThoughtsForResponse())
	}
	if len(l.buf.GetUnprocessedEvents()) != 0 {
		t.Error("expected the event to be drained even though no thought was produced")
	}
}

// ToggleFeature/SetFeature/FeatureEnabled round-trip.
func TestFeatureFlags(t *testing.T) {
	l := newTestLoop(t, &fakeLLM{})

	if l.FeatureEnabled("vision") {
		t.Fatal("expected vision to start disabled")
	}
	if next := l.ToggleFeature("vision"); !next {
		t.Fatal("expected first toggle to enable")
	}
	if !l.FeatureEnabled("vision") {
		t.Fatal("expected vision enabled after toggle")
	}
	l.SetFeature("vision", false)
	if l.FeatureEnabled("vision") {
		t.Fatal("expected vision disabled after SetFeature(false)")
	}
}
