package cognition

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cortexcore/cortex/internal/actionstate"
	"github.com/cortexcore/cortex/internal/buffer"
	"github.com/cortexcore/cortex/internal/config"
	"github.com/cortexcore/cortex/internal/instructions"
	"github.com/cortexcore/cortex/internal/memory"
	"github.com/cortexcore/cortex/internal/tools"
)

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	cfg := config.MemoryConfig{
		PersistDir:     filepath.Join(t.TempDir(), "memory"),
		ShortCapacity:  25,
		UserWeight:     0.6,
		ThoughtsWeight: 0.4,
		DefaultTopK:    5,
	}
	mm, err := memory.NewManager(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return Deps{
		Buffer:       buffer.New(25, "cortex"),
		ActionState:  actionstate.NewManager(),
		Memory:       mm,
		ToolRegistry: tools.NewRegistry(t.TempDir(), nil),
		Instructions: instructions.NewTracker(0),
		AgentName:    "cortex",
		Personality:  basePersonality(),
		CoreIdentity: "I am Cortex.",
	}
}

func TestBuildPromptInputResponsiveCarriesEvents(t *testing.T) {
	d := newTestDeps(t)
	events := []buffer.Event{{Source: "user_input", Data: "hello"}}
	decision := Decision{Mode: ModeResponsive}

	p := BuildPromptInput(context.Background(), d, decision, events, "hello")

	if len(p.Events) != 1 || p.Events[0].Data != "hello" {
		t.Fatalf("expected events carried through, got %+v", p.Events)
	}
	if p.AgentName != "cortex" {
		t.Fatalf("expected agent name carried through, got %q", p.AgentName)
	}
}

func TestBuildPromptInputStartupPopulatesStartupFields(t *testing.T) {
	d := newTestDeps(t)
	decision := Decision{Mode: ModeReflective, ContextFlags: ContextFlags{IsStartup: true}}

	p := BuildPromptInput(context.Background(), d, decision, nil, "")

	if p.CoreIdentity != "I am Cortex." {
		t.Fatalf("expected core identity populated on startup, got %q", p.CoreIdentity)
	}
}

func TestBuildPromptInputNonStartupSkipsStartupFieldsWhenNoTriggerMatches(t *testing.T) {
	d := newTestDeps(t)
	decision := Decision{Mode: ModePlanning}

	p := BuildPromptInput(context.Background(), d, decision, nil, "just chatting about nothing in particular")

	if p.CoreIdentity != "" {
		t.Fatalf("did not expect core identity populated outside startup, got %q", p.CoreIdentity)
	}
	if len(p.RecentLongSummaries) != 0 {
		t.Fatalf("did not expect long-memory retrieval with no trigger family matched, got %v", p.RecentLongSummaries)
	}
}

func TestBuildPromptInputNilMemoryIsSafe(t *testing.T) {
	d := newTestDeps(t)
	d.Memory = nil
	decision := Decision{Mode: ModeReflective, ContextFlags: ContextFlags{IsStartup: true}}

	p := BuildPromptInput(context.Background(), d, decision, nil, "")

	if p.CoreIdentity != "" {
		t.Fatalf("expected no startup population when memory is nil, got %q", p.CoreIdentity)
	}
}
