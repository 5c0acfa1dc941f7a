package tools

import (
	"context"
	"testing"

	"github.com/cortexcore/cortex/internal/actionstate"
	"github.com/cortexcore/cortex/internal/buffer"
	"github.com/cortexcore/cortex/internal/instructions"
)

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func newTestEngine(t *testing.T, dir, toolName string, ft *fakeTool) (*Engine, *Registry, *instructions.Tracker, *buffer.Buffer) {
	t.Helper()
	writeManifest(t, dir, toolName)
	RegisterFactory(toolName, func(m *Manifest) (Tool, error) { return ft, nil })

	r := NewRegistry(dir, nil)
	if err := r.DiscoverManifests(); err != nil {
		t.Fatal(err)
	}
	if err := r.Enable(context.Background(), toolName); err != nil {
		t.Fatal(err)
	}

	instr := instructions.NewTracker(instructions.DefaultTTL)
	am := actionstate.NewManager()
	buf := buffer.New(buffer.DefaultCapacity, "Nova")
	engine := NewEngine(r, instr, am, buf, nil)
	return engine, r, instr, buf
}

func TestEngine_RegularActionBlockedWithoutInstructions(t *testing.T) {
	dir := t.TempDir()
	ft := &fakeTool{available: true}
	engine, _, _, buf := newTestEngine(t, dir, "calculator", ft)

	engine.Dispatch(context.Background(), []ActionRequest{
		{ToolName: "calculator", Command: "evaluate", Args: []string{"2+2"}},
	})

	thoughts := buf.GetThoughtsForResponse()
	if len(thoughts) != 1 {
		t.Fatalf("expected 1 thought, got %d", len(thoughts))
	}
	if !contains(thoughts[0], "requires retrieving usage instructions") {
		t.Errorf("expected instruction-gate thought, got %q", thoughts[0])
	}
}

func TestEngine_RetrieveInstructionsThenExecuteSucceeds(t *testing.T) {
	dir := t.TempDir()
	ft := &fakeTool{available: true, execFunc: func(ctx context.Context, command string, args []string) (string, error) {
		return "4", nil
	}}
	engine, _, instr, buf := newTestEngine(t, dir, "calculator", ft)

	engine.Dispatch(context.Background(), []ActionRequest{
		{ToolName: "calculator", Retrieve: true},
	})
	if !instr.HasActiveInstructions("calculator") {
		t.Fatal("expected instructions grant active after retrieval")
	}

	engine.Dispatch(context.Background(), []ActionRequest{
		{ToolName: "calculator", Command: "evaluate", Args: []string{"2+2"}},
	})

	thoughts := buf.GetThoughtsForResponse()
	found := false
	for _, th := range thoughts {
		if contains(th, "returned: 4") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a success thought with the tool result, got %v", thoughts)
	}
}

func TestEngine_InstructionRetrievalCappedPerTick(t *testing.T) {
	dir := t.TempDir()
	ft1 := &fakeTool{available: true}
	engine, r, instr, buf := newTestEngine(t, dir, "tool_a", ft1)

	for _, name := range []string{"tool_b", "tool_c", "tool_d"} {
		ft := &fakeTool{available: true}
		writeManifest(t, dir, name)
		RegisterFactory(name, func(m *Manifest) (Tool, error) { return ft, nil })
		if err := r.DiscoverManifests(); err != nil {
			t.Fatal(err)
		}
		if err := r.Enable(context.Background(), name); err != nil {
			t.Fatal(err)
		}
	}

	engine.Dispatch(context.Background(), []ActionRequest{
		{ToolName: "tool_a", Retrieve: true},
		{ToolName: "tool_b", Retrieve: true},
		{ToolName: "tool_c", Retrieve: true},
		{ToolName: "tool_d", Retrieve: true},
	})

	active := instr.GetActiveToolNames()
	if len(active) != MaxInstructionRequestsPerTick {
		t.Fatalf("expected %d active grants, got %d: %v", MaxInstructionRequestsPerTick, len(active), active)
	}

	thoughts := buf.GetThoughtsForResponse()
	foundCap := false
	for _, th := range thoughts {
		if contains(th, "retrieval limit reached") {
			foundCap = true
		}
	}
	if !foundCap {
		t.Fatal("expected a thought noting the retrieval cap was hit")
	}
}

func TestEngine_TimeoutMarksActionAndEmitsThought(t *testing.T) {
	dir := t.TempDir()
	ft := &fakeTool{available: true, execFunc: func(ctx context.Context, command string, args []string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	engine, r, instr, buf := newTestEngine(t, dir, "slow_tool", ft)
	m, _ := r.GetManifest("slow_tool")
	m.TimeoutSeconds = 0.01
	instr.MarkInstructionsRetrieved("slow_tool")

	engine.Dispatch(context.Background(), []ActionRequest{
		{ToolName: "slow_tool", Command: "run", Args: nil},
	})

	thoughts := buf.GetThoughtsForResponse()
	found := false
	for _, th := range thoughts {
		if contains(th, "timed out") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a timeout thought, got %v", thoughts)
	}
}

func TestEngine_NonExistentToolEmitsThoughtAndDoesNotPanic(t *testing.T) {
	buf := buffer.New(buffer.DefaultCapacity, "Nova")
	r := NewRegistry(t.TempDir(), nil)
	instr := instructions.NewTracker(instructions.DefaultTTL)
	am := actionstate.NewManager()
	engine := NewEngine(r, instr, am, buf, nil)

	engine.Dispatch(context.Background(), []ActionRequest{
		{ToolName: "ghost_tool", Command: "run"},
	})

	thoughts := buf.GetThoughtsForResponse()
	if len(thoughts) != 1 || !contains(thoughts[0], "does not exist") {
		t.Fatalf("expected a does-not-exist thought, got %v", thoughts)
	}
}
