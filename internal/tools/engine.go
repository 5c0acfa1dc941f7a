package tools

import (
	"context"
	"fmt"

	"github.com/cortexcore/cortex/internal/actionstate"
	"github.com/cortexcore/cortex/internal/buffer"
	"github.com/cortexcore/cortex/internal/instructions"
	"github.com/cortexcore/cortex/internal/observability"
)

// MaxInstructionRequestsPerTick caps how many instructions-retrieval
// actions are honored in a single dispatch call (spec §4.4).
const MaxInstructionRequestsPerTick = 3

// ActionRequest is one parsed action from a model's action_list (spec §6).
// Retrieve is true for the reserved "get tool instructions" pseudo-action;
// otherwise Command/Args describe a regular tool invocation.
type ActionRequest struct {
	ToolName string
	Retrieve bool
	Command  string
	Args     []string
}

// Engine is the Tool Execution Engine (spec §4.4): it validates, gates, and
// runs actions parsed out of a model response, feeding outcomes back into
// the Thought Buffer and Action State Manager.
type Engine struct {
	registry *Registry
	instr    *instructions.Tracker
	actions  *actionstate.Manager
	buf      *buffer.Buffer
	logger   *observability.Logger
}

// NewEngine builds an Engine wired to the registry, instructions tracker,
// action manager, and thought buffer it dispatches against.
func NewEngine(registry *Registry, instr *instructions.Tracker, actions *actionstate.Manager, buf *buffer.Buffer, logger *observability.Logger) *Engine {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Engine{registry: registry, instr: instr, actions: actions, buf: buf, logger: logger}
}

// Dispatch processes a batch of ActionRequests: instructions-retrieval
// requests first (bounded to MaxInstructionRequestsPerTick), then regular
// tool invocations, each independently gated and executed.
func (e *Engine) Dispatch(ctx context.Context, requests []ActionRequest) {
	retrieved := 0
	for _, req := range requests {
		if !req.Retrieve {
			continue
		}
		if retrieved >= MaxInstructionRequestsPerTick {
			e.buf.AddProcessedThought(
				fmt.Sprintf("Instructions request for %s ignored: retrieval limit reached this turn.", req.ToolName),
				"tool_failed", "", nil, nil)
			continue
		}
		e.retrieveInstructions(req.ToolName)
		retrieved++
	}

	for _, req := range requests {
		if req.Retrieve {
			continue
		}
		e.dispatchOne(ctx, req)
	}
}

func (e *Engine) retrieveInstructions(toolName string) {
	manifest, ok := e.registry.GetManifest(toolName)
	if !ok {
		e.buf.AddProcessedThought(
			fmt.Sprintf("Cannot retrieve instructions: tool %q does not exist.", toolName),
			"tool_failed", "", nil, nil)
		return
	}
	e.instr.MarkInstructionsRetrieved(toolName)
	e.buf.AddProcessedThought(
		fmt.Sprintf("Retrieved usage instructions for %s: %s", toolName, manifest.ToolUsageGuidance),
		"tool_result", "", nil, nil)
}

// dispatchOne runs the four gate checks in order — existence, running,
// instruction gate, availability — and aborts only this action on the
// first failure, emitting a HIGH-priority thought describing why.
func (e *Engine) dispatchOne(ctx context.Context, req ActionRequest) {
	high := buffer.PriorityHigh

	manifest, ok := e.registry.GetManifest(req.ToolName)
	if !ok {
		e.buf.AddProcessedThought(fmt.Sprintf("Tool %q does not exist.", req.ToolName), "tool_failed", "", &high, nil)
		return
	}
	if !e.registry.IsRunning(req.ToolName) {
		e.buf.AddProcessedThought(fmt.Sprintf("Tool %q is not running.", req.ToolName), "tool_failed", "", &high, nil)
		return
	}
	if !e.instr.HasActiveInstructions(req.ToolName) {
		e.buf.AddProcessedThought(
			fmt.Sprintf("Tool %q requires retrieving usage instructions before it can be invoked.", req.ToolName),
			"tool_failed", "", &high, nil)
		return
	}
	if !e.registry.IsAvailable(req.ToolName) {
		e.buf.AddProcessedThought(fmt.Sprintf("Tool %q is currently unavailable.", req.ToolName), "tool_failed", "", &high, nil)
		return
	}

	args := append([]string{req.Command}, req.Args...)
	if throttle, reason := e.actions.ShouldThrottleTool(req.ToolName, manifest.Cooldown()); throttle {
		e.buf.AddProcessedThought(
			fmt.Sprintf("Tool %q throttled: %s", req.ToolName, reason),
			"tool_failed", "", &high, nil)
		return
	}

	action := e.actions.RegisterAction(req.ToolName, args, actionstate.ActionContext{})
	e.actions.MarkInProgress(action.ID)

	tool, ok := e.registry.GetTool(req.ToolName)
	if !ok {
		e.actions.FailAction(action.ID, "tool instance not constructed", "error")
		e.buf.AddProcessedThought(fmt.Sprintf("Tool %q failed: not constructed.", req.ToolName), "tool_failed", "", &high, nil)
		return
	}

	execCtx, cancel := context.WithTimeout(ctx, manifest.Timeout())
	defer cancel()

	result, err := e.runWithTimeout(execCtx, tool, req.Command, req.Args)
	switch {
	case execCtx.Err() == context.DeadlineExceeded:
		e.actions.MarkTimeout(action.ID)
		e.logger.Warn(ctx, "tool execution timed out", "tool", req.ToolName, "action_id", action.ID, "timeout", manifest.Timeout())
		e.buf.AddProcessedThought(
			fmt.Sprintf("Tool %q timed out after %s.", req.ToolName, manifest.Timeout()),
			"tool_timeout", action.ID, &high, nil)
	case err != nil:
		e.actions.FailAction(action.ID, err.Error(), "error")
		e.logger.Warn(ctx, "tool execution failed", "tool", req.ToolName, "action_id", action.ID, "error", err)
		e.buf.AddProcessedThought(
			fmt.Sprintf("Tool %q failed: %s", req.ToolName, err.Error()),
			"tool_failed", action.ID, &high, nil)
	default:
		e.actions.CompleteAction(action.ID, result)
		medium := buffer.PriorityMedium
		e.buf.AddProcessedThought(
			fmt.Sprintf("Tool %q returned: %s", req.ToolName, result),
			"tool_result", action.ID, &medium, nil)
	}
}

// runWithTimeout executes the tool call in a goroutine so a hung tool
// cannot block past execCtx's deadline; the goroutine is abandoned (not
// killed) if it outlives the deadline, matching Go's cooperative
// cancellation model — tools are expected to observe ctx themselves.
func (e *Engine) runWithTimeout(ctx context.Context, tool Tool, command string, args []string) (string, error) {
	type outcome struct {
		result string
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := tool.Execute(ctx, command, args)
		done <- outcome{result, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case o := <-done:
		return o.result, o.err
	}
}
