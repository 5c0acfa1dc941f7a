// Package loop implements the Cognitive Loop scheduler (spec §4.8): the
// single thread that drains events, asks the Response Decider for a mode,
// constructs and sends a prompt, parses the reply, dispatches any actions,
// and speaks when the decider says to.
package loop

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cortexcore/cortex/internal/actionstate"
	"github.com/cortexcore/cortex/internal/buffer"
	"github.com/cortexcore/cortex/internal/cognition"
	"github.com/cortexcore/cortex/internal/config"
	"github.com/cortexcore/cortex/internal/instructions"
	"github.com/cortexcore/cortex/internal/llm"
	"github.com/cortexcore/cortex/internal/memory"
	"github.com/cortexcore/cortex/internal/observability"
	"github.com/cortexcore/cortex/internal/reminders"
	"github.com/cortexcore/cortex/internal/tools"
)

// SpokenOutput receives the final reply text whenever the decider flags
// needs_spoken_response (spec §4.8 step 9).
type SpokenOutput func(ctx context.Context, text string)

// Deps bundles every component the loop drives.
type Deps struct {
	Config       config.AgentConfig
	Buffer       *buffer.Buffer
	ActionState  *actionstate.Manager
	Memory       *memory.Manager
	ToolRegistry *tools.Registry
	Instructions *instructions.Tracker
	Engine       *tools.Engine
	LLM          llm.Provider
	LLMConfig    config.LLMConfig
	Reminders    *reminders.Manager
	Personality  cognition.Personality
	CoreIdentity string
	Speak        SpokenOutput
	Logger       *observability.Logger
}

// Loop is the Cognitive Loop scheduler.
type Loop struct {
	cfg          config.AgentConfig
	buf          *buffer.Buffer
	actions      *actionstate.Manager
	mem          *memory.Manager
	registry     *tools.Registry
	instr        *instructions.Tracker
	engine       *tools.Engine
	llmProvider  llm.Provider
	llmCfg       config.LLMConfig
	reminderMgr  *reminders.Manager
	personality  cognition.Personality
	coreIdentity string
	speak        SpokenOutput
	logger       *observability.Logger

	mu                    sync.Mutex
	processedThoughtCount int
	lastUserText          string
	lastChatPromotion     time.Time
	lastMemoryIntegration time.Time
	lastReminderCheck     time.Time
	features              map[string]bool
	shutdownRequested     bool
	stats                 Stats
}

// Stats is the snapshot returned by GetPerformanceStats.
type Stats struct {
	Ticks                 int
	ThoughtsProduced       int
	ActionsDispatched      int
	ResponsesSpoken        int
	LLMFailures            int
	LastMode               string
	LastTickAt             time.Time
}

// New builds a Loop wired to deps. Any nil optional dependency (Memory,
// Reminders, Speak) degrades that feature gracefully rather than panicking.
func New(deps Deps) *Loop {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}
	return &Loop{
		cfg:          deps.Config,
		buf:          deps.Buffer,
		actions:      deps.ActionState,
		mem:          deps.Memory,
		registry:     deps.ToolRegistry,
		instr:        deps.Instructions,
		engine:       deps.Engine,
		llmProvider:  deps.LLM,
		llmCfg:       deps.LLMConfig,
		reminderMgr:  deps.Reminders,
		personality:  deps.Personality,
		coreIdentity: deps.CoreIdentity,
		speak:        deps.Speak,
		logger:       logger,
		features:     make(map[string]bool),
	}
}

// Run paces Tick between MinProactiveInterval and MaxProactiveInterval: an
// idle tick (no new events, no spoken response) backs off towards the max;
// any tick that produced output resets to the minimum (spec §4.8 "per
// tick... paced by MIN_PROACTIVE_INTERVAL, bounded by MAX_PROACTIVE_INTERVAL").
func (l *Loop) Run(ctx context.Context) error {
	interval := l.cfg.MinProactiveInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	maxInterval := l.cfg.MaxProactiveInterval
	if maxInterval <= 0 {
		maxInterval = 120 * time.Second
	}

	for {
		if l.IsShutdownRequested() || ctx.Err() != nil {
			return ctx.Err()
		}

		busy, err := l.Tick(ctx)
		if err != nil {
			l.logger.Error(ctx, "loop: tick failed", "error", err)
		}

		if busy {
			interval = l.cfg.MinProactiveInterval
			if interval <= 0 {
				interval = 15 * time.Second
			}
		} else if interval < maxInterval {
			interval *= 2
			if interval > maxInterval {
				interval = maxInterval
			}
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Tick runs exactly one pass of the cognitive loop (spec §4.8 steps 1-10),
// returning whether the tick did anything worth resetting the pacing timer
// for (new events processed, actions dispatched, or a response spoken).
func (l *Loop) Tick(ctx context.Context) (bool, error) {
	l.mu.Lock()
	l.stats.Ticks++
	l.mu.Unlock()

	if l.mem != nil {
		if err := l.mem.RotateIfNewDay(ctx, l.summarizeDay); err != nil {
			l.logger.Warn(ctx, "loop: memory rotation failed", "error", err)
		}
	}

	l.promoteChatMessages()
	l.checkReminders(ctx)
	busy := l.maybeIntegrateMemory(ctx)

	events := l.buf.GetUnprocessedEvents()
	hasNewEvents := len(events) > 0

	decision := cognition.Decide(l.deciderConfig(), l.buf, hasNewEvents, l.getProcessedThoughtCount())
	l.mu.Lock()
	l.stats.LastMode = string(decision.Mode)
	l.stats.LastTickAt = time.Now()
	l.mu.Unlock()

	input := cognition.BuildPromptInput(ctx, l.cognitionDeps(), decision, events, l.getLastUserText())

	var prompt string
	singleThought := true
	switch decision.Mode {
	case cognition.ModeResponsive:
		prompt = cognition.ConstructResponsivePrompt(input)
		singleThought = false
	case cognition.ModePlanning:
		prompt = cognition.ConstructPlanningPrompt(input)
	case cognition.ModeReflective:
		prompt = cognition.ConstructReflectivePrompt(input)
	case cognition.ModeSpoken:
		prompt = cognition.ConstructSpokenPrompt(input)
	}

	reply, err := l.callLLM(ctx, prompt)
	if err != nil {
		l.logger.Warn(ctx, "loop: language model call failed, no output this tick", "mode", decision.Mode, "error", err)
		l.mu.Lock()
		l.stats.LLMFailures++
		l.mu.Unlock()
		if hasNewEvents {
			l.buf.MarkEventsProcessed(len(events))
		}
		return hasNewEvents, nil
	}

	parsed, err := ParseModelOutput(reply, singleThought)
	if err != nil {
		l.logger.Warn(ctx, "loop: failed to parse model output, no output this tick", "mode", decision.Mode, "error", err)
		if hasNewEvents {
			l.buf.MarkEventsProcessed(len(events))
		}
		return hasNewEvents, nil
	}

	l.applyThoughts(decision.Mode, events, parsed)
	if hasNewEvents {
		l.buf.MarkEventsProcessed(len(events))
	}

	if len(parsed.Actions) > 0 {
		validated := l.validateActions(parsed.Actions)
		if len(validated) > 0 {
			l.engine.Dispatch(ctx, validated)
			l.mu.Lock()
			l.stats.ActionsDispatched += len(validated)
			l.mu.Unlock()
			busy = true
		}
	}

	if decision.NeedsSpokenResponse {
		l.respond(ctx, input)
		busy = true
	}

	return busy || hasNewEvents, nil
}

// applyThoughts adds each parsed thought to the buffer, preserving the
// originating event's timestamp and source-derived priority for RESPONSIVE
// (spec §4.8 step 7), or adding a single proactive thought for the
// single-thought modes. The optional strategic think always gets `internal`
// source and LOW priority.
func (l *Loop) applyThoughts(mode cognition.Mode, events []buffer.Event, parsed ParsedOutput) {
	if mode == cognition.ModeResponsive {
		for i, th := range parsed.Thoughts {
			if i >= len(events) {
				l.buf.AddProactiveThought(th.Content)
				continue
			}
			ev := events[i]
			l.buf.AddProcessedThought(th.Content, ev.Source, "", nil, &ev.Timestamp)
		}
	} else {
		for _, th := range parsed.Thoughts {
			l.buf.AddProactiveThought(th.Content)
		}
	}

	if parsed.Think != "" {
		low := buffer.PriorityLow
		l.buf.AddProcessedThought(parsed.Think, "internal", "", &low, nil)
	}

	l.mu.Lock()
	l.processedThoughtCount += len(parsed.Thoughts)
	l.stats.ThoughtsProduced += len(parsed.Thoughts)
	l.mu.Unlock()
}

// validateActions drops any action whose base tool name is not enabled,
// except the reserved "instructions" pseudo-action which is always allowed
// (spec §4.8 step 8).
func (l *Loop) validateActions(actions []tools.ActionRequest) []tools.ActionRequest {
	out := make([]tools.ActionRequest, 0, len(actions))
	for _, a := range actions {
		if a.Retrieve || l.registry.IsEnabled(a.ToolName) {
			out = append(out, a)
			continue
		}
		high := buffer.PriorityHigh
		l.buf.AddProcessedThought(fmt.Sprintf("Action for %q rejected: tool is not enabled.", a.ToolName), "tool_failed", "", &high, nil)
	}
	return out
}

// respond invokes the Response Generator collaborator and echoes the reply
// back into the buffer (spec §4.8 step 9).
func (l *Loop) respond(ctx context.Context, input cognition.PromptInput) {
	prompt := cognition.ConstructResponseGeneratorPrompt(input)
	reply, err := l.callLLM(ctx, prompt)
	if err != nil {
		l.logger.Warn(ctx, "loop: response generator call failed", "error", err)
		return
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return
	}
	now := time.Now()
	l.buf.AddResponseEcho(reply, now)
	if l.speak != nil {
		l.speak(ctx, reply)
	}
	l.mu.Lock()
	l.stats.ResponsesSpoken++
	l.mu.Unlock()
}

func (l *Loop) callLLM(ctx context.Context, prompt string) (string, error) {
	timeout := l.llmCfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return l.llmProvider.Complete(cctx, llm.CompletionRequest{
		Model:       l.llmCfg.Model,
		Prompt:      prompt,
		MaxTokens:   l.llmCfg.NumPredict,
		Temperature: l.llmCfg.Temperature,
	})
}

// summarizeDay is the memory.Summarizer the loop hands to RotateIfNewDay: a
// single LLM call condensing a day's medium-tier entries into one summary.
func (l *Loop) summarizeDay(ctx context.Context, date string, entries []memory.MediumEntry) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following conversation from %s in 2-4 sentences.\n\n", date)
	for _, e := range entries {
		fmt.Fprintf(&b, "%s: %s\n", e.Role, e.Content)
	}
	return l.llmProvider.Complete(ctx, llm.CompletionRequest{Prompt: b.String()})
}

// chatSourceForMessage maps a promoted chat message onto one of the
// priority-by-source buckets buffer.derivePriority already knows (spec
// §4.1): a direct mention outranks a question, which outranks plain chat.
func chatSourceForMessage(m buffer.ChatMessage) string {
	if m.HasBotMention {
		return "chat_direct_mention"
	}
	if strings.Contains(m.Message, "?") {
		return "chat_question"
	}
	return "chat_message"
}

// promoteChatMessages converts unengaged chat traffic into events, rate
// limited to once per ChatPromotionWindow and capped at 10 per pass (spec
// §4.8 step 2).
func (l *Loop) promoteChatMessages() {
	window := l.cfg.ChatPromotionWindow
	if window <= 0 {
		window = 2 * time.Second
	}
	l.mu.Lock()
	if time.Since(l.lastChatPromotion) < window {
		l.mu.Unlock()
		return
	}
	l.lastChatPromotion = time.Now()
	l.mu.Unlock()

	msgs := l.buf.GetUnengagedMessages(10)
	if len(msgs) == 0 {
		return
	}
	indices := make([]uint64, 0, len(msgs))
	for _, m := range msgs {
		data := fmt.Sprintf("[%s] %s: %s", m.Platform, m.Username, m.Message)
		l.buf.IngestRawData(chatSourceForMessage(m), data)
		indices = append(indices, m.Index)
	}
	l.buf.MarkChatEngaged(indices)
}

// checkReminders fires due reminders into the buffer as urgent or ordinary
// thoughts, paced by ReminderCheckInterval (SPEC_FULL, default 30s).
func (l *Loop) checkReminders(ctx context.Context) {
	if l.reminderMgr == nil {
		return
	}
	interval := l.cfg.ReminderCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	l.mu.Lock()
	if time.Since(l.lastReminderCheck) < interval {
		l.mu.Unlock()
		return
	}
	l.lastReminderCheck = time.Now()
	l.mu.Unlock()

	due, err := l.reminderMgr.CheckDue(time.Now())
	if err != nil {
		l.logger.Warn(ctx, "loop: reminder check failed", "error", err)
	}
	for _, r := range due {
		if r.IsUrgent {
			l.buf.SetHasUrgentReminders(true)
		}
		priority := buffer.PriorityMedium
		if r.IsUrgent {
			priority = buffer.PriorityCritical
		}
		l.buf.AddProcessedThought(fmt.Sprintf("Reminder due: %s", r.Description), "internal", "", &priority, nil)
	}
}

// maybeIntegrateMemory retrieves one relevant Long-Memory summary every
// MemoryIntegrationInterval and adds it as a memory_integration thought
// (spec §4.8 step 10, default 120s).
func (l *Loop) maybeIntegrateMemory(ctx context.Context) bool {
	if l.mem == nil {
		return false
	}
	interval := l.cfg.MemoryIntegrationInterval
	if interval <= 0 {
		interval = 120 * time.Second
	}
	l.mu.Lock()
	if time.Since(l.lastMemoryIntegration) < interval {
		l.mu.Unlock()
		return false
	}
	l.lastMemoryIntegration = time.Now()
	lastText := l.lastUserText
	l.mu.Unlock()

	recent := l.buf.RecentThoughts(5)
	thoughts := make([]string, len(recent))
	for i, t := range recent {
		thoughts[i] = t.Content
	}

	results, err := l.mem.SearchLongMemoryCombined(ctx, memory.SearchParams{
		UserText: lastText, Thoughts: thoughts, TopK: 1, Strategy: memory.WeightedEmbedding,
	})
	if err != nil || len(results) == 0 {
		return false
	}
	l.buf.AddProcessedThought(fmt.Sprintf("Recalling from %s: %s", results[0].Date, results[0].Summary), "internal", "", nil, nil)
	return true
}

func (l *Loop) deciderConfig() cognition.DeciderConfig {
	return cognition.DeciderConfig{
		AgentName:               l.cfg.Name,
		StartupThoughtThreshold: l.cfg.StartupThoughtThreshold,
		HasVision:               l.FeatureEnabled("vision"),
	}
}

func (l *Loop) cognitionDeps() cognition.Deps {
	return cognition.Deps{
		Buffer:       l.buf,
		ActionState:  l.actions,
		Memory:       l.mem,
		ToolRegistry: l.registry,
		Instructions: l.instr,
		AgentName:    l.cfg.Name,
		Personality:  l.personality,
		CoreIdentity: l.coreIdentity,
	}
}

func (l *Loop) getProcessedThoughtCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.processedThoughtCount
}

func (l *Loop) getLastUserText() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastUserText
}

// IsShutdownRequested reports whether Shutdown (or a kill-phrase match in
// ProcessUserMessage) has been called.
func (l *Loop) IsShutdownRequested() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shutdownRequested || l.buf.IsShutdownRequested()
}

// Shutdown requests the loop stop at the next tick boundary.
func (l *Loop) Shutdown() {
	l.mu.Lock()
	l.shutdownRequested = true
	l.mu.Unlock()
	l.buf.ForceShutdown()
}

// GetPerformanceStats returns a snapshot of the loop's running counters.
func (l *Loop) GetPerformanceStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

// ProcessUserMessage ingests direct user input as a user_input event
// (spec §4.8 step 1). The kill phrase is checked first, before any
// ingestion, and never reaches the buffer (SPEC_FULL SUPPLEMENTED
// FEATURES): a match triggers shutdown and returns the fixed notice
// instead of an ordinary reply. The match is a case-insensitive substring
// check (spec §6, §9 SUPPLEMENTED FEATURES), not whole-text equality.
func (l *Loop) ProcessUserMessage(ctx context.Context, text string) (reply string, shuttingDown bool) {
	if phrase := l.cfg.KillPhrase; phrase != "" && strings.Contains(strings.ToLower(text), strings.ToLower(phrase)) {
		l.Shutdown()
		notice := l.cfg.ShutdownNotice
		if notice == "" {
			notice = "Shutting down."
		}
		return notice, true
	}

	l.mu.Lock()
	l.lastUserText = text
	l.mu.Unlock()
	l.buf.IngestRawData("user_input", text)
	return "", false
}

// ToggleFeature flips a named feature flag and returns its new state.
// Unknown names start from false, so the first toggle enables them.
func (l *Loop) ToggleFeature(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	next := !l.features[name]
	l.features[name] = next
	return next
}

// SetFeature sets a named feature flag explicitly.
func (l *Loop) SetFeature(name string, enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.features[name] = enabled
}

// FeatureEnabled reports a named feature flag's current state.
func (l *Loop) FeatureEnabled(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.features[name]
}
