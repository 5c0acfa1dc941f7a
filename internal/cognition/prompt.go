package cognition

import (
	"fmt"
	"strings"
	"time"

	"github.com/cortexcore/cortex/internal/actionstate"
	"github.com/cortexcore/cortex/internal/buffer"
	"github.com/cortexcore/cortex/internal/memory"
	"github.com/cortexcore/cortex/internal/tools"
)

// recentThoughtsForPrompt bounds how many formatted thoughts every prompt
// shows (spec §4.7: "last 5-10").
const recentThoughtsForPrompt = 8

// startupShortEntries bounds the raw short-memory lines loaded for the
// startup special case (spec §4.7: "the last 15 short-memory entries").
const startupShortEntries = 15

// Personality holds the fixed per-stage injection strings (spec §4.7:
// "a fixed string per stage").
type Personality struct {
	Thought  string
	Response string
}

// PromptInput bundles everything a constructor needs beyond the Decision
// itself.
type PromptInput struct {
	Decision     Decision
	Events       []buffer.Event
	RecentThoughts []string
	AgentName    string
	Personality  Personality

	ActionAwareness string // actionstate.GetToolAwarenessContext()
	TimeSinceUser   time.Duration

	ToolOneLiners    []string // default tool section
	ActiveToolDetail []string // detailed manifest instructions for active-instruction tools

	// Startup-only fields, populated when Decision.ContextFlags.IsStartup.
	CoreIdentity          string
	PersonalityExemplars   []string
	RecentLongSummaries   []string
	YesterdayContext      []string
	RecentShortEntries    []string
}

// BuildToolOneLiners renders the default one-line tool section (spec §4.7).
func BuildToolOneLiners(manifests []*tools.Manifest) []string {
	out := make([]string, 0, len(manifests))
	for _, m := range manifests {
		out = append(out, fmt.Sprintf("- %s: %s", m.ToolName, m.ToolDescription))
	}
	return out
}

// BuildActiveToolDetail renders the manifest-derived detailed instructions
// for every tool whose instructions grant is currently active (spec §4.5,
// §4.7: "the detailed manifest-derived instructions for each such tool").
func BuildActiveToolDetail(manifests map[string]*tools.Manifest, activeToolNames []string) []string {
	out := make([]string, 0, len(activeToolNames))
	for _, name := range activeToolNames {
		m, ok := manifests[name]
		if !ok {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "### %s\n%s\n", m.ToolName, m.ToolDescription)
		if len(m.AvailableCommands) > 0 {
			fmt.Fprintf(&b, "commands: %s\n", strings.Join(m.AvailableCommands, ", "))
		}
		if m.ToolUsageGuidance != "" {
			fmt.Fprintf(&b, "guidance: %s\n", m.ToolUsageGuidance)
		}
		out = append(out, b.String())
	}
	return out
}

func toolSection(p PromptInput) string {
	if len(p.ActiveToolDetail) > 0 {
		return "Tool instructions:\n" + strings.Join(p.ActiveToolDetail, "\n")
	}
	if len(p.ToolOneLiners) == 0 {
		return "Tools: none enabled."
	}
	return "Tools:\n" + strings.Join(p.ToolOneLiners, "\n")
}

func personalitySection(p PromptInput, stage memory.PersonalityStage) string {
	if stage == memory.StageResponse {
		return p.Personality.Response
	}
	return p.Personality.Thought
}

func recentThoughtsSection(p PromptInput) string {
	thoughts := p.RecentThoughts
	if len(thoughts) > recentThoughtsForPrompt {
		thoughts = thoughts[len(thoughts)-recentThoughtsForPrompt:]
	}
	if len(thoughts) == 0 {
		return "(no recent thoughts)"
	}
	return strings.Join(thoughts, "\n")
}

func groundingRules(p PromptInput) string {
	rules := []string{
		"Only claim a tool action succeeded if its result actually appears in the action awareness context below.",
		"Never invent tool output, file contents, or facts not present in the provided context.",
		"If you are uncertain, say so rather than guessing.",
	}
	if p.Decision.ContextFlags.HasVision {
		rules = append(rules, "Do not describe visual details that are not present in the vision_result events provided.")
	}
	return strings.Join(rules, "\n")
}

// ConstructResponsivePrompt builds the RESPONSIVE-mode prompt: one numbered
// event per line, asking the model for one thought per event plus an
// optional strategic think and an action_list (spec §4.8 step 4).
func ConstructResponsivePrompt(p PromptInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", personalitySection(p, memory.StageThought))
	fmt.Fprintf(&b, "Recent thoughts:\n%s\n\n", recentThoughtsSection(p))
	b.WriteString("Mode: RESPONSIVE. New events have arrived. Produce exactly one numbered thought per event below, in order, plus an optional strategic <think> and an <action_list>.\n\n")
	b.WriteString(toolSection(p))
	b.WriteString("\n\nEvents:\n")
	for i, e := range p.Events {
		fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, e.Source, e.Data)
	}
	if p.ActionAwareness != "" {
		fmt.Fprintf(&b, "\nCurrently in flight:\n%s\n", p.ActionAwareness)
	}
	fmt.Fprintf(&b, "\nGrounding rules:\n%s\n\n", groundingRules(p))
	b.WriteString(outputFormatSpec())
	return b.String()
}

// ConstructPlanningPrompt builds the PLANNING-mode prompt: a single thought
// reflecting on what to do given a recent user interaction (spec §4.8 step 4).
func ConstructPlanningPrompt(p PromptInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", personalitySection(p, memory.StageThought))
	fmt.Fprintf(&b, "Recent thoughts:\n%s\n\n", recentThoughtsSection(p))
	fmt.Fprintf(&b, "Mode: PLANNING. %s since the user last spoke. Produce a single thought about what to do next.\n\n", p.TimeSinceUser.Round(time.Second))
	b.WriteString(toolSection(p))
	if p.ActionAwareness != "" {
		fmt.Fprintf(&b, "\n\nCurrently in flight:\n%s\n", p.ActionAwareness)
	}
	fmt.Fprintf(&b, "\nGrounding rules:\n%s\n\n", groundingRules(p))
	b.WriteString(outputFormatSpec())
	return b.String()
}

// ConstructReflectivePrompt builds the REFLECTIVE-mode prompt: a single
// thought drawing on retrieved memories, with an enriched startup context
// when Decision.ContextFlags.IsStartup is set (spec §4.7 "Startup special
// case").
func ConstructReflectivePrompt(p PromptInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", personalitySection(p, memory.StageThought))

	if p.Decision.ContextFlags.IsStartup {
		b.WriteString("Mode: REFLECTIVE (startup). Orient yourself before anything else.\n\n")
		if p.CoreIdentity != "" {
			fmt.Fprintf(&b, "Core identity:\n%s\n\n", p.CoreIdentity)
		}
		if len(p.PersonalityExemplars) > 0 {
			fmt.Fprintf(&b, "Personality exemplars:\n%s\n\n", strings.Join(p.PersonalityExemplars, "\n"))
		}
		if len(p.RecentLongSummaries) > 0 {
			fmt.Fprintf(&b, "Recent day summaries:\n%s\n\n", strings.Join(p.RecentLongSummaries, "\n"))
		}
		if len(p.YesterdayContext) > 0 {
			fmt.Fprintf(&b, "Yesterday:\n%s\n\n", strings.Join(p.YesterdayContext, "\n"))
		}
		if len(p.RecentShortEntries) > 0 {
			fmt.Fprintf(&b, "Recent conversation:\n%s\n\n", strings.Join(p.RecentShortEntries, "\n"))
		}
	} else {
		fmt.Fprintf(&b, "Recent thoughts:\n%s\n\n", recentThoughtsSection(p))
		b.WriteString("Mode: REFLECTIVE. Nothing urgent is pending. Produce a single thought reflecting on recent memory context.\n\n")
	}

	b.WriteString(toolSection(p))
	fmt.Fprintf(&b, "\n\nGrounding rules:\n%s\n\n", groundingRules(p))
	b.WriteString(outputFormatSpec())
	return b.String()
}

// ConstructSpokenPrompt builds the SPOKEN-mode prompt (spec §4.7 mode 4 of
// 4): the per-tick thought-production call used whenever the decider picks
// SPOKEN, requesting the same <thoughts>/<think>/<action_list> output every
// other mode produces (spec §4.8 step 6 parses output unconditionally).
func ConstructSpokenPrompt(p PromptInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", personalitySection(p, memory.StageResponse))
	fmt.Fprintf(&b, "Recent thoughts:\n%s\n\n", recentThoughtsSection(p))
	fmt.Fprintf(&b, "Mode: SPOKEN. Priority: %s. Reason: %s. Produce a single thought about what needs to be said.\n\n", p.Decision.PriorityLevel, p.Decision.Reasoning)
	if p.Decision.ContextFlags.NeedsPersonalityExamples && len(p.PersonalityExemplars) > 0 {
		fmt.Fprintf(&b, "Response style exemplars:\n%s\n\n", strings.Join(p.PersonalityExemplars, "\n"))
	}
	b.WriteString(toolSection(p))
	fmt.Fprintf(&b, "\n\nGrounding rules:\n%s\n\n", groundingRules(p))
	b.WriteString(outputFormatSpec())
	return b.String()
}

// ConstructResponseGeneratorPrompt builds the prompt for the Response
// Generator external collaborator (spec §4.8 step 9): the "response" stage
// personality plus the full thought chain and memory context, with no
// output-format wrapper since its reply is spoken verbatim rather than
// parsed.
func ConstructResponseGeneratorPrompt(p PromptInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", personalitySection(p, memory.StageResponse))
	fmt.Fprintf(&b, "Recent thoughts:\n%s\n\n", recentThoughtsSection(p))
	fmt.Fprintf(&b, "Priority: %s. Reason: %s. Write the reply to speak now, in plain prose with no tags or formatting.\n\n", p.Decision.PriorityLevel, p.Decision.Reasoning)
	if len(p.PersonalityExemplars) > 0 {
		fmt.Fprintf(&b, "Response style exemplars:\n%s\n\n", strings.Join(p.PersonalityExemplars, "\n"))
	}
	if len(p.RecentLongSummaries) > 0 {
		fmt.Fprintf(&b, "Relevant memory:\n%s\n\n", strings.Join(p.RecentLongSummaries, "\n"))
	}
	fmt.Fprintf(&b, "Grounding rules:\n%s\n", groundingRules(p))
	return b.String()
}

func outputFormatSpec() string {
	return "Respond using exactly this format:\n" +
		"<thoughts>\n[1] first thought\n[2] second thought\n</thoughts>\n" +
		"<think>optional strategic thought</think>\n" +
		"<action_list>[{\"tool\":\"name.command\",\"args\":[\"...\"]}]</action_list>\n"
}

// actionAwareness is a small adapter over actionstate.Manager's markdown
// summary, kept here so the loop does not need to import cognition just to
// build a PromptInput field.
func actionAwareness(m *actionstate.Manager) string {
	if m == nil {
		return ""
	}
	return m.GetToolAwarenessContext()
}
