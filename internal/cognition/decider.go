// Package cognition implements the Response Decider and the four prompt
// constructors (spec §4.7): the logic that picks one of RESPONSIVE,
// PLANNING, REFLECTIVE, or SPOKEN per tick and assembles that mode's prompt
// from the buffer, memory subsystem, and tool registry.
package cognition

import (
	"strings"
	"time"

	"github.com/cortexcore/cortex/internal/buffer"
)

// Mode is one of the four prompt modes the Response Decider can select.
type Mode string

const (
	ModeResponsive Mode = "RESPONSIVE"
	ModePlanning   Mode = "PLANNING"
	ModeReflective Mode = "REFLECTIVE"
	ModeSpoken     Mode = "SPOKEN"
)

// timeSinceUserInputThreshold is the PLANNING/REFLECTIVE boundary (spec
// §4.7 rule 6, default 360s).
const timeSinceUserInputThreshold = 360 * time.Second

// recentThoughtsWindow bounds how many of the most recent thoughts the
// decider scans for [HIGH]/[CRITICAL]/name/'?' triggers (spec §4.7: "the
// last 10 thoughts").
const recentThoughtsWindow = 10

// ContextFlags are hints threaded through to the prompt constructors (spec
// §4.7: "has_vision, has_chat, needs_memory_retrieval, is_startup").
type ContextFlags struct {
	HasVision              bool
	HasChat                bool
	NeedsMemoryRetrieval   bool
	IsStartup              bool
	NeedsPersonalityExamples bool
}

// Decision is the Response Decider's output (spec §4.7).
type Decision struct {
	Mode                Mode
	NeedsSpokenResponse bool
	PriorityLevel       buffer.Priority
	Reasoning           string
	ContextFlags        ContextFlags
}

// DeciderConfig carries the tunables the decider consults (spec §4.7,
// SPEC_FULL's unified StartupThoughtThreshold).
type DeciderConfig struct {
	AgentName               string
	StartupThoughtThreshold int
	HasVision               bool
}

// Decide implements the seven-rule priority ladder (spec §4.7, "first match
// wins"). hasNewEvents and processedThoughtCount come from the loop's
// per-tick snapshot of the Thought Buffer.
func Decide(cfg DeciderConfig, b *buffer.Buffer, hasNewEvents bool, processedThoughtCount int) Decision {
	recent := b.RecentThoughts(recentThoughtsWindow)

	startupThreshold := cfg.StartupThoughtThreshold
	if startupThreshold <= 0 {
		startupThreshold = 3
	}
	isStartup := processedThoughtCount < startupThreshold

	flags := ContextFlags{
		HasVision:                cfg.HasVision,
		HasChat:                  b.ShouldEngageWithChat(),
		IsStartup:                isStartup,
		NeedsPersonalityExamples: isStartup,
	}

	if b.HasUrgentReminders() || containsTag(recent, "[CRITICAL]") {
		flags.NeedsMemoryRetrieval = true
		return Decision{
			Mode:                ModeSpoken,
			NeedsSpokenResponse: true,
			PriorityLevel:       buffer.PriorityCritical,
			Reasoning:           "urgent reminder or recent CRITICAL thought",
			ContextFlags:        flags,
		}
	}

	if containsTag(recent, "[HIGH]") {
		return Decision{
			Mode:                ModeSpoken,
			NeedsSpokenResponse: true,
			PriorityLevel:       buffer.PriorityHigh,
			Reasoning:           "recent HIGH-priority thought",
			ContextFlags:        flags,
		}
	}

	if cfg.AgentName != "" && containsUppercaseMention(recent, cfg.AgentName) {
		return Decision{
			Mode:                ModeSpoken,
			NeedsSpokenResponse: true,
			PriorityLevel:       buffer.PriorityHigh,
			Reasoning:           "agent name mentioned in recent thoughts",
			ContextFlags:        flags,
		}
	}

	if containsQuestionMark(recent) {
		return Decision{
			Mode:                ModeSpoken,
			NeedsSpokenResponse: true,
			PriorityLevel:       buffer.PriorityMedium,
			Reasoning:           "recent thought contains a question",
			ContextFlags:        flags,
		}
	}

	if hasNewEvents {
		return Decision{
			Mode:          ModeResponsive,
			PriorityLevel: buffer.PriorityMedium,
			Reasoning:     "new events pending",
			ContextFlags:  flags,
		}
	}

	if !isStartup && b.GetTimeSinceLastUserInput() < timeSinceUserInputThreshold {
		return Decision{
			Mode:          ModePlanning,
			PriorityLevel: buffer.PriorityLow,
			Reasoning:     "recent user input, no new events",
			ContextFlags:  flags,
		}
	}

	flags.NeedsMemoryRetrieval = true
	reasoning := "idle: reflective retrieval"
	if isStartup {
		reasoning = "startup: forcing reflective with enriched context"
	}
	return Decision{
		Mode:          ModeReflective,
		PriorityLevel: buffer.PriorityLow,
		Reasoning:     reasoning,
		ContextFlags:  flags,
	}
}

func containsTag(thoughts []buffer.Thought, tag string) bool {
	for _, t := range thoughts {
		if strings.Contains(t.Formatted(), tag) {
			return true
		}
	}
	return false
}

func containsQuestionMark(thoughts []buffer.Thought) bool {
	for _, t := range thoughts {
		if strings.Contains(t.Content, "?") {
			return true
		}
	}
	return false
}

func containsUppercaseMention(thoughts []buffer.Thought, agentName string) bool {
	upper := strings.ToUpper(agentName)
	if upper == "" {
		return false
	}
	for _, t := range thoughts {
		if strings.Contains(t.Content, upper) {
			return true
		}
	}
	return false
}
