package buffer

import "strings"

// Priority is the urgency tag carried by every processed thought.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the bracket-tag text used both in the structured field and
// embedded in formatted thought content (e.g. "[HIGH] user asked a question").
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "CRITICAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// ParsePriority maps a tag string back to a Priority, defaulting to LOW for
// anything unrecognized.
func ParsePriority(s string) Priority {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL":
		return PriorityCritical
	case "HIGH":
		return PriorityHigh
	case "MEDIUM":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// derivePriority implements the §4.1 default priority-by-source table. An
// explicit override always wins; this is only consulted when none is given.
func derivePriority(source string) Priority {
	switch source {
	case "user_input":
		return PriorityHigh
	case "chat_direct_mention":
		return PriorityCritical
	case "chat_question":
		return PriorityHigh
	case "vision_result":
		return PriorityMedium
	case "tool_failed", "tool_timeout":
		return PriorityHigh
	case "tool_result":
		return PriorityMedium
	case "internal":
		return PriorityLow
	default:
		return PriorityLow
	}
}

// refineChatPriority rescans chat message text for urgency markers, per
// §4.1: agent name mention outranks '?' which outranks '!'.
func refineChatPriority(base Priority, message, agentName string) Priority {
	upper := strings.ToUpper(message)
	if agentName != "" && strings.Contains(upper, strings.ToUpper(agentName)) {
		return maxPriority(base, PriorityCritical)
	}
	if strings.Contains(message, "?") {
		return maxPriority(base, PriorityHigh)
	}
	if strings.Contains(message, "!") {
		return maxPriority(base, PriorityMedium)
	}
	return base
}

func maxPriority(a, b Priority) Priority {
	if b > a {
		return b
	}
	return a
}

// FormatThought renders the canonical "[PRIO] content" text consumed both by
// the prompt constructors and by text-based scanning in the response decider.
func FormatThought(priority Priority, content string) string {
	return "[" + priority.String() + "] " + content
}
