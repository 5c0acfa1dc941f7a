package memory

import (
	"regexp"
	"strings"
)

// Need enumerates the trigger families that decide which tiers are worth
// searching for a given combined text (spec §4.6 "Memory-need detection").
// Detection is deliberately cheap: substring/regex only, so no embedding or
// search work happens unless at least one family matches.
type Need struct {
	Recall     bool
	Reference  bool
	Yesterday  bool
	Comparison bool

	// ReferenceSubject is the extracted subject of a "how to / what is"
	// style query, used to focus the base-knowledge search.
	ReferenceSubject string
}

// Any reports whether at least one trigger family matched.
func (n Need) Any() bool {
	return n.Recall || n.Reference || n.Yesterday || n.Comparison
}

var (
	recallWords = []string{
		"remember", "recall", "earlier", "you said", "before", "previously", "last time",
	}
	referencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)how (?:do|to) (?:i |you )?(.+)`),
		regexp.MustCompile(`(?i)what is (?:a |an |the )?(.+)`),
		regexp.MustCompile(`(?i)explain (.+)`),
		regexp.MustCompile(`(?i)(?:show me the )?guide (?:to |for )?(.+)`),
		regexp.MustCompile(`(?i)documentation (?:for |on )?(.+)`),
	}
	yesterdayWords = []string{
		"yesterday", "last night", "this morning",
	}
	comparisonWords = []string{
		"different from", "versus", "vs", "better than", "compared to", "compare",
	}
)

// DetectNeed inspects combinedText (spec §4.6: the user's current message
// plus its last 3 processed thoughts) for each trigger family.
func DetectNeed(combinedText string) Need {
	lower := strings.ToLower(combinedText)

	var n Need
	for _, w := range recallWords {
		if strings.Contains(lower, w) {
			n.Recall = true
			break
		}
	}
	for _, re := range referencePatterns {
		if m := re.FindStringSubmatch(combinedText); m != nil {
			n.Reference = true
			n.ReferenceSubject = strings.TrimSpace(strings.TrimRight(m[len(m)-1], "?.! "))
			break
		}
	}
	for _, w := range yesterdayWords {
		if strings.Contains(lower, w) {
			n.Yesterday = true
			break
		}
	}
	for _, w := range comparisonWords {
		if strings.Contains(lower, w) {
			n.Comparison = true
			break
		}
	}
	return n
}

// CombinedTextForNeedDetection joins the user's current message with its
// last up-to-3 processed thoughts (spec §4.6), the cheap text the trigger
// scan runs over.
func CombinedTextForNeedDetection(userText string, recentThoughts []string) string {
	n := len(recentThoughts)
	if n > 3 {
		recentThoughts = recentThoughts[n-3:]
	}
	parts := append([]string{userText}, recentThoughts...)
	return strings.Join(parts, " ")
}
