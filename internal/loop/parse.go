package loop

import (
	"fmt"
	"regexp"
	"strings"

	json5 "github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/cortexcore/cortex/internal/tools"
)

// ParsedThought is one numbered thought line out of <thoughts> (spec §4.8
// step 5, §6 output format).
type ParsedThought struct {
	Index   int
	Content string
}

// ParsedOutput is one model reply, decomposed per spec §6's output-format
// contract: <thoughts> (one per new event, or a single entry for
// single-thought modes), an optional strategic <think>, and an
// <action_list>.
type ParsedOutput struct {
	Thoughts []ParsedThought
	Think    string
	Actions  []tools.ActionRequest
}

var (
	thoughtsTagRe = regexp.MustCompile(`(?s)<thoughts>(.*?)</thoughts>`)
	thinkTagRe    = regexp.MustCompile(`(?s)<think>(.*?)</think>`)
	actionTagRe   = regexp.MustCompile(`(?s)<action_list>(.*?)</action_list>`)
	numberedLineRe = regexp.MustCompile(`(?m)^\s*\[(\d+)\]\s*(.+?)\s*$`)
	fencedJSONRe  = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
)

const (
	minThoughtLen = 10
	maxThoughtLen = 300
)

// rawAction mirrors the wire shape described in spec §6:
// {"tool":"name.command","args":["..."]} or the reserved
// {"tool":"instructions","args":["toolname"]} pseudo-action.
type rawAction struct {
	Tool string   `json:"tool"`
	Args []string `json:"args"`
}

// ParseModelOutput decomposes a raw model reply per spec §6's output
// format. singleThought controls length validation: PLANNING/REFLECTIVE
// thoughts must be 10-300 chars; RESPONSIVE's per-event thoughts need only
// be non-empty (their content is bounded by the event, not a fixed range).
func ParseModelOutput(raw string, singleThought bool) (ParsedOutput, error) {
	var out ParsedOutput

	if m := thoughtsTagRe.FindStringSubmatch(raw); m != nil {
		body := strings.TrimSpace(m[1])
		lines := numberedLineRe.FindAllStringSubmatch(body, -1)
		if len(lines) == 0 && body != "" {
			lines = [][]string{{"", "1", body}}
		}
		for _, l := range lines {
			idx := 0
			fmt.Sscanf(l[1], "%d", &idx)
			content := strings.TrimSpace(l[2])
			if content == "" {
				continue
			}
			if singleThought {
				if len(content) < minThoughtLen || len(content) > maxThoughtLen {
					return out, fmt.Errorf("loop: thought length %d outside [%d,%d]", len(content), minThoughtLen, maxThoughtLen)
				}
			}
			out.Thoughts = append(out.Thoughts, ParsedThought{Index: idx, Content: content})
		}
	}

	if m := thinkTagRe.FindStringSubmatch(raw); m != nil {
		out.Think = strings.TrimSpace(m[1])
	}

	if m := actionTagRe.FindStringSubmatch(raw); m != nil {
		actions, err := parseActionList(m[1])
		if err != nil {
			return out, fmt.Errorf("loop: parse action_list: %w", err)
		}
		out.Actions = actions
	}

	return out, nil
}

// parseActionList strips any ```json fencing, tolerates trailing commas
// (json5's grammar, not strict JSON's), and converts each raw action into
// an ActionRequest. An action naming the reserved "instructions" pseudo-tool
// becomes a Retrieve request rather than a regular invocation (spec §4.5).
func parseActionList(body string) ([]tools.ActionRequest, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, nil
	}
	if m := fencedJSONRe.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(m[1])
	}
	if body == "" {
		return nil, nil
	}

	var raws []rawAction
	if err := json5.Unmarshal([]byte(body), &raws); err != nil {
		return nil, err
	}

	out := make([]tools.ActionRequest, 0, len(raws))
	for _, r := range raws {
		if r.Tool == "" {
			continue
		}
		if r.Tool == "instructions" {
			toolName := ""
			if len(r.Args) > 0 {
				toolName = r.Args[0]
			}
			out = append(out, tools.ActionRequest{ToolName: toolName, Retrieve: true})
			continue
		}
		toolName, command := splitToolCommand(r.Tool)
		args := r.Args
		if len(args) == 0 {
			args = nil
		}
		out = append(out, tools.ActionRequest{ToolName: toolName, Command: command, Args: args})
	}
	return out, nil
}

// splitToolCommand splits "name.command" into its two parts (spec §6); a
// bare name with no command defaults to an empty command, left for the
// tool implementation itself to reject or default.
func splitToolCommand(tool string) (name, command string) {
	if i := strings.IndexByte(tool, '.'); i >= 0 {
		return tool[:i], tool[i+1:]
	}
	return tool, ""
}
