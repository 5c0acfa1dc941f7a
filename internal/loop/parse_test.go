package loop

import "testing"

func TestParseModelOutputExtractsNumberedThoughts(t *testing.T) {
	raw := "<thoughts>\n[1] the user just said hello there\n[2] I should greet them back warmly\n</thoughts>"
	out, err := ParseModelOutput(raw, false)
	if err != nil {
		t.Fatalf("ParseModelOutput: %v", err)
	}
	if len(out.Thoughts) != 2 {
		t.Fatalf("expected 2 thoughts, got %d: %+v", len(out.Thoughts), out.Thoughts)
	}
	if out.Thoughts[0].Index != 1 || out.Thoughts[0].Content != "the user just said hello there" {
		t.Fatalf("unexpected first thought: %+v", out.Thoughts[0])
	}
	if out.Thoughts[1].Index != 2 || out.Thoughts[1].Content != "I should greet them back warmly" {
		t.Fatalf("unexpected second thought: %+v", out.Thoughts[1])
	}
}

func TestParseModelOutputSingleThoughtTreatsUnnumberedBodyAsOne(t *testing.T) {
	raw := "<thoughts>Nothing urgent is pending right now.</thoughts>"
	out, err := ParseModelOutput(raw, true)
	if err != nil {
		t.Fatalf("ParseModelOutput: %v", err)
	}
	if len(out.Thoughts) != 1 || out.Thoughts[0].Content != "Nothing urgent is pending right now." {
		t.Fatalf("expected single synthesized thought, got %+v", out.Thoughts)
	}
}

func TestParseModelOutputSingleThoughtRejectsTooShort(t *testing.T) {
	raw := "<thoughts>[1] too short</thoughts>"
	if _, err := ParseModelOutput(raw, true); err == nil {
		t.Fatalf("expected error for thought shorter than minThoughtLen")
	}
}

func TestParseModelOutputSingleThoughtRejectsTooLong(t *testing.T) {
	long := make([]byte, maxThoughtLen+1)
	for i := range long {
		long[i] = 'a'
	}
	raw := "<thoughts>[1] " + string(long) + "</thoughts>"
	if _, err := ParseModelOutput(raw, true); err == nil {
		t.Fatalf("expected error for thought longer than maxThoughtLen")
	}
}

func TestParseModelOutputResponsiveAllowsShortThoughts(t *testing.T) {
	raw := "<thoughts>[1] ok</thoughts>"
	out, err := ParseModelOutput(raw, false)
	if err != nil {
		t.Fatalf("expected no length validation for non-single-thought modes, got %v", err)
	}
	if len(out.Thoughts) != 1 || out.Thoughts[0].Content != "ok" {
		t.Fatalf("unexpected thoughts: %+v", out.Thoughts)
	}
}

func TestParseModelOutputExtractsThinkTag(t *testing.T) {
	raw := "<thoughts>[1] a reasonably long thought about the situation</thoughts><think>consider checking the calendar next</think>"
	out, err := ParseModelOutput(raw, true)
	if err != nil {
		t.Fatalf("ParseModelOutput: %v", err)
	}
	if out.Think != "consider checking the calendar next" {
		t.Fatalf("expected think tag extracted, got %q", out.Think)
	}
}

func TestParseModelOutputNoThinkTagLeavesThinkEmpty(t *testing.T) {
	raw := "<thoughts>[1] a reasonably long thought about the situation</thoughts>"
	out, err := ParseModelOutput(raw, true)
	if err != nil {
		t.Fatalf("ParseModelOutput: %v", err)
	}
	if out.Think != "" {
		t.Fatalf("expected empty think, got %q", out.Think)
	}
}

func TestParseModelOutputParsesActionList(t *testing.T) {
	raw := `<thoughts>[1] a reasonably long thought about the situation</thoughts>` +
		`<action_list>[{"tool":"search.query","args":["weather today"]}]</action_list>`
	out, err := ParseModelOutput(raw, true)
	if err != nil {
		t.Fatalf("ParseModelOutput: %v", err)
	}
	if len(out.Actions) != 1 {
		t.Fatalf("expected 1 action, got %+v", out.Actions)
	}
	a := out.Actions[0]
	if a.ToolName != "search" || a.Command != "query" || len(a.Args) != 1 || a.Args[0] != "weather today" {
		t.Fatalf("unexpected action: %+v", a)
	}
}

func TestParseModelOutputActionListTrailingComma(t *testing.T) {
	raw := `<action_list>[{"tool":"search.query","args":["a","b",]},]</action_list>`
	out, err := ParseModelOutput(raw, false)
	if err != nil {
		t.Fatalf("expected trailing commas tolerated, got %v", err)
	}
	if len(out.Actions) != 1 || len(out.Actions[0].Args) != 2 {
		t.Fatalf("unexpected actions: %+v", out.Actions)
	}
}

func TestParseModelOutputActionListStripsJSONFence(t *testing.T) {
	raw := "<action_list>\n```json\n[{\"tool\":\"notes.append\",\"args\":[\"remember this\"]}]\n```\n</action_list>"
	out, err := ParseModelOutput(raw, false)
	if err != nil {
		t.Fatalf("ParseModelOutput: %v", err)
	}
	if len(out.Actions) != 1 || out.Actions[0].ToolName != "notes" || out.Actions[0].Command != "append" {
		t.Fatalf("unexpected actions: %+v", out.Actions)
	}
}

func TestParseModelOutputInstructionsPseudoAction(t *testing.T) {
	raw := `<action_list>[{"tool":"instructions","args":["search"]}]</action_list>`
	out, err := ParseModelOutput(raw, false)
	if err != nil {
		t.Fatalf("ParseModelOutput: %v", err)
	}
	if len(out.Actions) != 1 {
		t.Fatalf("expected 1 action, got %+v", out.Actions)
	}
	a := out.Actions[0]
	if !a.Retrieve || a.ToolName != "search" {
		t.Fatalf("expected instructions retrieve request for search, got %+v", a)
	}
}

func TestParseModelOutputEmptyActionListIsNilNotError(t *testing.T) {
	raw := "<thoughts>[1] a reasonably long thought about the situation</thoughts><action_list></action_list>"
	out, err := ParseModelOutput(raw, true)
	if err != nil {
		t.Fatalf("ParseModelOutput: %v", err)
	}
	if out.Actions != nil {
		t.Fatalf("expected nil actions for empty action_list, got %+v", out.Actions)
	}
}

func TestParseModelOutputNoTagsProducesEmptyOutput(t *testing.T) {
	out, err := ParseModelOutput("not structured output at all", true)
	if err != nil {
		t.Fatalf("ParseModelOutput: %v", err)
	}
	if len(out.Thoughts) != 0 || out.Think != "" || out.Actions != nil {
		t.Fatalf("expected empty output for untagged text, got %+v", out)
	}
}

func TestSplitToolCommand(t *testing.T) {
	cases := []struct {
		in, name, command string
	}{
		{"search.query", "search", "query"},
		{"search", "search", ""},
		{"weather.get_forecast", "weather", "get_forecast"},
	}
	for _, c := range cases {
		name, command := splitToolCommand(c.in)
		if name != c.name || command != c.command {
			t.Fatalf("splitToolCommand(%q) = (%q, %q), want (%q, %q)", c.in, name, command, c.name, c.command)
		}
	}
}
