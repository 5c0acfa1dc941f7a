package cognition

import (
	"context"

	"github.com/cortexcore/cortex/internal/actionstate"
	"github.com/cortexcore/cortex/internal/buffer"
	"github.com/cortexcore/cortex/internal/instructions"
	"github.com/cortexcore/cortex/internal/memory"
	"github.com/cortexcore/cortex/internal/tools"
)

// Deps bundles the components BuildPromptInput draws from, so the loop
// package only has to pass one value per tick.
type Deps struct {
	Buffer       *buffer.Buffer
	ActionState  *actionstate.Manager
	Memory       *memory.Manager
	ToolRegistry *tools.Registry
	Instructions *instructions.Tracker

	AgentName   string
	Personality Personality
	CoreIdentity string
}

// BuildPromptInput assembles a PromptInput for decision, running whatever
// memory retrieval the mode and detected trigger families call for (spec
// §4.6 "Memory-need detection", §4.7 "Situational context").
func BuildPromptInput(ctx context.Context, d Deps, decision Decision, events []buffer.Event, userText string) PromptInput {
	p := PromptInput{
		Decision:        decision,
		Events:          events,
		RecentThoughts:  d.Buffer.GetThoughtsForResponse(),
		AgentName:       d.AgentName,
		Personality:     d.Personality,
		ActionAwareness: actionAwareness(d.ActionState),
		TimeSinceUser:   d.Buffer.GetTimeSinceLastUserInput(),
		CoreIdentity:    d.CoreIdentity,
	}

	if d.ToolRegistry != nil {
		p.ToolOneLiners = BuildToolOneLiners(d.ToolRegistry.ListManifests())
		if d.Instructions != nil {
			active := d.Instructions.GetActiveToolNames()
			if len(active) > 0 {
				manifests := make(map[string]*tools.Manifest)
				for _, m := range d.ToolRegistry.ListManifests() {
					manifests[m.ToolName] = m
				}
				p.ActiveToolDetail = BuildActiveToolDetail(manifests, active)
			}
		}
	}

	if d.Memory == nil {
		return p
	}

	if decision.ContextFlags.IsStartup {
		populateStartupContext(ctx, d, &p)
		return p
	}

	if decision.Mode == ModeReflective || decision.ContextFlags.NeedsMemoryRetrieval {
		populateReflectiveMemory(ctx, d, &p, userText)
	}

	return p
}

func recentThoughtContents(b *buffer.Buffer, n int) []string {
	thoughts := b.RecentThoughts(n)
	out := make([]string, len(thoughts))
	for i, t := range thoughts {
		out[i] = t.Content
	}
	return out
}

// populateStartupContext loads the enriched startup context (spec §4.7
// "Startup special case"): personality exemplars, recent Tier-3 summaries,
// yesterday's raw context, and the last 15 short-memory entries.
func populateStartupContext(ctx context.Context, d Deps, p *PromptInput) {
	examples, err := d.Memory.SearchPersonalityExamples(ctx, memory.StageThought, memory.SearchParams{
		UserText: "", TopK: 5, Strategy: memory.WeightedEmbedding,
	})
	if err == nil {
		p.PersonalityExemplars = formatBaseResults(examples)
	}

	snap := d.Memory.Snapshot()
	for _, l := range lastN(snap.Long, 3) {
		p.RecentLongSummaries = append(p.RecentLongSummaries, l.Date+": "+l.Summary)
	}

	for _, e := range d.Memory.GetYesterdayContext() {
		p.YesterdayContext = append(p.YesterdayContext, string(e.Role)+": "+e.Content)
	}

	for _, e := range lastN(snap.Short, startupShortEntries) {
		p.RecentShortEntries = append(p.RecentShortEntries, string(e.Role)+": "+e.Content)
	}
}

// populateReflectiveMemory runs memory-need detection over the combined
// text and searches whichever tiers the matched trigger families call for
// (spec §4.6).
func populateReflectiveMemory(ctx context.Context, d Deps, p *PromptInput, userText string) {
	recent := recentThoughtContents(d.Buffer, 3)
	combined := memory.CombinedTextForNeedDetection(userText, recent)
	need := memory.DetectNeed(combined)
	if !need.Any() {
		return
	}

	queryThoughts := recentThoughtContents(d.Buffer, 5)
	params := memory.SearchParams{UserText: userText, Thoughts: queryThoughts, Strategy: memory.WeightedEmbedding}

	if need.Recall || need.Comparison {
		if medium, err := d.Memory.SearchMediumMemoryCombined(ctx, params); err == nil {
			for _, r := range medium {
				p.RecentShortEntries = append(p.RecentShortEntries, string(r.Role)+": "+r.Content)
			}
		}
		if long, err := d.Memory.SearchLongMemoryCombined(ctx, params); err == nil {
			for _, r := range long {
				p.RecentLongSummaries = append(p.RecentLongSummaries, r.Date+": "+r.Summary)
			}
		}
	}

	if need.Reference {
		refParams := params
		if need.ReferenceSubject != "" {
			refParams.UserText = need.ReferenceSubject
		}
		if base, err := d.Memory.SearchBaseKnowledgeCombined(ctx, refParams); err == nil {
			p.PersonalityExemplars = append(p.PersonalityExemplars, formatBaseResults(base)...)
		}
	}

	if need.Yesterday {
		if medium, err := d.Memory.SearchMediumMemoryCombined(ctx, params); err == nil {
			for _, r := range medium {
				p.RecentShortEntries = append(p.RecentShortEntries, string(r.Role)+": "+r.Content)
			}
		}
		for _, e := range d.Memory.GetYesterdayContext() {
			p.YesterdayContext = append(p.YesterdayContext, string(e.Role)+": "+e.Content)
		}
	}
}

func formatBaseResults(results []memory.BaseSearchResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Text)
	}
	return out
}

func lastN[T any](items []T, n int) []T {
	if n <= 0 || n > len(items) {
		return items
	}
	return items[len(items)-n:]
}
