package memory

import (
	"context"
	"strings"

	"github.com/cortexcore/cortex/internal/memory/embeddings"
)

// CombinationStrategy selects how the user's current message and recent
// thoughts are fused into one retrieval query (spec §4.6).
type CombinationStrategy int

const (
	// TextDuplication concatenates the user text and each recent thought,
	// each repeated proportional to its weight, then truncates and embeds
	// the result as a single string.
	TextDuplication CombinationStrategy = iota
	// WeightedEmbedding embeds the user text and the average of recent
	// thoughts separately, then linearly combines and L2-normalizes them.
	WeightedEmbedding
)

// QueryWeights are the combined-query weights (spec §4.6, default 0.6/0.4).
type QueryWeights struct {
	User     float64
	Thoughts float64
}

// DefaultQueryWeights matches spec.md §4.6's stated defaults.
var DefaultQueryWeights = QueryWeights{User: 0.6, Thoughts: 0.4}

// buildTextDuplicationQuery duplicates userText and each thought
// proportional to weight, concatenates them, and truncates to maxChars
// (spec §4.6 strategy 1, default maxChars 500).
func buildTextDuplicationQuery(userText string, thoughts []string, weights QueryWeights, maxChars int) string {
	userReps := repsForWeight(weights.User)
	thoughtReps := repsForWeight(weights.Thoughts)

	var sb strings.Builder
	for i := 0; i < userReps; i++ {
		sb.WriteString(userText)
		sb.WriteString(" ")
	}
	for _, th := range thoughts {
		for i := 0; i < thoughtReps; i++ {
			sb.WriteString(th)
			sb.WriteString(" ")
		}
	}

	out := strings.TrimSpace(sb.String())
	if maxChars > 0 && len(out) > maxChars {
		out = out[:maxChars]
	}
	return out
}

// repsForWeight converts a 0..1 weight into an integer repeat count on a
// base-10 scale (spec §4.6: "user weight 0.6 ... → user text repeated 6x").
func repsForWeight(weight float64) int {
	reps := int(weight*10 + 0.5)
	if reps < 1 {
		reps = 1
	}
	return reps
}

// embedCombined computes the combined query embedding for a retrieval call
// using the selected strategy. For TextDuplication, it builds the
// duplicated string and embeds it once. For WeightedEmbedding, it embeds
// the user text and the average of the recent thoughts separately and
// linearly combines them.
func embedCombined(ctx context.Context, provider embeddings.Provider, userText string, thoughts []string, weights QueryWeights, maxChars int, strategy CombinationStrategy) ([]float32, error) {
	if strategy == TextDuplication {
		combined := buildTextDuplicationQuery(userText, thoughts, weights, maxChars)
		if strings.TrimSpace(combined) == "" {
			return nil, nil
		}
		return provider.Embed(ctx, combined)
	}

	var userVec []float32
	if strings.TrimSpace(userText) != "" {
		v, err := provider.Embed(ctx, userText)
		if err != nil {
			return nil, err
		}
		userVec = v
	}

	var thoughtVec []float32
	if len(thoughts) > 0 {
		vecs := make([][]float32, 0, len(thoughts))
		for _, th := range thoughts {
			if strings.TrimSpace(th) == "" {
				continue
			}
			v, err := provider.Embed(ctx, th)
			if err != nil {
				continue // spec §7 EmbeddingUnavailable: proceed without it
			}
			vecs = append(vecs, v)
		}
		thoughtVec = averageVectors(vecs)
	}

	return weightedCombine(userVec, thoughtVec, weights.User, weights.Thoughts), nil
}
