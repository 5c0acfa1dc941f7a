package memory

import (
	"context"
	"math"
	"sort"
)

// scored pairs an item with its similarity, used internally to pick a top-k
// without allocating parallel arrays.
type scored[T any] struct {
	item T
	sim  float32
}

// topK sorts items by descending similarity (ties broken by original
// order, since sort.SliceStable preserves input order for equal keys) and
// returns at most k of them, filtering out anything below minSimilarity
// (spec §8 property 6: deterministic ordering and top-k exactness).
func topK[T any](items []scored[T], k int, minSimilarity float32) []scored[T] {
	filtered := items[:0:0]
	for _, it := range items {
		if it.sim >= minSimilarity {
			filtered = append(filtered, it)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].sim > filtered[j].sim
	})
	if k > 0 && len(filtered) > k {
		filtered = filtered[:k]
	}
	return filtered
}

// SearchParams bundles the combined-query inputs every search function
// shares.
type SearchParams struct {
	UserText string
	Thoughts []string
	TopK     int
	MinSim   float64
	Strategy CombinationStrategy
}

func (m *Manager) queryWeights() QueryWeights {
	return QueryWeights{User: m.cfg.UserWeight, Thoughts: m.cfg.ThoughtsWeight}
}

func (m *Manager) queryEmbedding(ctx context.Context, p SearchParams) ([]float32, error) {
	if m.embedder == nil {
		return nil, nil
	}
	return embedCombined(ctx, m.embedder, p.UserText, p.Thoughts, m.queryWeights(), m.cfg.TextDuplicationMaxChars, p.Strategy)
}

func (m *Manager) topKOrDefault(topK int) int {
	if topK > 0 {
		return topK
	}
	if m.cfg.DefaultTopK > 0 {
		return m.cfg.DefaultTopK
	}
	return 5
}

func (m *Manager) minSimOrDefault(minSim float64) float32 {
	if minSim > 0 {
		return float32(minSim)
	}
	return float32(m.cfg.DefaultMinSimilarity)
}

// SearchBaseKnowledgeCombined scores the Tier 4 corpus against the combined
// query embedding and returns the top matches (spec §4.6).
func (m *Manager) SearchBaseKnowledgeCombined(ctx context.Context, p SearchParams) ([]BaseSearchResult, error) {
	queryVec, err := m.queryEmbedding(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(queryVec) == 0 {
		return nil, nil
	}

	m.baseMu.RLock()
	chunks := m.base
	defer m.baseMu.RUnlock()

	scoredChunks := make([]scored[BaseChunk], 0, len(chunks))
	for _, c := range chunks {
		sim := cosineSimilarityPrenormed(queryVec, c.Embedding, c.norm)
		scoredChunks = append(scoredChunks, scored[BaseChunk]{item: c, sim: sim})
	}

	top := topK(scoredChunks, m.topKOrDefault(p.TopK), m.minSimOrDefault(p.MinSim))
	out := make([]BaseSearchResult, 0, len(top))
	for _, s := range top {
		out = append(out, BaseSearchResult{Text: s.item.Text, Metadata: s.item.Metadata, Similarity: s.sim})
	}
	return out, nil
}

// cosineSimilarityPrenormed is cosineSimilarity specialized for the common
// case where one side's norm was already precomputed (spec §4.6 "per-corpus
// norms are precomputed").
func cosineSimilarityPrenormed(query, candidate []float32, candidateNorm float32) float32 {
	if len(query) != len(candidate) || len(query) == 0 || candidateNorm == 0 {
		return 0
	}
	var dot, queryNormSq float64
	for i := range query {
		dot += float64(query[i]) * float64(candidate[i])
		queryNormSq += float64(query[i]) * float64(query[i])
	}
	if queryNormSq == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(queryNormSq) * float64(candidateNorm)))
}

// SearchPersonalityExamples returns the top base-corpus exemplars for the
// requested stage, scored against the combined query (spec §4.6
// "personality exemplars partitioned by stage").
func (m *Manager) SearchPersonalityExamples(ctx context.Context, stage PersonalityStage, p SearchParams) ([]BaseSearchResult, error) {
	queryVec, err := m.queryEmbedding(ctx, p)
	if err != nil {
		return nil, err
	}

	m.baseMu.RLock()
	var pool []BaseChunk
	switch stage {
	case StageThought:
		pool = m.thoughtExamples
	case StageResponse:
		pool = m.responseExamples
	}
	m.baseMu.RUnlock()

	if len(queryVec) == 0 {
		top := m.topKOrDefault(p.TopK)
		if top > len(pool) {
			top = len(pool)
		}
		out := make([]BaseSearchResult, 0, top)
		for _, c := range pool[:top] {
			out = append(out, BaseSearchResult{Text: c.Text, Metadata: c.Metadata})
		}
		return out, nil
	}

	scoredChunks := make([]scored[BaseChunk], 0, len(pool))
	for _, c := range pool {
		sim := cosineSimilarityPrenormed(queryVec, c.Embedding, c.norm)
		scoredChunks = append(scoredChunks, scored[BaseChunk]{item: c, sim: sim})
	}
	top := topK(scoredChunks, m.topKOrDefault(p.TopK), 0)
	out := make([]BaseSearchResult, 0, len(top))
	for _, s := range top {
		out = append(out, BaseSearchResult{Text: s.item.Text, Metadata: s.item.Metadata, Similarity: s.sim})
	}
	return out, nil
}

// SearchMediumMemoryCombined scores today's-older-plus-yesterday's entries
// against the combined query (spec §4.6).
func (m *Manager) SearchMediumMemoryCombined(ctx context.Context, p SearchParams) ([]MediumSearchResult, error) {
	queryVec, err := m.queryEmbedding(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(queryVec) == 0 {
		return nil, nil
	}

	entries := m.snapshotMedium()
	scoredEntries := make([]scored[MediumEntry], 0, len(entries))
	for _, e := range entries {
		sim := cosineSimilarity(queryVec, e.Embedding)
		scoredEntries = append(scoredEntries, scored[MediumEntry]{item: e, sim: sim})
	}

	top := topK(scoredEntries, m.topKOrDefault(p.TopK), m.minSimOrDefault(p.MinSim))
	out := make([]MediumSearchResult, 0, len(top))
	for _, s := range top {
		out = append(out, MediumSearchResult{Role: s.item.Role, Content: s.item.Content, Timestamp: s.item.Timestamp, Similarity: s.sim})
	}
	return out, nil
}

// SearchLongMemoryCombined scores archived daily summaries against the
// combined query (spec §4.6).
func (m *Manager) SearchLongMemoryCombined(ctx context.Context, p SearchParams) ([]LongSearchResult, error) {
	queryVec, err := m.queryEmbedding(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(queryVec) == 0 {
		return nil, nil
	}

	m.longMu.Lock()
	entries := append([]LongEntry(nil), m.long...)
	m.longMu.Unlock()

	scoredEntries := make([]scored[LongEntry], 0, len(entries))
	for _, e := range entries {
		sim := cosineSimilarity(queryVec, e.Embedding)
		scoredEntries = append(scoredEntries, scored[LongEntry]{item: e, sim: sim})
	}

	top := topK(scoredEntries, m.topKOrDefault(p.TopK), m.minSimOrDefault(p.MinSim))
	out := make([]LongSearchResult, 0, len(top))
	for _, s := range top {
		out = append(out, LongSearchResult{Date: s.item.Date, Summary: s.item.Summary, Similarity: s.sim})
	}
	return out, nil
}

// GetYesterdayContext returns yesterday's medium-tier entries verbatim
// (spec §4.6 Yesterday trigger family: a direct lookup, not a similarity
// search), in chronological order.
func (m *Manager) GetYesterdayContext() []MediumEntry {
	y := yesterday()
	entries := m.snapshotMedium()
	out := make([]MediumEntry, 0, len(entries))
	for _, e := range entries {
		if e.Date == y {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
