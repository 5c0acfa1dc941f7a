package memory

import (
	"context"
	"testing"

	"github.com/cortexcore/cortex/internal/config"
	"github.com/cortexcore/cortex/internal/memory/embeddings"
)

func newTestManager(t *testing.T, embedder embeddings.Provider) *Manager {
	t.Helper()
	cfg := config.MemoryConfig{
		ShortCapacity:           25,
		UserWeight:              0.6,
		ThoughtsWeight:          0.4,
		RecentThoughtsForQuery:  5,
		TextDuplicationMaxChars: 500,
		DefaultTopK:             5,
		DefaultMinSimilarity:    0,
	}
	m, err := NewManager(cfg, embedder, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestSearchBaseKnowledgeCombinedRanksBySimilarity(t *testing.T) {
	embedder := newFakeEmbedder("cat", "dog", "car")
	m := newTestManager(t, embedder)
	m.base = []BaseChunk{
		{Text: "about cats", Embedding: []float32{1, 0, 0}},
		{Text: "about cars", Embedding: []float32{0, 0, 1}},
		{Text: "about dogs", Embedding: []float32{0, 1, 0}},
	}
	for i := range m.base {
		m.base[i].norm = l2Norm(m.base[i].Embedding)
	}

	results, err := m.SearchBaseKnowledgeCombined(context.Background(), SearchParams{
		UserText: "cat", TopK: 2, Strategy: WeightedEmbedding,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 || results[0].Text != "about cats" {
		t.Fatalf("expected top result about cats, got %+v", results)
	}
	if len(results) > 2 {
		t.Fatalf("expected at most 2 results, got %d", len(results))
	}
}

func TestSearchPersonalityExamplesPartitionsByStage(t *testing.T) {
	embedder := newFakeEmbedder("greeting")
	m := newTestManager(t, embedder)
	m.base = []BaseChunk{
		{Text: "thought exemplar", Embedding: []float32{1}, Metadata: map[string]string{personalityMetadataKey: "thought"}},
		{Text: "response exemplar", Embedding: []float32{1}, Metadata: map[string]string{personalityMetadataKey: "response"}},
	}
	for i := range m.base {
		m.base[i].norm = l2Norm(m.base[i].Embedding)
	}
	m.thoughtExamples, m.responseExamples = PartitionPersonalityExamples(m.base)

	thoughts, err := m.SearchPersonalityExamples(context.Background(), StageThought, SearchParams{UserText: "greeting", Strategy: WeightedEmbedding})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(thoughts) != 1 || thoughts[0].Text != "thought exemplar" {
		t.Fatalf("expected only the thought exemplar, got %+v", thoughts)
	}
}

func TestGetYesterdayContextFiltersByDate(t *testing.T) {
	m := newTestManager(t, nil)
	m.medium = []MediumEntry{
		{Content: "old", Date: "2000-01-01"},
		{Content: "yesterday entry", Date: yesterday()},
	}
	ctx := m.GetYesterdayContext()
	if len(ctx) != 1 || ctx[0].Content != "yesterday entry" {
		t.Fatalf("expected only yesterday's entry, got %+v", ctx)
	}
}

func TestTopKRespectsMinSimilarityAndOrder(t *testing.T) {
	items := []scored[string]{
		{item: "low", sim: 0.1},
		{item: "high", sim: 0.9},
		{item: "mid", sim: 0.5},
	}
	top := topK(items, 2, 0.2)
	if len(top) != 2 {
		t.Fatalf("expected 2 results after min-similarity filter, got %d", len(top))
	}
	if top[0].item != "high" || top[1].item != "mid" {
		t.Fatalf("expected descending order [high mid], got %+v", top)
	}
}
