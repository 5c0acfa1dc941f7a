package memory

import (
	"context"
	"strings"
	"testing"
)

func TestBuildTextDuplicationQueryRepeatsProportionalToWeight(t *testing.T) {
	out := buildTextDuplicationQuery("hello", []string{"world"}, DefaultQueryWeights, 0)
	if got := strings.Count(out, "hello"); got != 6 {
		t.Fatalf("expected user text repeated 6x, got %d", got)
	}
	if got := strings.Count(out, "world"); got != 4 {
		t.Fatalf("expected thought text repeated 4x, got %d", got)
	}
}

func TestBuildTextDuplicationQueryTruncates(t *testing.T) {
	longText := strings.Repeat("x", 1000)
	out := buildTextDuplicationQuery(longText, nil, DefaultQueryWeights, 500)
	if len(out) > 500 {
		t.Fatalf("expected truncation to 500 chars, got %d", len(out))
	}
}

func TestRepsForWeight(t *testing.T) {
	if r := repsForWeight(0.6); r != 6 {
		t.Fatalf("expected 6 reps for weight 0.6, got %d", r)
	}
	if r := repsForWeight(0); r != 1 {
		t.Fatalf("expected minimum 1 rep for weight 0, got %d", r)
	}
}

func TestEmbedCombinedTextDuplication(t *testing.T) {
	embedder := newFakeEmbedder("cat", "dog")
	vec, err := embedCombined(context.Background(), embedder, "cat", []string{"dog"}, DefaultQueryWeights, 500, TextDuplication)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vec[0] == 0 || vec[1] == 0 {
		t.Fatalf("expected both vocab dimensions present in combined text, got %v", vec)
	}
}

func TestEmbedCombinedWeightedEmbeddingIsNormalized(t *testing.T) {
	embedder := newFakeEmbedder("cat", "dog")
	vec, err := embedCombined(context.Background(), embedder, "cat", []string{"dog"}, DefaultQueryWeights, 500, WeightedEmbedding)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if norm := l2Norm(vec); norm < 0.999 || norm > 1.001 {
		t.Fatalf("expected combined vector L2-normalized, got norm %v", norm)
	}
}

func TestEmbedCombinedWeightedEmbeddingFallsBackWithNoThoughts(t *testing.T) {
	embedder := newFakeEmbedder("cat", "dog")
	vec, err := embedCombined(context.Background(), embedder, "cat", nil, DefaultQueryWeights, 500, WeightedEmbedding)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vec[0] == 0 {
		t.Fatalf("expected user-only fallback to retain cat dimension, got %v", vec)
	}
}
