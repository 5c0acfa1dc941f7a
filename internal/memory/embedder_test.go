package memory

import (
	"context"
	"strings"
)

// fakeEmbedder is a deterministic, dependency-free embeddings.Provider used
// across this package's tests: it encodes a short vocabulary as one-hot
// dimensions so similarity scoring is predictable without a real model.
type fakeEmbedder struct {
	dim   int
	vocab []string
}

func newFakeEmbedder(vocab ...string) *fakeEmbedder {
	return &fakeEmbedder{dim: len(vocab), vocab: vocab}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dim)
	lower := strings.ToLower(text)
	for i, word := range f.vocab {
		if strings.Contains(lower, word) {
			v[i] = 1
		}
	}
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Name() string      { return "fake" }
func (f *fakeEmbedder) Dimension() int    { return f.dim }
func (f *fakeEmbedder) MaxBatchSize() int { return 64 }
