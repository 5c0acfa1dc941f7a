package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadBaseKnowledgeMissingDirIsNotError(t *testing.T) {
	chunks, err := LoadBaseKnowledge(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks != nil {
		t.Fatalf("expected nil chunks for missing dir, got %v", chunks)
	}
}

func TestLoadBaseKnowledgeWrapperShape(t *testing.T) {
	dir := t.TempDir()
	file := baseFile{
		SourceFile: "notes.md",
		Chunks: []BaseChunk{
			{Text: "chunk one", Embedding: []float32{3, 4}},
		},
	}
	data, _ := json.Marshal(file)
	if err := os.WriteFile(filepath.Join(dir, "notes.json"), data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	chunks, err := LoadBaseKnowledge(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "chunk one" {
		t.Fatalf("expected one chunk 'chunk one', got %+v", chunks)
	}
	if chunks[0].norm != 5 {
		t.Fatalf("expected precomputed norm 5, got %v", chunks[0].norm)
	}
}

func TestLoadBaseKnowledgeBareArrayShape(t *testing.T) {
	dir := t.TempDir()
	chunks := []BaseChunk{{Text: "bare chunk", Embedding: []float32{1, 0}}}
	data, _ := json.Marshal(chunks)
	if err := os.WriteFile(filepath.Join(dir, "bare.json"), data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	got, err := LoadBaseKnowledge(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Text != "bare chunk" {
		t.Fatalf("expected bare-array chunk loaded, got %+v", got)
	}
}

func TestPartitionPersonalityExamples(t *testing.T) {
	chunks := []BaseChunk{
		{Text: "a", Metadata: map[string]string{personalityMetadataKey: "thought"}},
		{Text: "b", Metadata: map[string]string{personalityMetadataKey: "response"}},
		{Text: "c", Metadata: map[string]string{}},
	}
	thoughtEx, responseEx := PartitionPersonalityExamples(chunks)
	if len(thoughtEx) != 1 || thoughtEx[0].Text != "a" {
		t.Fatalf("expected one thought exemplar, got %+v", thoughtEx)
	}
	if len(responseEx) != 1 || responseEx[0].Text != "b" {
		t.Fatalf("expected one response exemplar, got %+v", responseEx)
	}
}
