// Package memory implements the four-tier persistent Memory Subsystem
// (spec §3, §4.6): a bounded short-term tier, a day-scoped medium tier with
// embeddings, a long-term tier of daily summaries, and a read-only base
// knowledge corpus — plus the combined-query retrieval that blends the
// user's latest utterance with the agent's recent thoughts.
package memory

import "time"

// Role distinguishes who produced a short/medium-tier memory entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ShortEntry is a Tier 1 ("Short") memory record: today's raw conversation
// turns, unembedded (spec §3).
type ShortEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"` // YYYY-MM-DD, the entry's calendar day
}

// MediumEntry is a Tier 2 ("Medium") memory record: a ShortEntry plus an
// embedding, covering today's older turns and all of yesterday's (spec §3,
// §4.6).
type MediumEntry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Date      string    `json:"date"`
	Embedding []float32 `json:"embedding"`
}

// LongEntry is a Tier 3 ("Long") memory record: one summarized, archived
// day (spec §3).
type LongEntry struct {
	Date       string         `json:"date"`
	Summary    string         `json:"summary"`
	Embedding  []float32      `json:"embedding"`
	EntryCount int            `json:"entry_count"`
	Timestamp  time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// BaseChunk is one Tier 4 ("Base") read-only knowledge record, loaded once
// at startup from embedded/on-disk JSON (spec §3, §6).
type BaseChunk struct {
	Text           string            `json:"text"`
	SearchableText string            `json:"searchable_text"`
	Embedding      []float32         `json:"embedding"`
	Metadata       map[string]string `json:"metadata"`
	CharCount      int               `json:"char_count"`

	// norm is the precomputed L2 norm of Embedding, cached for vectorized
	// cosine scoring (spec §4.6 "per-corpus norms are precomputed").
	norm float32
}

// baseFile is the on-disk shape of a base-memory file (spec §6): either
// this wrapper object, or a bare array of BaseChunk.
type baseFile struct {
	SourceFile  string      `json:"source_file"`
	EmbedModel  string      `json:"embed_model"`
	ChunkMethod string      `json:"chunk_method"`
	Chunks      []BaseChunk `json:"chunks"`
}

// BaseSearchResult is one hit from SearchBaseKnowledgeCombined.
type BaseSearchResult struct {
	Text       string            `json:"text"`
	Metadata   map[string]string `json:"metadata"`
	Similarity float32           `json:"similarity"`
}

// LongSearchResult is one hit from SearchLongMemoryCombined.
type LongSearchResult struct {
	Date       string  `json:"date"`
	Summary    string  `json:"summary"`
	Similarity float32 `json:"similarity"`
}

// MediumSearchResult is one hit from SearchMediumMemoryCombined.
type MediumSearchResult struct {
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Similarity float32   `json:"similarity"`
}

// PersonalityStage selects which partition of personality exemplars a
// prompt constructor draws from (spec §4.6).
type PersonalityStage string

const (
	StageThought  PersonalityStage = "thought"
	StageResponse PersonalityStage = "response"
)
