package memory

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cortexcore/cortex/internal/config"
	"github.com/cortexcore/cortex/internal/memory/embeddings"
)

func newPersistentTestManager(t *testing.T, embedder embeddings.Provider, shortCapacity int) *Manager {
	t.Helper()
	cfg := config.MemoryConfig{
		PersistDir:              filepath.Join(t.TempDir(), "memory"),
		ShortCapacity:           shortCapacity,
		UserWeight:              0.6,
		ThoughtsWeight:          0.4,
		RecentThoughtsForQuery:  5,
		TextDuplicationMaxChars: 500,
		DefaultTopK:             5,
	}
	m, err := NewManager(cfg, embedder, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestAddEntryOverflowsIntoMedium(t *testing.T) {
	embedder := newFakeEmbedder("hello")
	m := newPersistentTestManager(t, embedder, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := m.AddEntry(ctx, RoleUser, "hello"); err != nil {
			t.Fatalf("AddEntry: %v", err)
		}
	}

	if got := len(m.snapshotShort()); got != 2 {
		t.Fatalf("expected short tier capped at 2, got %d", got)
	}
	if got := len(m.snapshotMedium()); got != 1 {
		t.Fatalf("expected 1 overflowed entry in medium tier, got %d", got)
	}
}

func TestRotateIfNewDayIsNoopSameDay(t *testing.T) {
	m := newPersistentTestManager(t, nil, 25)
	if err := m.AddEntry(context.Background(), RoleUser, "hi"); err != nil {
		t.Fatalf("AddEntry: %v", err)
	}
	if err := m.RotateIfNewDay(context.Background(), nil); err != nil {
		t.Fatalf("RotateIfNewDay: %v", err)
	}
	if got := len(m.snapshotShort()); got != 1 {
		t.Fatalf("expected no rotation same day, short still has 1 entry, got %d", got)
	}
}

func TestRotateIfNewDayMovesShortToMediumAndArchivesOldDay(t *testing.T) {
	m := newPersistentTestManager(t, newFakeEmbedder("message"), 25)

	twoDaysAgoDate := time.Now().AddDate(0, 0, -2).Format("2006-01-02")
	yesterdayDate := yesterday()

	// Simulate a manager that last rotated yesterday: its short tier holds
	// what was "today" back then, and its medium tier still carries the day
	// before that (now two days old and due for archival).
	m.short = []ShortEntry{{Role: RoleUser, Content: "yesterday's message", Date: yesterdayDate}}
	m.medium = []MediumEntry{{Role: RoleUser, Content: "two days old", Date: twoDaysAgoDate}}
	m.today = yesterdayDate

	summarized := false
	summarizer := func(_ context.Context, date string, entries []MediumEntry) (string, error) {
		summarized = true
		return "summary of " + date, nil
	}

	if err := m.RotateIfNewDay(context.Background(), summarizer); err != nil {
		t.Fatalf("RotateIfNewDay: %v", err)
	}

	if !summarized {
		t.Fatalf("expected the archived day to be summarized")
	}
	if got := len(m.snapshotShort()); got != 0 {
		t.Fatalf("expected short tier cleared after rotation, got %d entries", got)
	}
	medium := m.snapshotMedium()
	for _, e := range medium {
		if e.Date == twoDaysAgoDate {
			t.Fatalf("expected the two-days-old entry removed from medium, still present: %+v", e)
		}
	}
	found := false
	for _, e := range medium {
		if e.Content == "yesterday's message" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected yesterday's short-tier message promoted into medium, got %+v", medium)
	}

	m.longMu.Lock()
	defer m.longMu.Unlock()
	if len(m.long) != 1 || m.long[0].Date != twoDaysAgoDate {
		t.Fatalf("expected one archived long entry for %s, got %+v", twoDaysAgoDate, m.long)
	}
}

func TestFallbackSummaryIncludesAllEntries(t *testing.T) {
	entries := []MediumEntry{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "second"},
	}
	summary := fallbackSummary(entries)
	if summary == "" {
		t.Fatalf("expected non-empty fallback summary")
	}
}
