package memory

import (
	"context"
	"time"
)

// AddEntry appends a new Tier 1 (Short) entry for today, embedding and
// demoting the oldest entries into Tier 2 (Medium) once ShortCapacity is
// exceeded (spec §3: "Short... bounded 25" by default).
//
// Embedding failures during overflow are logged and swallowed rather than
// rejecting the whole call (spec §7 EmbeddingUnavailable: memory writes must
// never block on embedding availability).
func (m *Manager) AddEntry(ctx context.Context, role Role, content string) error {
	entry := ShortEntry{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		Date:      today(),
	}

	var overflow []ShortEntry
	m.shortMu.Lock()
	m.short = append(m.short, entry)
	capacity := m.cfg.ShortCapacity
	if capacity <= 0 {
		capacity = 25
	}
	if len(m.short) > capacity {
		n := len(m.short) - capacity
		overflow = append(overflow, m.short[:n]...)
		m.short = m.short[n:]
	}
	m.shortMu.Unlock()

	if len(overflow) > 0 {
		m.demoteToMedium(ctx, overflow)
	}

	return m.store().saveShort(m.snapshotShort())
}

func (m *Manager) snapshotShort() []ShortEntry {
	m.shortMu.Lock()
	defer m.shortMu.Unlock()
	return append([]ShortEntry(nil), m.short...)
}

func (m *Manager) snapshotMedium() []MediumEntry {
	m.mediumMu.Lock()
	defer m.mediumMu.Unlock()
	return append([]MediumEntry(nil), m.medium...)
}

// demoteToMedium embeds each overflowed short entry and appends it to Tier
// 2, persisting the updated medium tier once. A record whose embedding
// fails (or for which no embedder is configured) is dropped entirely — it
// is not retained in Tier 2 unembedded (spec §4.6: "failed embeddings are
// skipped; the corresponding record is not retained in Tier 2").
func (m *Manager) demoteToMedium(ctx context.Context, entries []ShortEntry) {
	promoted := make([]MediumEntry, 0, len(entries))
	for _, e := range entries {
		if m.embedder == nil {
			m.logger.Warn("memory: no embedder configured, dropping overflow entry")
			continue
		}
		embedding, err := m.embedder.Embed(ctx, e.Content)
		if err != nil {
			m.logger.Warn("memory: failed to embed overflow entry, dropping", "error", err)
			continue
		}
		promoted = append(promoted, MediumEntry{
			Role:      e.Role,
			Content:   e.Content,
			Timestamp: e.Timestamp,
			Date:      e.Date,
			Embedding: embedding,
		})
	}

	m.mediumMu.Lock()
	m.medium = append(m.medium, promoted...)
	m.mediumMu.Unlock()

	if err := m.store().saveMedium(m.snapshotMedium()); err != nil {
		m.logger.Warn("memory: failed to persist medium tier", "error", err)
	}
}

// Summarizer condenses a full day's medium-tier entries into one summary
// string for archival into Tier 3 (spec §3). The loop supplies an
// LLM-backed implementation; tests may supply a trivial one.
type Summarizer func(ctx context.Context, date string, entries []MediumEntry) (string, error)

// RotateIfNewDay performs the daily rotation spec §3 describes: once the
// calendar day changes, yesterday's medium-tier entries (now two days old)
// are summarized into a single Tier 3 entry and dropped from Tier 2, and
// today's short-tier entries become yesterday's medium-tier entries.
//
// It is safe to call every tick; it is a no-op unless the day has actually
// advanced since the last successful rotation.
func (m *Manager) RotateIfNewDay(ctx context.Context, summarize Summarizer) error {
	now := today()
	if now == m.today {
		return nil
	}
	m.today = now

	// Whatever was "yesterday" relative to the day that just ended is now
	// at least two days old and must leave Tier 2 for Tier 3.
	twoDaysAgoDate := time.Now().AddDate(0, 0, -2).Format("2006-01-02")

	m.mediumMu.Lock()
	var toArchive, keep []MediumEntry
	for _, e := range m.medium {
		if e.Date == twoDaysAgoDate {
			toArchive = append(toArchive, e)
		} else {
			keep = append(keep, e)
		}
	}
	m.medium = keep
	m.mediumMu.Unlock()

	if len(toArchive) > 0 {
		if err := m.archiveDay(ctx, twoDaysAgoDate, toArchive, summarize); err != nil {
			m.logger.Warn("memory: failed to archive day", "date", twoDaysAgoDate, "error", err)
		}
	}

	// Today's short-tier entries become yesterday's medium-tier entries;
	// Tier 1 starts the new day empty.
	m.shortMu.Lock()
	becomingYesterday := append([]ShortEntry(nil), m.short...)
	m.short = nil
	m.shortMu.Unlock()

	if len(becomingYesterday) > 0 {
		m.demoteToMedium(ctx, becomingYesterday)
	}
	if err := m.store().saveShort(nil); err != nil {
		m.logger.Warn("memory: failed to persist short tier after rotation", "error", err)
	}

	return nil
}

func (m *Manager) archiveDay(ctx context.Context, date string, entries []MediumEntry, summarize Summarizer) error {
	var summary string
	var err error
	if summarize != nil {
		summary, err = summarize(ctx, date, entries)
		if err != nil {
			return err
		}
	} else {
		summary = fallbackSummary(entries)
	}

	var embedding []float32
	if m.embedder != nil {
		if v, embedErr := m.embedder.Embed(ctx, summary); embedErr == nil {
			embedding = v
		} else {
			m.logger.Warn("memory: failed to embed day summary", "date", date, "error", embedErr)
		}
	}

	m.longMu.Lock()
	m.long = append(m.long, LongEntry{
		Date:       date,
		Summary:    summary,
		Embedding:  embedding,
		EntryCount: len(entries),
		Timestamp:  time.Now(),
	})
	longSnapshot := append([]LongEntry(nil), m.long...)
	m.longMu.Unlock()

	if err := m.store().saveMedium(m.snapshotMedium()); err != nil {
		return err
	}
	return m.store().saveLong(longSnapshot)
}

// fallbackSummary concatenates entry contents when no Summarizer is
// configured, so archival never silently drops a day's content.
func fallbackSummary(entries []MediumEntry) string {
	var out string
	for i, e := range entries {
		if i > 0 {
			out += " "
		}
		out += string(e.Role) + ": " + e.Content
	}
	return out
}
