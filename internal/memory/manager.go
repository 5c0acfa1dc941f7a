package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cortexcore/cortex/internal/config"
	"github.com/cortexcore/cortex/internal/memory/embeddings"
	"github.com/cortexcore/cortex/internal/observability"
)

// Manager composes the four memory tiers behind a coarse per-tier mutex
// (spec §5: "a single coarse lock per tier is sufficient" — there is no
// per-entry locking anywhere in this package).
type Manager struct {
	cfg      config.MemoryConfig
	embedder embeddings.Provider
	logger   *observability.Logger

	shortMu sync.Mutex
	short   []ShortEntry

	mediumMu sync.Mutex
	medium   []MediumEntry

	longMu sync.Mutex
	long   []LongEntry

	// baseMu guards only the rare reload of the base corpus; reads during
	// search take a read lock since the corpus is otherwise immutable.
	baseMu            sync.RWMutex
	base              []BaseChunk
	thoughtExamples   []BaseChunk
	responseExamples  []BaseChunk

	// today is the calendar day (YYYY-MM-DD) the in-memory short/medium
	// tiers currently consider "today"; RotateIfNewDay compares against it.
	today string
}

// NewManager constructs a Manager, loading the base-knowledge corpus and any
// persisted short/medium/long tiers from cfg.PersistDir.
func NewManager(cfg config.MemoryConfig, embedder embeddings.Provider, logger *observability.Logger) (*Manager, error) {
	if logger == nil {
		logger = observability.NewLogger(observability.LogConfig{})
	}

	base, err := LoadBaseKnowledge(cfg.BaseKnowledgeDir)
	if err != nil {
		return nil, err
	}
	thoughtExamples, responseExamples := PartitionPersonalityExamples(base)

	m := &Manager{
		cfg:              cfg,
		embedder:         embedder,
		logger:           logger,
		base:             base,
		thoughtExamples:  thoughtExamples,
		responseExamples: responseExamples,
		today:            today(),
	}

	store := newStore(cfg.PersistDir)
	short, medium, long, err := store.loadAll()
	if err != nil {
		return nil, err
	}
	m.short = short
	m.medium = medium
	m.long = long

	logger.Info(context.Background(), "memory subsystem loaded",
		"base_chunks", len(base),
		"thought_examples", len(thoughtExamples),
		"response_examples", len(responseExamples),
		"short_entries", len(short),
		"medium_entries", len(medium),
		"long_entries", len(long),
	)
	return m, nil
}

func today() string {
	return time.Now().Format("2006-01-02")
}

func yesterday() string {
	return time.Now().AddDate(0, 0, -1).Format("2006-01-02")
}

// store returns a persistence helper bound to this Manager's configured
// directory, used by both mutation methods and tests.
func (m *Manager) store() *store {
	return newStore(m.cfg.PersistDir)
}

// Snapshot returns copies of the current tier contents, for inspection
// (e.g. a "memory inspect" CLI subcommand) without holding any lock open.
type Snapshot struct {
	Short  []ShortEntry
	Medium []MediumEntry
	Long   []LongEntry
}

func (m *Manager) Snapshot() Snapshot {
	m.shortMu.Lock()
	short := append([]ShortEntry(nil), m.short...)
	m.shortMu.Unlock()

	m.mediumMu.Lock()
	medium := append([]MediumEntry(nil), m.medium...)
	m.mediumMu.Unlock()

	m.longMu.Lock()
	long := append([]LongEntry(nil), m.long...)
	m.longMu.Unlock()

	return Snapshot{Short: short, Medium: medium, Long: long}
}

// TierSizes reports the current entry count of each tier, for the
// cognition/observability ThoughtBufferSize-style gauges.
func (m *Manager) TierSizes() (shortN, mediumN, longN, baseN int) {
	m.shortMu.Lock()
	shortN = len(m.short)
	m.shortMu.Unlock()

	m.mediumMu.Lock()
	mediumN = len(m.medium)
	m.mediumMu.Unlock()

	m.longMu.Lock()
	longN = len(m.long)
	m.longMu.Unlock()

	m.baseMu.RLock()
	baseN = len(m.base)
	m.baseMu.RUnlock()
	return
}
