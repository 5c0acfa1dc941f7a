package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// store handles atomic JSON persistence of the short/medium/long tiers
// (spec §6: short_memory.json, medium_memory.json, long_memory.json).
type store struct {
	dir string
}

func newStore(dir string) *store {
	return &store{dir: dir}
}

const (
	shortFileName  = "short_memory.json"
	mediumFileName = "medium_memory.json"
	longFileName   = "long_memory.json"
)

func (s *store) loadAll() ([]ShortEntry, []MediumEntry, []LongEntry, error) {
	short, err := loadJSONSlice[ShortEntry](filepath.Join(s.dir, shortFileName))
	if err != nil {
		return nil, nil, nil, err
	}
	medium, err := loadJSONSlice[MediumEntry](filepath.Join(s.dir, mediumFileName))
	if err != nil {
		return nil, nil, nil, err
	}
	long, err := loadJSONSlice[LongEntry](filepath.Join(s.dir, longFileName))
	if err != nil {
		return nil, nil, nil, err
	}
	return short, medium, long, nil
}

func loadJSONSlice[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

func (s *store) saveShort(entries []ShortEntry) error {
	return saveJSONSlice(s, shortFileName, entries)
}

func (s *store) saveMedium(entries []MediumEntry) error {
	return saveJSONSlice(s, mediumFileName, entries)
}

func (s *store) saveLong(entries []LongEntry) error {
	return saveJSONSlice(s, longFileName, entries)
}

// saveJSONSlice writes entries to name under s.dir by writing to a temp
// file and renaming over the target, so a crash mid-write never corrupts
// the persisted tier (grounded on nexus's config/loader atomic-write
// convention). A nil slice is written as "[]", never JSON null.
func saveJSONSlice[T any](s *store, name string, entries []T) error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}

	if entries == nil {
		entries = []T{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
