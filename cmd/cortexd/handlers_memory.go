package main

import (
	"context"
	"fmt"

	"github.com/cortexcore/cortex/internal/config"
	"github.com/cortexcore/cortex/internal/memory"
	"github.com/cortexcore/cortex/internal/memory/embeddings"
	"github.com/cortexcore/cortex/internal/tools"
)

// buildMemoryManagerForInspection loads the memory subsystem the same way
// the daemon does, for one-shot CLI reads. Embedder construction never
// makes a network call, so this stays cheap.
func buildMemoryManagerForInspection(cfg *config.Config, embedder embeddings.Provider) (*memory.Manager, error) {
	return memory.NewManager(cfg.Memory, embedder, logger)
}

func buildRegistryForInspection(cfg *config.Config) *tools.Registry {
	return tools.NewRegistry(cfg.Tools.InstallDir, logger)
}

// runMemoryInspect prints tier sizes and the most recent entries of each
// memory tier.
func runMemoryInspect(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	embedder, err := buildEmbeddingsProvider(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("build embeddings provider: %w", err)
	}

	mem, err := buildMemoryManagerForInspection(cfg, embedder)
	if err != nil {
		return fmt.Errorf("load memory subsystem: %w", err)
	}

	snap := mem.Snapshot()
	fmt.Printf("short-term: %d entries\n", len(snap.Short))
	for _, e := range lastN(snap.Short, 5) {
		fmt.Printf("  [%s] %s: %s\n", e.Date, e.Role, truncate(e.Content, 80))
	}

	fmt.Printf("medium-term: %d entries\n", len(snap.Medium))
	for _, e := range lastN(snap.Medium, 5) {
		fmt.Printf("  [%s] %s: %s\n", e.Date, e.Role, truncate(e.Content, 80))
	}

	fmt.Printf("long-term: %d entries\n", len(snap.Long))
	for _, e := range lastN(snap.Long, 5) {
		fmt.Printf("  [%s] (%d entries) %s\n", e.Date, e.EntryCount, truncate(e.Summary, 100))
	}

	return nil
}

func lastN[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
