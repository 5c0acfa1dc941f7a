package main

import (
	"context"
	"fmt"
	"os"

	"github.com/cortexcore/cortex/internal/config"
)

// runStatus prints a one-shot summary read directly from persisted state.
// There is no RPC layer to a running cortexd process; this inspects the
// same on-disk directories the daemon reads and writes.
func runStatus(ctx context.Context, configPath string) error {
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
	shortN, mediumN, longN, baseN := mem.TierSizes()

	registry := buildRegistryForInspection(cfg)
	if err := registry.DiscoverManifests(); err != nil {
		fmt.Fprintf(os.Stderr, "tool discovery warning: %v\n", err)
	}

	fmt.Printf("agent: %s\n", cfg.Agent.Name)
	fmt.Printf("memory: short=%d medium=%d long=%d base=%d\n", shortN, mediumN, longN, baseN)
	fmt.Printf("tools: %d discovered, %d enabled\n", len(registry.ListManifests()), len(registry.EnabledToolNames()))
	fmt.Printf("llm provider: %s (%s)\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Printf("embeddings provider: %s (%s)\n", cfg.Embeddings.Provider, cfg.Embeddings.Model)
	return nil
}
