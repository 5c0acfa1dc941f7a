package main

import (
	"context"
	"fmt"

	"github.com/cortexcore/cortex/internal/config"
)

// runToolsList prints every manifest discovered under the configured tool
// install directory, with its enabled/running state.
func runToolsList(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	registry := buildRegistryForInspection(cfg)
	if err := registry.DiscoverManifests(); err != nil {
		return fmt.Errorf("discover tool manifests: %w", err)
	}
	applyToolOverrides(registry, cfg.Tools)

	manifests := registry.ListManifests()
	if len(manifests) == 0 {
		fmt.Println("no tools discovered")
		return nil
	}

	for _, m := range manifests {
		state := "disabled"
		if registry.IsEnabled(m.ToolName) {
			state = "enabled"
		}
		if registry.IsRunning(m.ToolName) {
			state += ",running"
		}
		fmt.Printf("%-20s %-10s commands=%v timeout=%.0fs cooldown=%.0fs\n",
			m.ToolName, state, m.AvailableCommands, m.TimeoutSeconds, m.CooldownSeconds)
	}
	return nil
}
