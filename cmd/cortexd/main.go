// Package main provides the CLI entry point for cortexd, the cognitive
// core's single persistent process: one thought buffer, one tool registry,
// one memory subsystem, and the cognitive loop that ties them together.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cortexcore/cortex/internal/observability"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// defaultConfigPath is where cortexd looks for its configuration when
// --config is not given.
const defaultConfigPath = "./cortex.yaml"

// logger is the process-wide redacting logger, wired through every
// component constructor in place of a bare *slog.Logger.
var logger = observability.NewLogger(observability.LogConfig{
	Level:  "info",
	Format: "json",
	Output: os.Stderr,
})

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		logger.Error(context.Background(), "command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cortexd",
		Short: "cortexd - the cognitive core of an autonomous conversational agent",
		Long: `cortexd runs a single cognitive loop: a thought buffer, a four-tier
memory subsystem, a tool registry and execution engine, and a response
decider that picks when to think silently and when to speak.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildStatusCmd(),
		buildMemoryCmd(),
		buildToolsCmd(),
	)

	return rootCmd
}
