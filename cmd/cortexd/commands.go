package main

import "github.com/spf13/cobra"

// buildRunCmd creates the "run" command that starts the cognitive loop.
func buildRunCmd() *cobra.Command {
	var (
		configPath string
		httpAddr   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the cognitive loop",
		Long: `Start cortexd's cognitive loop: drain events, decide a mode, construct
a prompt, call the language model, parse and dispatch actions, and speak
when the decider says to.

Graceful shutdown is handled on SIGINT/SIGTERM, on the configured kill
phrase arriving through a channel, and on --http's /shutdown endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), configPath, httpAddr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().StringVar(&httpAddr, "http", "", "Optional bind address exposing /status, /healthz, and /metrics")
	return cmd
}

// buildStatusCmd creates the "status" command, a one-shot health summary
// read directly from persisted state rather than a running process.
func buildStatusCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print a one-shot summary of persisted state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

// buildMemoryCmd creates the "memory" command group.
func buildMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect the persisted memory subsystem",
	}
	cmd.AddCommand(buildMemoryInspectCmd())
	return cmd
}

func buildMemoryInspectCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print tier sizes and the most recent entries of each memory tier",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemoryInspect(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}

// buildToolsCmd creates the "tools" command group.
func buildToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the tool registry",
	}
	cmd.AddCommand(buildToolsListCmd())
	return cmd
}

func buildToolsListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every discovered tool manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToolsList(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}
