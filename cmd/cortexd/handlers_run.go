package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cortexcore/cortex/internal/actionstate"
	"github.com/cortexcore/cortex/internal/buffer"
	"github.com/cortexcore/cortex/internal/channels"
	"github.com/cortexcore/cortex/internal/channels/discord"
	"github.com/cortexcore/cortex/internal/channels/slack"
	"github.com/cortexcore/cortex/internal/channels/telegram"
	"github.com/cortexcore/cortex/internal/cognition"
	"github.com/cortexcore/cortex/internal/config"
	"github.com/cortexcore/cortex/internal/instructions"
	"github.com/cortexcore/cortex/internal/llm"
	"github.com/cortexcore/cortex/internal/loop"
	"github.com/cortexcore/cortex/internal/memory"
	"github.com/cortexcore/cortex/internal/memory/embeddings"
	embollama "github.com/cortexcore/cortex/internal/memory/embeddings/ollama"
	embopenai "github.com/cortexcore/cortex/internal/memory/embeddings/openai"
	"github.com/cortexcore/cortex/internal/observability"
	"github.com/cortexcore/cortex/internal/reminders"
	"github.com/cortexcore/cortex/internal/tools"
)

// runDaemon wires every component described in SPEC_FULL.md and runs the
// cognitive loop until ctx is cancelled.
func runDaemon(ctx context.Context, configPath, httpAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metrics := observability.NewMetrics()

	embedder, err := buildEmbeddingsProvider(cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("build embeddings provider: %w", err)
	}

	memMgr, err := memory.NewManager(cfg.Memory, embedder, logger)
	if err != nil {
		return fmt.Errorf("build memory manager: %w", err)
	}

	buf := buffer.New(cfg.Agent.ThoughtBufferCapacity, cfg.Agent.Name)
	actions := actionstate.NewManager()
	instr := instructions.NewTracker(cfg.Agent.InstructionGrantTTL)

	registry := tools.NewRegistry(cfg.Tools.InstallDir, logger)
	if err := registry.DiscoverManifests(); err != nil {
		logger.Warn(ctx, "tool discovery failed", "error", err)
	}
	applyToolOverrides(registry, cfg.Tools)
	if cfg.Tools.WatchFS {
		go func() {
			if err := registry.Watch(ctx); err != nil && ctx.Err() == nil {
				logger.Warn(ctx, "tool manifest watch stopped", "error", err)
			}
		}()
	}

	engine := tools.NewEngine(registry, instr, actions, buf, logger)

	llmProvider, err := buildLLMProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("build language model provider: %w", err)
	}

	reminderMgr, err := reminders.NewManager(filepath.Join(cfg.Memory.PersistDir, "reminders"), logger)
	if err != nil {
		return fmt.Errorf("build reminders manager: %w", err)
	}

	cognitiveLoop := loop.New(loop.Deps{
		Config:       cfg.Agent,
		Buffer:       buf,
		ActionState:  actions,
		Memory:       memMgr,
		ToolRegistry: registry,
		Instructions: instr,
		Engine:       engine,
		LLM:          llmProvider,
		LLMConfig:    cfg.LLM,
		Reminders:    reminderMgr,
		Personality: cognition.Personality{
			Thought:  cfg.Agent.PersonalityThought,
			Response: cfg.Agent.PersonalityResponse,
		},
		CoreIdentity: cfg.Agent.CoreIdentity,
		Speak: func(ctx context.Context, text string) {
			logger.Info(ctx, "spoken response", "text", text)
		},
		Logger: logger,
	})

	chanMgr := buildChannelManager(cfg.Channels, cfg.Agent.Name, buf)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if chanMgr != nil {
		go chanMgr.Run(ctx)
	}

	go pollMetrics(ctx, metrics, buf, memMgr)

	var httpServer *http.Server
	if httpAddr != "" {
		httpServer = buildControlServer(httpAddr, cognitiveLoop, memMgr, registry)
		go func() {
			logger.Info(ctx, "control server listening", "addr", httpAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error(ctx, "control server stopped", "error", err)
			}
		}()
	}

	logger.Info(ctx, "cortexd starting", "version", version, "agent", cfg.Agent.Name)

	runErr := cognitiveLoop.Run(ctx)

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}

	if runErr != nil && runErr != context.Canceled {
		return runErr
	}
	return nil
}

func buildEmbeddingsProvider(cfg config.EmbeddingsConfig) (embeddings.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return embopenai.New(embopenai.Config{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL, Model: cfg.Model})
	case "ollama", "":
		return embollama.New(embollama.Config{BaseURL: cfg.BaseURL, Model: cfg.Model})
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Provider)
	}
}

func buildLLMProvider(cfg config.LLMConfig) (llm.Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		return llm.NewAnthropicProvider(llm.AnthropicConfig{
			APIKey:       cfg.AnthropicAPIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		})
	case "ollama", "":
		return llm.NewOllamaProvider(llm.OllamaConfig{
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		}), nil
	default:
		return nil, fmt.Errorf("unknown language model provider %q", cfg.Provider)
	}
}

// pollMetrics periodically reflects the buffer's and memory subsystem's
// in-memory counters into the Prometheus gauges, since neither is on the
// cognitive loop's own hot path and polling is cheap relative to a tick.
func pollMetrics(ctx context.Context, metrics *observability.Metrics, buf *buffer.Buffer, mem *memory.Manager) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.ThoughtBufferSize.Set(float64(buf.ThoughtCount()))
			metrics.PendingEvents.Set(float64(buf.PendingEventCount()))

			shortN, mediumN, longN, baseN := mem.TierSizes()
			metrics.SetMemoryTierSize("short", shortN)
			metrics.SetMemoryTierSize("medium", mediumN)
			metrics.SetMemoryTierSize("long", longN)
			metrics.SetMemoryTierSize("base", baseN)
		}
	}
}

// applyToolOverrides pushes per-tool timeout/cooldown overrides from config
// onto the discovered manifests, and auto-enables any tool the config marks
// enabled (spec §4.3).
func applyToolOverrides(registry *tools.Registry, cfg config.ToolsConfig) {
	for name, override := range cfg.Overrides {
		m, ok := registry.GetManifest(name)
		if !ok {
			logger.Warn(context.Background(), "tool override for undiscovered tool", "tool", name)
			continue
		}
		if override.TimeoutSeconds > 0 {
			m.TimeoutSeconds = override.TimeoutSeconds
		}
		if override.CooldownSeconds > 0 {
			m.CooldownSeconds = override.CooldownSeconds
		}
		if override.Enabled {
			if err := registry.Enable(context.Background(), name); err != nil {
				logger.Warn(context.Background(), "failed to auto-enable tool", "tool", name, "error", err)
			}
		}
	}
}

func buildChannelManager(cfg config.ChannelsConfig, agentName string, sink channels.Sink) *channels.Manager {
	var adapters []channels.Adapter

	if cfg.Discord.Enabled {
		tag := "@" + agentName
		if a, err := discord.New(discord.Config{BotToken: cfg.Discord.Token, AgentTag: tag}, sink); err != nil {
			logger.Warn(context.Background(), "discord adapter disabled", "error", err)
		} else {
			adapters = append(adapters, a)
		}
	}
	if cfg.Telegram.Enabled {
		if a, err := telegram.New(telegram.Config{BotToken: cfg.Telegram.Token, AgentName: agentName}, sink); err != nil {
			logger.Warn(context.Background(), "telegram adapter disabled", "error", err)
		} else {
			adapters = append(adapters, a)
		}
	}
	if cfg.Slack.Enabled {
		if a, err := slack.New(slack.Config{BotToken: cfg.Slack.BotToken, AppToken: cfg.Slack.AppToken}, sink); err != nil {
			logger.Warn(context.Background(), "slack adapter disabled", "error", err)
		} else {
			adapters = append(adapters, a)
		}
	}

	if len(adapters) == 0 {
		return nil
	}
	return channels.NewManager(logger, adapters...)
}

// buildControlServer exposes /healthz, /status, and /metrics over HTTP,
// grounded on the teacher's chi-based gateway HTTP surface.
func buildControlServer(addr string, l *loop.Loop, mem *memory.Manager, registry *tools.Registry) *http.Server {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		stats := l.GetPerformanceStats()
		shortN, mediumN, longN, baseN := mem.TierSizes()
		fmt.Fprintf(w, "ticks=%d thoughts=%d actions=%d responses=%d llm_failures=%d last_mode=%s\n",
			stats.Ticks, stats.ThoughtsProduced, stats.ActionsDispatched, stats.ResponsesSpoken, stats.LLMFailures, stats.LastMode)
		fmt.Fprintf(w, "memory: short=%d medium=%d long=%d base=%d\n", shortN, mediumN, longN, baseN)
		fmt.Fprintf(w, "tools: %d enabled of %d discovered\n", len(registry.EnabledToolNames()), len(registry.ListManifests()))
	})
	r.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: r}
}
