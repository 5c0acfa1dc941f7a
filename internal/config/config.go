// Package config implements layered YAML configuration loading for the
// cognitive core: $include directive resolution plus an os.ExpandEnv
// pre-pass, grounded on nexus's internal/config/loader.go LoadRaw/mergeMaps
// pattern (spec.md SPEC_FULL AMBIENT STACK).
package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration for cortexd (SPEC_FULL AMBIENT
// STACK): one section per cooperating component of the cognitive core.
type Config struct {
	Version int `yaml:"version"`

	Agent         AgentConfig         `yaml:"agent"`
	LLM           LLMConfig           `yaml:"llm"`
	Embeddings    EmbeddingsConfig    `yaml:"embeddings"`
	Memory        MemoryConfig        `yaml:"memory"`
	Tools         ToolsConfig         `yaml:"tools"`
	Channels      ChannelsConfig      `yaml:"channels"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// AgentConfig names the agent, the kill phrase that triggers immediate
// shutdown (spec §6), and the proactive tick pacing bounds (spec §4.8).
type AgentConfig struct {
	Name string `yaml:"name"`

	// KillPhrase is matched case-insensitively against incoming text, as
	// its very first statement, before any ingestion (SPEC_FULL
	// SUPPLEMENTED FEATURES).
	KillPhrase        string `yaml:"kill_phrase"`
	ShutdownNotice    string `yaml:"shutdown_notice"`

	MinProactiveInterval time.Duration `yaml:"min_proactive_interval"`
	MaxProactiveInterval time.Duration `yaml:"max_proactive_interval"`

	// ChatPromotionWindow and ReminderCheckInterval are configurable
	// rate-limit windows (spec §9 Open Questions, resolved in SPEC_FULL).
	ChatPromotionWindow  time.Duration `yaml:"chat_promotion_window"`
	ReminderCheckInterval time.Duration `yaml:"reminder_check_interval"`

	ThoughtBufferCapacity int `yaml:"thought_buffer_capacity"`

	// StartupThoughtThreshold is consulted both to force REFLECTIVE mode
	// at startup and to decide context_flags.needs_personality_examples
	// (spec §4.7, §9 Open Question, unified in SPEC_FULL).
	StartupThoughtThreshold int `yaml:"startup_thought_threshold"`

	// MemoryIntegrationInterval paces the background maintenance step
	// (spec §4.8 step 10, default 120s).
	MemoryIntegrationInterval time.Duration `yaml:"memory_integration_interval"`

	// InstructionGrantTTL is the instruction-persistence grant window
	// (spec §4.5, default 360s).
	InstructionGrantTTL time.Duration `yaml:"instruction_grant_ttl"`

	// ActionCleanupMaxAge bounds how long terminal actions are retained
	// (spec §4.2, default 300s).
	ActionCleanupMaxAge time.Duration `yaml:"action_cleanup_max_age"`

	// CoreIdentity and the two Personality strings are the fixed
	// per-stage injection text the startup special case and every prompt
	// constructor draw from (spec §4.7).
	CoreIdentity         string `yaml:"core_identity"`
	PersonalityThought   string `yaml:"personality_thought"`
	PersonalityResponse  string `yaml:"personality_response"`
}

// LLMConfig configures the language-model HTTP endpoint (spec §6).
type LLMConfig struct {
	Provider string `yaml:"provider"` // anthropic, ollama

	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	TopK        int     `yaml:"top_k"`
	NumPredict  int     `yaml:"num_predict"`
	NumCtx      int     `yaml:"num_ctx"`
	RepeatPenalty float64 `yaml:"repeat_penalty"`
	KeepAlive   string  `yaml:"keep_alive"`
	Seed        *int64  `yaml:"seed"`

	Timeout time.Duration `yaml:"timeout"`

	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	BaseURL         string `yaml:"base_url"`
}

// EmbeddingsConfig configures the embedding HTTP endpoint (spec §6).
type EmbeddingsConfig struct {
	Provider  string `yaml:"provider"` // openai, ollama
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
}

// MemoryConfig configures the four memory tiers and their persistence
// directory (spec §4.6, §6).
type MemoryConfig struct {
	PersistDir string `yaml:"persist_dir"`

	ShortCapacity int `yaml:"short_capacity"`

	// UserWeight/ThoughtsWeight are the combined-query weights (spec §4.6,
	// default 0.6/0.4).
	UserWeight    float64 `yaml:"user_weight"`
	ThoughtsWeight float64 `yaml:"thoughts_weight"`

	// RecentThoughtsForQuery bounds how many recent thoughts feed a
	// combined query (spec §4.6, default 5).
	RecentThoughtsForQuery int `yaml:"recent_thoughts_for_query"`

	// TextDuplicationMaxChars bounds the text-concatenation strategy's
	// output (spec §4.6, default 500).
	TextDuplicationMaxChars int `yaml:"text_duplication_max_chars"`

	BaseKnowledgeDir string `yaml:"base_knowledge_dir"`

	DefaultTopK         int     `yaml:"default_top_k"`
	DefaultMinSimilarity float64 `yaml:"default_min_similarity"`
}

// ToolsConfig configures tool discovery and per-tool overrides (spec §4.3).
type ToolsConfig struct {
	InstallDir string                       `yaml:"install_dir"`
	WatchFS    bool                         `yaml:"watch_fs"`
	Overrides  map[string]ToolOverrideConfig `yaml:"overrides"`
}

// ToolOverrideConfig overrides a discovered manifest's timeout/cooldown.
type ToolOverrideConfig struct {
	TimeoutSeconds  float64 `yaml:"timeout_seconds"`
	CooldownSeconds float64 `yaml:"cooldown_seconds"`
	Enabled         bool    `yaml:"enabled"`
}

// ChannelsConfig configures the out-of-scope chat-platform adapter stubs
// (spec §1).
type ChannelsConfig struct {
	Discord  DiscordConfig  `yaml:"discord"`
	Telegram TelegramConfig `yaml:"telegram"`
	Slack    SlackConfig    `yaml:"slack"`
}

type DiscordConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

type SlackConfig struct {
	Enabled   bool   `yaml:"enabled"`
	BotToken  string `yaml:"bot_token"`
	AppToken  string `yaml:"app_token"`
}

// ObservabilityConfig configures structured logging and metrics (SPEC_FULL
// AMBIENT STACK/DOMAIN STACK).
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // json, text

	MetricsBindAddr string `yaml:"metrics_bind_addr"`
}

// Default returns a Config with every default named throughout spec.md and
// SPEC_FULL.md.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Agent: AgentConfig{
			Name:                      "assistant",
			KillPhrase:                "shut down now",
			ShutdownNotice:            "Shutting down.",
			MinProactiveInterval:      15 * time.Second,
			MaxProactiveInterval:      120 * time.Second,
			ChatPromotionWindow:       2 * time.Second,
			ReminderCheckInterval:     30 * time.Second,
			ThoughtBufferCapacity:     25,
			StartupThoughtThreshold:   3,
			MemoryIntegrationInterval: 120 * time.Second,
			InstructionGrantTTL:       360 * time.Second,
			ActionCleanupMaxAge:       300 * time.Second,
			CoreIdentity:              "I am a cognitive core running as a single persistent loop: I think before I speak, I remember across days, and I only act through registered tools.",
			PersonalityThought:        "Think plainly and concretely. Note what changed and what it implies; do not perform enthusiasm for an internal thought no one reads.",
			PersonalityResponse:       "Reply warmly and concisely, like a capable colleague who respects the other person's time.",
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			Model:       "llama3",
			Temperature: 0.7,
			TopP:        0.9,
			TopK:        40,
			NumPredict:  512,
			NumCtx:      4096,
			KeepAlive:   "5m",
			Timeout:     30 * time.Second,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			Dimension: 768,
			Timeout:   15 * time.Second,
		},
		Memory: MemoryConfig{
			PersistDir:              "./data/memory",
			ShortCapacity:           25,
			UserWeight:              0.6,
			ThoughtsWeight:          0.4,
			RecentThoughtsForQuery:  5,
			TextDuplicationMaxChars: 500,
			BaseKnowledgeDir:        "./data/base_knowledge",
			DefaultTopK:             5,
			DefaultMinSimilarity:    0.5,
		},
		Tools: ToolsConfig{
			InstallDir: "./tools",
			WatchFS:    true,
		},
		Observability: ObservabilityConfig{
			LogLevel:        "info",
			LogFormat:       "json",
			MetricsBindAddr: ":9090",
		},
	}
}

// Load reads path (resolving $include directives), merges it over the
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	if err := ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults fills zero-valued fields from Default() so a minimal config
// file only needs to override what it cares about.
func applyDefaults(cfg *Config) {
	d := Default()

	if cfg.Agent.Name == "" {
		cfg.Agent.Name = d.Agent.Name
	}
	if cfg.Agent.KillPhrase == "" {
		cfg.Agent.KillPhrase = d.Agent.KillPhrase
	}
	if cfg.Agent.ShutdownNotice == "" {
		cfg.Agent.ShutdownNotice = d.Agent.ShutdownNotice
	}
	if cfg.Agent.MinProactiveInterval == 0 {
		cfg.Agent.MinProactiveInterval = d.Agent.MinProactiveInterval
	}
	if cfg.Agent.MaxProactiveInterval == 0 {
		cfg.Agent.MaxProactiveInterval = d.Agent.MaxProactiveInterval
	}
	if cfg.Agent.ChatPromotionWindow == 0 {
		cfg.Agent.ChatPromotionWindow = d.Agent.ChatPromotionWindow
	}
	if cfg.Agent.ReminderCheckInterval == 0 {
		cfg.Agent.ReminderCheckInterval = d.Agent.ReminderCheckInterval
	}
	if cfg.Agent.ThoughtBufferCapacity == 0 {
		cfg.Agent.ThoughtBufferCapacity = d.Agent.ThoughtBufferCapacity
	}
	if cfg.Agent.StartupThoughtThreshold == 0 {
		cfg.Agent.StartupThoughtThreshold = d.Agent.StartupThoughtThreshold
	}
	if cfg.Agent.MemoryIntegrationInterval == 0 {
		cfg.Agent.MemoryIntegrationInterval = d.Agent.MemoryIntegrationInterval
	}
	if cfg.Agent.InstructionGrantTTL == 0 {
		cfg.Agent.InstructionGrantTTL = d.Agent.InstructionGrantTTL
	}
	if cfg.Agent.ActionCleanupMaxAge == 0 {
		cfg.Agent.ActionCleanupMaxAge = d.Agent.ActionCleanupMaxAge
	}
	if cfg.Agent.CoreIdentity == "" {
		cfg.Agent.CoreIdentity = d.Agent.CoreIdentity
	}
	if cfg.Agent.PersonalityThought == "" {
		cfg.Agent.PersonalityThought = d.Agent.PersonalityThought
	}
	if cfg.Agent.PersonalityResponse == "" {
		cfg.Agent.PersonalityResponse = d.Agent.PersonalityResponse
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = d.LLM.Provider
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = d.LLM.Model
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = d.LLM.Timeout
	}
	if cfg.LLM.NumCtx == 0 {
		cfg.LLM.NumCtx = d.LLM.NumCtx
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = d.Embeddings.Provider
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = d.Embeddings.Model
	}
	if cfg.Embeddings.Dimension == 0 {
		cfg.Embeddings.Dimension = d.Embeddings.Dimension
	}
	if cfg.Embeddings.Timeout == 0 {
		cfg.Embeddings.Timeout = d.Embeddings.Timeout
	}

	if cfg.Memory.PersistDir == "" {
		cfg.Memory.PersistDir = d.Memory.PersistDir
	}
	if cfg.Memory.ShortCapacity == 0 {
		cfg.Memory.ShortCapacity = d.Memory.ShortCapacity
	}
	if cfg.Memory.UserWeight == 0 && cfg.Memory.ThoughtsWeight == 0 {
		cfg.Memory.UserWeight = d.Memory.UserWeight
		cfg.Memory.ThoughtsWeight = d.Memory.ThoughtsWeight
	}
	if cfg.Memory.RecentThoughtsForQuery == 0 {
		cfg.Memory.RecentThoughtsForQuery = d.Memory.RecentThoughtsForQuery
	}
	if cfg.Memory.TextDuplicationMaxChars == 0 {
		cfg.Memory.TextDuplicationMaxChars = d.Memory.TextDuplicationMaxChars
	}
	if cfg.Memory.BaseKnowledgeDir == "" {
		cfg.Memory.BaseKnowledgeDir = d.Memory.BaseKnowledgeDir
	}
	if cfg.Memory.DefaultTopK == 0 {
		cfg.Memory.DefaultTopK = d.Memory.DefaultTopK
	}
	if cfg.Memory.DefaultMinSimilarity == 0 {
		cfg.Memory.DefaultMinSimilarity = d.Memory.DefaultMinSimilarity
	}

	if cfg.Tools.InstallDir == "" {
		cfg.Tools.InstallDir = d.Tools.InstallDir
	}

	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = d.Observability.LogLevel
	}
	if cfg.Observability.LogFormat == "" {
		cfg.Observability.LogFormat = d.Observability.LogFormat
	}
	if cfg.Observability.MetricsBindAddr == "" {
		cfg.Observability.MetricsBindAddr = d.Observability.MetricsBindAddr
	}
}
