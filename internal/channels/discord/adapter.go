// Package discord is a thin Discord chat adapter.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/cortexcore/cortex/internal/channels"
)

// Config configures the Discord adapter.
type Config struct {
	BotToken string
	AgentTag string // mention string checked to set hasBotMention, e.g. "<@123456>"
}

// Adapter is a minimal Discord connection that forwards messages into a Sink.
type Adapter struct {
	cfg  Config
	sink channels.Sink
}

var _ channels.Adapter = (*Adapter)(nil)

// New constructs a Discord adapter.
func New(cfg Config, sink channels.Sink) (*Adapter, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("channels/discord: bot token is required")
	}
	return &Adapter{cfg: cfg, sink: sink}, nil
}

// Platform returns "discord".
func (a *Adapter) Platform() string { return "discord" }

// Run opens a Discord session and forwards inbound messages until ctx is done.
func (a *Adapter) Run(ctx context.Context) error {
	session, err := discordgo.New("Bot " + a.cfg.BotToken)
	if err != nil {
		return fmt.Errorf("channels/discord: create session: %w", err)
	}

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		mentioned := a.cfg.AgentTag != "" && mentionsAgent(m, a.cfg.AgentTag)
		a.sink.IngestChatMessage("discord", m.Author.Username, m.Content, mentioned)
	})

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentMessageContent

	if err := session.Open(); err != nil {
		return fmt.Errorf("channels/discord: open session: %w", err)
	}
	defer session.Close()

	<-ctx.Done()
	return ctx.Err()
}

func mentionsAgent(m *discordgo.MessageCreate, agentTag string) bool {
	for _, u := range m.Mentions {
		if u != nil && ("<@"+u.ID+">" == agentTag || "<@!"+u.ID+">" == agentTag) {
			return true
		}
	}
	return false
}
