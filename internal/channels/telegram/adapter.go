// Package telegram is a thin Telegram chat adapter.
package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/cortexcore/cortex/internal/channels"
)

// Config configures the Telegram adapter.
type Config struct {
	BotToken string
	AgentName string // checked against the update text for @mentions
}

// Adapter is a minimal Telegram connection that forwards messages into a Sink.
type Adapter struct {
	cfg Config
	sink channels.Sink
	b   *bot.Bot
}

var _ channels.Adapter = (*Adapter)(nil)

// New constructs a Telegram adapter.
func New(cfg Config, sink channels.Sink) (*Adapter, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("channels/telegram: bot token is required")
	}
	a := &Adapter{cfg: cfg, sink: sink}

	b, err := bot.New(cfg.BotToken, bot.WithDefaultHandler(a.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("channels/telegram: create bot: %w", err)
	}
	a.b = b
	return a, nil
}

// Platform returns "telegram".
func (a *Adapter) Platform() string { return "telegram" }

// Run starts the long-polling loop until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	a.b.Start(ctx)
	return ctx.Err()
}

func (a *Adapter) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil || update.Message.From == nil {
		return
	}
	text := update.Message.Text
	mentioned := a.cfg.AgentName != "" && strings.Contains(strings.ToLower(text), "@"+strings.ToLower(a.cfg.AgentName))
	a.sink.IngestChatMessage("telegram", update.Message.From.Username, text, mentioned)
}
