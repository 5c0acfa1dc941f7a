// Package slack is a thin Slack chat adapter.
package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/cortexcore/cortex/internal/channels"
)

// Config configures the Slack adapter.
type Config struct {
	BotToken   string
	AppToken   string
	BotUserID  string // checked against mention syntax "<@BOTID>"
}

// Adapter is a minimal Slack socket-mode connection that forwards messages
// into a Sink.
type Adapter struct {
	cfg    Config
	sink   channels.Sink
	client *socketmode.Client
}

var _ channels.Adapter = (*Adapter)(nil)

// New constructs a Slack adapter.
func New(cfg Config, sink channels.Sink) (*Adapter, error) {
	if cfg.BotToken == "" || cfg.AppToken == "" {
		return nil, fmt.Errorf("channels/slack: bot token and app token are required")
	}

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))
	client := socketmode.New(api)

	return &Adapter{cfg: cfg, sink: sink, client: client}, nil
}

// Platform returns "slack".
func (a *Adapter) Platform() string { return "slack" }

// Run starts the socket-mode event loop until ctx is cancelled.
func (a *Adapter) Run(ctx context.Context) error {
	go a.consumeEvents(ctx)
	return a.client.RunContext(ctx)
}

func (a *Adapter) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-a.client.Events:
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			a.client.Ack(*evt.Request)

			if eventsAPIEvent.Type != slackevents.CallbackEvent {
				continue
			}
			switch ev := eventsAPIEvent.InnerEvent.Data.(type) {
			case *slackevents.MessageEvent:
				if ev.BotID != "" {
					continue
				}
				mentioned := a.cfg.BotUserID != "" && strings.Contains(ev.Text, "<@"+a.cfg.BotUserID+">")
				a.sink.IngestChatMessage("slack", ev.User, ev.Text, mentioned)
			}
		}
	}
}
