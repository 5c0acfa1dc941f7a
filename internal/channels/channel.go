// Package channels provides thin chat-platform adapters. Each adapter opens
// a connection to its platform and forwards inbound text into a Sink; it
// does not reimplement attachments, voice, or any other platform-specific
// pipeline beyond plain text messages.
package channels

import "context"

// Sink receives inbound chat messages from a platform adapter.
// Implemented by *buffer.Buffer (IngestChatMessage).
type Sink interface {
	IngestChatMessage(platform, username, message string, hasBotMention bool) uint64
}

// Adapter is a running connection to a single chat platform.
type Adapter interface {
	// Platform returns the adapter's platform name (discord, telegram, slack).
	Platform() string

	// Run connects and blocks forwarding inbound messages into the sink
	// until ctx is cancelled or an unrecoverable error occurs.
	Run(ctx context.Context) error
}
