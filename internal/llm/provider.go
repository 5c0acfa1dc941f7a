// Package llm implements the single-shot completion contract spec.md §6
// requires: a prompt in, one response string out, no streaming, no tool-use
// protocol on the wire — the model only ever sees an assembled prompt and
// replies with free text the cognitive loop parses itself.
package llm

import "context"

// CompletionRequest is everything a Provider needs to produce one reply.
type CompletionRequest struct {
	Model       string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider is the LLM endpoint contract (spec §6). Grounded on nexus's
// `internal/agent.LLMProvider`, simplified to a single non-streaming call
// since spec.md's wire contract has no streaming or tool-calling protocol —
// the cognitive loop gets one full response string and parses its own
// output format out of it.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Name() string
}
