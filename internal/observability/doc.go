// Package observability provides structured logging and Prometheus metrics
// for the cognitive core, grounded on nexus's own internal/observability
// package (SPEC_FULL AMBIENT STACK/DOMAIN STACK).
//
// # Metrics
//
// Metrics cover the cognitive loop's own hot path rather than a chat
// gateway's: tick latency and mode, thought-buffer occupancy, action
// throttle counts, tool execution outcomes, LLM request latency, and
// memory-tier sizes. They are additive to spec.md's
// get_performance_stats(), not a replacement for it.
//
// # Logging
//
// Logger wraps log/slog with level/format configuration and redaction of
// common secret shapes (API keys, bearer tokens, JWTs) before they reach a
// log sink — useful since LLM/embedding endpoint configuration routinely
// carries API keys through the same components that log errors about those
// endpoints.
package observability
