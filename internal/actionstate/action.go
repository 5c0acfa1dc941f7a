// Package actionstate implements the Action State Manager (spec §4.2): the
// exclusive owner of in-flight and historical tool-invocation records,
// attempt counts, throttling, and health summaries fed back into prompts so
// the language model never hallucinates the success of an in-flight
// operation.
package actionstate

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"time"
)

// Status is the lifecycle state of an Action (spec §3).
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// ActionContext carries auxiliary, non-essential detail about an action.
type ActionContext struct {
	FailureReason string
}

// Action is one structured tool invocation and its lifecycle record (spec §3).
type Action struct {
	ID          string
	ToolName    string
	Args        []string
	Status      Status
	InitiatedAt time.Time
	CompletedAt time.Time
	Result      string
	Err         string

	Acknowledged     bool
	ResultIntegrated bool
	Context          ActionContext

	AttemptNumber   int
	QuerySimplified bool
}

// queryKey hashes "tool_name:args[0][:50]" per spec §3, identifying a
// distinct (tool, query) pair for attempt-number and simplification tracking.
func queryKey(toolName string, args []string) string {
	var firstArg string
	if len(args) > 0 {
		firstArg = args[0]
	}
	if len(firstArg) > 50 {
		firstArg = firstArg[:50]
	}
	sum := sha1.Sum([]byte(toolName + ":" + firstArg))
	return hex.EncodeToString(sum[:])
}

// newActionID generates a globally unique action ID of the form
// "a<counter>_<ms-timestamp>" (spec §3).
func newActionID(counter uint64) string {
	return fmt.Sprintf("a%d_%d", counter, time.Now().UnixMilli())
}

// approxTokenCount is a cheap whitespace-based token estimate used only to
// detect whether a retried query has been simplified (spec §4.2).
func approxTokenCount(s string) int {
	count := 0
	inToken := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			inToken = false
			continue
		}
		if !inToken {
			count++
			inToken = true
		}
	}
	return count
}
