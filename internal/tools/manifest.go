// Package tools implements the Tool Registry & Lifecycle (spec §4.3) and the
// Tool Execution Engine (spec §4.4): manifest-driven tool discovery, an
// enabled/running lifecycle, and the dispatch logic that gates every
// invocation behind the instructions-retrieval contract.
package tools

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ManifestFilename is the file every tool directory must contain.
const ManifestFilename = "tool.manifest.json"

// Manifest describes one tool's identity, control variable, usage guidance,
// and execution limits (spec §3).
type Manifest struct {
	ToolName            string          `json:"tool_name"`
	ControlVariableName string          `json:"control_variable_name"`
	ToolDescription     string          `json:"tool_description"`
	AvailableCommands   []string        `json:"available_commands"`
	ToolUsageGuidance   string          `json:"tool_usage_guidance"`
	ToolUsageExamples   []string        `json:"tool_usage_examples"`
	TimeoutSeconds      float64         `json:"timeout_seconds"`
	CooldownSeconds     float64         `json:"cooldown_seconds"`
	ConfigSchema        json.RawMessage `json:"config_schema,omitempty"`
	Metadata            map[string]any  `json:"metadata,omitempty"`
}

// DefaultTimeout and DefaultCooldown apply when a manifest omits them.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultCooldown = 0 * time.Second
)

// Timeout returns the manifest's configured timeout, or DefaultTimeout.
func (m *Manifest) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return DefaultTimeout
	}
	return time.Duration(m.TimeoutSeconds * float64(time.Second))
}

// Cooldown returns the manifest's configured cooldown, or DefaultCooldown.
func (m *Manifest) Cooldown() time.Duration {
	if m.CooldownSeconds <= 0 {
		return DefaultCooldown
	}
	return time.Duration(m.CooldownSeconds * float64(time.Second))
}

// DecodeManifest parses manifest JSON bytes.
func DecodeManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode tool manifest: %w", err)
	}
	return &m, nil
}

// DecodeManifestFile reads and parses a manifest file from disk.
func DecodeManifestFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tool manifest: %w", err)
	}
	return DecodeManifest(data)
}

// Validate checks the manifest's required fields and, if a config schema is
// present, that it is itself a well-formed JSON Schema document.
func (m *Manifest) Validate() error {
	if m == nil {
		return fmt.Errorf("manifest is nil")
	}
	if strings.TrimSpace(m.ToolName) == "" {
		return fmt.Errorf("manifest tool_name is required")
	}
	if strings.TrimSpace(m.ControlVariableName) == "" {
		return fmt.Errorf("manifest control_variable_name is required")
	}
	if len(m.ConfigSchema) == 0 {
		return nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(m.ToolName+"#", strings.NewReader(string(m.ConfigSchema))); err != nil {
		return fmt.Errorf("manifest config_schema is not a valid schema resource: %w", err)
	}
	if _, err := compiler.Compile(m.ToolName + "#"); err != nil {
		return fmt.Errorf("manifest config_schema does not compile: %w", err)
	}
	return nil
}

// ValidateConfig validates an arbitrary tool configuration document against
// the manifest's declared config schema, if any.
func (m *Manifest) ValidateConfig(config []byte) error {
	if len(m.ConfigSchema) == 0 {
		return nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(m.ToolName+"#", strings.NewReader(string(m.ConfigSchema))); err != nil {
		return err
	}
	schema, err := compiler.Compile(m.ToolName + "#")
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(config, &v); err != nil {
		return fmt.Errorf("tool config is not valid JSON: %w", err)
	}
	return schema.Validate(v)
}
