package config

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
)

var (
	schemaOnce sync.Once
	schemaJSON []byte
	schemaErr  error
)

// Schema returns the JSON Schema document describing Config, generated once
// and cached, grounded on nexus's own schema.go use of invopop/jsonschema
// for config-file editor tooling.
func Schema() ([]byte, error) {
	schemaOnce.Do(func() {
		reflector := &jsonschema.Reflector{ExpandedStruct: true}
		schema := reflector.Reflect(&Config{})
		schemaJSON, schemaErr = json.MarshalIndent(schema, "", "  ")
	})
	return schemaJSON, schemaErr
}
