// Package tools loads tool manifests from disk, exposes their descriptors
// to providers, and executes tool calls through out-of-process MCP servers.
package tools

import (
	"encoding/json"
	"fmt"
	"os"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Manifest is one tool definition on disk: what the tool is called, the
// JSON Schema of its arguments, and the command that serves it over MCP
// stdio.
type Manifest struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	InputSchema map[string]any    `json:"input_schema"`
	Command     string            `json:"command"`
	Args        []string          `json:"args"`
	Env         map[string]string `json:"env"`

	// TimeoutSeconds overrides the registry default for this tool.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// LoadManifest reads and validates a single manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the invariants every registered tool must hold: id, name,
// description, and command present, and every declared schema property
// carrying a type. A manifest that fails here is skipped, not fatal.
func (m *Manifest) Validate() error {
	switch {
	case m.ID == "":
		return fmt.Errorf("manifest is missing an id")
	case m.Name == "":
		return fmt.Errorf("manifest %s is missing a name", m.ID)
	case m.Description == "":
		return fmt.Errorf("tool %s is missing a description", m.Name)
	case m.Command == "":
		return fmt.Errorf("tool %s is missing a command", m.Name)
	}

	props, _ := m.InputSchema["properties"].(map[string]any)
	for name, value := range props {
		propMap, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("tool %s: property %s is not an object", m.Name, name)
		}
		if _, ok := propMap["type"]; !ok {
			return fmt.Errorf("tool %s: property %s is missing a type", m.Name, name)
		}
	}
	return nil
}

// Tool converts the manifest's schema into the descriptor handed to
// providers.
func (m *Manifest) Tool() mcptypes.Tool {
	schema := mcptypes.ToolInputSchema{Type: "object"}

	if t, ok := m.InputSchema["type"].(string); ok && t != "" {
		schema.Type = t
	}
	if props, ok := m.InputSchema["properties"].(map[string]any); ok {
		schema.Properties = props
	}
	if rawRequired, ok := m.InputSchema["required"].([]any); ok {
		for _, v := range rawRequired {
			if s, ok := v.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}
	if defs, ok := m.InputSchema["$defs"].(map[string]any); ok {
		schema.Defs = defs
	}

	return mcptypes.Tool{
		Name:        m.Name,
		Description: m.Description,
		InputSchema: schema,
	}
}
