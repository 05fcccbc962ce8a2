package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Runner executes one tool call described by a manifest. The registry
// depends on this interface; tests substitute a stub.
type Runner interface {
	Run(ctx context.Context, m *Manifest, args map[string]any) (string, error)
}

// MCPRunner runs each tool call in a fresh MCP stdio server process:
// spawn the manifest's command, initialize, call the tool, tear down.
// Tool processes never outlive the call that needed them.
type MCPRunner struct {
	ClientName    string
	ClientVersion string
}

// NewMCPRunner creates the production runner.
func NewMCPRunner() *MCPRunner {
	return &MCPRunner{ClientName: "parley", ClientVersion: "1.0.0"}
}

// Run implements Runner.
func (r *MCPRunner) Run(ctx context.Context, m *Manifest, args map[string]any) (string, error) {
	mcpClient, err := client.NewStdioMCPClientWithOptions(m.Command, manifestEnv(m), m.Args)
	if err != nil {
		return "", fmt.Errorf("failed to start tool process: %w", err)
	}
	defer mcpClient.Close()

	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: "2025-06-18",
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    r.ClientName,
				Version: r.ClientVersion,
			},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		return "", fmt.Errorf("failed to initialize tool process: %w", err)
	}

	result, err := mcpClient.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      m.Name,
			Arguments: args,
		},
	})
	if err != nil {
		return "", fmt.Errorf("tool call failed: %w", err)
	}

	return renderResult(result)
}

// renderResult flattens MCP result content into the string stored on the
// tool call record and fed back to the model.
func renderResult(result *mcptypes.CallToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "Tool executed successfully (no output)", nil
	}

	raw, err := json.Marshal(result.Content)
	if err != nil {
		return "", fmt.Errorf("failed to render tool result: %w", err)
	}
	if result.IsError {
		return "", fmt.Errorf("tool reported an error: %s", raw)
	}
	return string(raw), nil
}

// manifestEnv merges the manifest's env entries over the process
// environment so PATH and system vars survive.
func manifestEnv(m *Manifest) []string {
	env := os.Environ()
	for k, v := range m.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}
