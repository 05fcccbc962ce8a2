package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ChatRequest is one provider call. Tools, when non-empty, are offered to the
// model as invocable functions; the adapter reports requested invocations in
// ProviderResponse.ToolCalls without executing anything itself.
type ChatRequest struct {
	Model    string
	Messages []Message
	Tools    []mcptypes.Tool
}

// StreamFunc receives stream chunks one at a time, in production order.
// Returning a non-nil error cancels the stream; the adapter tears down the
// provider connection and stops emitting.
type StreamFunc func(chunk StreamChunk) error

// Provider abstracts one LLM backend.
//
// This interface lives in the model package (not provider) so adapters can
// import model without a cycle, the same reason the registry and orchestrator
// depend on it rather than on concrete adapters.
//
// Error discipline: ordinary provider failures (network, auth, rate limits,
// malformed responses, missing credentials) never surface as Go errors from
// Chat or ChatStream. Chat reports them in ProviderResponse.Err; ChatStream
// emits a terminal error chunk. The returned error from ChatStream is
// reserved for consumer-side cancellation (the StreamFunc declined a chunk)
// and programmer misuse.
type Provider interface {
	// Chat sends a complete turn and blocks for the full response.
	Chat(ctx context.Context, req ChatRequest) ProviderResponse

	// ChatStream streams the response through emit. The sequence is lazy,
	// finite and non-restartable; nothing is buffered ahead of the consumer.
	ChatStream(ctx context.Context, req ChatRequest, emit StreamFunc) error

	// ListModels returns the models this provider can serve.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// ShowModel returns details for a single model.
	ShowModel(ctx context.Context, name string) (ModelInfo, error)
}
