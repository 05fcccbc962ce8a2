// Package model defines the provider-agnostic types shared by the gateway.
//
// Parley talks to several LLM backends (Ollama, OpenAI, Azure OpenAI,
// Anthropic) through a common Provider interface. The types in this package
// are the canonical shapes every adapter converts to and from; nothing here
// depends on a specific provider SDK.
package model

// Image is an inline binary attachment on a message. Data carries the
// base64-encoded payload, Type the MIME type (e.g. "image/png").
type Image struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// Message is one entry of a conversation as sent to a provider.
// A Message is immutable once handed to an adapter: adapters copy what they
// need into their wire format and never mutate the input.
type Message struct {
	Role    string  `json:"role"`
	Content string  `json:"content"`
	Images  []Image `json:"images,omitempty"`
}

// ToolCall is a request by the model to invoke a registered tool.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolCallResult records one executed (or failed) tool invocation.
// Exactly one of Result or Err is meaningful; a failed call carries the error
// text so the final model call can relay it to the user.
type ToolCallResult struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Result    string         `json:"result,omitempty"`
	Err       string         `json:"error,omitempty"`
}

// ResponseMessage is the assistant message inside a ProviderResponse.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderResponse is the canonical result of a single non-streamed chat
// call. Exactly one of Message or Err is set - never both, never neither.
//
// ToolCalls holds tool invocations the model requested; it is only populated
// on a probe call that offered tools and is never serialized to clients.
// ToolsUsed is turn provenance: the calls actually executed before the final
// answer was produced (null when no tools ran, matching the wire contract).
type ProviderResponse struct {
	Message   *ResponseMessage `json:"message,omitempty"`
	ToolsUsed []ToolCallResult `json:"tools_used"`
	Err       string           `json:"error,omitempty"`

	ToolCalls []ToolCall `json:"-"`
}

// ErrorResponse builds a ProviderResponse carrying only an error.
func ErrorResponse(err string) ProviderResponse {
	return ProviderResponse{Err: err}
}

// ChunkMessage is the partial assistant message inside a StreamChunk.
type ChunkMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamChunk is one frame of a streamed response, emitted in strict
// production order. An error chunk (Err set, Message nil) terminates the
// stream.
type StreamChunk struct {
	Message   *ChunkMessage    `json:"message,omitempty"`
	ToolsUsed []ToolCallResult `json:"tools_used,omitempty"`
	Err       string           `json:"error,omitempty"`
}

// ModelInfo describes one model offered by a provider.
type ModelInfo struct {
	Name     string `json:"name"`
	Provider string `json:"provider"`
	Size     int64  `json:"size,omitempty"`
	Details  string `json:"details,omitempty"`
}
