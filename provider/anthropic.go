package provider

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"parley/model"
)

// anthropicMaxTokens caps each response; the Messages API requires an
// explicit limit.
const anthropicMaxTokens = 4096

// AnthropicProvider serves chat turns from Anthropic's Messages API using
// the official Go SDK.
type AnthropicProvider struct {
	client *anthropic.Client

	notReadyMsg string
}

// NewAnthropicProvider creates the adapter for the Anthropic API. A missing
// API key does not fail construction: the provider stays registered and
// reports a deterministic error naming ANTHROPIC_API_KEY on use.
func NewAnthropicProvider(baseURL, apiKey string) *AnthropicProvider {
	if apiKey == "" {
		return &AnthropicProvider{
			notReadyMsg: "Anthropic provider is not initialized. " +
				"Please ensure the ANTHROPIC_API_KEY environment variable is set.",
		}
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicProvider{client: &client}
}

// Chat implements Provider.Chat with a single non-streaming request.
func (p *AnthropicProvider) Chat(ctx context.Context, req model.ChatRequest) model.ProviderResponse {
	if p.client == nil {
		return model.ErrorResponse(p.notReadyMsg)
	}

	params := p.buildParams(req)
	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return model.ErrorResponse(err.Error())
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(text.Text)
		}
	}

	return model.ProviderResponse{
		Message: &model.ResponseMessage{
			Role:    "assistant",
			Content: content.String(),
		},
		ToolCalls: extractAnthropicToolCalls(msg.Content),
	}
}

// ChatStream implements Provider.ChatStream using the SDK's streaming API.
func (p *AnthropicProvider) ChatStream(ctx context.Context, req model.ChatRequest, emit model.StreamFunc) error {
	if p.client == nil {
		return emit(model.StreamChunk{Err: p.notReadyMsg})
	}

	stream := p.client.Messages.NewStreaming(ctx, p.buildParams(req))
	for stream.Next() {
		event := stream.Current()

		deltaEvent, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
		if !ok {
			continue
		}
		textDelta, ok := deltaEvent.Delta.AsAny().(anthropic.TextDelta)
		if !ok || textDelta.Text == "" {
			continue
		}
		err := emit(model.StreamChunk{
			Message: &model.ChunkMessage{
				Role:    "assistant",
				Content: textDelta.Text,
			},
		})
		if err != nil {
			return err
		}
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return emit(model.StreamChunk{Err: err.Error()})
	}
	return nil
}

// ListModels implements Provider.ListModels. Anthropic has no model listing
// endpoint, so a curated catalog of current Claude models is returned.
func (p *AnthropicProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	if p.client == nil {
		return nil, &model.ProviderError{Provider: "anthropic", Err: notReadyError(p.notReadyMsg)}
	}

	catalog := []anthropic.Model{
		anthropic.ModelClaudeSonnet4_5_20250929,
		anthropic.ModelClaude3_5Haiku20241022,
		anthropic.ModelClaude_3_Opus_20240229,
		anthropic.ModelClaude_3_Haiku_20240307,
	}

	models := make([]model.ModelInfo, len(catalog))
	for i, m := range catalog {
		models[i] = model.ModelInfo{
			Name:     string(m),
			Provider: "anthropic",
		}
	}
	return models, nil
}

// ShowModel implements Provider.ShowModel against the curated catalog.
func (p *AnthropicProvider) ShowModel(ctx context.Context, name string) (model.ModelInfo, error) {
	models, err := p.ListModels(ctx)
	if err != nil {
		return model.ModelInfo{}, err
	}
	for _, m := range models {
		if m.Name == name {
			return m, nil
		}
	}
	return model.ModelInfo{}, &model.NotFoundError{Resource: "model " + name}
}

func (p *AnthropicProvider) buildParams(req model.ChatRequest) anthropic.MessageNewParams {
	messages, system := mapAnthropicMessages(req.Messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		Messages:  messages,
		MaxTokens: anthropicMaxTokens,
	}
	if len(system) > 0 {
		params.System = system
	}
	if len(req.Tools) > 0 {
		params.Tools = ConvertToolsToAnthropic(req.Tools)
	}
	return params
}

// mapAnthropicMessages is the single place canonical messages become
// Anthropic wire messages. System messages move to the separate system
// parameter; images become base64 image blocks on user messages.
func mapAnthropicMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var system []anthropic.TextBlockParam
	result := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})

		case "assistant":
			result = append(result,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))

		default:
			blocks := []anthropic.ContentBlockParamUnion{
				anthropic.NewTextBlock(msg.Content),
			}
			for _, img := range msg.Images {
				blocks = append(blocks, anthropic.NewImageBlockBase64(img.Type, img.Data))
			}
			result = append(result, anthropic.NewUserMessage(blocks...))
		}
	}

	return result, system
}

func extractAnthropicToolCalls(content []anthropic.ContentBlockUnion) []model.ToolCall {
	var calls []model.ToolCall
	for _, block := range content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok {
			continue
		}
		var args map[string]any
		if err := json.Unmarshal(toolUse.Input, &args); err != nil {
			continue
		}
		calls = append(calls, model.ToolCall{
			Name:      toolUse.Name,
			Arguments: args,
		})
	}
	return calls
}
