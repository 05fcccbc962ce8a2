package provider

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"parley/model"
)

// OpenAIProvider serves chat turns from the OpenAI API using the official
// Go SDK. The Azure variant reuses this type with different client options;
// see NewAzureOpenAIProvider.
type OpenAIProvider struct {
	client *openai.Client
	id     string

	// notReadyMsg names the missing credentials. Set only when the
	// provider was constructed without a key; every call then reports it.
	notReadyMsg string
}

// NewOpenAIProvider creates the adapter for the OpenAI API. A missing API
// key does not fail construction: the provider stays registered and reports
// a deterministic error naming OPENAI_API_KEY on use.
func NewOpenAIProvider(baseURL, apiKey string) *OpenAIProvider {
	if apiKey == "" {
		return &OpenAIProvider{
			id: "openai",
			notReadyMsg: "OpenAI provider is not initialized. " +
				"Please ensure the OPENAI_API_KEY environment variable is set.",
		}
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, id: "openai"}
}

// Chat implements Provider.Chat with a single non-streaming completion.
func (p *OpenAIProvider) Chat(ctx context.Context, req model.ChatRequest) model.ProviderResponse {
	if p.client == nil {
		return model.ErrorResponse(p.notReadyMsg)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: mapOpenAIMessages(req.Messages),
	}
	if len(req.Tools) > 0 {
		params.Tools = ConvertToolsToOpenAI(req.Tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return model.ErrorResponse(err.Error())
	}
	if len(resp.Choices) == 0 {
		return model.ErrorResponse("OpenAI returned no choices")
	}

	choice := resp.Choices[0]
	result := model.ProviderResponse{
		Message: &model.ResponseMessage{
			Role:    "assistant",
			Content: choice.Message.Content,
		},
	}
	for _, call := range choice.Message.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, model.ToolCall{
			Name:      call.Function.Name,
			Arguments: ParseToolArguments(call.Function.Arguments),
		})
	}
	return result
}

// ChatStream implements Provider.ChatStream using the SDK's streaming API.
func (p *OpenAIProvider) ChatStream(ctx context.Context, req model.ChatRequest, emit model.StreamFunc) error {
	if p.client == nil {
		return emit(model.StreamChunk{Err: p.notReadyMsg})
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: mapOpenAIMessages(req.Messages),
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		err := emit(model.StreamChunk{
			Message: &model.ChunkMessage{
				Role:    "assistant",
				Content: chunk.Choices[0].Delta.Content,
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

// ListModels implements Provider.ListModels.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	if p.client == nil {
		return nil, &model.ProviderError{Provider: p.id, Err: notReadyError(p.notReadyMsg)}
	}

	page, err := p.client.Models.List(ctx)
	if err != nil {
		return nil, &model.ProviderError{Provider: p.id, Err: err}
	}

	models := make([]model.ModelInfo, 0, len(page.Data))
	for _, m := range page.Data {
		models = append(models, model.ModelInfo{
			Name:     m.ID,
			Provider: p.id,
			Details:  m.OwnedBy,
		})
	}
	return models, nil
}

// ShowModel implements Provider.ShowModel.
func (p *OpenAIProvider) ShowModel(ctx context.Context, name string) (model.ModelInfo, error) {
	if p.client == nil {
		return model.ModelInfo{}, &model.ProviderError{Provider: p.id, Err: notReadyError(p.notReadyMsg)}
	}

	m, err := p.client.Models.Get(ctx, name)
	if err != nil {
		return model.ModelInfo{}, &model.ProviderError{Provider: p.id, Err: err}
	}
	return model.ModelInfo{
		Name:     m.ID,
		Provider: p.id,
		Details:  m.OwnedBy,
	}, nil
}

// mapOpenAIMessages is the single place canonical messages become OpenAI
// chat completion params. Images travel as data-URL image parts on user
// messages; other roles never carry images.
func mapOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, msg := range messages {
		switch msg.Role {
		case "system":
			result[i] = openai.SystemMessage(msg.Content)
		case "assistant":
			result[i] = openai.AssistantMessage(msg.Content)
		case "user":
			if len(msg.Images) == 0 {
				result[i] = openai.UserMessage(msg.Content)
				continue
			}
			parts := []openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(msg.Content),
			}
			for _, img := range msg.Images {
				parts = append(parts, openai.ImageContentPart(
					openai.ChatCompletionContentPartImageImageURLParam{
						URL: imageDataURL(img),
					}))
			}
			result[i] = openai.UserMessage(parts)
		default:
			result[i] = openai.UserMessage(msg.Content)
		}
	}
	return result
}

func imageDataURL(img model.Image) string {
	var b strings.Builder
	b.WriteString("data:")
	b.WriteString(img.Type)
	b.WriteString(";base64,")
	b.WriteString(img.Data)
	return b.String()
}
