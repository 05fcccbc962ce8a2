package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"parley/model"
)

// OllamaProvider serves chat turns from a local Ollama inference server.
type OllamaProvider struct {
	client *api.Client
}

// NewOllamaProvider creates the adapter for the Ollama server at host.
// An empty host defaults to "http://localhost:11434". The only constructor
// error is an unparseable URL, which is programmer-level misuse of config.
func NewOllamaProvider(host string) (*OllamaProvider, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	parsed, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}
	return &OllamaProvider{client: api.NewClient(parsed, http.DefaultClient)}, nil
}

// Chat implements Provider.Chat with a single blocking call. Provider
// failures are reported inside the response.
func (p *OllamaProvider) Chat(ctx context.Context, req model.ChatRequest) model.ProviderResponse {
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: mapOllamaMessages(req.Messages),
		Stream:   boolPtr(false),
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = ConvertToolsToOllama(req.Tools)
	}

	var final api.ChatResponse
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		return model.ErrorResponse(err.Error())
	}

	return model.ProviderResponse{
		Message: &model.ResponseMessage{
			Role:    final.Message.Role,
			Content: final.Message.Content,
		},
		ToolCalls: fromOllamaToolCalls(final.Message.ToolCalls),
	}
}

// ChatStream implements Provider.ChatStream. Chunks are emitted as Ollama
// produces them; nothing is buffered ahead of the consumer.
func (p *OllamaProvider) ChatStream(ctx context.Context, req model.ChatRequest, emit model.StreamFunc) error {
	chatReq := &api.ChatRequest{
		Model:    req.Model,
		Messages: mapOllamaMessages(req.Messages),
		Stream:   boolPtr(true),
	}

	var emitErr error
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		chunk := model.StreamChunk{
			Message: &model.ChunkMessage{
				Role:    resp.Message.Role,
				Content: resp.Message.Content,
			},
		}
		if err := emit(chunk); err != nil {
			emitErr = err
			return err
		}
		return nil
	})

	switch {
	case emitErr != nil:
		// Consumer cancelled; the connection is already torn down.
		return emitErr
	case err != nil && ctx.Err() == nil:
		return emit(model.StreamChunk{Err: err.Error()})
	}
	return nil
}

// ListModels implements Provider.ListModels.
func (p *OllamaProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, &model.ProviderError{Provider: "ollama", Err: err}
	}

	models := make([]model.ModelInfo, len(resp.Models))
	for i, m := range resp.Models {
		models[i] = model.ModelInfo{
			Name:     m.Name,
			Provider: "ollama",
			Size:     m.Size,
			Details:  m.Details.ParameterSize,
		}
	}
	return models, nil
}

// ShowModel implements Provider.ShowModel.
func (p *OllamaProvider) ShowModel(ctx context.Context, name string) (model.ModelInfo, error) {
	resp, err := p.client.Show(ctx, &api.ShowRequest{Model: name})
	if err != nil {
		return model.ModelInfo{}, &model.ProviderError{Provider: "ollama", Err: err}
	}

	return model.ModelInfo{
		Name:     name,
		Provider: "ollama",
		Details: fmt.Sprintf("%s %s (%s)",
			resp.Details.Family, resp.Details.ParameterSize, resp.Details.QuantizationLevel),
	}, nil
}

// mapOllamaMessages is the single place canonical messages become Ollama
// wire messages: {role, content, images: [raw bytes]}. Undecodable image
// payloads are dropped rather than failing the turn.
func mapOllamaMessages(messages []model.Message) []api.Message {
	result := make([]api.Message, len(messages))
	for i, msg := range messages {
		mapped := api.Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
		for _, img := range msg.Images {
			data, err := base64.StdEncoding.DecodeString(img.Data)
			if err != nil {
				continue
			}
			mapped.Images = append(mapped.Images, api.ImageData(data))
		}
		result[i] = mapped
	}
	return result
}

func fromOllamaToolCalls(calls []api.ToolCall) []model.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	result := make([]model.ToolCall, len(calls))
	for i, call := range calls {
		result[i] = model.ToolCall{
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		}
	}
	return result
}

func boolPtr(b bool) *bool { return &b }
