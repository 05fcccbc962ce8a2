// Package testutil provides mock providers and fixtures shared by tests
// across the gateway.
package testutil

import (
	"context"

	"parley/model"
)

// MockProvider implements model.Provider for testing. Each method delegates
// to a configurable func; unset funcs fall back to canned defaults.
type MockProvider struct {
	ChatFunc       func(ctx context.Context, req model.ChatRequest) model.ProviderResponse
	ChatStreamFunc func(ctx context.Context, req model.ChatRequest, emit model.StreamFunc) error
	ListModelsFunc func(ctx context.Context) ([]model.ModelInfo, error)
	ShowModelFunc  func(ctx context.Context, name string) (model.ModelInfo, error)

	// ChatCalls records every request passed to Chat, in order.
	ChatCalls []model.ChatRequest
}

// NewMockProvider creates a mock provider with default implementations.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Chat(ctx context.Context, req model.ChatRequest) model.ProviderResponse {
	m.ChatCalls = append(m.ChatCalls, req)
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, req)
	}
	return model.ProviderResponse{
		Message: &model.ResponseMessage{Role: "assistant", Content: "Mock response"},
	}
}

func (m *MockProvider) ChatStream(ctx context.Context, req model.ChatRequest, emit model.StreamFunc) error {
	m.ChatCalls = append(m.ChatCalls, req)
	if m.ChatStreamFunc != nil {
		return m.ChatStreamFunc(ctx, req, emit)
	}
	return emit(model.StreamChunk{
		Message: &model.ChunkMessage{Role: "assistant", Content: "Mock response"},
	})
}

func (m *MockProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	if m.ListModelsFunc != nil {
		return m.ListModelsFunc(ctx)
	}
	return []model.ModelInfo{
		{Name: "mock-model-1", Provider: "mock", Size: 1000},
		{Name: "mock-model-2", Provider: "mock", Size: 2000},
	}, nil
}

func (m *MockProvider) ShowModel(ctx context.Context, name string) (model.ModelInfo, error) {
	if m.ShowModelFunc != nil {
		return m.ShowModelFunc(ctx, name)
	}
	return model.ModelInfo{Name: name, Provider: "mock"}, nil
}

// ScriptedProvider replays a fixed sequence of responses, one per Chat
// call. Orchestrator tests use it to drive the probe/exec/final turn shape.
type ScriptedProvider struct {
	Responses []model.ProviderResponse

	// ChatCalls records every request, in order.
	ChatCalls []model.ChatRequest
}

func (s *ScriptedProvider) Chat(ctx context.Context, req model.ChatRequest) model.ProviderResponse {
	s.ChatCalls = append(s.ChatCalls, req)
	if len(s.ChatCalls) > len(s.Responses) {
		return model.ErrorResponse("scripted provider exhausted")
	}
	return s.Responses[len(s.ChatCalls)-1]
}

func (s *ScriptedProvider) ChatStream(ctx context.Context, req model.ChatRequest, emit model.StreamFunc) error {
	resp := s.Chat(ctx, req)
	if resp.Err != "" {
		return emit(model.StreamChunk{Err: resp.Err})
	}
	if resp.Message != nil {
		err := emit(model.StreamChunk{
			Message: &model.ChunkMessage{Role: resp.Message.Role, Content: resp.Message.Content},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *ScriptedProvider) ListModels(ctx context.Context) ([]model.ModelInfo, error) {
	return nil, nil
}

func (s *ScriptedProvider) ShowModel(ctx context.Context, name string) (model.ModelInfo, error) {
	return model.ModelInfo{Name: name}, nil
}
