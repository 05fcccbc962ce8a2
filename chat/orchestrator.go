// Package chat orchestrates a conversation turn: context assembly, the
// optional tool phase, and the final provider call.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"parley/config"
	"parley/history"
	"parley/model"
	"parley/provider"
	"parley/store"
	"parley/tools"
)

// toolDataPreamble frames tool output for the final provider call. The
// model answers from the data without mentioning the tool.
const toolDataPreamble = "Utilize the following information from a tool call you just performed " +
	"to answer the user's question. Don't reference the fact that you used a tool. " +
	"If there are any errors, feel free to let the user know about the error.\n\nDATA:\n"

// TurnRequest is one chat turn as accepted from the API layer.
type TurnRequest struct {
	UserID         string
	Provider       string
	Model          string
	Messages       []model.Message
	ConversationID string
	UseTools       bool
}

// Orchestrator coordinates providers, tools, history, and storage for chat
// turns.
type Orchestrator struct {
	providers *provider.Registry
	tools     *tools.Registry
	store     *store.Store
	builder   *history.Builder
	prompts   config.Prompts
	logger    *slog.Logger

	toolsEnabled bool
}

// New creates the orchestrator.
func New(providers *provider.Registry, toolReg *tools.Registry, st *store.Store,
	builder *history.Builder, prompts config.Prompts, toolsEnabled bool, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		providers:    providers,
		tools:        toolReg,
		store:        st,
		builder:      builder,
		prompts:      prompts,
		logger:       logger,
		toolsEnabled: toolsEnabled,
	}
}

// Turn runs one blocking chat turn.
//
// The returned error covers caller mistakes and missing resources; provider
// failures come back inside the response's Err field. ToolsUsed is null
// when the tool phase did not run and a (possibly empty) array when it did.
// A probe that requests no tools already produced the answer; no second
// provider call is made.
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (model.ProviderResponse, error) {
	prov, messages, err := o.prepare(ctx, &req)
	if err != nil {
		return model.ProviderResponse{}, err
	}

	messages, toolsUsed, short := o.toolPhase(ctx, prov, req, messages)
	if short != nil {
		return *short, nil
	}

	final := prov.Chat(ctx, model.ChatRequest{Model: req.Model, Messages: messages})
	final.ToolsUsed = toolsUsed
	return final, nil
}

// StreamTurn runs one chat turn, streaming the final response through emit.
// The tool phase still uses a blocking probe call; only the answer streams.
// After a successful stream, a closing chunk carries the tool results. An
// error chunk terminates the stream; nothing follows it.
func (o *Orchestrator) StreamTurn(ctx context.Context, req TurnRequest, emit model.StreamFunc) error {
	prov, messages, err := o.prepare(ctx, &req)
	if err != nil {
		return err
	}

	messages, toolsUsed, short := o.toolPhase(ctx, prov, req, messages)
	if short != nil {
		if short.Err != "" {
			return emit(model.StreamChunk{Err: short.Err})
		}
		// The probe already produced the answer; replay it as one chunk.
		if short.Message != nil {
			chunk := model.StreamChunk{
				Message: &model.ChunkMessage{Role: short.Message.Role, Content: short.Message.Content},
			}
			if err := emit(chunk); err != nil {
				return err
			}
		}
		return emit(model.StreamChunk{ToolsUsed: short.ToolsUsed})
	}

	var errChunkSent bool
	observed := func(chunk model.StreamChunk) error {
		if chunk.Err != "" {
			errChunkSent = true
		}
		return emit(chunk)
	}

	err = prov.ChatStream(ctx, model.ChatRequest{Model: req.Model, Messages: messages}, observed)
	if err != nil {
		return err
	}
	if toolsUsed != nil && !errChunkSent {
		return emit(model.StreamChunk{ToolsUsed: toolsUsed})
	}
	return nil
}

// prepare validates the request, resolves the provider, and assembles the
// provider-bound message list from stored history.
func (o *Orchestrator) prepare(ctx context.Context, req *TurnRequest) (model.Provider, []model.Message, error) {
	if req.Model == "" || req.Provider == "" || len(req.Messages) == 0 {
		return nil, nil, &model.ClientInputError{Reason: "Model, messages, and provider are required"}
	}

	prov, err := o.providers.Resolve(req.Provider)
	if err != nil {
		return nil, nil, err
	}

	settings, err := o.store.Settings(ctx, req.UserID)
	if err != nil {
		return nil, nil, err
	}

	messages := req.Messages
	if settings.UseMessageHistory && req.ConversationID != "" {
		if _, err := o.store.GetConversation(ctx, req.UserID, req.ConversationID); err != nil {
			return nil, nil, err
		}
		stored, err := o.store.Messages(ctx, req.ConversationID)
		if err != nil {
			return nil, nil, err
		}
		messages = o.builder.Build(stored, settings, req.Messages)
	}
	return prov, messages, nil
}

// toolPhase runs the probe call and the requested tools. A non-nil third
// return value is the finished response: either the probe failed, or it
// requested no tools and its message already answers the turn. The returned
// results are nil when the phase did not run and non-nil (possibly empty)
// when it did.
func (o *Orchestrator) toolPhase(ctx context.Context, prov model.Provider, req TurnRequest,
	messages []model.Message) ([]model.Message, []model.ToolCallResult, *model.ProviderResponse) {

	if !req.UseTools || !o.toolsEnabled {
		return messages, nil, nil
	}

	owned, err := o.store.OwnedToolIDs(ctx, req.UserID)
	if err != nil {
		o.logger.Warn("failed to load owned tools", "user", req.UserID, "error", err.Error())
		return messages, nil, nil
	}
	if len(owned) == 0 {
		return messages, nil, nil
	}

	if err := o.tools.EnsureFresh(); err != nil {
		o.logger.Warn("failed to refresh tool registry", "error", err.Error())
	}
	descriptors := o.tools.Describe(owned)
	if len(descriptors) == 0 {
		return messages, nil, nil
	}

	probe := prov.Chat(ctx, model.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Tools:    descriptors,
	})
	if probe.Err != "" {
		resp := model.ErrorResponse(probe.Err)
		return messages, nil, &resp
	}

	// No tool requests: the probe saw the tools and answered anyway, so
	// its message is the final answer.
	if len(probe.ToolCalls) == 0 {
		probe.ToolsUsed = []model.ToolCallResult{}
		return messages, nil, &probe
	}

	results := o.tools.ExecuteCalls(ctx, probe.ToolCalls)
	messages = append(messages, model.Message{
		Role:    "user",
		Content: toolDataPreamble + formatToolData(results),
	})
	return messages, results, nil
}

// formatToolData renders executed tool calls into the data block fed back
// to the model.
func formatToolData(results []model.ToolCallResult) string {
	var b strings.Builder
	for _, r := range results {
		args, err := json.Marshal(r.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		if r.Err != "" {
			fmt.Fprintf(&b, "Function call to tool %s:\n\tArguments: %s\n\tResult: Error Occurred %s, no result\n\n",
				r.Name, args, r.Err)
			continue
		}
		fmt.Fprintf(&b, "Function call to tool %s:\n\tArguments: %s\n\tResult: %s\n\n",
			r.Name, args, r.Result)
	}
	return b.String()
}
