// Package history assembles the prior-turn context sent to providers.
package history

import (
	"parley/model"
	"parley/store"
)

// Builder turns stored conversation history into the message window that
// precedes the incoming turn.
//
// Soft-deleted messages never enter the window. Assistant turns contribute
// their latest response variation, which the store already resolves.
type Builder struct {
	// IncludeLatestPrior selects the slicing mode. The legacy mode takes
	// the last Count stored turns and then drops the final one, which was
	// originally the just-persisted copy of the incoming user message but
	// also swallows the newest prior turn when the client did not persist
	// first. The corrected mode takes the last Count-1 turns verbatim.
	IncludeLatestPrior bool
}

// Build returns the provider-bound message list: the history window
// followed by the incoming turn's messages. With history disabled, the
// incoming messages pass through alone.
func (b *Builder) Build(stored []store.StoredMessage, settings store.Settings, incoming []model.Message) []model.Message {
	if !settings.UseMessageHistory || settings.MessageHistoryCount <= 0 {
		return incoming
	}

	prior := contextual(stored)
	window := b.window(prior, settings.MessageHistoryCount)

	result := make([]model.Message, 0, len(window)+len(incoming))
	result = append(result, window...)
	return append(result, incoming...)
}

func (b *Builder) window(prior []model.Message, count int) []model.Message {
	if b.IncludeLatestPrior {
		start := len(prior) - (count - 1)
		if start < 0 {
			start = 0
		}
		return prior[start:]
	}

	// Legacy slice: last count entries, minus the final one.
	if len(prior) == 0 {
		return nil
	}
	start := len(prior) - count
	if start < 0 {
		start = 0
	}
	return prior[start : len(prior)-1]
}

// contextual filters out soft-deleted turns and converts the survivors to
// provider messages.
func contextual(stored []store.StoredMessage) []model.Message {
	var messages []model.Message
	for _, sm := range stored {
		if sm.IsDeleted {
			continue
		}
		messages = append(messages, model.Message{
			Role:    sm.Role,
			Content: sm.Content,
			Images:  sm.Images,
		})
	}
	return messages
}
