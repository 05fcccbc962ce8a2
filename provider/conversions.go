package provider

import (
	"encoding/json"
	"errors"
)

// ParseToolArguments parses a JSON arguments string into a map. The OpenAI
// and Azure adapters receive tool arguments as raw JSON strings; malformed
// arguments degrade to an empty map rather than failing the turn.
func ParseToolArguments(argsJSON string) map[string]any {
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return make(map[string]any)
	}
	return args
}

func notReadyError(msg string) error { return errors.New(msg) }
