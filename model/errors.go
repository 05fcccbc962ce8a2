package model

import (
	"errors"
	"fmt"
)

// The gateway's error taxonomy. Every failure is scoped to the turn that
// triggered it; none of these are process-fatal.

// ClientInputError marks a caller mistake: missing required turn fields,
// an unknown provider id, malformed parameters. Never retried.
type ClientInputError struct {
	Reason string
}

func (e *ClientInputError) Error() string { return e.Reason }

// NotFoundError marks a reference to a resource the caller cannot see,
// typically an unknown conversation id.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

// ProviderError wraps a backend failure that escaped the adapter boundary,
// e.g. a failed model listing. Chat-path failures are reported in
// ProviderResponse.Err instead and never travel as Go errors.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ToolError wraps a tool invocation failure. Captured per call inside the
// tool registry and recorded on the ToolCallResult; it never aborts a turn.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// RegistrationError wraps a tool source unit that failed to parse or
// validate. The unit is skipped; loading continues with the rest.
type RegistrationError struct {
	Unit string
	Err  error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("tool unit %s: %v", e.Unit, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// DecodeError marks structured output requested from a model that failed to
// parse. Raw preserves the content exactly as the model produced it so the
// caller can diagnose.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode model output: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsClientInput reports whether err classifies as a caller error (4xx).
func IsClientInput(err error) bool {
	var ce *ClientInputError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a missing-resource error.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
