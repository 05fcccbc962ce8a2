package tools

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"parley/model"
)

// stubRunner records invocations and returns canned output per tool name.
type stubRunner struct {
	calls    []string
	outputs  map[string]string
	failWith error
}

func (r *stubRunner) Run(ctx context.Context, m *Manifest, args map[string]any) (string, error) {
	r.calls = append(r.calls, m.Name)
	if r.failWith != nil {
		return "", r.failWith
	}
	if out, ok := r.outputs[m.Name]; ok {
		return out, nil
	}
	return "ok", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func writeManifest(t *testing.T, dir, file, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

const weatherManifest = `{
	"id": "tool-weather",
	"name": "get_weather",
	"description": "Get the current weather",
	"command": "weather-server",
	"input_schema": {
		"type": "object",
		"properties": {"location": {"type": "string"}},
		"required": ["location"]
	}
}`

const calcManifest = `{
	"id": "tool-calc",
	"name": "calculate",
	"description": "Evaluate an expression",
	"command": "calc-server",
	"input_schema": {
		"type": "object",
		"properties": {"expression": {"type": "string"}}
	}
}`

func newTestRegistry(t *testing.T, runner Runner) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	writeManifest(t, dir, "weather.json", weatherManifest)
	writeManifest(t, dir, "calc.json", calcManifest)

	reg := NewRegistry(dir, runner, time.Minute, testLogger())
	if err := reg.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return reg, dir
}

func TestLoadSkipsInvalidManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "weather.json", weatherManifest)
	writeManifest(t, dir, "broken.json", `{"id": "x", "name":`)
	writeManifest(t, dir, "untyped.json", `{
		"id": "tool-untyped",
		"name": "untyped",
		"description": "property without a type",
		"command": "srv",
		"input_schema": {"type": "object", "properties": {"x": {"description": "no type"}}}
	}`)
	writeManifest(t, dir, "notes.txt", "not a manifest")

	reg := NewRegistry(dir, &stubRunner{}, time.Minute, testLogger())
	if err := reg.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ids := reg.IDs()
	if len(ids) != 1 || ids[0] != "tool-weather" {
		t.Errorf("IDs = %v, want [tool-weather]", ids)
	}
}

func TestDescribeFiltersByOwnership(t *testing.T) {
	reg, _ := newTestRegistry(t, &stubRunner{})

	tests := []struct {
		name      string
		ids       []string
		wantNames []string
	}{
		{name: "both owned", ids: []string{"tool-weather", "tool-calc"}, wantNames: []string{"calculate", "get_weather"}},
		{name: "one owned", ids: []string{"tool-calc"}, wantNames: []string{"calculate"}},
		{name: "unknown id skipped", ids: []string{"tool-calc", "tool-gone"}, wantNames: []string{"calculate"}},
		{name: "none owned", ids: nil, wantNames: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descriptors := reg.Describe(tt.ids)
			if len(descriptors) != len(tt.wantNames) {
				t.Fatalf("got %d descriptors, want %d", len(descriptors), len(tt.wantNames))
			}
			for i, want := range tt.wantNames {
				if descriptors[i].Name != want {
					t.Errorf("descriptor[%d].Name = %q, want %q", i, descriptors[i].Name, want)
				}
			}
		})
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	reg, _ := newTestRegistry(t, &stubRunner{})

	result := reg.Invoke(context.Background(), model.ToolCall{Name: "nope"})
	if result.Err == "" {
		t.Fatal("expected an error for an unregistered tool")
	}
	if result.Result != "" {
		t.Error("failed invocation must not carry a result")
	}
}

func TestInvokeCapturesRunnerError(t *testing.T) {
	runner := &stubRunner{failWith: fmt.Errorf("process exited early")}
	reg, _ := newTestRegistry(t, runner)

	result := reg.Invoke(context.Background(), model.ToolCall{
		Name:      "get_weather",
		Arguments: map[string]any{"location": "Berlin"},
	})
	if result.Err == "" {
		t.Fatal("expected the runner error on the result")
	}
	if !strings.Contains(result.Err, "process exited early") {
		t.Errorf("Err = %q, want it to contain the cause", result.Err)
	}
	if result.Name != "get_weather" {
		t.Errorf("Name = %q, want get_weather", result.Name)
	}
}

func TestExecuteCallsDeduplicates(t *testing.T) {
	runner := &stubRunner{outputs: map[string]string{"get_weather": "sunny"}}
	reg, _ := newTestRegistry(t, runner)

	calls := []model.ToolCall{
		{Name: "get_weather", Arguments: map[string]any{"location": "Berlin"}},
		{Name: "get_weather", Arguments: map[string]any{"location": "BERLIN"}},
		{Name: "get_weather", Arguments: map[string]any{"location": "Hamburg"}},
	}

	results := reg.ExecuteCalls(context.Background(), calls)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 after dedup", len(results))
	}
	if len(runner.calls) != 2 {
		t.Errorf("runner invoked %d times, want 2", len(runner.calls))
	}
	if results[0].Result != "sunny" {
		t.Errorf("Result = %q, want sunny", results[0].Result)
	}
}

func TestEnsureFreshReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "weather.json", weatherManifest)

	reg := NewRegistry(dir, &stubRunner{}, time.Minute, testLogger())
	if err := reg.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	before := reg.Version()

	if err := reg.EnsureFresh(); err != nil {
		t.Fatalf("EnsureFresh failed: %v", err)
	}
	if reg.Version() != before {
		t.Error("version changed without a directory change")
	}

	writeManifest(t, dir, "calc.json", calcManifest)
	if err := reg.EnsureFresh(); err != nil {
		t.Fatalf("EnsureFresh failed: %v", err)
	}
	if reg.Version() == before {
		t.Error("version did not change after adding a manifest")
	}
	if len(reg.IDs()) != 2 {
		t.Errorf("IDs = %v, want both tools after reload", reg.IDs())
	}
}

func TestManifestValidate(t *testing.T) {
	valid := Manifest{
		ID:          "t",
		Name:        "tool",
		Description: "does things",
		Command:     "srv",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"x": map[string]any{"type": "string"}},
		},
	}

	tests := []struct {
		name        string
		mutate      func(m *Manifest)
		expectError bool
	}{
		{name: "valid", mutate: func(m *Manifest) {}},
		{name: "no schema at all", mutate: func(m *Manifest) { m.InputSchema = nil }},
		{name: "missing id", mutate: func(m *Manifest) { m.ID = "" }, expectError: true},
		{name: "missing name", mutate: func(m *Manifest) { m.Name = "" }, expectError: true},
		{name: "missing description", mutate: func(m *Manifest) { m.Description = "" }, expectError: true},
		{name: "missing command", mutate: func(m *Manifest) { m.Command = "" }, expectError: true},
		{
			name: "untyped property",
			mutate: func(m *Manifest) {
				m.InputSchema = map[string]any{
					"type":       "object",
					"properties": map[string]any{"x": map[string]any{"description": "typeless"}},
				}
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			err := m.Validate()
			if tt.expectError && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
