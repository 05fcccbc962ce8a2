package tools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"parley/model"
)

// DefaultTimeout bounds a tool call when the manifest does not set its own.
const DefaultTimeout = 120 * time.Second

// Registry holds the validated tool manifests from the manifest directory.
//
// The registry is version-stamped: the stamp is a digest of the manifest
// files on disk, and EnsureFresh reloads the set whenever the directory has
// changed since the last load. Callers that captured descriptors before a
// reload keep working; names resolve against the current set at invoke time.
type Registry struct {
	dir     string
	runner  Runner
	logger  *slog.Logger
	timeout time.Duration

	mu      sync.RWMutex
	byID    map[string]*Manifest
	byName  map[string]*Manifest
	version string
}

// NewRegistry creates a registry over dir. Manifests are not loaded until
// Load or EnsureFresh.
func NewRegistry(dir string, runner Runner, timeout time.Duration, logger *slog.Logger) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		dir:     dir,
		runner:  runner,
		logger:  logger,
		timeout: timeout,
		byID:    make(map[string]*Manifest),
		byName:  make(map[string]*Manifest),
	}
}

// Load scans the manifest directory and replaces the registered set. A
// manifest that fails to parse or validate is logged and skipped; the rest
// of the directory still loads. A missing directory yields an empty set.
func (r *Registry) Load() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.replace(nil, "")
			return nil
		}
		return fmt.Errorf("failed to read tools directory: %w", err)
	}

	var manifests []*Manifest
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		m, err := LoadManifest(path)
		if err != nil {
			regErr := &model.RegistrationError{Unit: entry.Name(), Err: err}
			r.logger.Warn("skipping tool manifest", "unit", entry.Name(), "error", regErr.Error())
			continue
		}
		manifests = append(manifests, m)
	}

	version, err := r.fingerprint()
	if err != nil {
		return err
	}
	r.replace(manifests, version)
	r.logger.Info("tool manifests loaded", "count", len(manifests), "version", version)
	return nil
}

// EnsureFresh reloads the registry when the manifest directory changed
// since the last load. Cheap when nothing changed: one directory walk, no
// file reads.
func (r *Registry) EnsureFresh() error {
	current, err := r.fingerprint()
	if err != nil {
		return err
	}

	r.mu.RLock()
	stale := current != r.version
	r.mu.RUnlock()

	if !stale {
		return nil
	}
	return r.Load()
}

// Version returns the stamp of the currently loaded manifest set.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// IDs returns the ids of all registered tools, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// CatalogEntry is the listing view of a registered tool.
type CatalogEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog returns all registered tools for listing, sorted by name.
func (r *Registry) Catalog() []CatalogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]CatalogEntry, 0, len(r.byID))
	for _, m := range r.byID {
		entries = append(entries, CatalogEntry{ID: m.ID, Name: m.Name, Description: m.Description})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

// Describe returns provider-facing descriptors for the given tool ids.
// Unknown ids are skipped; a user may own tools whose manifests have since
// been removed. The result is ordered by tool name for stable prompts.
func (r *Registry) Describe(ids []string) []mcptypes.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var tools []mcptypes.Tool
	for _, id := range ids {
		if m, ok := r.byID[id]; ok {
			tools = append(tools, m.Tool())
		}
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools
}

// Invoke runs one tool call and captures any failure on the result record.
// Errors never propagate as Go errors: a broken tool degrades the turn's
// tool data, not the turn.
func (r *Registry) Invoke(ctx context.Context, call model.ToolCall) model.ToolCallResult {
	result := model.ToolCallResult{
		Name:      call.Name,
		Arguments: call.Arguments,
	}

	r.mu.RLock()
	m, ok := r.byName[call.Name]
	r.mu.RUnlock()
	if !ok {
		result.Err = fmt.Sprintf("tool %s is not registered", call.Name)
		return result
	}

	timeout := r.timeout
	if m.TimeoutSeconds > 0 {
		timeout = time.Duration(m.TimeoutSeconds) * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output, err := r.runner.Run(callCtx, m, call.Arguments)
	if err != nil {
		toolErr := &model.ToolError{Tool: call.Name, Err: err}
		r.logger.Warn("tool invocation failed", "tool", call.Name, "error", err.Error())
		result.Err = toolErr.Error()
		return result
	}

	result.Result = output
	return result
}

// ExecuteCalls runs the requested calls in order, once per distinct
// (name, arguments) pair. Duplicate requests for the same call are common
// when a model repeats itself; only the first is executed.
func (r *Registry) ExecuteCalls(ctx context.Context, calls []model.ToolCall) []model.ToolCallResult {
	seen := make(map[string]bool)
	var results []model.ToolCallResult

	for _, call := range calls {
		key := dedupKey(call)
		if seen[key] {
			continue
		}
		seen[key] = true
		results = append(results, r.Invoke(ctx, call))
	}
	return results
}

// dedupKey identifies a call by tool name plus its arguments, compared
// case-insensitively. json.Marshal sorts map keys, so two maps with the
// same entries produce the same key.
func dedupKey(call model.ToolCall) string {
	raw, err := json.Marshal(call.Arguments)
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", call.Arguments))
	}
	return call.Name + "|" + strings.ToLower(string(raw))
}

func (r *Registry) replace(manifests []*Manifest, version string) {
	byID := make(map[string]*Manifest, len(manifests))
	byName := make(map[string]*Manifest, len(manifests))
	for _, m := range manifests {
		if _, dup := byID[m.ID]; dup {
			r.logger.Warn("duplicate tool id, keeping first", "id", m.ID)
			continue
		}
		if _, dup := byName[m.Name]; dup {
			r.logger.Warn("duplicate tool name, keeping first", "name", m.Name)
			continue
		}
		byID[m.ID] = m
		byName[m.Name] = m
	}

	r.mu.Lock()
	r.byID = byID
	r.byName = byName
	r.version = version
	r.mu.Unlock()
}

// fingerprint digests the names, sizes, and mtimes of the manifest files.
// Content is not read; editing a file bumps its mtime, which is enough.
func (r *Registry) fingerprint() (string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read tools directory: %w", err)
	}

	infos := make([]fs.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })

	h := sha256.New()
	for _, info := range infos {
		fmt.Fprintf(h, "%s|%d|%d\n", info.Name(), info.Size(), info.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil))[:16], nil
}
