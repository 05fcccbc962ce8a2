package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
)

func TestLoadAbsentFileUsesDefaults(t *testing.T) {
	t.Setenv("PARLEY_DATA_DIR", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Listen != ":8080" {
		t.Errorf("Listen = %q, want :8080", cfg.Server.Listen)
	}
	if cfg.Server.RecoveryHours != 24 {
		t.Errorf("RecoveryHours = %d, want 24", cfg.Server.RecoveryHours)
	}
	if !cfg.History.Enabled || cfg.History.Count != 5 || cfg.History.IncludeLatestPrior {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.Prompts.Title == "" || cfg.Prompts.Summary == "" || cfg.Prompts.Suggestions == "" {
		t.Error("default prompts must be filled in")
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "parley.toml")
	content := `
data_directory = "` + dir + `"

[server]
listen = ":9000"
recovery_hours = 48

[history]
enabled = true
count = 8
include_latest_prior = true

[providers.openai]
api_key = "file-key"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	// Environment wins over the file.
	t.Setenv("PARLEY_LISTEN", ":7777")
	t.Setenv("OPENAI_API_KEY", "env-key")
	t.Setenv("ANTHROPIC_API_KEY", "anthropic-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Listen != ":7777" {
		t.Errorf("Listen = %q, want the env override", cfg.Server.Listen)
	}
	if cfg.Server.RecoveryHours != 48 {
		t.Errorf("RecoveryHours = %d, want 48", cfg.Server.RecoveryHours)
	}
	if cfg.History.Count != 8 || !cfg.History.IncludeLatestPrior {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.Providers.OpenAI.APIKey != "env-key" {
		t.Errorf("OpenAI key = %q, want the env override", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.Providers.Anthropic.APIKey != "anthropic-env" {
		t.Errorf("Anthropic key = %q", cfg.Providers.Anthropic.APIKey)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[server\nlisten = "), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a malformed file")
	}
}

func TestGenerateConfigTemplateParses(t *testing.T) {
	var cfg Config
	if _, err := toml.Decode(GenerateConfigTemplate(), &cfg); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if cfg.Server.Listen != ":8080" {
		t.Errorf("template Listen = %q, want :8080", cfg.Server.Listen)
	}
	if cfg.Tools.Dir != "./data/tools" {
		t.Errorf("template tools dir = %q", cfg.Tools.Dir)
	}
}

func TestDatabasePath(t *testing.T) {
	cfg := Config{DataDirectory: "/var/lib/parley"}
	if got := cfg.DatabasePath(); got != "/var/lib/parley/parley.db" {
		t.Errorf("DatabasePath = %q", got)
	}
}
