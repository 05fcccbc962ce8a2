// Package config loads gateway configuration from a TOML file with
// environment overrides.
//
// Provider credentials follow the deployment's historical environment names
// (OLLAMA_ENDPOINT, OPENAI_API_KEY, AZURE_OPENAI_API_KEY/_ENDPOINT/
// _API_VERSION, ANTHROPIC_API_KEY) so existing .env files keep working. A
// missing credential is not a load error: the affected provider reports a
// deterministic, key-naming error on use instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Listen        string `toml:"listen"`
	RecoveryHours int    `toml:"recovery_hours"`
}

type HistoryConfig struct {
	Enabled bool `toml:"enabled"`
	Count   int  `toml:"count"`

	// IncludeLatestPrior switches the context slice from the legacy
	// "last N, drop the final prior element" behavior to "last N-1".
	// The legacy slice silently discards the most recent prior turn;
	// kept as the default until product confirms the change.
	IncludeLatestPrior bool `toml:"include_latest_prior"`
}

type ToolsConfig struct {
	Dir            string `toml:"dir"`
	Enabled        bool   `toml:"enabled"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type OllamaConfig struct {
	Host string `toml:"host"`
}

type OpenAIConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type AzureOpenAIConfig struct {
	APIKey     string `toml:"api_key"`
	Endpoint   string `toml:"endpoint"`
	APIVersion string `toml:"api_version"`
}

type AnthropicConfig struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
}

type ProvidersConfig struct {
	Ollama      OllamaConfig      `toml:"ollama"`
	OpenAI      OpenAIConfig      `toml:"openai"`
	AzureOpenAI AzureOpenAIConfig `toml:"azure_openai"`
	Anthropic   AnthropicConfig   `toml:"anthropic"`
}

// Prompts are the instruction templates used by the assist endpoints.
// They are explicit configuration handed to the orchestrator, not global
// state loaded from disk at import time.
type Prompts struct {
	Title       string `toml:"title"`
	Summary     string `toml:"summary"`
	Suggestions string `toml:"suggestions"`
}

type Config struct {
	DataDirectory string          `toml:"data_directory"`
	Server        ServerConfig    `toml:"server"`
	History       HistoryConfig   `toml:"history"`
	Tools         ToolsConfig     `toml:"tools"`
	Providers     ProvidersConfig `toml:"providers"`
	Prompts       Prompts         `toml:"prompts"`
}

// DatabasePath is the SQLite file inside the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDirectory, "parley.db")
}

// Load reads the config file at path, falling back to defaults when the file
// does not exist, then applies environment overrides. An unreadable or
// malformed file is an error; an absent one is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" && FileExists(path) {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.fillPromptDefaults()

	if err := os.MkdirAll(cfg.DataDirectory, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PARLEY_LISTEN"); v != "" {
		c.Server.Listen = v
	}
	if v := os.Getenv("PARLEY_DATA_DIR"); v != "" {
		c.DataDirectory = v
	}
	if v := os.Getenv("PARLEY_TOOLS_DIR"); v != "" {
		c.Tools.Dir = v
	}
	if v := os.Getenv("OLLAMA_ENDPOINT"); v != "" {
		c.Providers.Ollama.Host = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Providers.OpenAI.APIKey = v
	}
	if v := os.Getenv("AZURE_OPENAI_API_KEY"); v != "" {
		c.Providers.AzureOpenAI.APIKey = v
	}
	if v := os.Getenv("AZURE_OPENAI_ENDPOINT"); v != "" {
		c.Providers.AzureOpenAI.Endpoint = v
	}
	if v := os.Getenv("AZURE_OPENAI_API_VERSION"); v != "" {
		c.Providers.AzureOpenAI.APIVersion = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Providers.Anthropic.APIKey = v
	}
}

func (c *Config) fillPromptDefaults() {
	def := DefaultPrompts()
	if c.Prompts.Title == "" {
		c.Prompts.Title = def.Title
	}
	if c.Prompts.Summary == "" {
		c.Prompts.Summary = def.Summary
	}
	if c.Prompts.Suggestions == "" {
		c.Prompts.Suggestions = def.Suggestions
	}
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
