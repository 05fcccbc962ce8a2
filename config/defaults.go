package config

// Default returns the gateway's built-in configuration.
func Default() *Config {
	return &Config{
		DataDirectory: "./data",
		Server: ServerConfig{
			Listen:        ":8080",
			RecoveryHours: 24,
		},
		History: HistoryConfig{
			Enabled:            true,
			Count:              5,
			IncludeLatestPrior: false,
		},
		Tools: ToolsConfig{
			Dir:            "./data/tools",
			Enabled:        true,
			TimeoutSeconds: 120,
		},
		Providers: ProvidersConfig{
			Ollama: OllamaConfig{Host: "http://localhost:11434"},
		},
	}
}

// DefaultPrompts returns the built-in assist prompt templates.
func DefaultPrompts() Prompts {
	return Prompts{
		Title: "Generate a concise, creative title for the following conversation " +
			"using the provided summary. Always start and end the title with an emoji. " +
			"Return only the title, no other text or markdown. Always return text. " +
			"If there is no conversation, make a random title.",
		Summary: "Create a summary of the following conversation. " +
			"Return only the summary, no other text or markdown.",
		Suggestions: "Suggest one short question a curious person might ask an AI assistant.\n" +
			"Pick exactly one topic from this list:\n${buckets}\n" +
			"Avoid repeating any of these earlier suggestions:\n${suggestions}\n\n" +
			"Respond with only a JSON object, no markdown fences, in the form:\n" +
			`{"bucket": "<topic>", "summary": "<few-word summary>", "question": "<the question>"}`,
	}
}

// GenerateConfigTemplate returns a commented TOML template for a fresh
// install.
func GenerateConfigTemplate() string {
	return `# Parley Gateway Configuration
# This file uses TOML format: https://toml.io

# Directory for the conversation database and tool manifests
data_directory = "./data"

[server]
listen = ":8080"
# Hours a soft-deleted message stays recoverable
recovery_hours = 24

[history]
# Default for users without stored settings
enabled = true
count = 5
# Legacy context slicing drops the most recent prior turn. Flip this once
# product confirms the corrected behavior.
include_latest_prior = false

[tools]
dir = "./data/tools"
enabled = true
timeout_seconds = 120

[providers.ollama]
host = "http://localhost:11434"

# API keys may also be supplied via OPENAI_API_KEY, ANTHROPIC_API_KEY,
# AZURE_OPENAI_API_KEY / AZURE_OPENAI_ENDPOINT / AZURE_OPENAI_API_VERSION
[providers.openai]
api_key = ""

[providers.azure_openai]
api_key = ""
endpoint = ""
api_version = ""

[providers.anthropic]
api_key = ""
`
}
