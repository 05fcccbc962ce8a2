package provider

import (
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/azure"
)

// NewAzureOpenAIProvider creates the adapter for an Azure OpenAI deployment.
// Azure speaks the same chat completion protocol as OpenAI, so the adapter
// is an OpenAIProvider constructed with Azure client options. All three
// settings are required together; with any missing the provider stays
// registered and reports a deterministic error naming the variables on use.
func NewAzureOpenAIProvider(endpoint, apiKey, apiVersion string) *OpenAIProvider {
	if endpoint == "" || apiKey == "" || apiVersion == "" {
		return &OpenAIProvider{
			id: "azure_openai",
			notReadyMsg: "Azure OpenAI provider is not initialized. " +
				"Please ensure the AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, and " +
				"AZURE_OPENAI_API_VERSION environment variables are set.",
		}
	}

	client := openai.NewClient(
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(apiKey),
	)
	return &OpenAIProvider{client: &client, id: "azure_openai"}
}
