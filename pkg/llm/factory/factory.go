package factory

import (
	"fmt"

	"ai-tutorchat-be/pkg/llm"
	"ai-tutorchat-be/pkg/llm/gemini"
	"ai-tutorchat-be/pkg/llm/ollama"
)

// NewProvider selects the generative-text backend from configuration.
func NewProvider(providerName, modelName, ollamaBaseURL, geminiAPIKey string) (llm.Provider, error) {
	switch providerName {
	case "ollama":
		return ollama.NewOllamaProvider(ollamaBaseURL, modelName), nil
	case "gemini":
		return gemini.NewGeminiProvider(geminiAPIKey, modelName), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", providerName)
	}
}
