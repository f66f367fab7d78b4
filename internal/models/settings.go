package models

import "time"

// Settings is the single persisted per-user settings record. API keys are
// stored encrypted; the settings service transparently decrypts on load.
type Settings struct {
	LLMProvider       string    `json:"llm_provider"`
	LLMModel          string    `json:"llm_model"`
	OllamaHost        string    `json:"ollama_host,omitempty"`
	OpenAIAPIKey      string    `json:"openai_api_key,omitempty"`
	AnthropicAPIKey   string    `json:"anthropic_api_key,omitempty"`
	SearchAPIKey      string    `json:"search_api_key,omitempty"`
	MaxConcurrentJobs int       `json:"max_concurrent_jobs"`
	UpdatedAt         time.Time `json:"updated_at"`
}
