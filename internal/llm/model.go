// Package llm wraps langchaingo models behind the narrow request/response
// contract the domain operations use.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/jhartinger/conceptmine/internal/config"
	"github.com/jhartinger/conceptmine/internal/metrics"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Options tunes a single generation call.
type Options struct {
	Temperature float64
	MaxTokens   int
	JSONMode    bool
}

// Usage is the token breakdown reported by the provider, zero when the
// provider does not report usage (ollama models often do not).
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Response is a completed generation.
type Response struct {
	Content string
	Usage   Usage
	Model   string
}

// Model wraps a langchaingo LLM for text generation.
type Model struct {
	llm       llms.Model
	modelName string
	collector *metrics.Collector
}

// NewModel creates an LLM model based on configuration. The collector is
// optional; when set, every call records timing and token usage.
func NewModel(cfg config.Config, collector *metrics.Collector) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
		collector: collector,
	}, nil
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// Generate generates text based on a single user prompt.
func (m *Model) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	return m.GenerateWithSystem(ctx, "", prompt, opts)
}

// GenerateWithSystem generates text with an optional system prompt.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string, opts Options) (*Response, error) {
	var messages []llms.MessageContent
	if systemPrompt != "" {
		messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, userPrompt))

	var callOpts []llms.CallOption
	if opts.Temperature > 0 {
		callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	usage := usageFromInfo(choice.GenerationInfo)

	if m.collector != nil {
		m.collector.RecordLLMUsage(metrics.OpLLMGenerate, time.Since(start),
			int64(usage.InputTokens), int64(usage.OutputTokens))
	}

	return &Response{
		Content: choice.Content,
		Usage:   usage,
		Model:   m.modelName,
	}, nil
}

// usageFromInfo pulls token counts out of the provider-specific generation
// info map. Providers disagree on key names; missing counts stay zero.
func usageFromInfo(info map[string]any) Usage {
	var u Usage
	for _, k := range []string{"PromptTokens", "InputTokens", "prompt_tokens", "input_tokens"} {
		if n, ok := asInt(info[k]); ok {
			u.InputTokens = n
			break
		}
	}
	for _, k := range []string{"CompletionTokens", "OutputTokens", "completion_tokens", "output_tokens"} {
		if n, ok := asInt(info[k]); ok {
			u.OutputTokens = n
			break
		}
	}
	return u
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
