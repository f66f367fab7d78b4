package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jhartinger/conceptmine/internal/service"
)

var (
	setProvider   string
	setModel      string
	setOllamaHost string
	setOpenAIKey  string
	setClaudeKey  string
	setSearchKey  string
	setMaxJobs    int
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change persisted settings",
	Long: `Show the persisted settings, or change them with flags. API keys are
encrypted before they reach disk.

Examples:
  conceptmine settings
  conceptmine settings --llm-provider openai --llm-model gpt-4o
  conceptmine settings --openai-key sk-...`,
	Args: cobra.NoArgs,
	RunE: runSettings,
}

func init() {
	settingsCmd.Flags().StringVar(&setProvider, "llm-provider", "", "LLM provider (ollama|openai|anthropic)")
	settingsCmd.Flags().StringVar(&setModel, "llm-model", "", "LLM model name")
	settingsCmd.Flags().StringVar(&setOllamaHost, "ollama-host", "", "ollama server URL")
	settingsCmd.Flags().StringVar(&setOpenAIKey, "openai-key", "", "OpenAI API key")
	settingsCmd.Flags().StringVar(&setClaudeKey, "anthropic-key", "", "Anthropic API key")
	settingsCmd.Flags().StringVar(&setSearchKey, "search-key", "", "web search API key")
	settingsCmd.Flags().IntVar(&setMaxJobs, "max-jobs", 0, "max concurrent extraction workers")
	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	svc := service.NewSettingsService(st, cfg.SecretKey)

	settings, err := svc.Load(ctx)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	changed := false
	apply := func(target *string, value string) {
		if value != "" {
			*target = value
			changed = true
		}
	}
	apply(&settings.LLMProvider, setProvider)
	apply(&settings.LLMModel, setModel)
	apply(&settings.OllamaHost, setOllamaHost)
	apply(&settings.OpenAIAPIKey, setOpenAIKey)
	apply(&settings.AnthropicAPIKey, setClaudeKey)
	apply(&settings.SearchAPIKey, setSearchKey)
	if setMaxJobs > 0 {
		settings.MaxConcurrentJobs = setMaxJobs
		changed = true
	}

	if changed {
		if err := svc.Save(ctx, settings); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		fmt.Println("Settings saved")
	}

	fmt.Printf("LLM provider: %s\n", settings.LLMProvider)
	fmt.Printf("LLM model: %s\n", settings.LLMModel)
	if settings.OllamaHost != "" {
		fmt.Printf("Ollama host: %s\n", settings.OllamaHost)
	}
	fmt.Printf("OpenAI key: %s\n", maskKey(settings.OpenAIAPIKey))
	fmt.Printf("Anthropic key: %s\n", maskKey(settings.AnthropicAPIKey))
	fmt.Printf("Search key: %s\n", maskKey(settings.SearchAPIKey))
	fmt.Printf("Max concurrent jobs: %d\n", settings.MaxConcurrentJobs)
	return nil
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
