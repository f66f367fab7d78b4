// Package config loads process configuration and sets up logging.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LLM provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration values.
type Config struct {
	// Store
	DataDir string `yaml:"data_dir"`

	// LLM
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	OllamaHost      string `yaml:"ollama_host"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`

	// Web search
	SearchAPIKey  string `yaml:"search_api_key"`
	SearchBaseURL string `yaml:"search_base_url"`

	// Secret used to encrypt stored API keys.
	SecretKey string `yaml:"secret_key"`

	// Processing
	PollIntervalMs    int `yaml:"poll_interval_ms"`
	MaxConcurrentJobs int `yaml:"max_concurrent_jobs"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from an optional YAML file (CONCEPTMINE_CONFIG or
// ~/.conceptmine.yaml), then overlays environment variables on top.
func Load() Config {
	cfg := defaults()

	if path := configFilePath(); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			slog.Warn("failed to load config file, using env/defaults", "path", path, "error", err)
		}
	}

	overlayEnv(&cfg)
	return cfg
}

func defaults() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:           filepath.Join(home, ".conceptmine", "data"),
		LLMProvider:       ProviderOllama,
		LLMModel:          "llama3.1",
		OllamaHost:        "http://localhost:11434",
		SearchBaseURL:     "https://api.search.brave.com/res/v1/web/search",
		PollIntervalMs:    2000,
		MaxConcurrentJobs: 3,
		LogFile:           filepath.Join(os.TempDir(), "conceptmine.log"),
		LogLevel:          slog.LevelInfo,
	}
}

func configFilePath() string {
	if p := os.Getenv("CONCEPTMINE_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(home, ".conceptmine.yaml")
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func overlayEnv(cfg *Config) {
	cfg.DataDir = getEnv("CONCEPTMINE_DATA_DIR", cfg.DataDir)
	cfg.LLMProvider = getEnv("CONCEPTMINE_LLM_PROVIDER", cfg.LLMProvider)
	cfg.LLMModel = getEnv("CONCEPTMINE_LLM_MODEL", cfg.LLMModel)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.SearchAPIKey = getEnv("CONCEPTMINE_SEARCH_API_KEY", cfg.SearchAPIKey)
	cfg.SearchBaseURL = getEnv("CONCEPTMINE_SEARCH_BASE_URL", cfg.SearchBaseURL)
	cfg.SecretKey = getEnv("CONCEPTMINE_SECRET_KEY", cfg.SecretKey)
	cfg.LogFile = getEnv("CONCEPTMINE_LOG_FILE", cfg.LogFile)
	cfg.LogLevel = parseLogLevel(getEnv("CONCEPTMINE_LOG_LEVEL", "INFO"))

	if v := os.Getenv("CONCEPTMINE_POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PollIntervalMs = n
		}
	}
	if v := os.Getenv("CONCEPTMINE_MAX_CONCURRENT_JOBS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentJobs = n
		}
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
