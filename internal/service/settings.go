package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhartinger/conceptmine/internal/config"
	"github.com/jhartinger/conceptmine/internal/models"
	"github.com/jhartinger/conceptmine/internal/secrets"
	"github.com/jhartinger/conceptmine/internal/store"
)

// settingsID keys the single settings record.
const settingsID = "settings"

// SettingsService loads and saves the persisted settings record. API keys
// are encrypted at rest and transparently decrypted on load.
type SettingsService struct {
	store *store.Store
	key   *[32]byte
}

// NewSettingsService creates a settings service using the given passphrase
// for key encryption.
func NewSettingsService(s *store.Store, passphrase string) *SettingsService {
	return &SettingsService{store: s, key: secrets.DeriveKey(passphrase)}
}

// Load returns the stored settings with API keys decrypted. When nothing was
// saved yet, defaults derived from the process configuration apply.
func (s *SettingsService) Load(ctx context.Context) (*models.Settings, error) {
	stored, err := store.Get[models.Settings](s.store, store.TableSettings, settingsID)
	if errors.Is(err, store.ErrNotFound) {
		return defaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	for _, field := range []*string{&stored.OpenAIAPIKey, &stored.AnthropicAPIKey, &stored.SearchAPIKey} {
		plain, err := secrets.Decrypt(*field, s.key)
		if err != nil {
			return nil, fmt.Errorf("decrypt stored key: %w", err)
		}
		*field = plain
	}
	return stored, nil
}

// Save encrypts the API keys and persists the settings record.
func (s *SettingsService) Save(ctx context.Context, settings *models.Settings) error {
	record := *settings
	record.UpdatedAt = time.Now().UTC()

	for _, field := range []*string{&record.OpenAIAPIKey, &record.AnthropicAPIKey, &record.SearchAPIKey} {
		sealed, err := secrets.Encrypt(*field, s.key)
		if err != nil {
			return fmt.Errorf("encrypt key: %w", err)
		}
		*field = sealed
	}

	if err := store.Put(s.store, store.TableSettings, settingsID, &record); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	settings.UpdatedAt = record.UpdatedAt
	return nil
}

func defaultSettings() *models.Settings {
	return &models.Settings{
		LLMProvider:       config.ProviderOllama,
		LLMModel:          "llama3.1",
		OllamaHost:        "http://localhost:11434",
		MaxConcurrentJobs: 3,
	}
}
