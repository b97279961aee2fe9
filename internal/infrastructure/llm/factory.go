package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/policysage/policysage-api/internal/config"
	"github.com/policysage/policysage-api/internal/domain/repository"
)

// New builds the LLM client selected by SAGE_LLM_PROVIDER. The returned
// close function releases the client's resources.
func New(ctx context.Context, cfg *config.Config) (repository.LLMClient, func() error, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		client, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[LLM] ☁️ Using %s", client.Name())
		return client, client.Close, nil

	case config.ProviderOllama:
		client := NewLocalOllamaClient(cfg.OllamaHost, cfg.OllamaModel)
		log.Printf("[LLM] 🏠 Using %s", client.Name())
		if err := client.PullModel(ctx, cfg.OllamaModel); err != nil {
			log.Printf("[Warning] 📥 Failed to pull model '%s': %v", cfg.OllamaModel, err)
		}
		return client, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}
