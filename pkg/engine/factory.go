package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/William-Gao/frootful-sales-aggregation/pkg/config"
)

// New creates the Engine selected by configuration.
func New(cfg *config.EngineConfig, logger *zap.Logger) (Engine, error) {
	switch cfg.Provider {
	case config.ProviderAnthropic:
		return NewAnthropicEngine(cfg.AnthropicAPIKey, cfg.Model, cfg.BaseURL, logger)
	case config.ProviderOpenAI:
		return NewOpenAIEngine(cfg.OpenAIAPIKey, cfg.Model, cfg.BaseURL, logger)
	default:
		return nil, fmt.Errorf("unknown engine provider: %q", cfg.Provider)
	}
}
