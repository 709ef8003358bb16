package generator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/affpress/internal/config"
)

// Generation is the text produced for a prompt.
type Generation struct {
	Text     string
	Provider string
	// Fallback is set when Text came from the built-in template instead of a real provider.
	Fallback bool
}

// Generator produces raw text for a prompt. ok is false when no text is
// available, either because nothing is configured or because the provider
// call failed; callers skip the invocation in that case.
type Generator interface {
	Generate(ctx context.Context, prompt string) (gen Generation, ok bool)
}

// New selects a generator from configuration. A configured API key always
// wins; the fallback template is only used when no provider is configured.
func New(cfg *config.GeneratorConfig, logger *zap.Logger) Generator {
	if cfg.APIKey != "" {
		timeout, err := time.ParseDuration(cfg.Timeout)
		if err != nil || timeout <= 0 {
			timeout = 120 * time.Second
		}
		logger.Info("Using OpenAI-compatible generator",
			zap.String("base_url", cfg.BaseURL),
			zap.String("model", cfg.Model))
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.MaxTokens, timeout, logger)
	}

	if cfg.FallbackEnabled() {
		logger.Warn("No generator API key configured, using fallback template")
		return NewFallbackGenerator(cfg.AffiliateTag)
	}

	logger.Warn("No generator configured, generation is disabled")
	return Disabled{}
}

// Disabled never produces text.
type Disabled struct{}

func (Disabled) Generate(context.Context, string) (Generation, bool) {
	return Generation{}, false
}
