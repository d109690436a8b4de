package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/swahan/jobfinder/internal/ai/gemini"
	"github.com/swahan/jobfinder/internal/secrets"
)

// newGeminiGenerator validates the ai configuration and builds the Gemini
// client shared by the matcher and the letter writer. timeout bounds each
// API call, same as the feed fetch timeout bounds one HTTP request.
func newGeminiGenerator(ctx context.Context, cfg *AIConfig, timeout time.Duration, logger *zap.Logger) (*gemini.Generator, *zap.Logger, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil, fmt.Errorf("ai is not enabled in the configuration")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	if cfg.Gemini == nil {
		return nil, nil, fmt.Errorf("gemini configuration is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY_FILE)", err)
	}

	genLogger := logger.With(
		zap.String("provider", "gemini"),
		zap.String("model", cfg.Gemini.Model),
	)

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, timeout, genLogger)
	if err != nil {
		return nil, nil, err
	}

	return generator, genLogger, nil
}
