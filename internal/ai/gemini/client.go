package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/swahan/jobfinder/internal/utils"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 2
	retryBaseDelay    = 2 * time.Second

	// defaultRequestTimeout bounds a single API call when the caller does
	// not supply a timeout. A hung call must surface as a per-item error,
	// not block the run.
	defaultRequestTimeout = 60 * time.Second
)

// contentCaller matches the genai Models surface the generator needs.
// *genai.Models satisfies it; tests inject a fake.
type contentCaller interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based
// interactions with retries on temporary API errors.
type Generator struct {
	models         contentCaller
	modelName      string
	maxRetries     int
	retryDelay     time.Duration
	requestTimeout time.Duration
	logger         *zap.Logger
}

// NewGenerator creates a Generator configured for the Gemini API backend.
// timeout bounds each individual API call; zero or less falls back to the
// default.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, timeout time.Duration, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		models:         client.Models,
		modelName:      model,
		maxRetries:     maxRetries,
		retryDelay:     retryBaseDelay,
		requestTimeout: timeout,
		logger:         logger,
	}, nil
}

// GenerateContent sends the prompt to Gemini and returns the concatenated
// textual response. Temporary API failures are retried with a linear
// backoff up to the configured attempt budget.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Debug("retrying gemini request",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			if err := utils.WaitFor(ctx, time.Duration(attempt)*g.retryDelay); err != nil {
				return "", err
			}
		}

		resp, err := g.generateOnce(ctx, prompt)
		if err != nil {
			if !isTemporary(err) {
				return "", fmt.Errorf("generate content: %w", err)
			}
			lastErr = err
			continue
		}

		output := collectText(resp)
		if output == "" {
			return "", errors.New("gemini api returned empty response")
		}
		return output, nil
	}

	return "", fmt.Errorf("generate content: retries exhausted: %w", lastErr)
}

// generateOnce runs a single API call under the per-request deadline.
func (g *Generator) generateOnce(ctx context.Context, prompt string) (*genai.GenerateContentResponse, error) {
	if g.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.requestTimeout)
		defer cancel()
	}

	return g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), nil)
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func isTemporary(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return false
}
