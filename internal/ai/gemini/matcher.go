package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/swahan/jobfinder/internal/ai"
	"github.com/swahan/jobfinder/internal/posting"
	"github.com/swahan/jobfinder/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

//go:embed similarity_prompt.md
var similarityPrompt string

const defaultMaxLogLength = 200

// Matcher scores the semantic similarity between an applicant profile and
// a posting via Gemini. The response is requested as strict JSON so that
// scoring stays reproducible for a fixed model version.
type Matcher struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewMatcher(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Similarity implements ai.Matcher.
func (m *Matcher) Similarity(ctx context.Context, profile string, p *posting.Posting) (*ai.SimilarityResult, error) {
	if p == nil {
		return nil, fmt.Errorf("posting is required")
	}
	if strings.TrimSpace(profile) == "" {
		return nil, fmt.Errorf("profile text is required")
	}

	postingJSON, err := json.MarshalIndent(map[string]string{
		"title":       p.Title,
		"description": p.Description,
		"location":    p.Location,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal posting payload: %w", err)
	}

	prompt := buildSimilarityPrompt(profile, string(postingJSON))

	m.logger.Debug("gemini similarity request",
		zap.String("identity_key", p.IdentityKey),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini similarity response",
		zap.String("identity_key", p.IdentityKey),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	return parseSimilarity(raw)
}

func buildSimilarityPrompt(profile, postingJSON string) string {
	prompt := similarityPrompt
	prompt = strings.ReplaceAll(prompt, "{{PROFILE}}", strings.TrimSpace(profile))
	prompt = strings.ReplaceAll(prompt, "{{POSTING_JSON}}", postingJSON)
	return prompt
}

func parseSimilarity(raw string) (*ai.SimilarityResult, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		return nil, fmt.Errorf("gemini response is missing a numeric score")
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}

	return &ai.SimilarityResult{
		Score:  score,
		Reason: coerceString(data["reason"]),
		Raw:    raw,
	}, nil
}

// extractJSON strips the markdown fences models like to wrap JSON in.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case fmt.Stringer:
		return strings.TrimSpace(val.String())
	default:
		if v == nil {
			return ""
		}
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
