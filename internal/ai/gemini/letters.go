package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/swahan/jobfinder/internal/ai"
	"github.com/swahan/jobfinder/internal/posting"
	"github.com/swahan/jobfinder/internal/utils"
)

//go:embed letter_prompt.md
var letterPrompt string

const defaultLetterLanguage = "English"

// LetterWriter composes cover letter text for a posting via Gemini.
type LetterWriter struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewLetterWriter(generator contentGenerator, maxLogLength int, logger *zap.Logger) *LetterWriter {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LetterWriter{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Compose implements ai.LetterWriter.
func (w *LetterWriter) Compose(ctx context.Context, p *posting.Posting, req *ai.LetterRequest) (string, error) {
	if p == nil {
		return "", fmt.Errorf("posting is required")
	}
	if req == nil {
		return "", fmt.Errorf("letter request is required")
	}

	postingJSON, err := json.MarshalIndent(map[string]string{
		"title":       p.Title,
		"description": p.Description,
		"location":    p.Location,
		"url":         p.SourceURL,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal posting payload: %w", err)
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = defaultLetterLanguage
	}

	prompt := letterPrompt
	prompt = strings.ReplaceAll(prompt, "{{POSTING_JSON}}", string(postingJSON))
	prompt = strings.ReplaceAll(prompt, "{{PROFILE}}", strings.TrimSpace(req.Profile))
	prompt = strings.ReplaceAll(prompt, "{{NAME}}", strings.TrimSpace(req.Name))
	prompt = strings.ReplaceAll(prompt, "{{LANGUAGE}}", language)

	w.logger.Debug("gemini letter request",
		zap.String("identity_key", p.IdentityKey),
		zap.String("language", language),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, w.maxLogLen)),
	)

	letter, err := w.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(letter), nil
}
