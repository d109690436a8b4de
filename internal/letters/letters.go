package letters

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/swahan/jobfinder/internal/ai"
	"github.com/swahan/jobfinder/internal/posting"
)

const maxFilenameTitle = 50

// unsafeFilenameChars keeps letters and digits of any script, so titles
// with umlauts stay readable in filenames.
var unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}\s_-]`)

// Generator produces cover letters for scored postings. When an AI writer
// is configured its wording is used; otherwise (or when the writer fails)
// a deterministic template letter is produced, so letter generation never
// depends on an external service being up.
type Generator struct {
	writer  ai.LetterWriter
	request *ai.LetterRequest
	logger  *zap.Logger
}

// New creates a letter generator. writer may be nil.
func New(writer ai.LetterWriter, request *ai.LetterRequest, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{writer: writer, request: request, logger: logger}
}

// Compose returns the cover letter text for p. Only SCORED postings with a
// recorded score are eligible.
func (g *Generator) Compose(ctx context.Context, p *posting.Posting) (string, error) {
	if p.Status != posting.StatusScored || p.Score == nil {
		return "", fmt.Errorf("posting %s is not scored", p.IdentityKey)
	}

	if g.writer != nil {
		letter, err := g.writer.Compose(ctx, p, g.request)
		if err == nil {
			return g.withFooter(letter, p), nil
		}
		g.logger.Warn("AI letter generation failed, falling back to template",
			zap.String("identity_key", p.IdentityKey),
			zap.Error(err),
		)
	}

	return g.withFooter(g.template(p), p), nil
}

// WriteFiles composes letters for the given postings and writes each into
// dir. It returns the written filenames; a failing posting is logged and
// skipped so one bad letter does not stop the batch.
func (g *Generator) WriteFiles(ctx context.Context, dir string, postings []*posting.Posting) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create letters directory: %w", err)
	}

	var written []string
	for idx, p := range postings {
		letter, err := g.Compose(ctx, p)
		if err != nil {
			g.logger.Warn("skipping letter",
				zap.String("identity_key", p.IdentityKey),
				zap.Error(err),
			)
			continue
		}

		name := fmt.Sprintf("letter_%02d_%s.txt", idx+1, SanitizeTitle(p.Title))
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(letter), 0o644); err != nil {
			g.logger.Warn("writing letter file failed",
				zap.String("path", path),
				zap.Error(err),
			)
			continue
		}

		g.logger.Info("letter written",
			zap.String("path", path),
			zap.String("title", p.Title),
		)
		written = append(written, path)
	}

	return written, nil
}

// template is the deterministic fallback letter.
func (g *Generator) template(p *posting.Posting) string {
	location := ""
	if p.Location != "" {
		location = fmt.Sprintf(" in %s", p.Location)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear Sir or Madam,\n\n")
	fmt.Fprintf(&b, "I read your posting for %q%s with great interest.\n\n", p.Title, location)
	if profile := strings.TrimSpace(g.request.Profile); profile != "" {
		fmt.Fprintf(&b, "%s\n\n", profile)
	}
	fmt.Fprintf(&b, "My background and motivation match the requirements of this position, and I would welcome the chance to discuss them in person.\n\n")
	fmt.Fprintf(&b, "Kind regards,\n\n%s", g.request.Name)
	if g.request.Email != "" {
		fmt.Fprintf(&b, "\nEmail: %s", g.request.Email)
	}
	if g.request.Phone != "" {
		fmt.Fprintf(&b, "\nPhone: %s", g.request.Phone)
	}

	return b.String()
}

func (g *Generator) withFooter(letter string, p *posting.Posting) string {
	return fmt.Sprintf("%s\n\n---\nPosting: %s\nScore: %.2f\n", strings.TrimSpace(letter), p.SourceURL, *p.Score)
}

// SanitizeTitle makes a posting title safe for use in a filename.
func SanitizeTitle(title string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(title, "")
	cleaned = strings.Join(strings.Fields(cleaned), "_")
	runes := []rune(cleaned)
	if len(runes) > maxFilenameTitle {
		cleaned = string(runes[:maxFilenameTitle])
	}
	if cleaned == "" {
		cleaned = "posting"
	}
	return cleaned
}
