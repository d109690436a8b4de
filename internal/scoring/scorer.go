package scoring

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/swahan/jobfinder/internal/ai"
	"github.com/swahan/jobfinder/internal/posting"
)

// Scorer computes a relevance score in [0,1] for a posting against a
// criteria set. The lexical and location terms are pure functions of the
// inputs; the optional semantic term delegates to a matcher and its weight
// is dropped (with renormalization) when no matcher is configured.
type Scorer struct {
	matcher ai.Matcher
	logger  *zap.Logger
}

// New creates a scorer. matcher may be nil, which disables the semantic
// term.
func New(matcher ai.Matcher, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{matcher: matcher, logger: logger}
}

// Score computes the weighted relevance of p against criteria. Repeat
// calls with identical inputs return identical values.
func (s *Scorer) Score(ctx context.Context, p *posting.Posting, criteria *CriteriaSet) (float64, error) {
	if p.Text() == "" {
		return 0, nil
	}

	weights := criteria.weights()
	lexical := lexicalTerm(p, criteria.Keywords)
	location := locationTerm(p, criteria.Locations)

	semanticWeight := weights.Semantic
	semantic := 0.0
	if s.matcher != nil && strings.TrimSpace(criteria.Profile) != "" && semanticWeight > 0 {
		result, err := s.matcher.Similarity(ctx, criteria.Profile, p)
		if err != nil {
			return 0, fmt.Errorf("semantic similarity: %w", err)
		}
		semantic = clamp01(result.Score)

		s.logger.Debug("semantic similarity",
			zap.String("identity_key", p.IdentityKey),
			zap.Float64("score", semantic),
			zap.String("reason", result.Reason),
		)
	} else {
		semanticWeight = 0
	}

	total := weights.Lexical + weights.Location + semanticWeight
	if total == 0 {
		return 0, nil
	}

	score := (weights.Lexical*lexical + weights.Location*location + semanticWeight*semantic) / total

	return clamp01(score), nil
}

// lexicalTerm is the fraction of keywords found in the posting text. A
// title hit is worth 0.6 and a description hit 0.4, so a keyword present
// in both counts fully. Matching is a case- and diacritic-folded substring
// check: feed summaries glue words together ("Python-Entwickler"), which a
// token match would miss.
func lexicalTerm(p *posting.Posting, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}

	title := Normalize(p.Title)
	description := Normalize(p.Description)

	var sum float64
	for _, keyword := range keywords {
		kw := Normalize(keyword)
		if kw == "" {
			continue
		}
		if strings.Contains(title, kw) {
			sum += titleShare
		}
		if strings.Contains(description, kw) {
			sum += descriptionShare
		}
	}

	return clamp01(sum / float64(len(keywords)))
}

// locationTerm is 1 when any configured location matches, else 0. The
// posting location is used when the feed provided one; otherwise the full
// posting text is scanned, since most job feeds embed the city in the
// title or summary. Containment is checked in both directions so that
// "Berlin" matches "Berlin, DE" and vice versa.
func locationTerm(p *posting.Posting, locations []string) float64 {
	if len(locations) == 0 {
		return 0
	}

	haystack := Normalize(p.Location)
	fallback := haystack == ""
	if fallback {
		haystack = Normalize(p.Text())
	}

	for _, location := range locations {
		loc := Normalize(location)
		if loc == "" {
			continue
		}
		if strings.Contains(haystack, loc) {
			return 1
		}
		if !fallback && strings.Contains(loc, haystack) {
			return 1
		}
	}

	return 0
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s and strips diacritics, so that "München" and
// "munchen" compare equal.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
