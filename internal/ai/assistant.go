package ai

import (
	"context"

	"github.com/swahan/jobfinder/internal/posting"
)

// Matcher computes a semantic similarity between a user profile and a
// posting. Implementations must be reproducible for a fixed model version:
// the scorer treats the result as part of a deterministic score.
type Matcher interface {
	Similarity(ctx context.Context, profile string, p *posting.Posting) (*SimilarityResult, error)
}

// SimilarityResult is the outcome of one semantic comparison.
type SimilarityResult struct {
	// Score is in [0,1].
	Score  float64
	Reason string
	Raw    string
}

// LetterRequest carries the applicant context a letter is written from.
type LetterRequest struct {
	Profile  string
	Name     string
	Email    string
	Phone    string
	Language string
}

// LetterWriter produces cover letter text for a scored posting.
type LetterWriter interface {
	Compose(ctx context.Context, p *posting.Posting, req *LetterRequest) (string, error)
}
