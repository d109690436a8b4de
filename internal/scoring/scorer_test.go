package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/swahan/jobfinder/internal/ai"
	"github.com/swahan/jobfinder/internal/posting"
)

type stubMatcher struct {
	score float64
	err   error
	calls int
}

func (s *stubMatcher) Similarity(_ context.Context, _ string, _ *posting.Posting) (*ai.SimilarityResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &ai.SimilarityResult{Score: s.score}, nil
}

func TestScoreConcreteScenario(t *testing.T) {
	criteria := &CriteriaSet{
		Keywords:  []string{"python", "remote"},
		Locations: []string{"Berlin"},
		MinScore:  0.4,
	}

	p := &posting.Posting{
		Title:       "Remote Python Developer",
		Location:    "Berlin",
		Description: "We are looking for a remote Python developer.",
	}

	scorer := New(nil, nil)
	score, err := scorer.Score(context.Background(), p, criteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Both keywords hit title and description, the location matches, and
	// the semantic weight renormalizes away: lexical 1.0 and location 1.0
	// combine to 1.0.
	if score != 1.0 {
		t.Fatalf("expected score 1.0, got %v", score)
	}
	if score < criteria.MinScore {
		t.Fatalf("expected score above the threshold %v, got %v", criteria.MinScore, score)
	}
}

func TestScoreDeterminism(t *testing.T) {
	criteria := &CriteriaSet{
		Keywords:  []string{"go", "backend", "sql"},
		Locations: []string{"Dresden", "Berlin"},
		MinScore:  0.3,
	}

	p := &posting.Posting{
		Title:       "Backend Engineer (Go)",
		Description: "SQL experience required. Office in Dresden.",
	}

	scorer := New(&stubMatcher{score: 0.7}, nil)
	criteria.Profile = "Backend developer with Go and SQL experience"

	first, err := scorer.Score(context.Background(), p, criteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := scorer.Score(context.Background(), p, criteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != second {
		t.Fatalf("expected repeat calls to be equal, got %v then %v", first, second)
	}
}

func TestScoreEdgeCases(t *testing.T) {
	scorer := New(nil, nil)

	tests := []struct {
		name     string
		posting  *posting.Posting
		criteria *CriteriaSet
		expect   float64
	}{
		{
			name:     "empty posting text",
			posting:  &posting.Posting{},
			criteria: &CriteriaSet{Keywords: []string{"python"}},
			expect:   0,
		},
		{
			name:     "empty keywords give zero lexical term",
			posting:  &posting.Posting{Title: "Anything", Description: "At all"},
			criteria: &CriteriaSet{Locations: []string{"Nowhere"}},
			expect:   0,
		},
		{
			name:    "location only",
			posting: &posting.Posting{Title: "Engineer", Location: "Berlin, DE"},
			criteria: &CriteriaSet{
				Keywords:  []string{"missing"},
				Locations: []string{"Berlin"},
			},
			// Location term 1.0 at weight 0.2 over lexical 0.5 + location 0.2.
			expect: 0.2 / 0.7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, err := scorer.Score(context.Background(), tt.posting, tt.criteria)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := score - tt.expect; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("expected %v, got %v", tt.expect, score)
			}
		})
	}
}

func TestScoreTitleWeighsMoreThanDescription(t *testing.T) {
	scorer := New(nil, nil)
	criteria := &CriteriaSet{Keywords: []string{"python"}, MinScore: 0}

	titleHit := &posting.Posting{Title: "Python Developer", Description: "No match here"}
	descriptionHit := &posting.Posting{Title: "Developer", Description: "Python required"}

	titleScore, err := scorer.Score(context.Background(), titleHit, criteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	descriptionScore, err := scorer.Score(context.Background(), descriptionHit, criteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if titleScore <= descriptionScore {
		t.Fatalf("expected title hit (%v) to outscore description hit (%v)", titleScore, descriptionScore)
	}
}

func TestScoreSemanticTerm(t *testing.T) {
	criteria := &CriteriaSet{
		Keywords: []string{"python"},
		Profile:  "Python developer",
		MinScore: 0,
	}
	p := &posting.Posting{Title: "Python Developer"}

	matcher := &stubMatcher{score: 1.0}
	withSemantic := New(matcher, nil)

	score, err := withSemantic.Score(context.Background(), p, criteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Lexical term is 0.6 (title-only hit); semantic 1.0 lifts the
	// weighted average above the lexical-only value.
	withoutSemantic := New(nil, nil)
	plain, err := withoutSemantic.Score(context.Background(), p, criteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if score <= plain {
		t.Fatalf("expected semantic term to lift the score: %v vs %v", score, plain)
	}
	if matcher.calls != 1 {
		t.Fatalf("expected one matcher call, got %d", matcher.calls)
	}
}

func TestScoreSemanticErrorPropagates(t *testing.T) {
	criteria := &CriteriaSet{
		Keywords: []string{"python"},
		Profile:  "Python developer",
	}
	p := &posting.Posting{Title: "Python Developer"}

	scorer := New(&stubMatcher{err: errors.New("quota exceeded")}, nil)
	if _, err := scorer.Score(context.Background(), p, criteria); err == nil {
		t.Fatalf("expected an error from the semantic term")
	}
}

func TestScoreSemanticClamped(t *testing.T) {
	criteria := &CriteriaSet{
		Keywords: []string{"python"},
		Profile:  "Python developer",
		Weights:  &Weights{Semantic: 1},
	}
	p := &posting.Posting{Title: "Python Developer"}

	scorer := New(&stubMatcher{score: 3.5}, nil)
	score, err := scorer.Score(context.Background(), p, criteria)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 1.0 {
		t.Fatalf("expected clamped score 1.0, got %v", score)
	}
}

func TestNormalizeFoldsCaseAndDiacritics(t *testing.T) {
	tests := []struct {
		input  string
		expect string
	}{
		{"München", "munchen"},
		{"BERLIN", "berlin"},
		{"  Nürnberg  ", "nurnberg"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.input); got != tt.expect {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.input, got, tt.expect)
		}
	}
}

func TestCriteriaValidate(t *testing.T) {
	tests := []struct {
		name     string
		criteria *CriteriaSet
		wantErr  bool
	}{
		{
			name:     "nil criteria",
			criteria: nil,
			wantErr:  true,
		},
		{
			name:     "no keywords or locations",
			criteria: &CriteriaSet{MinScore: 0.5},
			wantErr:  true,
		},
		{
			name:     "min score out of range",
			criteria: &CriteriaSet{Keywords: []string{"go"}, MinScore: 1.5},
			wantErr:  true,
		},
		{
			name: "negative weight",
			criteria: &CriteriaSet{
				Keywords: []string{"go"},
				Weights:  &Weights{Lexical: -1},
			},
			wantErr: true,
		},
		{
			name:     "valid",
			criteria: &CriteriaSet{Keywords: []string{"go"}, MinScore: 0.4},
			wantErr:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.criteria.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
