package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/swahan/jobfinder/internal/posting"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestMatcherSimilarity(t *testing.T) {
	stub := &stubGenerator{response: `{"score": 0.85, "reason": "Matches the profile"}`}
	matcher := NewMatcher(stub, 0, nil)

	p := &posting.Posting{
		IdentityKey: "job-1",
		Title:       "Python Developer",
		Description: "Remote Python role.",
		Location:    "Berlin",
	}

	result, err := matcher.Similarity(context.Background(), "Python developer profile", p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Score != 0.85 {
		t.Fatalf("expected score 0.85, got %v", result.Score)
	}
	if result.Reason != "Matches the profile" {
		t.Fatalf("unexpected reason: %q", result.Reason)
	}
	if stub.lastPrompt == "" {
		t.Fatalf("expected a prompt to be sent")
	}
	if !strings.Contains(stub.lastPrompt, "Python developer profile") {
		t.Fatalf("expected the profile in the prompt")
	}
	if !strings.Contains(stub.lastPrompt, "Python Developer") {
		t.Fatalf("expected the posting in the prompt")
	}
}

func TestMatcherSimilarityParsing(t *testing.T) {
	tests := []struct {
		name     string
		response string
		expect   float64
		wantErr  bool
	}{
		{
			name:     "fenced json",
			response: "```json\n{\"score\": 0.5, \"reason\": \"ok\"}\n```",
			expect:   0.5,
		},
		{
			name:     "score as string",
			response: `{"score": "0.25"}`,
			expect:   0.25,
		},
		{
			name:     "score above one is clamped",
			response: `{"score": 7}`,
			expect:   1,
		},
		{
			name:     "negative score is clamped",
			response: `{"score": -0.3}`,
			expect:   0,
		},
		{
			name:     "missing score",
			response: `{"reason": "no score"}`,
			wantErr:  true,
		},
		{
			name:     "not json",
			response: "certainly! here is my assessment",
			wantErr:  true,
		},
	}

	p := &posting.Posting{IdentityKey: "job-1", Title: "Engineer"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matcher := NewMatcher(&stubGenerator{response: tt.response}, 0, nil)
			result, err := matcher.Similarity(context.Background(), "profile", p)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Score != tt.expect {
				t.Fatalf("expected score %v, got %v", tt.expect, result.Score)
			}
		})
	}
}

func TestMatcherSimilarityGeneratorError(t *testing.T) {
	matcher := NewMatcher(&stubGenerator{err: errors.New("quota exceeded")}, 0, nil)

	_, err := matcher.Similarity(context.Background(), "profile", &posting.Posting{Title: "Engineer"})
	if err == nil {
		t.Fatalf("expected the generator error to propagate")
	}
}

func TestMatcherRequiresProfile(t *testing.T) {
	matcher := NewMatcher(&stubGenerator{response: `{"score": 1}`}, 0, nil)

	if _, err := matcher.Similarity(context.Background(), "   ", &posting.Posting{Title: "Engineer"}); err == nil {
		t.Fatalf("expected an error for a blank profile")
	}
}
