package gemini

import (
	"context"
	"strings"
	"testing"

	"github.com/swahan/jobfinder/internal/ai"
	"github.com/swahan/jobfinder/internal/posting"
)

func TestLetterWriterCompose(t *testing.T) {
	stub := &stubGenerator{response: "Dear hiring team,\n\nI am excited to apply.\n"}
	writer := NewLetterWriter(stub, 0, nil)

	p := &posting.Posting{
		IdentityKey: "job-1",
		Title:       "Python Developer",
		Description: "Remote Python role.",
		SourceURL:   "https://example.com/jobs/1",
	}
	req := &ai.LetterRequest{
		Profile:  "Biomedical engineer moving into software.",
		Name:     "Sam Example",
		Language: "German",
	}

	letter, err := writer.Compose(context.Background(), p, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if letter != "Dear hiring team,\n\nI am excited to apply." {
		t.Fatalf("unexpected letter: %q", letter)
	}
	if !strings.Contains(stub.lastPrompt, "German") {
		t.Fatalf("expected the requested language in the prompt")
	}
	if !strings.Contains(stub.lastPrompt, "Sam Example") {
		t.Fatalf("expected the applicant name in the prompt")
	}
	if !strings.Contains(stub.lastPrompt, "Python Developer") {
		t.Fatalf("expected the posting in the prompt")
	}
}

func TestLetterWriterDefaultsLanguage(t *testing.T) {
	stub := &stubGenerator{response: "letter"}
	writer := NewLetterWriter(stub, 0, nil)

	p := &posting.Posting{Title: "Engineer"}
	if _, err := writer.Compose(context.Background(), p, &ai.LetterRequest{Name: "Sam"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stub.lastPrompt, "English") {
		t.Fatalf("expected the default language in the prompt")
	}
}

func TestLetterWriterRequiresRequest(t *testing.T) {
	writer := NewLetterWriter(&stubGenerator{response: "letter"}, 0, nil)

	if _, err := writer.Compose(context.Background(), &posting.Posting{Title: "Engineer"}, nil); err == nil {
		t.Fatalf("expected an error for a missing request")
	}
}
