package posting

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a stored posting.
type Status string

const (
	// StatusNew marks a posting that has been ingested but not scored yet.
	StatusNew Status = "NEW"
	// StatusScored marks a posting whose score reached the configured threshold.
	StatusScored Status = "SCORED"
	// StatusRejected marks a posting whose score fell below the threshold.
	StatusRejected Status = "REJECTED"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusScored, StatusRejected:
		return true
	}
	return false
}

// Posting is one normalized job advertisement.
type Posting struct {
	IdentityKey string
	Title       string
	Description string
	Location    string
	SourceURL   string
	PublishedAt time.Time
	FetchedAt   time.Time
	Status      Status
	// Score is nil until the posting has been scored.
	Score *float64
}

// IdentityKey builds the stable dedup fingerprint for a posting. The
// feed-provided GUID wins when present; otherwise the key is derived from
// the source URL and title, since some boards reuse a single URL for
// rotating postings.
func IdentityKey(guid, sourceURL, title string) string {
	if g := strings.TrimSpace(guid); g != "" {
		return g
	}

	sum := sha256.Sum256([]byte(strings.TrimSpace(sourceURL) + "\n" + strings.TrimSpace(title)))
	return fmt.Sprintf("%x", sum[:])
}

// Text returns the searchable text of the posting.
func (p *Posting) Text() string {
	return strings.TrimSpace(p.Title + " " + p.Description)
}
