package feed

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/swahan/jobfinder/internal/posting"
)

const (
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "jobfinder (+https://github.com/swahan/jobfinder)"
	// Only gzip is offered because only gzip is decoded below.
	acceptEncoding = "gzip"

	// maxBodySize caps how much of a feed payload is read. Job feeds are
	// small; anything beyond this is a misbehaving endpoint.
	maxBodySize = 10 << 20
)

// FetchError indicates a network or transport failure for one endpoint.
type FetchError struct {
	Endpoint string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch feed %s: %v", e.Endpoint, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError indicates a malformed payload for one endpoint.
type ParseError struct {
	Endpoint string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse feed %s: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Source fetches syndication feeds and normalizes their entries into
// postings. It keeps no cursor state: every Fetch call re-fetches from the
// network.
type Source struct {
	HTTPClient *http.Client
	UserAgent  string

	logger *zap.Logger
	parser *gofeed.Parser
	now    func() time.Time
}

// New creates a feed source with the given request timeout. A zero timeout
// falls back to the default.
func New(logger *zap.Logger, timeout time.Duration) *Source {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Source{
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  defaultUserAgent,
		logger:     logger,
		parser:     gofeed.NewParser(),
		now:        time.Now,
	}
}

// Fetch retrieves every endpoint and returns the normalized postings plus
// the per-endpoint errors. A failing endpoint never aborts the others;
// endpoints are fetched concurrently and the results merged back in
// endpoint order so callers see a single deterministic sequence.
func (s *Source) Fetch(ctx context.Context, endpoints []string) ([]*posting.Posting, []error) {
	results := make([][]*posting.Posting, len(endpoints))
	failures := make([]error, len(endpoints))

	var wg sync.WaitGroup
	for i, endpoint := range endpoints {
		wg.Add(1)
		go func(i int, endpoint string) {
			defer wg.Done()
			results[i], failures[i] = s.fetchOne(ctx, endpoint)
		}(i, endpoint)
	}
	wg.Wait()

	var postings []*posting.Posting
	var errs []error
	for i := range endpoints {
		postings = append(postings, results[i]...)
		if failures[i] != nil {
			errs = append(errs, failures[i])
		}
	}

	return postings, errs
}

func (s *Source) fetchOne(ctx context.Context, endpoint string) ([]*posting.Posting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}

	req.Header.Set("User-Agent", s.UserAgent)
	req.Header.Set("Accept-Encoding", acceptEncoding)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("bad status: %s", resp.Status)}
	}

	var reader io.ReadCloser
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(resp.Body)
		if err != nil {
			return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("gzip body: %w", err)}
		}
		defer reader.Close()
	default:
		reader = resp.Body
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}

	parsed, err := s.parser.ParseString(string(body))
	if err != nil {
		return nil, &ParseError{Endpoint: endpoint, Err: err}
	}

	fetchedAt := s.now().UTC()
	postings := make([]*posting.Posting, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		p := s.normalize(item, fetchedAt)
		if p == nil {
			continue
		}
		postings = append(postings, p)
	}

	s.logger.Debug("fetched feed",
		zap.String("endpoint", endpoint),
		zap.Int("entries", len(postings)),
	)

	return postings, nil
}

// normalize maps one feed item to a posting. Items without a link are
// dropped: they cannot be deduplicated or applied to.
func (s *Source) normalize(item *gofeed.Item, fetchedAt time.Time) *posting.Posting {
	link := item.Link
	if link == "" {
		return nil
	}

	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		published = item.UpdatedParsed.UTC()
	default:
		published = fetchedAt
	}

	return &posting.Posting{
		IdentityKey: posting.IdentityKey(item.GUID, link, item.Title),
		Title:       item.Title,
		Description: item.Description,
		Location:    itemLocation(item),
		SourceURL:   link,
		PublishedAt: published,
		FetchedAt:   fetchedAt,
		Status:      posting.StatusNew,
	}
}

// itemLocation pulls a location out of feed extensions when a board
// provides one. Most job feeds do not, in which case scoring falls back to
// matching locations against the posting text.
func itemLocation(item *gofeed.Item) string {
	for _, ns := range item.Extensions {
		for _, exts := range ns {
			for _, ext := range exts {
				if ext.Name == "location" && ext.Value != "" {
					return ext.Value
				}
			}
		}
	}
	return ""
}
