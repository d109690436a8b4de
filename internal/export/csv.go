package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/swahan/jobfinder/internal/posting"
)

var header = []string{
	"identity_key", "title", "description", "location",
	"source_url", "published_at", "fetched_at", "status", "score",
}

// WriteCSV dumps the postings to a CSV file at path, one row per posting.
func WriteCSV(path string, postings []*posting.Posting) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %q: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range postings {
		score := ""
		if p.Score != nil {
			score = strconv.FormatFloat(*p.Score, 'f', 4, 64)
		}

		record := []string{
			p.IdentityKey,
			p.Title,
			p.Description,
			p.Location,
			p.SourceURL,
			p.PublishedAt.Format(time.RFC3339),
			p.FetchedAt.Format(time.RFC3339),
			string(p.Status),
			score,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	return file.Sync()
}
