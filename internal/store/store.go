package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/swahan/jobfinder/internal/posting"
)

// ErrAlreadyScored is returned by SetScore when a posting already carries a
// score and no overwrite was requested. Hitting it means the caller skipped
// the explicit reset path.
var ErrAlreadyScored = errors.New("posting is already scored")

// ErrNotFound is returned when no posting exists for the given identity key.
var ErrNotFound = errors.New("posting not found")

// Store is the durable posting store backed by SQLite. The unique
// constraint on identity_key makes InsertIfAbsent atomic even when the
// database file is shared across processes.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Migrate creates the schema when missing.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS postings (
	identity_key TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL,
	published_at TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'NEW',
	score REAL
);

CREATE INDEX IF NOT EXISTS idx_postings_status ON postings(status);
CREATE INDEX IF NOT EXISTS idx_postings_score ON postings(score DESC);
`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InsertIfAbsent inserts p unless a posting with the same identity key
// already exists. A duplicate is a normal outcome, reported through the
// returned flag, never as an error. The first-seen row is left untouched,
// fetched_at included.
func (s *Store) InsertIfAbsent(ctx context.Context, p *posting.Posting) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
INSERT INTO postings (identity_key, title, description, location, source_url, published_at, fetched_at, status)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(identity_key) DO NOTHING`,
		p.IdentityKey,
		p.Title,
		p.Description,
		p.Location,
		p.SourceURL,
		p.PublishedAt.UTC().Format(time.RFC3339),
		p.FetchedAt.UTC().Format(time.RFC3339),
		string(posting.StatusNew),
	)
	if err != nil {
		return false, fmt.Errorf("insert posting %s: %w", p.IdentityKey, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert posting %s: %w", p.IdentityKey, err)
	}

	return affected == 1, nil
}

// SetScore records the score and resulting status for a posting. The score
// is write-once: a second call fails with ErrAlreadyScored unless
// allowOverwrite is set.
func (s *Store) SetScore(ctx context.Context, identityKey string, score float64, status posting.Status, allowOverwrite bool) error {
	if !status.Valid() || status == posting.StatusNew {
		return fmt.Errorf("invalid target status %q", status)
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE postings SET score = ?, status = ?
WHERE identity_key = ? AND (score IS NULL OR ?)`,
		score, string(status), identityKey, allowOverwrite,
	)
	if err != nil {
		return fmt.Errorf("set score for %s: %w", identityKey, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set score for %s: %w", identityKey, err)
	}
	if affected == 1 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM postings WHERE identity_key = ?`, identityKey).Scan(&exists)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("set score for %s: %w", identityKey, ErrNotFound)
	case err != nil:
		return fmt.Errorf("set score for %s: %w", identityKey, err)
	}

	return fmt.Errorf("set score for %s: %w", identityKey, ErrAlreadyScored)
}

// ResetScore clears the score and returns the posting to NEW. This is the
// explicit path for reprocessing a terminal posting.
func (s *Store) ResetScore(ctx context.Context, identityKey string) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE postings SET score = NULL, status = ? WHERE identity_key = ?`,
		string(posting.StatusNew), identityKey,
	)
	if err != nil {
		return fmt.Errorf("reset score for %s: %w", identityKey, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reset score for %s: %w", identityKey, err)
	}
	if affected == 0 {
		return fmt.Errorf("reset score for %s: %w", identityKey, ErrNotFound)
	}

	return nil
}

// QueryByStatus returns all postings in the given lifecycle state.
func (s *Store) QueryByStatus(ctx context.Context, status posting.Status) ([]*posting.Posting, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE status = ? ORDER BY fetched_at, identity_key`, string(status))
	if err != nil {
		return nil, fmt.Errorf("query by status %s: %w", status, err)
	}
	defer rows.Close()

	return scanPostings(rows)
}

// TopScored returns up to limit SCORED postings, best first. A limit of
// zero or less returns all of them.
func (s *Store) TopScored(ctx context.Context, limit int) ([]*posting.Posting, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		selectColumns+`WHERE status = ? AND score IS NOT NULL ORDER BY score DESC, published_at DESC LIMIT ?`,
		string(posting.StatusScored), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top scored: %w", err)
	}
	defer rows.Close()

	return scanPostings(rows)
}

// All returns every stored posting, best score first, unscored last.
func (s *Store) All(ctx context.Context) ([]*posting.Posting, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`ORDER BY score DESC, published_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query all postings: %w", err)
	}
	defer rows.Close()

	return scanPostings(rows)
}

// Get returns one posting by identity key.
func (s *Store) Get(ctx context.Context, identityKey string) (*posting.Posting, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE identity_key = ?`, identityKey)
	if err != nil {
		return nil, fmt.Errorf("get posting %s: %w", identityKey, err)
	}
	defer rows.Close()

	postings, err := scanPostings(rows)
	if err != nil {
		return nil, err
	}
	if len(postings) == 0 {
		return nil, fmt.Errorf("get posting %s: %w", identityKey, ErrNotFound)
	}

	return postings[0], nil
}

const selectColumns = `
SELECT identity_key, title, description, location, source_url, published_at, fetched_at, status, score
FROM postings `

func scanPostings(rows *sql.Rows) ([]*posting.Posting, error) {
	var postings []*posting.Posting
	for rows.Next() {
		var (
			p           posting.Posting
			publishedAt string
			fetchedAt   string
			status      string
			score       sql.NullFloat64
		)

		if err := rows.Scan(
			&p.IdentityKey, &p.Title, &p.Description, &p.Location, &p.SourceURL,
			&publishedAt, &fetchedAt, &status, &score,
		); err != nil {
			return nil, fmt.Errorf("scan posting: %w", err)
		}

		p.PublishedAt = parseTime(publishedAt)
		p.FetchedAt = parseTime(fetchedAt)
		p.Status = posting.Status(status)
		if score.Valid {
			v := score.Float64
			p.Score = &v
		}

		postings = append(postings, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate postings: %w", err)
	}

	return postings, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
