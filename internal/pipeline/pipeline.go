package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/swahan/jobfinder/internal/posting"
	"github.com/swahan/jobfinder/internal/scoring"
	"github.com/swahan/jobfinder/internal/store"
)

// Source yields the postings for one run. Errors are per-endpoint and do
// not suppress postings from healthy endpoints.
type Source interface {
	Fetch(ctx context.Context, endpoints []string) ([]*posting.Posting, []error)
}

// RunReport summarizes one pipeline run. Errors holds every per-endpoint
// and per-posting failure; a run always completes and reports them instead
// of aborting.
type RunReport struct {
	Fetched  int
	New      int
	Scored   int
	Rejected int
	Errors   []error
}

// Pipeline orchestrates one ingest-score-store run. It is the only
// component with control-flow logic: fetch, insert-if-absent, score,
// persist.
type Pipeline struct {
	source Source
	scorer *scoring.Scorer
	store  *store.Store
	logger *zap.Logger
}

// New wires a pipeline from its collaborators.
func New(source Source, scorer *scoring.Scorer, st *store.Store, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{source: source, scorer: scorer, store: st, logger: logger}
}

// Run executes one batch over the given endpoints. Re-running with
// identical feed content is idempotent: already-seen postings are skipped
// and their stored state is left untouched. Only invalid criteria abort
// before the run starts.
func (p *Pipeline) Run(ctx context.Context, endpoints []string, criteria *scoring.CriteriaSet) (*RunReport, error) {
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("validate criteria: %w", err)
	}

	report := &RunReport{}

	postings, errs := p.source.Fetch(ctx, endpoints)
	report.Errors = append(report.Errors, errs...)
	report.Fetched = len(postings)

	for _, err := range errs {
		p.logger.Warn("feed endpoint failed", zap.Error(err))
	}

	for _, item := range postings {
		if err := p.process(ctx, item, criteria, report); err != nil {
			report.Errors = append(report.Errors, err)
			p.logger.Warn("posting failed",
				zap.String("identity_key", item.IdentityKey),
				zap.String("title", item.Title),
				zap.Error(err),
			)
		}
	}

	p.logger.Info("run completed",
		zap.Int("fetched", report.Fetched),
		zap.Int("new", report.New),
		zap.Int("scored", report.Scored),
		zap.Int("rejected", report.Rejected),
		zap.Int("errors", len(report.Errors)),
	)

	return report, nil
}

// process handles a single posting. A failure after insert leaves the
// posting in NEW, so the next run retries the scoring.
func (p *Pipeline) process(ctx context.Context, item *posting.Posting, criteria *scoring.CriteriaSet, report *RunReport) error {
	inserted, err := p.store.InsertIfAbsent(ctx, item)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if inserted {
		report.New++
	} else {
		existing, err := p.store.Get(ctx, item.IdentityKey)
		if err != nil {
			return fmt.Errorf("load existing: %w", err)
		}
		if existing.Status != posting.StatusNew {
			p.logger.Debug("posting already processed", zap.String("identity_key", item.IdentityKey))
			return nil
		}
		// Left in NEW by an earlier run whose scoring failed; retry now.
	}

	score, err := p.scorer.Score(ctx, item, criteria)
	if err != nil {
		return fmt.Errorf("score: %w", err)
	}

	status := posting.StatusRejected
	if score >= criteria.MinScore {
		status = posting.StatusScored
	}

	if err := p.store.SetScore(ctx, item.IdentityKey, score, status, false); err != nil {
		return fmt.Errorf("persist score: %w", err)
	}

	if status == posting.StatusScored {
		report.Scored++
	} else {
		report.Rejected++
	}

	p.logger.Debug("posting processed",
		zap.String("identity_key", item.IdentityKey),
		zap.Float64("score", score),
		zap.String("status", string(status)),
	)

	return nil
}
