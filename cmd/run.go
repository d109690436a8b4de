package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/swahan/jobfinder/internal/ai"
	"github.com/swahan/jobfinder/internal/ai/gemini"
	"github.com/swahan/jobfinder/internal/feed"
	"github.com/swahan/jobfinder/internal/logger"
	"github.com/swahan/jobfinder/internal/pipeline"
	"github.com/swahan/jobfinder/internal/scoring"
	"github.com/swahan/jobfinder/internal/store"
)

const topListing = 10

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch the configured feeds, score new postings and store them",
	Run: func(_ *cobra.Command, _ []string) {
		run()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// run is the main command for the cli.
func run() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the jobfinder", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if len(config.Feeds) == 0 {
		logger.Fatal("at least one feed endpoint is required under feeds")
	}

	criteria, err := getCriteria(config)
	if err != nil {
		logger.Fatal("getting criteria", zap.Error(err))
	}

	st, err := store.Open(config.DBPath)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		logger.Fatal("migrating the store", zap.Error(err))
	}

	matcher, err := newAIMatcher(ctx, config, logger)
	if err != nil {
		logger.Warn("running without the semantic scoring term", zap.Error(err))
	}

	source := feed.New(logger, config.Timeout)
	if config.UserAgent != "" {
		source.UserAgent = config.UserAgent
	}

	scorer := scoring.New(matcher, logger)

	logger.Info("starting the run",
		zap.Int("feeds", len(config.Feeds)),
		zap.Bool("semantic_term", matcher != nil),
	)

	report, err := pipeline.New(source, scorer, st, logger).Run(ctx, config.Feeds, criteria)
	if err != nil {
		logger.Fatal("running the pipeline", zap.Error(err))
	}

	for _, runErr := range report.Errors {
		logger.Warn("run error", zap.Error(runErr))
	}

	logger.Info("run report",
		zap.Int("fetched", report.Fetched),
		zap.Int("new", report.New),
		zap.Int("scored", report.Scored),
		zap.Int("rejected", report.Rejected),
		zap.Int("errors", len(report.Errors)),
	)

	top, err := st.TopScored(ctx, topListing)
	if err != nil {
		logger.Fatal("listing top postings", zap.Error(err))
	}

	for i, p := range top {
		logger.Info(fmt.Sprintf("top posting %d", i+1),
			zap.Float64("score", *p.Score),
			zap.String("title", p.Title),
			zap.String("url", p.SourceURL),
		)
	}
}

// newAIMatcher builds the Gemini-backed similarity matcher when the ai
// section enables it. A nil matcher (with an explanatory error) is
// returned otherwise; the scorer then renormalizes weights over the
// remaining terms.
func newAIMatcher(ctx context.Context, config *Config, logger *zap.Logger) (ai.Matcher, error) {
	generator, genLogger, err := newGeminiGenerator(ctx, config.AI, config.Timeout, logger)
	if err != nil {
		return nil, err
	}

	return gemini.NewMatcher(generator, config.AI.Gemini.MaxLogLength, genLogger), nil
}
