package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/swahan/jobfinder/internal/ai"
	"github.com/swahan/jobfinder/internal/ai/gemini"
	"github.com/swahan/jobfinder/internal/letters"
	"github.com/swahan/jobfinder/internal/logger"
	"github.com/swahan/jobfinder/internal/posting"
	"github.com/swahan/jobfinder/internal/store"
	"github.com/swahan/jobfinder/internal/utils"
)

const (
	PromptAll  = "Generate letters for all listed postings"
	PromptBack = "exit"

	promptTitleLimit = 80
)

var lettersCmd = &cobra.Command{
	Use:   "letters",
	Short: "Generate cover letters for the best scored postings",
	Run: func(cmd *cobra.Command, _ []string) {
		runLetters(cmd)
	},
}

func init() {
	rootCmd.AddCommand(lettersCmd)

	lettersCmd.Flags().BoolP("all", "y", false, "generate letters for all top postings without asking")
	lettersCmd.Flags().IntP("top", "n", 0, "how many top postings to offer (overrides the config)")
}

func runLetters(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	lettersCfg := config.Letters
	if lettersCfg == nil {
		lettersCfg = &LettersConfig{}
	}
	if lettersCfg.OutputDir == "" {
		lettersCfg.OutputDir = defaultLettersDir
	}

	top := lettersCfg.Top
	if n, err := cmd.Flags().GetInt("top"); err == nil && n > 0 {
		top = n
	}
	if top <= 0 {
		top = defaultTopLetters
	}

	st, err := store.Open(config.DBPath)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		logger.Fatal("migrating the store", zap.Error(err))
	}

	candidates, err := st.TopScored(ctx, top)
	if err != nil {
		logger.Fatal("loading scored postings", zap.Error(err))
	}

	if len(candidates) == 0 {
		logger.Info("exiting", zap.String("reason", "no scored postings in the store"))
		return
	}

	criteria, err := getCriteria(config)
	if err != nil {
		logger.Fatal("getting criteria", zap.Error(err))
	}

	request := &ai.LetterRequest{
		Profile:  criteria.Profile,
		Name:     lettersCfg.Name,
		Email:    lettersCfg.Email,
		Phone:    lettersCfg.Phone,
		Language: lettersCfg.Language,
	}

	writer, err := newLetterWriter(ctx, config, logger)
	if err != nil {
		logger.Warn("using the template letter", zap.Error(err))
	}

	generator := letters.New(writer, request, logger)

	if all, _ := cmd.Flags().GetBool("all"); all {
		writeLetters(ctx, generator, lettersCfg.OutputDir, candidates, logger)
		return
	}

	for {
		items := []string{PromptAll}
		for _, p := range candidates {
			items = append(items, postingLabel(p))
		}

		prompt := promptui.Select{
			Label: "Choose a posting and press ENTER",
			Items: append(items, PromptBack),
		}

		_, selected, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		switch selected {
		case PromptBack:
			return
		case PromptAll:
			writeLetters(ctx, generator, lettersCfg.OutputDir, candidates, logger)
			return
		default:
			p := findByLabel(candidates, selected)
			if p == nil {
				logger.Fatal("no posting matches the selection", zap.String("selection", selected))
			}
			writeLetters(ctx, generator, lettersCfg.OutputDir, []*posting.Posting{p}, logger)
		}
	}
}

func writeLetters(ctx context.Context, generator *letters.Generator, dir string, postings []*posting.Posting, logger *zap.Logger) {
	written, err := generator.WriteFiles(ctx, dir, postings)
	if err != nil {
		logger.Fatal("writing letters", zap.Error(err))
	}

	logger.Info("letters written",
		zap.Int("count", len(written)),
		zap.String("directory", dir),
	)
}

func postingLabel(p *posting.Posting) string {
	return fmt.Sprintf("%.2f %s / %s",
		*p.Score, utils.TruncateForLog(p.Title, promptTitleLimit), p.SourceURL,
	)
}

func findByLabel(postings []*posting.Posting, label string) *posting.Posting {
	for _, p := range postings {
		if postingLabel(p) == label {
			return p
		}
	}
	return nil
}

func newLetterWriter(ctx context.Context, config *Config, logger *zap.Logger) (ai.LetterWriter, error) {
	generator, genLogger, err := newGeminiGenerator(ctx, config.AI, config.Timeout, logger)
	if err != nil {
		return nil, err
	}

	return gemini.NewLetterWriter(generator, config.AI.Gemini.MaxLogLength, genLogger), nil
}
