package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/swahan/jobfinder/internal/export"
	"github.com/swahan/jobfinder/internal/logger"
	"github.com/swahan/jobfinder/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all stored postings to a CSV file",
	Run: func(cmd *cobra.Command, _ []string) {
		runExport(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("out", "o", "", "output CSV path (overrides the config)")
}

func runExport(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	path := config.CSVPath
	if out, err := cmd.Flags().GetString("out"); err == nil && out != "" {
		path = out
	}

	st, err := store.Open(config.DBPath)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err))
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		logger.Fatal("migrating the store", zap.Error(err))
	}

	postings, err := st.All(ctx)
	if err != nil {
		logger.Fatal("loading postings", zap.Error(err))
	}

	if len(postings) == 0 {
		logger.Info("exiting", zap.String("reason", "no postings to export"))
		return
	}

	if err := export.WriteCSV(path, postings); err != nil {
		logger.Fatal("writing csv", zap.Error(err))
	}

	logger.Info("postings exported",
		zap.Int("count", len(postings)),
		zap.String("path", path),
	)
}
