package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/swahan/jobfinder/internal/scoring"
)

const (
	app = "jobfinder"

	defaultDBPath     = "jobs.db"
	defaultCSVPath    = "jobs_export.csv"
	defaultLettersDir = "letters"
	defaultTopLetters = 5
)

type Config struct {
	Feeds     []string       `mapstructure:"feeds"`
	DBPath    string         `mapstructure:"db-path"`
	CSVPath   string         `mapstructure:"csv-path"`
	UserAgent string         `mapstructure:"user-agent"`
	Timeout   time.Duration  `mapstructure:"timeout"`
	Criteria  map[string]any `mapstructure:"criteria"`
	Letters   *LettersConfig `mapstructure:"letters"`
	AI        *AIConfig      `mapstructure:"ai"`
}

type LettersConfig struct {
	OutputDir string `mapstructure:"output-dir"`
	Top       int    `mapstructure:"top"`
	Language  string `mapstructure:"language"`
	Name      string `mapstructure:"name"`
	Email     string `mapstructure:"email"`
	Phone     string `mapstructure:"phone"`
}

type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "jobfinder ingests job postings from RSS feeds, scores them against your criteria and drafts cover letters",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is jobfinder.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// Config is needed only for the commands that touch the store or the
	// feeds. If none of them was invoked, we can skip initialization.
	if runCmd.CalledAs() == "" && lettersCmd.CalledAs() == "" && exportCmd.CalledAs() == "" {
		return
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if config.DBPath == "" {
		config.DBPath = defaultDBPath
	}
	if config.CSVPath == "" {
		config.CSVPath = defaultCSVPath
	}

	return config, nil
}

// getCriteria decodes the criteria section through an explicit decoder so
// that scalar YAML values (a single keyword, numbers given as strings) are
// accepted regardless of how viper sourced them.
func getCriteria(config *Config) (*scoring.CriteriaSet, error) {
	if config.Criteria == nil {
		return nil, fmt.Errorf("criteria section is required")
	}

	var criteria *scoring.CriteriaSet
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &criteria,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(config.Criteria); err != nil {
		return nil, fmt.Errorf("decoding criteria: %w", err)
	}

	return criteria, nil
}
