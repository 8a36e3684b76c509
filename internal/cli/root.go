package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/pipeline"
	"github.com/ppiankov/dossier/internal/util"
)

// version is overridden at build time with -ldflags "-X"
var version = "0.1.0"

var (
	cfgFile     string
	verbose     bool
	catalogPath string
	storePath   string
	storeDriver string
	floor       float64
	noCache     bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dossier",
	Short: "Dossier - find what an application still needs and ask only that",
	Long: `Dossier compares what is known about an application (facts extracted from
submitted documents and answers the applicant already gave) against what the
target artifacts need, and generates the questions still worth asking.

Facts extracted with low confidence come back as verification questions that
show the extracted value. Every question is optional; partial answers are
saved and unanswered questions stay open.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Dossier.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dossier v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.dossier/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVar(&catalogPath, "catalog", "", "field catalog file (default: embedded catalog)")
	flags.StringVar(&storePath, "db", "", "SQLite database path (default: $XDG_DATA_HOME/dossier/dossier.db)")
	flags.StringVar(&storeDriver, "store", "sqlite", "store driver (sqlite, memory)")
	flags.Float64Var(&floor, "floor", model.DefaultConfidenceFloor, "confidence floor below which extracted facts are verified")
	flags.BoolVar(&noCache, "no-cache", false, "disable the questionnaire cache")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("catalog.path", flags.Lookup("catalog"))
	_ = viper.BindPFlag("store.path", flags.Lookup("db"))
	_ = viper.BindPFlag("store.driver", flags.Lookup("store"))
	_ = viper.BindPFlag("analysis.confidence_floor", flags.Lookup("floor"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	// A .env file is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".dossier"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match DOSSIER_*; nested keys use
	// underscores, e.g. DOSSIER_ANALYSIS_CONFIDENCE_FLOOR
	viper.SetEnvPrefix("DOSSIER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	registerDefaults(model.DefaultConfig())

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults makes every config key known to viper so environment
// variables can override keys absent from the config file
func registerDefaults(cfg *model.Config) {
	viper.SetDefault("catalog.path", cfg.Catalog.Path)
	viper.SetDefault("analysis.confidence_floor", cfg.Analysis.ConfidenceFloor)
	viper.SetDefault("analysis.targets", cfg.Analysis.Targets)
	viper.SetDefault("analysis.fact_load_timeout", cfg.Analysis.FactLoadTimeout)
	viper.SetDefault("store.driver", cfg.Store.Driver)
	viper.SetDefault("store.path", cfg.Store.Path)
	viper.SetDefault("extraction.timeout", cfg.Extraction.Timeout)
	viper.SetDefault("extraction.requests_per_second", cfg.Extraction.RequestsPerSecond)
	viper.SetDefault("extraction.burst_size", cfg.Extraction.BurstSize)
	viper.SetDefault("llm.provider", cfg.LLM.Provider)
	viper.SetDefault("llm.model", cfg.LLM.Model)
	viper.SetDefault("llm.api_key", cfg.LLM.APIKey)
	viper.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	viper.SetDefault("llm.timeout", cfg.LLM.Timeout)
	viper.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	viper.SetDefault("llm.http_proxy", cfg.LLM.HTTPProxy)
	viper.SetDefault("llm.https_proxy", cfg.LLM.HTTPSProxy)
	viper.SetDefault("llm.no_proxy", cfg.LLM.NoProxy)
	viper.SetDefault("cache.enabled", cfg.Cache.Enabled)
	viper.SetDefault("cache.memory_ttl", cfg.Cache.MemoryTTL)
	viper.SetDefault("cache.disk_ttl", cfg.Cache.DiskTTL)
	viper.SetDefault("cache.dir", cfg.Cache.Dir)
	viper.SetDefault("concurrency.workers", cfg.Concurrency.Workers)
	viper.SetDefault("output.verbose", cfg.Output.Verbose)
	viper.SetDefault("output.format", cfg.Output.Format)
}

// loadConfig merges defaults, config file, environment and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if noCache {
		cfg.Cache.Enabled = false
	}

	// Provider credentials from the conventional environment variables
	switch cfg.LLM.Provider {
	case "openai":
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case "ollama":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = os.Getenv("OLLAMA_BASE_URL")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openPipeline loads the configuration and assembles the pipeline
func openPipeline() (*pipeline.Pipeline, *model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := util.NewLogger(os.Stderr, cfg.Output.Verbose)

	p, err := pipeline.FromConfig(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}
