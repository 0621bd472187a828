package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jonathan/newsbrief/internal/analysis"
	"github.com/jonathan/newsbrief/internal/config"
	"github.com/jonathan/newsbrief/internal/pipeline"
	"github.com/jonathan/newsbrief/internal/store"
)

var (
	configPath string
	verbose    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a JSON config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print detailed output")
}

// loadConfig merges the optional config file with the environment. Flags are
// applied on top by the individual commands.
func loadConfig() (config.Config, error) {
	cfg := config.FromEnv()

	if configPath != "" {
		fileCfg, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = cfg.MergeWithDefaults(*fileCfg)
	}

	cfg.Verbose = cfg.Verbose || verbose
	if cfg.Port == 0 {
		cfg.Port = config.DefaultPort
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// storeConfig maps the app config onto backend selection settings.
func storeConfig(cfg config.Config) store.Config {
	return store.Config{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		KVRestURL:     cfg.KVRestURL,
		KVRestToken:   cfg.KVRestToken,
		Hosted:        cfg.Hosted,
		DataDir:       cfg.DataDir,
	}
}

// newAnalyst builds the Gemini-backed analyst, requiring an API key.
func newAnalyst(ctx context.Context, cfg config.Config) (*analysis.Analyst, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}

	client, err := analysis.NewGeminiClient(ctx, nil, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis client: %w", err)
	}
	return analysis.NewAnalyst(client), nil
}

// issueSource returns the configured issue source, or an error when none is
// configured.
func issueSource(cfg config.Config) (pipeline.IssueSource, error) {
	if cfg.IssuesPath == "" {
		return nil, fmt.Errorf("no issue source configured (set ISSUES_PATH or 'issues_path' in the config file)")
	}
	return &pipeline.FileIssueSource{Path: cfg.IssuesPath}, nil
}
