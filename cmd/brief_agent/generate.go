package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsbrief/internal/archive"
	"github.com/jonathan/newsbrief/internal/fetch"
	"github.com/jonathan/newsbrief/internal/observability"
	"github.com/jonathan/newsbrief/internal/pipeline"
	"github.com/jonathan/newsbrief/internal/store"
)

var (
	generateDate  string
	generateForce bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate and archive the daily brief",
	Long:  "Collect the day's issues, cluster and analyze them, and save the assembled brief to the archive. Runs synchronously; use the serve command for asynchronous generation.",
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVar(&generateDate, "date", "", "Brief date, YYYY-MM-DD (default today UTC)")
	generateCmd.Flags().BoolVar(&generateForce, "force", false, "Regenerate even if the brief already exists")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	source, err := issueSource(cfg)
	if err != nil {
		return err
	}

	analyst, err := newAnalyst(ctx, cfg)
	if err != nil {
		return err
	}
	defer analyst.Close()

	backends, err := store.Select(storeConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to select storage backends: %w", err)
	}
	defer backends.Close()

	gen := &pipeline.Generator{
		Source:  source,
		Analyst: analyst,
		Fetcher: fetch.New(),
		Archive: archive.New(backends.Archive),
	}

	report, err := gen.Run(ctx, pipeline.RunOptions{Date: generateDate, Force: generateForce})
	if err != nil {
		return err
	}

	if cfg.Verbose {
		observability.NewPrinter(os.Stdout).PrintBrief(report)
	} else {
		fmt.Printf("Generated brief for %s with %d issues\n", report.Date, report.TotalIssues)
	}
	return nil
}
