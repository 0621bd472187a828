package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsbrief/internal/archive"
	"github.com/jonathan/newsbrief/internal/fetch"
	"github.com/jonathan/newsbrief/internal/types"
)

var (
	reportDate  string
	reportIndex int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write a deep report on one issue of an archived brief",
	Long:  "Re-fetches the issue's sources and asks the advanced model for an expanded report on a single issue from an archived brief. The report is printed to stdout.",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Brief date, YYYY-MM-DD (default latest)")
	reportCmd.Flags().IntVar(&reportIndex, "issue", 0, "Zero-based index of the issue within the brief")
	rootCmd.AddCommand(reportCmd)
}

// resolveArchiveBrief loads the brief for date, or the latest when date is
// empty.
func resolveArchiveBrief(ctx context.Context, arch *archive.Archive, date string) (*types.BriefReport, error) {
	if date == "" {
		return arch.GetLatestBrief(ctx)
	}
	return arch.GetBriefByDate(ctx, date)
}

func runReport(_ *cobra.Command, _ []string) error {
	if reportIndex < 0 {
		return fmt.Errorf("issue index must be non-negative, got %d", reportIndex)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	analyst, err := newAnalyst(ctx, cfg)
	if err != nil {
		return err
	}
	defer analyst.Close()

	arch, closeBackends, err := openArchive()
	if err != nil {
		return err
	}
	defer closeBackends()

	brief, err := resolveArchiveBrief(ctx, arch, reportDate)
	if err != nil {
		return err
	}
	if reportIndex >= len(brief.Issues) {
		return fmt.Errorf("issue index %d out of range, brief for %s has %d issues", reportIndex, brief.Date, len(brief.Issues))
	}
	item := brief.Issues[reportIndex]

	var docs []string
	if len(item.Sources) > 0 {
		if fetched, err := fetch.New().SourceDocuments(ctx, item.Sources); err != nil {
			fmt.Printf("Warning: no sources reachable, reporting without: %v\n", err)
		} else {
			docs = fetched
		}
	}

	report, err := analyst.DeepReport(ctx, item, docs)
	if err != nil {
		return err
	}

	fmt.Println(report)
	return nil
}
