package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsbrief/internal/archive"
	"github.com/jonathan/newsbrief/internal/observability"
	"github.com/jonathan/newsbrief/internal/store"
)

var briefsCmd = &cobra.Command{
	Use:   "briefs",
	Short: "Inspect the brief archive",
}

var briefsListLimit int

var briefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived briefs, newest first",
	RunE:  runBriefsList,
}

var briefsShowCmd = &cobra.Command{
	Use:   "show [date]",
	Short: "Show a brief as markdown (latest when no date is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBriefsShow,
}

var briefsDeleteCmd = &cobra.Command{
	Use:   "delete <date>",
	Short: "Delete the brief for a date",
	Args:  cobra.ExactArgs(1),
	RunE:  runBriefsDelete,
}

func init() {
	briefsListCmd.Flags().IntVar(&briefsListLimit, "limit", archive.DefaultListLimit, "Maximum number of briefs to list")

	briefsCmd.AddCommand(briefsListCmd)
	briefsCmd.AddCommand(briefsShowCmd)
	briefsCmd.AddCommand(briefsDeleteCmd)
	rootCmd.AddCommand(briefsCmd)
}

// openArchive selects the storage backends and wraps the archive half.
// The returned close function closes both backends.
func openArchive() (*archive.Archive, func() error, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	backends, err := store.Select(storeConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select storage backends: %w", err)
	}
	return archive.New(backends.Archive), backends.Close, nil
}

func runBriefsList(_ *cobra.Command, _ []string) error {
	arch, closeBackends, err := openArchive()
	if err != nil {
		return err
	}
	defer closeBackends()

	briefs, err := arch.GetAllBriefs(context.Background(), briefsListLimit)
	if err != nil {
		return err
	}

	observability.NewPrinter(os.Stdout).PrintBriefList(briefs)
	return nil
}

func runBriefsShow(_ *cobra.Command, args []string) error {
	arch, closeBackends, err := openArchive()
	if err != nil {
		return err
	}
	defer closeBackends()

	ctx := context.Background()

	var date string
	if len(args) == 1 {
		date = args[0]
	}

	brief, err := resolveArchiveBrief(ctx, arch, date)
	if err != nil {
		return err
	}

	fmt.Println(brief.Markdown)
	return nil
}

func runBriefsDelete(_ *cobra.Command, args []string) error {
	arch, closeBackends, err := openArchive()
	if err != nil {
		return err
	}
	defer closeBackends()

	removed, err := arch.DeleteBrief(context.Background(), args[0])
	if err != nil {
		return err
	}
	if !removed {
		fmt.Printf("No brief stored for %s\n", args[0])
		return nil
	}
	fmt.Printf("Deleted brief for %s\n", args[0])
	return nil
}
