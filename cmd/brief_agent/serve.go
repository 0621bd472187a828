package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/newsbrief/internal/schedule"
	"github.com/jonathan/newsbrief/internal/server"
	"github.com/jonathan/newsbrief/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the brief archive and asynchronous analysis jobs as REST endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	ctx := context.Background()

	analyst, err := newAnalyst(ctx, cfg)
	if err != nil {
		return err
	}
	defer analyst.Close()

	backends, err := store.Select(storeConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to select storage backends: %w", err)
	}

	// A server without an issue source still serves the archive; generation
	// requests will fail with a clear error.
	source, err := issueSource(cfg)
	if err != nil {
		source = nil
	}

	srv, err := server.New(server.Config{
		Port:     cfg.Port,
		APIToken: cfg.APIToken,
		Backends: backends,
		Analyst:  analyst,
		Source:   source,
	})
	if err != nil {
		backends.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	if cfg.ScheduleEnabled && source != nil {
		sched := schedule.New(srv.Generator(), cfg.ScheduleHourUTC)
		sched.Start()
		defer sched.Stop()
	}

	return srv.Start()
}
