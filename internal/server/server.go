// Package server provides the HTTP REST API for the newsbrief service.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonathan/newsbrief/internal/archive"
	"github.com/jonathan/newsbrief/internal/fetch"
	"github.com/jonathan/newsbrief/internal/jobs"
	"github.com/jonathan/newsbrief/internal/pipeline"
	"github.com/jonathan/newsbrief/internal/server/ratelimit"
	"github.com/jonathan/newsbrief/internal/store"
	"github.com/jonathan/newsbrief/internal/types"
)

// Analyst is the full set of analysis collaborators the server invokes.
// *analysis.Analyst satisfies it; tests substitute fakes.
type Analyst interface {
	pipeline.Analyst
	DeepReport(ctx context.Context, item types.IssueItem, sources []string) (string, error)
	Research(ctx context.Context, briefs []*types.BriefReport) (string, error)
	Synthesize(ctx context.Context, artifact string) (string, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	backends    store.Backends
	archive     *archive.Archive
	supervisor  *jobs.Supervisor
	jobStore    *jobs.Store
	analyst     Analyst
	fetcher     pipeline.SourceFetcher
	generator   *pipeline.Generator
	rateLimiter *ratelimit.Limiter
	apiToken    string
}

// Config holds server configuration
type Config struct {
	Port     int
	APIToken string
	JobTTL   time.Duration

	Backends store.Backends
	Analyst  Analyst
	Source   pipeline.IssueSource
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Backends.Archive == nil || cfg.Backends.Jobs == nil {
		return nil, fmt.Errorf("server requires selected storage backends")
	}
	if cfg.Analyst == nil {
		return nil, fmt.Errorf("server requires an analysis client")
	}

	arch := archive.New(cfg.Backends.Archive)
	jobStore := jobs.NewStore(cfg.Backends.Jobs, cfg.JobTTL)
	fetcher := fetch.New()

	s := &Server{
		backends:   cfg.Backends,
		archive:    arch,
		supervisor: jobs.NewSupervisor(jobStore),
		jobStore:   jobStore,
		analyst:    cfg.Analyst,
		fetcher:    fetcher,
		generator: &pipeline.Generator{
			Source:  cfg.Source,
			Analyst: cfg.Analyst,
			Fetcher: fetcher,
			Archive: arch,
		},
		rateLimiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		apiToken:    cfg.APIToken,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /briefs", s.handleListBriefs)
	mux.HandleFunc("GET /briefs/latest", s.handleLatestBrief)
	mux.HandleFunc("GET /briefs/{date}", s.handleGetBrief)
	mux.HandleFunc("DELETE /briefs/{date}", s.requireToken(s.handleDeleteBrief))
	mux.HandleFunc("POST /briefs/generate", s.requireToken(s.handleGenerateBrief))

	mux.HandleFunc("POST /reports", s.requireToken(s.handleCreateReport))
	mux.HandleFunc("POST /research", s.requireToken(s.handleCreateResearch))
	mux.HandleFunc("POST /research/{id}/synthesize", s.requireToken(s.handleSynthesize))
	mux.HandleFunc("GET /jobs/{id}", s.handleJobStatus)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.rateLimiter.Middleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Generator exposes the brief generator, shared with the daily scheduler.
func (s *Server) Generator() *pipeline.Generator {
	return s.generator
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight jobs
// before closing the storage backends. Skipping the drain would silently
// drop detached jobs whose responses were already sent.
func (s *Server) Start() error {
	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), jobs.DrainTimeout)
	defer cancelDrain()
	if err := s.supervisor.Drain(drainCtx); err != nil {
		log.Printf("Job drain error: %v", err)
	}

	s.rateLimiter.Stop()
	return s.backends.Close()
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// requireToken gates mutating routes behind the configured API token.
// With no token configured every caller is allowed.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.apiToken != "" {
			if r.Header.Get("Authorization") != "Bearer "+s.apiToken {
				s.errorResponse(w, http.StatusUnauthorized, "Invalid or missing API token")
				return
			}
		}
		next(w, r)
	}
}
