// Package pipeline orchestrates brief generation: collecting raw issues,
// clustering them into topics, analyzing each issue, and saving the
// assembled brief to the archive.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/newsbrief/internal/archive"
	"github.com/jonathan/newsbrief/internal/jobs"
	"github.com/jonathan/newsbrief/internal/store"
	"github.com/jonathan/newsbrief/internal/types"
)

// maxConcurrentFetches bounds how many source documents are fetched at once.
const maxConcurrentFetches = 4

// IssueSource delivers the raw issues for a date. Feed collection itself
// lives outside this module; the pipeline only consumes the interface.
type IssueSource interface {
	Issues(ctx context.Context, date string) ([]types.Issue, error)
}

// Analyst is the subset of the analysis collaborators the pipeline uses.
type Analyst interface {
	ClusterIssues(ctx context.Context, issues []types.Issue) ([]types.TopicGroup, error)
	Analyze(ctx context.Context, issue types.Issue, sourceContext string) (*types.IssueItem, error)
}

// SourceFetcher retrieves optional source documents for an issue.
type SourceFetcher interface {
	SourceDocuments(ctx context.Context, urls []string) ([]string, error)
}

// ProgressFunc receives stage transitions as the pipeline advances.
type ProgressFunc func(stage jobs.Status, progress int)

// RunOptions holds configuration for one generation run.
type RunOptions struct {
	// Date of the brief, YYYY-MM-DD. Empty means today (UTC).
	Date string
	// Force regenerates even when a brief for the date already exists.
	// Overlapping forced runs for one date are last-write-wins.
	Force bool
	// OnProgress is optional.
	OnProgress ProgressFunc
	// Retry overrides the backoff applied around analysis calls; zero
	// values use the defaults.
	Retry jobs.RetryOptions
}

// Generator wires the collaborators for brief generation.
type Generator struct {
	Source  IssueSource
	Analyst Analyst
	Fetcher SourceFetcher
	Archive *archive.Archive
}

// ErrBriefExists is returned when a brief for the date is already archived
// and the run was not forced.
type ErrBriefExists struct {
	Date string
}

func (e *ErrBriefExists) Error() string {
	return fmt.Sprintf("brief for %s already exists", e.Date)
}

func (o *RunOptions) progress(stage jobs.Status, pct int) {
	if o.OnProgress != nil {
		o.OnProgress(stage, pct)
	}
}

// Run generates and archives the brief for the requested date. Issues whose
// analysis fails after retries are dropped; the run only fails when no issue
// survives at all.
func (g *Generator) Run(ctx context.Context, opts RunOptions) (*types.BriefReport, error) {
	if g.Source == nil {
		return nil, fmt.Errorf("no issue source configured")
	}

	date := opts.Date
	if date == "" {
		date = time.Now().UTC().Format(types.DateLayout)
	}
	day, err := types.ParseBriefDate(date)
	if err != nil {
		return nil, err
	}

	if !opts.Force {
		_, err := g.Archive.GetBriefByDate(ctx, date)
		switch {
		case err == nil:
			return nil, &ErrBriefExists{Date: date}
		case errors.Is(err, store.ErrNotFound):
			// No brief yet, proceed.
		default:
			return nil, err
		}
	}

	issues, err := g.Source.Issues(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("issue source failed: %w", err)
	}
	if len(issues) == 0 {
		return nil, fmt.Errorf("no issues available for %s", date)
	}

	opts.progress(jobs.StatusClustering, 10)
	groups := g.cluster(ctx, issues, opts.Retry)

	opts.progress(jobs.StatusGenerating, 30)
	items := g.analyzeGroups(ctx, groups, opts.Retry)
	if len(items) == 0 {
		return nil, fmt.Errorf("analysis produced no usable issues for %s", date)
	}

	report := &types.BriefReport{
		ID:          uuid.New().String(),
		Date:        date,
		DayOfWeek:   day.Weekday().String(),
		GeneratedAt: time.Now().UTC(),
		TotalIssues: len(items),
		Issues:      items,
	}
	report.Markdown = renderMarkdown(report)

	opts.progress(jobs.StatusGenerating, 90)
	if err := g.Archive.SaveBrief(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// cluster groups issues by topic, falling back to a single group when the
// clustering call fails; topic grouping is presentation, not substance.
func (g *Generator) cluster(ctx context.Context, issues []types.Issue, retry jobs.RetryOptions) []types.TopicGroup {
	groups, err := jobs.InvokeValue(ctx, func(ctx context.Context) ([]types.TopicGroup, error) {
		return g.Analyst.ClusterIssues(ctx, issues)
	}, retry)
	if err != nil || len(groups) == 0 {
		if err != nil {
			log.Printf("[pipeline] clustering failed, using a single group: %v", err)
		}
		return []types.TopicGroup{{Topic: "Today's issues", Issues: issues}}
	}
	return groups
}

// analyzeGroups analyzes every issue, fetching its sources concurrently
// first. A missing source document degrades the analysis context; a failed
// analysis drops the issue.
func (g *Generator) analyzeGroups(ctx context.Context, groups []types.TopicGroup, retry jobs.RetryOptions) []types.IssueItem {
	var flat []types.Issue
	for _, group := range groups {
		flat = append(flat, group.Issues...)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentFetches)

	results := make([]*types.IssueItem, len(flat))
	for i := range flat {
		eg.Go(func() error {
			issue := flat[i]

			var sourceContext string
			if g.Fetcher != nil && len(issue.URLs) > 0 {
				docs, err := g.Fetcher.SourceDocuments(egCtx, issue.URLs)
				if err != nil {
					log.Printf("[pipeline] no sources for %q, analyzing without: %v", issue.Headline, err)
				} else {
					sourceContext = strings.Join(docs, "\n\n---\n\n")
				}
			}

			item, err := jobs.InvokeValue(egCtx, func(ctx context.Context) (*types.IssueItem, error) {
				return g.Analyst.Analyze(ctx, issue, sourceContext)
			}, retry)
			if err != nil {
				log.Printf("[pipeline] dropping issue %q: %v", issue.Headline, err)
				return nil
			}
			results[i] = item
			return nil
		})
	}
	_ = eg.Wait()

	out := make([]types.IssueItem, 0, len(results))
	for _, item := range results {
		if item != nil {
			out = append(out, *item)
		}
	}
	return out
}
