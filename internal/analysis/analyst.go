package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/newsbrief/internal/prompts"
	"github.com/jonathan/newsbrief/internal/schemas"
	"github.com/jonathan/newsbrief/internal/types"
)

// promptsFile names the embedded prompt templates for this package.
const promptsFile = "analysis.json"

// Analyst implements the analysis collaborators on top of an LLM client.
type Analyst struct {
	client Client
}

// NewAnalyst returns an Analyst using the given client.
func NewAnalyst(client Client) *Analyst {
	return &Analyst{client: client}
}

// Close releases the underlying client.
func (a *Analyst) Close() error {
	return a.client.Close()
}

// validateJSON checks raw output against a schema, converting mismatches
// into ParseError.
func validateJSON(schema, raw string) error {
	if err := schemas.ValidateJSONString(schema, raw); err != nil {
		return &ParseError{Reason: err.Error()}
	}
	return nil
}

// ClusterIssues groups raw issues into related topics.
func (a *Analyst) ClusterIssues(ctx context.Context, issues []types.Issue) ([]types.TopicGroup, error) {
	if len(issues) == 0 {
		return nil, nil
	}

	input, err := json.Marshal(issues)
	if err != nil {
		return nil, fmt.Errorf("failed to encode issues: %w", err)
	}

	prompt := prompts.Format(prompts.MustGet(promptsFile, "cluster"), map[string]string{
		"Issues": string(input),
	})

	raw, err := a.client.GenerateJSON(ctx, prompt, TierLite)
	if err != nil {
		return nil, err
	}
	raw = ExtractJSON(raw)

	if err := validateJSON(schemas.Clusters, raw); err != nil {
		return nil, err
	}

	var groups []types.TopicGroup
	if err := json.Unmarshal([]byte(raw), &groups); err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}
	return groups, nil
}

// Analyze produces the structured brief item for one issue. context carries
// optional fetched source text; it may be empty when no source was reachable.
func (a *Analyst) Analyze(ctx context.Context, issue types.Issue, sourceContext string) (*types.IssueItem, error) {
	var sb strings.Builder
	sb.WriteString(prompts.Format(prompts.MustGet(promptsFile, "analyze"), map[string]string{
		"Headline": issue.Headline,
		"Summary":  issue.Summary,
	}))
	if sourceContext != "" {
		fmt.Fprintf(&sb, "\nSource material:\n%s\n", sourceContext)
	}

	raw, err := a.client.GenerateJSON(ctx, sb.String(), TierStandard)
	if err != nil {
		return nil, err
	}
	raw = ExtractJSON(raw)

	if err := validateJSON(schemas.IssueItem, raw); err != nil {
		return nil, err
	}

	var item types.IssueItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		return nil, &ParseError{Reason: err.Error()}
	}
	if len(item.Sources) == 0 {
		item.Sources = issue.URLs
	}
	return &item, nil
}

// DeepReport produces a long-form report for one analyzed issue, optionally
// enriched with fetched source documents.
func (a *Analyst) DeepReport(ctx context.Context, item types.IssueItem, sources []string) (string, error) {
	var sb strings.Builder
	sb.WriteString(prompts.Format(prompts.MustGet(promptsFile, "deep_report"), map[string]string{
		"Headline": item.Headline,
		"Insight":  item.Insight,
		"KeyFacts": strings.Join(item.KeyFacts, "; "),
	}))
	for i, src := range sources {
		fmt.Fprintf(&sb, "\nSource document %d:\n%s\n", i+1, src)
	}

	return a.client.GenerateContent(ctx, sb.String(), TierAdvanced)
}

// Research condenses the last stretch of briefs into a findings artifact for
// a later synthesis stage.
func (a *Analyst) Research(ctx context.Context, briefs []*types.BriefReport) (string, error) {
	if len(briefs) == 0 {
		return "", fmt.Errorf("no briefs available to research")
	}

	var sb strings.Builder
	sb.WriteString(prompts.MustGet(promptsFile, "research"))
	for _, b := range briefs {
		fmt.Fprintf(&sb, "\n## %s (%d issues)\n", b.Date, b.TotalIssues)
		for _, item := range b.Issues {
			fmt.Fprintf(&sb, "- %s: %s\n", item.Headline, item.Insight)
		}
	}

	return a.client.GenerateContent(ctx, sb.String(), TierStandard)
}

// Synthesize turns a research artifact into the final weekly report.
func (a *Analyst) Synthesize(ctx context.Context, artifact string) (string, error) {
	if strings.TrimSpace(artifact) == "" {
		return "", fmt.Errorf("research artifact is empty")
	}

	prompt := prompts.Format(prompts.MustGet(promptsFile, "synthesize"), map[string]string{
		"Notes": artifact,
	})

	return a.client.GenerateContent(ctx, prompt, TierAdvanced)
}
