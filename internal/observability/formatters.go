// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/newsbrief/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintBrief outputs a human-readable summary of a brief.
func (p *Printer) PrintBrief(brief *types.BriefReport) {
	if brief == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Date:    %s (%s)\n", brief.Date, brief.DayOfWeek))
	sb.WriteString(fmt.Sprintf("Issues:  %d\n", brief.TotalIssues))
	sb.WriteString("\n")

	count := min(len(brief.Issues), maxItemsToShow)
	for i := 0; i < count; i++ {
		issue := brief.Issues[i]
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, issue.Headline))
		if issue.Insight != "" {
			sb.WriteString(fmt.Sprintf("   %s\n", issue.Insight))
		}
	}
	if len(brief.Issues) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(brief.Issues)-maxItemsToShow))
	}

	p.printBox("Daily Brief", strings.TrimRight(sb.String(), "\n"))
}

// PrintBriefList outputs a one-line-per-brief listing of archived briefs.
func (p *Printer) PrintBriefList(briefs []*types.BriefReport) {
	if len(briefs) == 0 {
		p.printBox("Archived Briefs", "No briefs stored yet")
		return
	}

	var sb strings.Builder
	for _, brief := range briefs {
		sb.WriteString(fmt.Sprintf("%s  %2d issues  generated %s\n",
			brief.Date, brief.TotalIssues, brief.GeneratedAt.Format("15:04 MST")))
	}

	p.printBox(fmt.Sprintf("Archived Briefs (%d)", len(briefs)), strings.TrimRight(sb.String(), "\n"))
}

// PrintIssueItem outputs the full detail of one analyzed issue.
func (p *Printer) PrintIssueItem(item *types.IssueItem) {
	if item == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(item.Headline + "\n\n")
	for _, fact := range item.KeyFacts {
		sb.WriteString(fmt.Sprintf("  • %s\n", fact))
	}
	if item.Insight != "" {
		sb.WriteString(fmt.Sprintf("\nInsight:   %s\n", item.Insight))
	}
	if item.Framework != "" {
		sb.WriteString(fmt.Sprintf("Lens:      %s\n", item.Framework))
	}
	if len(item.Sources) > 0 {
		sb.WriteString(fmt.Sprintf("Sources:   %d\n", len(item.Sources)))
	}

	p.printBox("Issue", strings.TrimRight(sb.String(), "\n"))
}
