package pipeline

import (
	"fmt"
	"strings"

	"github.com/jonathan/newsbrief/internal/types"
)

// renderMarkdown produces the human-readable rendering of a brief.
func renderMarkdown(report *types.BriefReport) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Daily Brief — %s, %s\n\n", report.DayOfWeek, report.Date)
	fmt.Fprintf(&sb, "%d issues analyzed.\n", report.TotalIssues)

	for i, item := range report.Issues {
		fmt.Fprintf(&sb, "\n## %d. %s\n\n", i+1, item.Headline)
		for _, fact := range item.KeyFacts {
			fmt.Fprintf(&sb, "- %s\n", fact)
		}
		if item.Insight != "" {
			fmt.Fprintf(&sb, "\n**Insight:** %s\n", item.Insight)
		}
		if item.Framework != "" {
			fmt.Fprintf(&sb, "\n*Lens: %s*\n", item.Framework)
		}
		if len(item.Sources) > 0 {
			sb.WriteString("\nSources:\n")
			for _, src := range item.Sources {
				fmt.Fprintf(&sb, "- %s\n", src)
			}
		}
	}

	return sb.String()
}
