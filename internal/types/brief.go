// Package types provides type definitions for structured data used throughout the newsbrief system.
package types

import (
	"fmt"
	"time"
)

// DateLayout is the canonical layout for brief dates.
const DateLayout = "2006-01-02"

// Issue is a raw news issue as delivered by an issue source, before analysis.
type Issue struct {
	Headline string   `json:"headline"`
	Summary  string   `json:"summary,omitempty"`
	URLs     []string `json:"urls,omitempty"`
}

// IssueItem is one analyzed issue inside a brief. It has no identity of its
// own; its lifetime is bound to the containing BriefReport.
type IssueItem struct {
	Headline  string   `json:"headline"`
	KeyFacts  []string `json:"key_facts"`
	Insight   string   `json:"insight"`
	Framework string   `json:"framework"`
	Sources   []string `json:"sources,omitempty"`
}

// TopicGroup is the output of clustering raw issues into related topics.
type TopicGroup struct {
	Topic  string  `json:"topic"`
	Issues []Issue `json:"issues"`
}

// BriefReport is the archive's primary record: a dated collection of analyzed
// issues. Immutable once written except full overwrite on regeneration.
type BriefReport struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	DayOfWeek   string      `json:"day_of_week"`
	GeneratedAt time.Time   `json:"generated_at"`
	TotalIssues int         `json:"total_issues"`
	Issues      []IssueItem `json:"issues"`
	Markdown    string      `json:"markdown"`
}

// ParseBriefDate parses a brief date, accepting either the plain YYYY-MM-DD
// form or a prefixed variant such as "brief-2026-02-22".
func ParseBriefDate(date string) (time.Time, error) {
	s := date
	if n := len(s); n > len(DateLayout) {
		s = s[n-len(DateLayout):]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid brief date %q: %w", date, err)
	}
	return t, nil
}
