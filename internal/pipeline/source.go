package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/newsbrief/internal/types"
)

// FileIssueSource reads issues from a JSON file: either a flat array of
// issues, or an object keyed by date. It is the development stand-in for a
// real feed collector.
type FileIssueSource struct {
	Path string
}

// Issues returns the issues for date. A dated object that has no entry for
// the requested date yields an empty slice, not an error.
func (s *FileIssueSource) Issues(_ context.Context, date string) ([]types.Issue, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read issue source %s: %w", s.Path, err)
	}

	var flat []types.Issue
	if err := json.Unmarshal(data, &flat); err == nil {
		return flat, nil
	}

	var byDate map[string][]types.Issue
	if err := json.Unmarshal(data, &byDate); err != nil {
		return nil, fmt.Errorf("issue source %s is neither an issue array nor a date map: %w", s.Path, err)
	}
	return byDate[date], nil
}
