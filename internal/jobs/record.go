// Package jobs tracks asynchronous units of work through expiring records in
// the storage backend. Callers get a job id back immediately and poll for a
// terminal status; records disappear on their own once the TTL elapses.
package jobs

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of a job. Transitions only move forward
// through statusRank and end in exactly one terminal state.
type Status string

const (
	StatusProcessing        Status = "processing"
	StatusClustering        Status = "clustering"
	StatusResearching       Status = "researching"
	StatusResearchCompleted Status = "research_completed"
	StatusSynthesizing      Status = "synthesizing"
	StatusGenerating        Status = "generating"
	StatusCompleted         Status = "completed"
	StatusFailed            Status = "failed"
)

// statusRank orders the state machine. Equal-rank stage labels cannot replace
// each other out of order, and nothing outranks a terminal state.
var statusRank = map[Status]int{
	StatusProcessing:        0,
	StatusClustering:        1,
	StatusResearching:       1,
	StatusResearchCompleted: 2,
	StatusSynthesizing:      3,
	StatusGenerating:        3,
	StatusCompleted:         4,
	StatusFailed:            4,
}

// Terminal reports whether no further transitions can occur.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// canTransition reports whether moving from s to next respects the forward-
// only ordering.
func (s Status) canTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	return statusRank[next] > statusRank[s]
}

// Record is the stored state of one job. Result is opaque to this package;
// units of work store report text or structured intermediate artifacts there.
type Record struct {
	ID        string          `json:"id"`
	Status    Status          `json:"status"`
	Progress  int             `json:"progress,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
