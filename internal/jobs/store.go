package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/newsbrief/internal/store"
)

const (
	jobKeyPrefix = "job:"

	// DefaultTTL bounds how long a job record stays readable. Pollers that
	// miss the window observe not-found and treat it as a failure.
	DefaultTTL = time.Hour
)

// Store is the expiring key store for job records. Every write refreshes the
// record under the same fixed TTL.
type Store struct {
	backend store.Backend
	ttl     time.Duration
}

// NewStore returns a job store over the given backend. A zero ttl uses
// DefaultTTL.
func NewStore(backend store.Backend, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{backend: backend, ttl: ttl}
}

func jobKey(id string) string {
	return jobKeyPrefix + id
}

// Create mints an opaque job id and writes the initial record with the given
// first-stage status.
func (s *Store) Create(ctx context.Context, status Status) (*Record, error) {
	now := time.Now().UTC()
	rec := &Record{
		ID:        uuid.New().String(),
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the record for id, or store.ErrNotFound when the id is unknown
// or the record's TTL has elapsed.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.backend.Get(ctx, jobKey(id))
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return &rec, nil
}

// Advance moves the job to the next status, optionally replacing the result
// payload and progress. It refuses to regress the state machine. Advancing to
// the current non-terminal status is a progress/result refresh, not a
// transition.
func (s *Store) Advance(ctx context.Context, id string, next Status, progress int, result json.RawMessage) (*Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if next != rec.Status && !rec.Status.canTransition(next) {
		return nil, fmt.Errorf("job %s cannot move from %s to %s", id, rec.Status, next)
	}
	if next == rec.Status && rec.Status.Terminal() {
		return nil, fmt.Errorf("job %s already finished as %s", id, rec.Status)
	}
	rec.Status = next
	if progress > rec.Progress {
		rec.Progress = progress
	}
	if result != nil {
		rec.Result = result
	}
	rec.UpdatedAt = time.Now().UTC()
	if err := s.put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Complete marks the job terminal-successful with the final result payload.
func (s *Store) Complete(ctx context.Context, id string, result json.RawMessage) error {
	_, err := s.Advance(ctx, id, StatusCompleted, 100, result)
	return err
}

// Fail marks the job terminal-failed with an error message. Failing an
// already terminal job is a no-op so a late failure never clobbers a result.
func (s *Store) Fail(ctx context.Context, id string, msg string) error {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.Status.Terminal() {
		return nil
	}
	rec.Status = StatusFailed
	rec.Error = msg
	rec.UpdatedAt = time.Now().UTC()
	return s.put(ctx, rec)
}

func (s *Store) put(ctx context.Context, rec *Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", rec.ID, err)
	}
	return s.backend.Put(ctx, jobKey(rec.ID), data, s.ttl)
}
