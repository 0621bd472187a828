package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Supervisor launches units of work detached from the request lifecycle and
// tracks them so the host process can drain before shutdown. Dropping a unit
// because the process exited early would silently lose the job, so the server
// must call Drain after it stops accepting requests.
type Supervisor struct {
	store *Store

	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewSupervisor returns a supervisor writing job state through store.
func NewSupervisor(store *Store) *Supervisor {
	return &Supervisor{store: store}
}

// Store exposes the underlying job store for status reads.
func (s *Supervisor) Store() *Store {
	return s.store
}

// Launch creates a job record in the given first-stage status and runs fn in
// a tracked goroutine, returning the record before any heavy work starts.
// fn receives the job id and a background context detached from the request.
//
// An error returned by fn, or a panic inside it, is converted into a terminal
// failed record; nothing escapes the unit.
func (s *Supervisor) Launch(ctx context.Context, first Status, fn func(ctx context.Context, jobID string) error) (*Record, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("supervisor is draining, not accepting new jobs")
	}
	s.mu.Unlock()

	rec, err := s.store.Create(ctx, first)
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		// The request context is gone by the time the unit runs.
		unitCtx := context.Background()

		defer func() {
			if r := recover(); r != nil {
				log.Printf("[jobs] job %s panicked: %v", rec.ID, r)
				s.recordFailure(unitCtx, rec.ID, fmt.Sprintf("internal error: %v", r))
			}
		}()

		if err := fn(unitCtx, rec.ID); err != nil {
			log.Printf("[jobs] job %s failed: %v", rec.ID, err)
			s.recordFailure(unitCtx, rec.ID, err.Error())
		}
	}()

	return rec, nil
}

// ErrWrongStage reports a continuation attempted against a record that is not
// in the stage the follow-up unit consumes. Accepting such a request would
// race the still-running earlier stage and clobber its result.
type ErrWrongStage struct {
	JobID string
	Have  Status
	Want  Status
}

func (e *ErrWrongStage) Error() string {
	return fmt.Sprintf("job %s is %s, continuation needs %s", e.JobID, e.Have, e.Want)
}

// Continue runs a follow-up stage against an existing job record, for flows
// where the next stage is triggered by a separate caller request rather than
// chained automatically. The record must exist, not be terminal, and currently
// sit in the from stage; anything else is refused before the unit launches.
func (s *Supervisor) Continue(ctx context.Context, jobID string, from Status, fn func(ctx context.Context, jobID string) error) (*Record, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("supervisor is draining, not accepting new jobs")
	}
	s.mu.Unlock()

	rec, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if rec.Status.Terminal() {
		return nil, fmt.Errorf("job %s already finished as %s", jobID, rec.Status)
	}
	if rec.Status != from {
		return nil, &ErrWrongStage{JobID: jobID, Have: rec.Status, Want: from}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		unitCtx := context.Background()

		defer func() {
			if r := recover(); r != nil {
				log.Printf("[jobs] job %s panicked: %v", jobID, r)
				s.recordFailure(unitCtx, jobID, fmt.Sprintf("internal error: %v", r))
			}
		}()

		if err := fn(unitCtx, jobID); err != nil {
			log.Printf("[jobs] job %s failed: %v", jobID, err)
			s.recordFailure(unitCtx, jobID, err.Error())
		}
	}()

	return rec, nil
}

// recordFailure writes the terminal failed state, logging when even that
// write cannot reach storage.
func (s *Supervisor) recordFailure(ctx context.Context, jobID, msg string) {
	if err := s.store.Fail(ctx, jobID, msg); err != nil {
		log.Printf("[jobs] could not record failure for job %s: %v", jobID, err)
	}
}

// Drain stops accepting new jobs and waits for the in-flight units to finish,
// or for ctx to expire.
func (s *Supervisor) Drain(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain interrupted with jobs still running: %w", ctx.Err())
	}
}

// DrainTimeout is how long shutdown waits for in-flight jobs by default.
// Jobs are short (minutes at most) but an LLM call mid-retry can hold on for
// a while.
const DrainTimeout = 2 * time.Minute
