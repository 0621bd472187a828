// Package schedule triggers automatic daily brief generation.
package schedule

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jonathan/newsbrief/internal/pipeline"
)

// checkInterval is how often the scheduler wakes to see whether the daily
// run is due. Coarse on purpose; the run itself is idempotent per date.
const checkInterval = time.Minute

// Scheduler runs brief generation once per UTC day at the configured hour.
// A day whose brief already exists is skipped, so restarts do not duplicate
// work.
type Scheduler struct {
	generator *pipeline.Generator
	hourUTC   int

	// now is swappable in tests.
	now func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New returns a scheduler that generates the daily brief at hourUTC.
func New(generator *pipeline.Generator, hourUTC int) *Scheduler {
	return &Scheduler{
		generator: generator,
		hourUTC:   hourUTC,
		now:       time.Now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start launches the scheduling loop. It returns immediately; call Stop for
// shutdown.
func (s *Scheduler) Start() {
	go s.loop()
	log.Printf("[schedule] daily generation enabled at %02d:00 UTC", s.hourUTC)
}

// Stop terminates the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Scheduler) loop() {
	defer close(s.done)

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if s.due() {
				s.runOnce()
			}
		}
	}
}

// due reports whether the current UTC time is at or past today's configured
// hour. runOnce itself refuses dates that already have a brief, so due only
// needs to be monotone within the day.
func (s *Scheduler) due() bool {
	return s.now().UTC().Hour() >= s.hourUTC
}

// runOnce generates today's brief unless it already exists.
func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	date := s.now().UTC().Format("2006-01-02")
	_, err := s.generator.Run(ctx, pipeline.RunOptions{Date: date})
	switch {
	case err == nil:
		log.Printf("[schedule] generated brief for %s", date)
	case isExists(err):
		// Already generated today, nothing to do.
	default:
		log.Printf("[schedule] generation for %s failed: %v", date, err)
	}
}

func isExists(err error) bool {
	var exists *pipeline.ErrBriefExists
	return errors.As(err, &exists)
}
