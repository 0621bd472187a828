package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/newsbrief/internal/store"
)

func waitForTerminal(t *testing.T, s *Store, id string) *Record {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec, err := s.Get(context.Background(), id)
		require.NoError(t, err)
		if rec.Status.Terminal() {
			return rec
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached a terminal state", id)
	return nil
}

func TestSupervisor_LaunchReturnsBeforeWorkCompletes(t *testing.T) {
	s := NewStore(store.NewMemoryBackend(), 0)
	sup := NewSupervisor(s)

	started := make(chan struct{})
	release := make(chan struct{})

	rec, err := sup.Launch(context.Background(), StatusProcessing, func(ctx context.Context, jobID string) error {
		close(started)
		<-release
		return s.Complete(ctx, jobID, json.RawMessage(`"done"`))
	})
	require.NoError(t, err)

	// The caller sees a non-terminal status immediately.
	got, err := s.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)

	<-started
	close(release)

	final := waitForTerminal(t, s, rec.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	assert.JSONEq(t, `"done"`, string(final.Result))
}

func TestSupervisor_UnitErrorBecomesFailedRecord(t *testing.T) {
	s := NewStore(store.NewMemoryBackend(), 0)
	sup := NewSupervisor(s)

	rec, err := sup.Launch(context.Background(), StatusGenerating, func(context.Context, string) error {
		return errors.New("analysis upstream returned garbage")
	})
	require.NoError(t, err)

	final := waitForTerminal(t, s, rec.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "garbage")
}

func TestSupervisor_PanicBecomesFailedRecord(t *testing.T) {
	s := NewStore(store.NewMemoryBackend(), 0)
	sup := NewSupervisor(s)

	rec, err := sup.Launch(context.Background(), StatusProcessing, func(context.Context, string) error {
		panic("nil map write")
	})
	require.NoError(t, err)

	final := waitForTerminal(t, s, rec.ID)
	assert.Equal(t, StatusFailed, final.Status)
	assert.Contains(t, final.Error, "internal error")
}

func TestSupervisor_ContinueRequiresExpectedStage(t *testing.T) {
	s := NewStore(store.NewMemoryBackend(), 0)
	sup := NewSupervisor(s)
	ctx := context.Background()

	release := make(chan struct{})
	rec, err := sup.Launch(ctx, StatusResearching, func(ctx context.Context, jobID string) error {
		<-release
		_, err := s.Advance(ctx, jobID, StatusResearchCompleted, 50, json.RawMessage(`{"notes":"n"}`))
		return err
	})
	require.NoError(t, err)

	// The first stage is still running; a continuation must be refused
	// without touching the record.
	_, err = sup.Continue(ctx, rec.ID, StatusResearchCompleted, func(context.Context, string) error {
		t.Error("continuation unit ran against an in-flight first stage")
		return nil
	})
	var wrongStage *ErrWrongStage
	require.ErrorAs(t, err, &wrongStage)
	assert.Equal(t, StatusResearching, wrongStage.Have)
	assert.Equal(t, StatusResearchCompleted, wrongStage.Want)

	// The refusal left the first stage's eventual write intact.
	close(release)
	var parked *Record
	deadline := time.Now().Add(5 * time.Second)
	for parked == nil && time.Now().Before(deadline) {
		got, err := s.Get(ctx, rec.ID)
		require.NoError(t, err)
		require.False(t, got.Status.Terminal(), "job ended %s instead of parking", got.Status)
		if got.Status == StatusResearchCompleted {
			parked = got
		}
		time.Sleep(5 * time.Millisecond)
	}
	require.NotNil(t, parked, "job never parked at research_completed")
	assert.JSONEq(t, `{"notes":"n"}`, string(parked.Result))

	// Once parked, the same continuation goes through.
	_, err = sup.Continue(ctx, rec.ID, StatusResearchCompleted, func(ctx context.Context, jobID string) error {
		return s.Complete(ctx, jobID, json.RawMessage(`"done"`))
	})
	require.NoError(t, err)
	final := waitForTerminal(t, s, rec.ID)
	assert.Equal(t, StatusCompleted, final.Status)
}

func TestSupervisor_DrainWaitsForInflightUnits(t *testing.T) {
	s := NewStore(store.NewMemoryBackend(), 0)
	sup := NewSupervisor(s)

	var finished bool
	var mu sync.Mutex

	rec, err := sup.Launch(context.Background(), StatusProcessing, func(ctx context.Context, jobID string) error {
		time.Sleep(50 * time.Millisecond)
		mu.Lock()
		finished = true
		mu.Unlock()
		return s.Complete(ctx, jobID, nil)
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sup.Drain(ctx))

	mu.Lock()
	assert.True(t, finished, "drain returned before the unit finished")
	mu.Unlock()

	// Draining supervisors refuse new work.
	_, err = sup.Launch(context.Background(), StatusProcessing, func(context.Context, string) error {
		return nil
	})
	assert.Error(t, err)

	final, err := s.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)
}

func TestSupervisor_ConcurrentJobIsolation(t *testing.T) {
	s := NewStore(store.NewMemoryBackend(), 0)
	sup := NewSupervisor(s)
	ctx := context.Background()

	const n = 100
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		payload := fmt.Sprintf(`{"issue":%d}`, i)
		rec, err := sup.Launch(ctx, StatusGenerating, func(ctx context.Context, jobID string) error {
			return s.Complete(ctx, jobID, json.RawMessage(payload))
		})
		require.NoError(t, err)
		ids[i] = rec.ID
	}

	drainCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, sup.Drain(drainCtx))

	for i, id := range ids {
		rec, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, rec.Status)
		assert.JSONEq(t, fmt.Sprintf(`{"issue":%d}`, i), string(rec.Result))
	}
}
