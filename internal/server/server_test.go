package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/newsbrief/internal/jobs"
	"github.com/jonathan/newsbrief/internal/store"
	"github.com/jonathan/newsbrief/internal/types"
)

// fakeAnalyst satisfies the Analyst interface without any upstream calls.
// A non-nil researchGate makes Research block until the channel closes.
type fakeAnalyst struct {
	deepReportErr error
	researchErr   error
	synthesizeErr error
	researchGate  chan struct{}
}

func (f *fakeAnalyst) ClusterIssues(_ context.Context, issues []types.Issue) ([]types.TopicGroup, error) {
	return []types.TopicGroup{{Topic: "general", Issues: issues}}, nil
}

func (f *fakeAnalyst) Analyze(_ context.Context, issue types.Issue, _ string) (*types.IssueItem, error) {
	return &types.IssueItem{
		Headline: issue.Headline,
		KeyFacts: []string{"fact"},
		Insight:  "insight",
		Sources:  issue.URLs,
	}, nil
}

func (f *fakeAnalyst) DeepReport(_ context.Context, item types.IssueItem, _ []string) (string, error) {
	if f.deepReportErr != nil {
		return "", f.deepReportErr
	}
	return "deep report on " + item.Headline, nil
}

func (f *fakeAnalyst) Research(_ context.Context, briefs []*types.BriefReport) (string, error) {
	if f.researchGate != nil {
		<-f.researchGate
	}
	if f.researchErr != nil {
		return "", f.researchErr
	}
	return fmt.Sprintf("notes over %d briefs", len(briefs)), nil
}

func (f *fakeAnalyst) Synthesize(_ context.Context, artifact string) (string, error) {
	if f.synthesizeErr != nil {
		return "", f.synthesizeErr
	}
	return "synthesis of: " + artifact, nil
}

// fakeSource returns a fixed issue list for any date.
type fakeSource struct {
	issues []types.Issue
}

func (f *fakeSource) Issues(context.Context, string) ([]types.Issue, error) {
	return f.issues, nil
}

func newTestServer(t *testing.T, analyst Analyst) *Server {
	t.Helper()

	// The limiter has its own tests; keep it out of handler assertions.
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	s, err := New(Config{
		Port: 0,
		Backends: store.Backends{
			Archive: store.NewMemoryBackend(),
			Jobs:    store.NewMemoryBackend(),
		},
		Analyst: analyst,
		Source:  &fakeSource{issues: []types.Issue{{Headline: "Rates held steady"}}},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.supervisor.Drain(drainCtx)
		_ = s.backends.Close()
	})
	return s
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func seedBrief(t *testing.T, s *Server, date string) *types.BriefReport {
	t.Helper()
	report := &types.BriefReport{
		ID:          "test-" + date,
		Date:        date,
		DayOfWeek:   "Monday",
		GeneratedAt: time.Now().UTC(),
		TotalIssues: 1,
		Issues: []types.IssueItem{{
			Headline: "Seeded issue",
			KeyFacts: []string{"fact"},
			Insight:  "insight",
		}},
		Markdown: "# Daily Brief",
	}
	require.NoError(t, s.archive.SaveBrief(context.Background(), report))
	return report
}

// waitForJob polls the status endpoint until the job reaches a terminal
// state.
func waitForJob(t *testing.T, s *Server, jobID string) JobStatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		w := doRequest(s, http.MethodGet, "/jobs/"+jobID, nil)
		require.Equal(t, http.StatusOK, w.Code)

		var status JobStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		if status.Status.Terminal() {
			return status
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not finish in time", jobID)
	return JobStatusResponse{}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})

	w := doRequest(s, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, "ok", resp["status"])
}

func TestRequireToken(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "false")

	s, err := New(Config{
		APIToken: "secret",
		Backends: store.Backends{
			Archive: store.NewMemoryBackend(),
			Jobs:    store.NewMemoryBackend(),
		},
		Analyst: &fakeAnalyst{},
		Source:  &fakeSource{},
	})
	require.NoError(t, err)
	defer s.backends.Close()

	// Missing token on a mutating route.
	req := httptest.NewRequest(http.MethodDelete, "/briefs/2026-02-20", nil)
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Wrong token.
	req = httptest.NewRequest(http.MethodDelete, "/briefs/2026-02-20", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Correct token passes through to the handler.
	req = httptest.NewRequest(http.MethodDelete, "/briefs/2026-02-20", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// Read-only routes stay open.
	req = httptest.NewRequest(http.MethodGet, "/briefs", nil)
	w = httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNewRequiresBackendsAndAnalyst(t *testing.T) {
	_, err := New(Config{Analyst: &fakeAnalyst{}})
	assert.Error(t, err)

	_, err = New(Config{
		Backends: store.Backends{
			Archive: store.NewMemoryBackend(),
			Jobs:    store.NewMemoryBackend(),
		},
	})
	assert.Error(t, err)
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(&ErrValidation{Field: "date", Message: "bad"}))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(store.ErrNotFound))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("load: %w", store.ErrNotFound)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(&jobs.ErrWrongStage{
		JobID: "j", Have: jobs.StatusResearching, Want: jobs.StatusResearchCompleted,
	}))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestJobStatusNotFound(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})

	w := doRequest(s, http.MethodGet, "/jobs/no-such-job", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
