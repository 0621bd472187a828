package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/newsbrief/internal/jobs"
	"github.com/jonathan/newsbrief/internal/pipeline"
	"github.com/jonathan/newsbrief/internal/store"
	"github.com/jonathan/newsbrief/internal/types"
)

var validate = validator.New()

// GenerateRequest represents the request body for POST /briefs/generate
type GenerateRequest struct {
	Date  string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Force bool   `json:"force,omitempty"`
}

// ReportRequest represents the request body for POST /reports
type ReportRequest struct {
	Date       string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	IssueIndex int    `json:"issue_index" validate:"gte=0"`
}

// ResearchRequest represents the request body for POST /research
type ResearchRequest struct {
	Days int `json:"days,omitempty" validate:"omitempty,gte=1,lte=30"`
}

// JobResponse represents the envelope returned when a job is accepted
type JobResponse struct {
	JobID  string      `json:"job_id"`
	Status jobs.Status `json:"status"`
}

// JobStatusResponse represents the response for GET /jobs/{id}
type JobStatusResponse struct {
	JobID    string          `json:"job_id"`
	Status   jobs.Status     `json:"status"`
	Progress int             `json:"progress,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// reportResult is the terminal payload for report and synthesis jobs.
type reportResult struct {
	Report string `json:"report"`
}

// researchArtifact is the intermediate payload the synthesis stage consumes.
type researchArtifact struct {
	Notes string `json:"notes"`
	Days  int    `json:"days"`
}

// decodeAndValidate parses the request body into dst and runs struct
// validation. An empty body is allowed; zero values carry the defaults.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := validate.Struct(dst); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	return nil
}

// handleGenerateBrief starts a detached brief-generation job and returns the
// job id before any heavy work runs.
func (s *Server) handleGenerateBrief(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	rec, err := s.supervisor.Launch(r.Context(), jobs.StatusProcessing, func(ctx context.Context, jobID string) error {
		report, err := s.generator.Run(ctx, s.generateOptions(req, jobID))
		if err != nil {
			return err
		}
		result, _ := json.Marshal(map[string]any{
			"date":         report.Date,
			"total_issues": report.TotalIssues,
		})
		return s.jobStore.Complete(ctx, jobID, result)
	})
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Failed to start generation: "+err.Error())
		return
	}

	log.Printf("Started brief generation job %s (date=%q force=%v)", rec.ID, req.Date, req.Force)
	s.jsonResponse(w, http.StatusAccepted, JobResponse{JobID: rec.ID, Status: rec.Status})
}

// generateOptions maps the request onto pipeline options, advancing the job
// record as stages begin.
func (s *Server) generateOptions(req GenerateRequest, jobID string) pipeline.RunOptions {
	return pipeline.RunOptions{
		Date:  req.Date,
		Force: req.Force,
		OnProgress: func(stage jobs.Status, progress int) {
			ctx := context.Background()
			if _, err := s.jobStore.Advance(ctx, jobID, stage, progress, nil); err != nil {
				log.Printf("Job %s stage update to %s skipped: %v", jobID, stage, err)
			}
		},
	}
}

// handleCreateReport starts a deep-report job for one issue of an archived
// brief.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req ReportRequest
	if err := decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	// Resolve the issue synchronously so a bad date or index fails the
	// request, not the detached job.
	brief, err := s.resolveBrief(r.Context(), req.Date)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if req.IssueIndex >= len(brief.Issues) {
		s.errorResponse(w, http.StatusBadRequest,
			fmt.Sprintf("issue_index %d out of range, brief has %d issues", req.IssueIndex, len(brief.Issues)))
		return
	}
	item := brief.Issues[req.IssueIndex]

	rec, err := s.supervisor.Launch(r.Context(), jobs.StatusGenerating, func(ctx context.Context, jobID string) error {
		// Sources are enrichment; analysis proceeds with whatever succeeded.
		var docs []string
		if len(item.Sources) > 0 {
			if fetched, err := s.fetcher.SourceDocuments(ctx, item.Sources); err != nil {
				log.Printf("Job %s: no sources reachable, reporting without: %v", jobID, err)
			} else {
				docs = fetched
			}
		}

		text, err := jobs.InvokeValue(ctx, func(ctx context.Context) (string, error) {
			return s.analyst.DeepReport(ctx, item, docs)
		}, jobs.RetryOptions{})
		if err != nil {
			return err
		}

		result, _ := json.Marshal(reportResult{Report: text})
		return s.jobStore.Complete(ctx, jobID, result)
	})
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Failed to start report: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, JobResponse{JobID: rec.ID, Status: rec.Status})
}

// handleCreateResearch starts the research stage over the last N days of
// briefs. The job parks at research_completed; synthesis is a separate
// caller-initiated request.
func (s *Server) handleCreateResearch(w http.ResponseWriter, r *http.Request) {
	req := ResearchRequest{Days: 7}
	if err := decodeAndValidate(r, &req); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	rec, err := s.supervisor.Launch(r.Context(), jobs.StatusResearching, func(ctx context.Context, jobID string) error {
		briefs, err := s.archive.GetAllBriefs(ctx, req.Days)
		if err != nil {
			return err
		}

		notes, err := jobs.InvokeValue(ctx, func(ctx context.Context) (string, error) {
			return s.analyst.Research(ctx, briefs)
		}, jobs.RetryOptions{})
		if err != nil {
			return err
		}

		artifact, _ := json.Marshal(researchArtifact{Notes: notes, Days: req.Days})
		_, err = s.jobStore.Advance(ctx, jobID, jobs.StatusResearchCompleted, 50, artifact)
		return err
	})
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Failed to start research: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, JobResponse{JobID: rec.ID, Status: rec.Status})
}

// handleSynthesize runs the synthesis stage on a job whose research stage
// already completed, consuming the stored artifact. A job still researching
// is refused with 409 so the in-flight stage keeps ownership of the record.
func (s *Server) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	rec, err := s.supervisor.Continue(r.Context(), jobID, jobs.StatusResearchCompleted, func(ctx context.Context, jobID string) error {
		rec, err := s.jobStore.Advance(ctx, jobID, jobs.StatusSynthesizing, 60, nil)
		if err != nil {
			return err
		}

		var artifact researchArtifact
		if err := json.Unmarshal(rec.Result, &artifact); err != nil {
			return fmt.Errorf("job %s has no research artifact: %w", jobID, err)
		}

		report, err := jobs.InvokeValue(ctx, func(ctx context.Context) (string, error) {
			return s.analyst.Synthesize(ctx, artifact.Notes)
		}, jobs.RetryOptions{})
		if err != nil {
			return err
		}

		result, _ := json.Marshal(reportResult{Report: report})
		return s.jobStore.Complete(ctx, jobID, result)
	})
	if errors.Is(err, store.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "Unknown or expired job")
		return
	}
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Failed to start synthesis: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusAccepted, JobResponse{JobID: rec.ID, Status: jobs.StatusSynthesizing})
}

// handleJobStatus returns the current job record. Unknown and expired ids
// both surface as 404.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")

	rec, err := s.jobStore.Get(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "Unknown or expired job")
		return
	}
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Failed to load job: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, JobStatusResponse{
		JobID:    rec.ID,
		Status:   rec.Status,
		Progress: rec.Progress,
		Result:   rec.Result,
		Error:    rec.Error,
	})
}

// resolveBrief loads the brief for date, or the latest brief when date is
// empty.
func (s *Server) resolveBrief(ctx context.Context, date string) (*types.BriefReport, error) {
	if date == "" {
		return s.archive.GetLatestBrief(ctx)
	}
	return s.archive.GetBriefByDate(ctx, date)
}
