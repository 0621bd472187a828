package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/jonathan/newsbrief/internal/archive"
	"github.com/jonathan/newsbrief/internal/store"
	"github.com/jonathan/newsbrief/internal/types"
)

// BriefListResponse represents the response for GET /briefs
type BriefListResponse struct {
	Count  int                  `json:"count"`
	Briefs []*types.BriefReport `json:"briefs"`
}

// DeleteBriefResponse represents the response for DELETE /briefs/{date}
type DeleteBriefResponse struct {
	Date    string `json:"date"`
	Removed bool   `json:"removed"`
}

// handleListBriefs returns the newest briefs, bounded by the limit query
// parameter (default 30).
func (s *Server) handleListBriefs(w http.ResponseWriter, r *http.Request) {
	limit := archive.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	briefs, err := s.archive.GetAllBriefs(r.Context(), limit)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Failed to list briefs: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, BriefListResponse{Count: len(briefs), Briefs: briefs})
}

// handleLatestBrief returns the newest brief.
func (s *Server) handleLatestBrief(w http.ResponseWriter, r *http.Request) {
	brief, err := s.archive.GetLatestBrief(r.Context())
	if errors.Is(err, archive.ErrNoBriefs) {
		s.errorResponse(w, http.StatusNotFound, "No briefs stored yet")
		return
	}
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Failed to load latest brief: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, brief)
}

// handleGetBrief returns the brief for a specific date.
func (s *Server) handleGetBrief(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if _, err := types.ParseBriefDate(date); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	brief, err := s.archive.GetBriefByDate(r.Context(), date)
	if errors.Is(err, store.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "No brief for "+date)
		return
	}
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Failed to load brief: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, brief)
}

// handleDeleteBrief deletes the brief for a date, reporting whether a record
// existed.
func (s *Server) handleDeleteBrief(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if _, err := types.ParseBriefDate(date); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
		return
	}

	removed, err := s.archive.DeleteBrief(r.Context(), date)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), "Failed to delete brief: "+err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, DeleteBriefResponse{Date: date, Removed: removed})
}
