package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/newsbrief/internal/types"
)

func TestHandleListBriefs(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})
	seedBrief(t, s, "2026-02-20")
	seedBrief(t, s, "2026-02-22")
	seedBrief(t, s, "2026-02-21")

	w := doRequest(s, http.MethodGet, "/briefs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp BriefListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Count)
	assert.Equal(t, "2026-02-22", resp.Briefs[0].Date)
	assert.Equal(t, "2026-02-21", resp.Briefs[1].Date)
	assert.Equal(t, "2026-02-20", resp.Briefs[2].Date)
}

func TestHandleListBriefsLimit(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})
	seedBrief(t, s, "2026-02-20")
	seedBrief(t, s, "2026-02-21")
	seedBrief(t, s, "2026-02-22")

	w := doRequest(s, http.MethodGet, "/briefs?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp BriefListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "2026-02-22", resp.Briefs[0].Date)
}

func TestHandleListBriefsBadLimit(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})

	for _, limit := range []string{"0", "-3", "ten"} {
		w := doRequest(s, http.MethodGet, "/briefs?limit="+limit, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "limit=%s", limit)
	}
}

func TestHandleListBriefsEmpty(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})

	w := doRequest(s, http.MethodGet, "/briefs", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp BriefListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Count)
}

func TestHandleLatestBrief(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})
	seedBrief(t, s, "2026-02-20")
	want := seedBrief(t, s, "2026-02-22")

	w := doRequest(s, http.MethodGet, "/briefs/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got types.BriefReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, want.Date, got.Date)
	assert.Equal(t, want.ID, got.ID)
}

func TestHandleLatestBriefEmpty(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})

	w := doRequest(s, http.MethodGet, "/briefs/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetBrief(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})
	want := seedBrief(t, s, "2026-02-21")

	w := doRequest(s, http.MethodGet, "/briefs/2026-02-21", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got types.BriefReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, want.Date, got.Date)
	assert.Equal(t, want.Markdown, got.Markdown)
}

func TestHandleGetBriefNotFound(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})

	w := doRequest(s, http.MethodGet, "/briefs/2026-02-21", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetBriefBadDate(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})

	w := doRequest(s, http.MethodGet, "/briefs/not-a-date", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleDeleteBrief(t *testing.T) {
	s := newTestServer(t, &fakeAnalyst{})
	seedBrief(t, s, "2026-02-21")

	w := doRequest(s, http.MethodDelete, "/briefs/2026-02-21", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp DeleteBriefResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Removed)

	// Gone afterwards, and deleting again reports removed=false.
	w = doRequest(s, http.MethodGet, "/briefs/2026-02-21", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(s, http.MethodDelete, "/briefs/2026-02-21", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Removed)
}
