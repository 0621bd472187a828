package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Test</title><script>var tracking = true;</script></head>
<body>
<nav>Home | News | About</nav>
<article>
<h1>Grid operator warns of winter shortfall</h1>
<p>The regional grid operator said reserve margins could fall to 8 percent.</p>
<p>Two plants remain offline after unplanned maintenance.</p>
</article>
<footer>Copyright 2026</footer>
</body>
</html>`

func TestFetcher_Document_ExtractsArticleText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	text, err := New().Document(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Contains(t, text, "Grid operator warns of winter shortfall")
	assert.Contains(t, text, "reserve margins could fall to 8 percent")
	assert.NotContains(t, text, "tracking")
	assert.NotContains(t, text, "Copyright 2026")
	assert.NotContains(t, text, "Home | News | About")
}

func TestFetcher_Document_PlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("raw wire copy\n"))
	}))
	defer srv.Close()

	text, err := New().Document(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "raw wire copy", text)
}

func TestFetcher_Document_InvalidURL(t *testing.T) {
	_, err := New().Document(context.Background(), "not a url")
	var ferr *Error
	assert.ErrorAs(t, err, &ferr)
}

func TestFetcher_Document_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New().Document(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetcher_SourceDocuments_PartialFailureIsSoft(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("usable source"))
	}))
	defer good.Close()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()

	docs, err := New().SourceDocuments(context.Background(), []string{bad.URL, good.URL})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "usable source", docs[0])
}

func TestFetcher_SourceDocuments_TotalFailure(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer bad.Close()

	_, err := New().SourceDocuments(context.Background(), []string{bad.URL})
	assert.Error(t, err)

	docs, err := New().SourceDocuments(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, docs)
}
