// Package fetch retrieves source documents for issues and reduces them to
// plain text. A fetch failure is a soft outcome: analysis proceeds with
// whatever subset of sources succeeded.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout bounds each source fetch. Work past the deadline is
// abandoned and treated as an unavailable source, not a fatal error.
const DefaultTimeout = 15 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; NewsbriefAgent/1.0)"

// maxDocumentBytes caps how much of a source document is read.
const maxDocumentBytes = 2 << 20

// Error represents an error during source fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Fetcher retrieves source documents over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// New returns a Fetcher with the default timeout.
func New() *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: DefaultUserAgent,
	}
}

// SourceDocuments fetches each URL and returns the extracted texts of those
// that succeeded, in input order. It only fails when every source was
// unreachable.
func (f *Fetcher) SourceDocuments(ctx context.Context, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	var docs []string
	var lastErr error
	for _, u := range urls {
		text, err := f.Document(ctx, u)
		if err != nil {
			lastErr = err
			continue
		}
		docs = append(docs, text)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no source documents reachable: %w", lastErr)
	}
	return docs, nil
}

// Document retrieves one URL and extracts its readable text.
func (f *Fetcher) Document(ctx context.Context, urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{URL: urlStr, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body := io.LimitReader(resp.Body, maxDocumentBytes)

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "html") {
		data, err := io.ReadAll(body)
		if err != nil {
			return "", &Error{URL: urlStr, Message: "failed to read body", Cause: err}
		}
		return strings.TrimSpace(string(data)), nil
	}

	return extractText(urlStr, body)
}

// extractText reduces an HTML document to readable text, dropping script,
// style and navigation noise.
func extractText(urlStr string, r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "failed to parse HTML", Cause: err}
	}

	doc.Find("script, style, nav, header, footer, aside").Remove()

	root := doc.Find("article")
	if root.Length() == 0 {
		root = doc.Find("main")
	}
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	var sb strings.Builder
	root.Find("h1, h2, h3, p, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			sb.WriteString(text)
			sb.WriteString("\n")
		}
	})

	text := strings.TrimSpace(sb.String())
	if text == "" {
		// Fall back to whatever text the document has.
		text = strings.TrimSpace(root.Text())
	}
	return text, nil
}
