// Package scrape contains the source adapters that turn external payloads
// (JSON APIs and HTML listings) into normalized candidate book records.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/lepinkainen/kirjava/internal/config"
)

// FetchTimeout bounds a single external fetch when the config does not
// override it.
const FetchTimeout = 15 * time.Second

// Candidate is a normalized, not-yet-persisted representation of one
// external item produced by an adapter. The zero value of a field means
// the source did not supply it.
type Candidate struct {
	Title           string
	Subtitle        string
	ISBN            string
	PublicationYear int
	Publisher       string
	Pages           int
	Language        string
	Description     string
	CoverImageURL   string
	SourceURL       string
	PDFURL          string
	DownloadURL     string
	Authors         []string
	Categories      []string
}

// Adapter is implemented by each external data source. Each adapter is
// responsible for fetching its own payload format and mapping it into
// candidate records; one malformed item must not prevent later items in
// the same fetch from being yielded.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]Candidate, error)
}

// FetchError is raised when an adapter's fetch boundary fails (network,
// timeout, non-2xx response, unparsable payload). It carries the adapter
// name and the underlying cause and aborts the whole run.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: fetch failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// newFetchError wraps err as a FetchError for the named adapter.
func newFetchError(source string, err error) *FetchError {
	return &FetchError{Source: source, Err: err}
}

// newHTTPClient returns an HTTP client with the configured fetch timeout.
func newHTTPClient() *http.Client {
	timeout := config.FetchTimeout
	if timeout <= 0 {
		timeout = FetchTimeout
	}
	return &http.Client{Timeout: timeout}
}

// userAgent returns the configured client signature.
func userAgent() string {
	if config.UserAgent != "" {
		return config.UserAgent
	}
	return "kirjava/1.0"
}

// getJSON issues a GET request and decodes the JSON response body into v.
func getJSON(ctx context.Context, client *http.Client, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// getDocument issues a GET request and parses the response body as an HTML
// document. The returned URL is the final request URL, used to resolve
// relative links found in the page.
func getDocument(ctx context.Context, client *http.Client, rawURL string) (*goquery.Document, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent())

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, resp.Request.URL, nil
}

// resolveURL makes href absolute against the page's own URL. Already
// absolute URLs pass through unchanged.
func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// usableTitle reports whether a candidate title is worth keeping. Empty and
// placeholder titles are discarded before the candidate is yielded.
func usableTitle(title string) bool {
	switch strings.ToLower(title) {
	case "", "n/a", "unknown", "untitled":
		return false
	}
	return true
}
