package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lepinkainen/kirjava/internal/cache"
	"github.com/lepinkainen/kirjava/internal/normalize"
	"github.com/lepinkainen/kirjava/internal/ratelimit"
)

const openLibraryBaseURL = "https://openlibrary.org"

// openLibraryCoverURL builds a large cover image URL from a numeric cover id.
func openLibraryCoverURL(coverID int) string {
	if coverID <= 0 {
		return ""
	}
	return fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", coverID)
}

// OpenLibraryAdapter fetches works for one subject from the OpenLibrary
// subjects API.
type OpenLibraryAdapter struct {
	Client  *http.Client
	BaseURL string
	Subject string
	Limit   int
	Cache   *cache.DB

	limiter *ratelimit.Limiter
}

// NewOpenLibrary creates an adapter for one subject with a result-count
// limit. A nil cache disables response caching.
func NewOpenLibrary(subject string, limit int, c *cache.DB) *OpenLibraryAdapter {
	if limit <= 0 {
		limit = 50
	}
	return &OpenLibraryAdapter{
		Client:  newHTTPClient(),
		BaseURL: openLibraryBaseURL,
		Subject: subject,
		Limit:   limit,
		Cache:   c,
		// OpenLibrary asks for at most 1 request per second
		limiter: ratelimit.New("OpenLibrary", 1),
	}
}

func (a *OpenLibraryAdapter) Name() string { return "openlibrary" }

type openLibraryResponse struct {
	Name  string `json:"name"`
	Works []struct {
		Key              string `json:"key"`
		Title            string `json:"title"`
		FirstPublishYear int    `json:"first_publish_year"`
		CoverID          int    `json:"cover_id"`
		// May arrive as a plain string or as {"type": ..., "value": ...}
		Description any `json:"description"`
		Authors     []struct {
			Name string `json:"name"`
		} `json:"authors"`
	} `json:"works"`
}

// Fetch issues one subject query and maps each work into a candidate.
func (a *OpenLibraryAdapter) Fetch(ctx context.Context) ([]Candidate, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, newFetchError(a.Name(), err)
	}

	reqURL := fmt.Sprintf("%s/subjects/%s.json?limit=%d", a.BaseURL, a.Subject, a.Limit)

	result, fromCache, err := cache.GetOrFetch(a.Cache, cache.OpenLibraryTable, reqURL,
		func() (openLibraryResponse, error) {
			var resp openLibraryResponse
			if err := getJSON(ctx, a.Client, reqURL, &resp); err != nil {
				return resp, err
			}
			return resp, nil
		})
	if err != nil {
		return nil, newFetchError(a.Name(), err)
	}
	slog.Debug("Fetched OpenLibrary subject", "subject", a.Subject, "works", len(result.Works), "cached", fromCache)

	candidates := make([]Candidate, 0, len(result.Works))
	for _, work := range result.Works {
		title := normalize.CleanText(work.Title)
		if !usableTitle(title) {
			slog.Warn("Skipping OpenLibrary work without usable title", "key", work.Key)
			continue
		}

		authors := make([]string, 0, len(work.Authors))
		for _, author := range work.Authors {
			if name := normalize.CleanText(author.Name); name != "" {
				authors = append(authors, name)
			}
		}

		c := Candidate{
			Title:           title,
			PublicationYear: work.FirstPublishYear,
			Language:        "English",
			Description:     descriptionText(work.Description),
			CoverImageURL:   openLibraryCoverURL(work.CoverID),
			Authors:         authors,
			Categories:      []string{a.Subject},
		}
		if work.Key != "" {
			c.SourceURL = a.BaseURL + work.Key
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// descriptionText handles OpenLibrary's two description encodings: a plain
// string, or an object with a nested "value" field.
func descriptionText(desc any) string {
	switch v := desc.(type) {
	case string:
		return normalize.CleanText(v)
	case map[string]any:
		if value, ok := v["value"].(string); ok {
			return normalize.CleanText(value)
		}
	}
	return ""
}
