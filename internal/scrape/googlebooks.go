package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/lepinkainen/kirjava/internal/cache"
	"github.com/lepinkainen/kirjava/internal/config"
	"github.com/lepinkainen/kirjava/internal/normalize"
)

const googleBooksBaseURL = "https://www.googleapis.com/books/v1"

// GoogleBooksAdapter fetches volumes for one free-text query from the
// Google Books API.
type GoogleBooksAdapter struct {
	Client     *http.Client
	BaseURL    string
	Query      string
	MaxResults int
	APIKey     string
	Cache      *cache.DB
}

// NewGoogleBooks creates an adapter for one keyword query with a max-results
// cap. A nil cache disables response caching.
func NewGoogleBooks(query string, maxResults int, c *cache.DB) *GoogleBooksAdapter {
	if maxResults <= 0 || maxResults > 40 {
		maxResults = 40
	}
	return &GoogleBooksAdapter{
		Client:     newHTTPClient(),
		BaseURL:    googleBooksBaseURL,
		Query:      query,
		MaxResults: maxResults,
		APIKey:     config.GoogleBooksAPIKey,
		Cache:      c,
	}
}

func (a *GoogleBooksAdapter) Name() string { return "googlebooks" }

type googleBooksResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title               string   `json:"title"`
			Subtitle            string   `json:"subtitle"`
			Authors             []string `json:"authors"`
			Publisher           string   `json:"publisher"`
			PublishedDate       string   `json:"publishedDate"`
			Description         string   `json:"description"`
			PageCount           int      `json:"pageCount"`
			Categories          []string `json:"categories"`
			Language            string   `json:"language"`
			CanonicalVolumeLink string   `json:"canonicalVolumeLink"`
			PreviewLink         string   `json:"previewLink"`
			InfoLink            string   `json:"infoLink"`
			IndustryIdentifiers []struct {
				Type       string `json:"type"`
				Identifier string `json:"identifier"`
			} `json:"industryIdentifiers"`
			ImageLinks struct {
				Thumbnail      string `json:"thumbnail"`
				SmallThumbnail string `json:"smallThumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

// Fetch issues one volume search and maps each result into a candidate.
func (a *GoogleBooksAdapter) Fetch(ctx context.Context) ([]Candidate, error) {
	reqURL := fmt.Sprintf("%s/volumes?q=%s&maxResults=%d", a.BaseURL, url.QueryEscape(a.Query), a.MaxResults)
	if a.APIKey != "" {
		reqURL = fmt.Sprintf("%s&key=%s", reqURL, url.QueryEscape(a.APIKey))
	}

	// Cache key must not leak the API key and must stay stable across runs.
	cacheKey := fmt.Sprintf("volumes?q=%s&maxResults=%d", url.QueryEscape(a.Query), a.MaxResults)

	result, fromCache, err := cache.GetOrFetch(a.Cache, cache.GoogleBooksTable, cacheKey,
		func() (googleBooksResponse, error) {
			var resp googleBooksResponse
			if err := getJSON(ctx, a.Client, reqURL, &resp); err != nil {
				return resp, err
			}
			return resp, nil
		})
	if err != nil {
		return nil, newFetchError(a.Name(), err)
	}
	slog.Debug("Fetched Google Books volumes", "query", a.Query, "items", len(result.Items), "cached", fromCache)

	candidates := make([]Candidate, 0, len(result.Items))
	for _, item := range result.Items {
		vi := item.VolumeInfo

		title := normalize.CleanText(vi.Title)
		if !usableTitle(title) {
			slog.Warn("Skipping Google Books volume without usable title", "query", a.Query)
			continue
		}

		// Prefer ISBN-13 over ISBN-10 when both are present.
		var isbn10, isbn13 string
		for _, id := range vi.IndustryIdentifiers {
			switch id.Type {
			case "ISBN_13":
				isbn13 = id.Identifier
			case "ISBN_10":
				isbn10 = id.Identifier
			}
		}
		isbn := isbn13
		if isbn == "" {
			isbn = isbn10
		}

		// Prefer the larger thumbnail variant.
		cover := vi.ImageLinks.Thumbnail
		if cover == "" {
			cover = vi.ImageLinks.SmallThumbnail
		}

		// Canonical link, then preview, then info.
		link := vi.CanonicalVolumeLink
		if link == "" {
			link = vi.PreviewLink
		}
		if link == "" {
			link = vi.InfoLink
		}

		language := normalize.CleanText(vi.Language)
		if language == "" {
			language = "English"
		}

		authors := make([]string, 0, len(vi.Authors))
		for _, author := range vi.Authors {
			if name := normalize.CleanText(author); name != "" {
				authors = append(authors, name)
			}
		}
		categories := make([]string, 0, len(vi.Categories))
		for _, category := range vi.Categories {
			if name := normalize.CleanText(category); name != "" {
				categories = append(categories, name)
			}
		}

		candidates = append(candidates, Candidate{
			Title:           title,
			Subtitle:        normalize.CleanText(vi.Subtitle),
			ISBN:            isbn,
			PublicationYear: normalize.ExtractYear(vi.PublishedDate),
			Publisher:       normalize.CleanText(vi.Publisher),
			Pages:           vi.PageCount,
			Language:        language,
			Description:     normalize.CleanText(vi.Description),
			CoverImageURL:   cover,
			SourceURL:       link,
			Authors:         authors,
			Categories:      categories,
		})
	}

	return candidates, nil
}
