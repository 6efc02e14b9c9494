package scrape

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lepinkainen/kirjava/internal/normalize"
)

// listingMaxCandidates caps how many entries one listing fetch may yield,
// regardless of how many the page contains.
const listingMaxCandidates = 20

// ListingAdapter scrapes a catalog listing page with a known fixed layout:
// each entry is an "article.book-item" block holding the title link in
// "h3 a" and a "by Author" byline in ".byline".
type ListingAdapter struct {
	Client  *http.Client
	PageURL string
}

// NewListing creates an adapter for one listing page.
func NewListing(pageURL string) *ListingAdapter {
	return &ListingAdapter{
		Client:  newHTTPClient(),
		PageURL: pageURL,
	}
}

func (a *ListingAdapter) Name() string { return "html-listing" }

// Fetch parses the listing page and yields at most 20 candidates.
func (a *ListingAdapter) Fetch(ctx context.Context) ([]Candidate, error) {
	doc, pageURL, err := getDocument(ctx, a.Client, a.PageURL)
	if err != nil {
		return nil, newFetchError(a.Name(), err)
	}

	var candidates []Candidate
	doc.Find("article.book-item").EachWithBreak(func(i int, entry *goquery.Selection) bool {
		titleLink := entry.Find("h3 a").First()
		title := normalize.CleanText(titleLink.Text())
		if !usableTitle(title) {
			slog.Warn("Skipping listing entry without usable title", "page", a.PageURL, "entry", i)
			return true
		}

		c := Candidate{Title: title}

		if href, ok := titleLink.Attr("href"); ok {
			c.SourceURL = resolveURL(pageURL, href)
		}

		byline := normalize.CleanText(entry.Find(".byline").First().Text())
		if author := strings.TrimSpace(strings.TrimPrefix(byline, "by ")); author != "" {
			c.Authors = []string{author}
		}

		candidates = append(candidates, c)
		return len(candidates) < listingMaxCandidates
	})

	return candidates, nil
}
