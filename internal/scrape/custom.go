package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/kirjava/internal/normalize"
)

// Selectors names the structural CSS queries used by the configurable HTML
// adapter. Container is required and selects the repeated item blocks; every
// other field is optional; an empty selector means "do not extract this
// attribute".
type Selectors struct {
	Container    string `yaml:"container"`
	Title        string `yaml:"title"`
	Subtitle     string `yaml:"subtitle"`
	Description  string `yaml:"description"`
	CoverImage   string `yaml:"cover_image"`
	CoverImgAttr string `yaml:"cover_image_attr"`
	Link         string `yaml:"link"`
	Publisher    string `yaml:"publisher"`
	Year         string `yaml:"year"`
	ISBN         string `yaml:"isbn"`
	Categories   string `yaml:"categories"`
	Authors      string `yaml:"authors"`
	Pages        string `yaml:"pages"`
}

// Validate checks that the selector map can drive an extraction.
func (s *Selectors) Validate() error {
	if s == nil || s.Container == "" {
		return fmt.Errorf("selectors: container query is required")
	}
	return nil
}

// LoadSelectors reads a selector map from a YAML file.
func LoadSelectors(path string) (*Selectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read selectors file: %w", err)
	}
	var s Selectors
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse selectors file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

var digitRun = regexp.MustCompile(`\d+`)

// CustomAdapter scrapes an arbitrary HTML page driven by an externally
// supplied selector map, so new sources can be added without code changes.
type CustomAdapter struct {
	Client    *http.Client
	PageURL   string
	Selectors *Selectors
}

// NewCustom creates an adapter for one page and selector map. The selector
// map must have been validated by the caller.
func NewCustom(pageURL string, selectors *Selectors) *CustomAdapter {
	return &CustomAdapter{
		Client:    newHTTPClient(),
		PageURL:   pageURL,
		Selectors: selectors,
	}
}

func (a *CustomAdapter) Name() string { return "custom-html" }

// Fetch parses the page and extracts one candidate per container match.
// A container query matching nothing yields zero candidates, not an error.
func (a *CustomAdapter) Fetch(ctx context.Context) ([]Candidate, error) {
	if err := a.Selectors.Validate(); err != nil {
		return nil, newFetchError(a.Name(), err)
	}

	doc, pageURL, err := getDocument(ctx, a.Client, a.PageURL)
	if err != nil {
		return nil, newFetchError(a.Name(), err)
	}

	sel := a.Selectors
	var candidates []Candidate
	doc.Find(sel.Container).Each(func(i int, item *goquery.Selection) {
		c := Candidate{}

		if sel.Title != "" {
			c.Title = normalize.CleanText(item.Find(sel.Title).First().Text())
		}
		if !usableTitle(c.Title) {
			slog.Warn("Skipping item without usable title", "page", a.PageURL, "item", i)
			return
		}

		if sel.Subtitle != "" {
			c.Subtitle = normalize.CleanText(item.Find(sel.Subtitle).First().Text())
		}
		if sel.Description != "" {
			c.Description = normalize.CleanText(item.Find(sel.Description).First().Text())
		}
		if sel.Publisher != "" {
			c.Publisher = normalize.CleanText(item.Find(sel.Publisher).First().Text())
		}
		if sel.Year != "" {
			c.PublicationYear = normalize.ExtractYear(item.Find(sel.Year).First().Text())
		}
		if sel.ISBN != "" {
			c.ISBN = normalize.CleanText(item.Find(sel.ISBN).First().Text())
		}
		if sel.Pages != "" {
			if match := digitRun.FindString(item.Find(sel.Pages).First().Text()); match != "" {
				if pages, err := strconv.Atoi(match); err == nil {
					c.Pages = pages
				}
			}
		}
		if sel.CoverImage != "" {
			attr := sel.CoverImgAttr
			if attr == "" {
				attr = "src"
			}
			if src, ok := item.Find(sel.CoverImage).First().Attr(attr); ok {
				c.CoverImageURL = resolveURL(pageURL, src)
			}
		}
		if sel.Link != "" {
			if href, ok := item.Find(sel.Link).First().Attr("href"); ok {
				c.SourceURL = resolveURL(pageURL, href)
			}
		}
		if sel.Authors != "" {
			item.Find(sel.Authors).Each(func(_ int, author *goquery.Selection) {
				if name := normalize.CleanText(author.Text()); name != "" {
					c.Authors = append(c.Authors, name)
				}
			})
		}
		if sel.Categories != "" {
			item.Find(sel.Categories).Each(func(_ int, category *goquery.Selection) {
				if name := normalize.CleanText(category.Text()); name != "" {
					c.Categories = append(c.Categories, name)
				}
			})
		}

		candidates = append(candidates, c)
	})

	return candidates, nil
}
