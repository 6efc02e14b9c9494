package catalog

import "time"

// Run log states. A log row is created as running and receives exactly one
// terminal update.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DefaultLanguage is stored when a candidate does not supply a language.
const DefaultLanguage = "English"

// Source is one external data source. Created lazily on first use of a
// given name, never deleted.
type Source struct {
	ID          int64
	Name        string
	BaseURL     string
	IsActive    bool
	LastScraped *time.Time
}

// Book is one catalog entry. Title is required; all other descriptive
// fields are optional and stored as NULL when absent.
type Book struct {
	ID              int64
	Title           string
	Subtitle        string
	ISBN            string
	PublicationYear int
	Publisher       string
	Pages           int
	Language        string
	Description     string
	CoverImageURL   string
	PDFURL          string
	DownloadURL     string
	SourceID        int64
	SourceURL       string
	ScrapedAt       time.Time
	LastUpdated     time.Time
}

// Author is a globally unique author name.
type Author struct {
	ID   int64
	Name string
}

// Category is a globally unique category name.
type Category struct {
	ID   int64
	Name string
}

// ScrapingLog is the audit row for one ingestion run, joined with its
// source's name and base URL for display.
type ScrapingLog struct {
	ID           int64
	SourceID     int64
	SourceName   string
	BaseURL      string
	StartedAt    time.Time
	CompletedAt  *time.Time
	BooksAdded   int
	BooksUpdated int
	Errors       int
	Status       string
	ErrorDetails string
}
