package config

import (
	"time"

	"github.com/spf13/viper"
)

// Global configuration variables
var (
	// CatalogDBFile is the path to the catalog SQLite database
	CatalogDBFile string
	// UserAgent identifies the scraper to external sources
	UserAgent string
	// FetchTimeout bounds a single external fetch
	FetchTimeout time.Duration
	// RunDelay is the politeness delay between sequential source runs
	RunDelay time.Duration
	// GoogleBooksAPIKey is the optional API key for the Google Books API
	GoogleBooksAPIKey string
)

// InitConfig initializes the global configuration
func InitConfig() {
	// Set default values
	viper.SetDefault("catalog.dbfile", "./catalog.db")
	viper.SetDefault("scrape.useragent", "kirjava/1.0 (+https://github.com/lepinkainen/kirjava)")
	viper.SetDefault("scrape.timeout", "15s")
	viper.SetDefault("scrape.delay", "2s")

	// Get values from viper
	CatalogDBFile = viper.GetString("catalog.dbfile")
	UserAgent = viper.GetString("scrape.useragent")
	FetchTimeout = viper.GetDuration("scrape.timeout")
	RunDelay = viper.GetDuration("scrape.delay")
	GoogleBooksAPIKey = viper.GetString("googlebooks.apikey")
}

// SetCatalogDBFile overrides the catalog database path from a CLI flag.
func SetCatalogDBFile(path string) {
	CatalogDBFile = path
}
