// Package cmd wires the kirjava CLI: thin commands over the ingestion
// pipeline in internal/ingest.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/humanlog"
	"github.com/spf13/viper"

	"github.com/lepinkainen/kirjava/internal/cache"
	"github.com/lepinkainen/kirjava/internal/catalog"
	"github.com/lepinkainen/kirjava/internal/config"
	"github.com/lepinkainen/kirjava/internal/ingest"
	"github.com/lepinkainen/kirjava/internal/scrape"
)

// CLI represents the complete command structure for the kirjava application
type CLI struct {
	// Global flags
	DBFile string `help:"Path to catalog SQLite database file" default:"./catalog.db"`

	// Cache flags
	Cache       bool   `help:"Enable API response caching" default:"true"`
	CacheDBFile string `help:"Path to cache SQLite database file" default:"./cache.db"`
	CacheTTL    string `help:"Cache time-to-live duration (e.g., 720h for 30 days)" default:"720h"`

	Scrape  ScrapeCmd  `cmd:"" help:"Run one ingestion against a single source"`
	Batch   BatchCmd   `cmd:"" help:"Run a sequential multi-source batch from a YAML spec file"`
	Logs    LogsCmd    `cmd:"" help:"Show the most recent scraping logs"`
	Sources SourcesCmd `cmd:"" help:"List active catalog sources"`
}

// ScrapeCmd runs one ingestion run against a single source.
type ScrapeCmd struct {
	Type      string `help:"Source type: api-a, api-b, fixed-html or configurable-html" required:""`
	Query     string `short:"q" help:"Subject (api-a) or free-text query (api-b)"`
	Source    string `short:"s" help:"Catalog source name" required:""`
	BaseURL   string `help:"Source base URL (the page URL for HTML sources)"`
	Limit     int    `help:"Result-count cap for API sources"`
	Selectors string `help:"Path to a YAML selector map (required for configurable-html)"`
}

// BatchCmd runs an ordered list of ingestion runs with failure isolation.
type BatchCmd struct {
	File string `short:"f" help:"Path to YAML file with an ordered list of run specs" required:""`
}

// LogsCmd prints the most recent scraping logs joined with their sources.
type LogsCmd struct {
	Limit int `help:"Maximum number of log rows" default:"20"`
}

// SourcesCmd prints all active sources.
type SourcesCmd struct{}

// Execute runs the Kong-based CLI
func Execute() {
	initLogging()
	initConfig()

	var cli CLI

	ctx := kong.Parse(&cli,
		kong.Name("kirjava"),
		kong.Description("Ingests bibliographic records from external sources into a deduplicated catalog."),
		kong.UsageOnError(),
	)

	updateGlobalConfig(&cli)

	if err := ctx.Run(&cli); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	if err := viper.BindEnv("googlebooks.apikey", "GOOGLE_BOOKS_API_KEY"); err != nil {
		slog.Error("Failed to bind environment variable", "error", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("Fatal error config file", "error", err)
			os.Exit(1)
		}
	}

	config.InitConfig()
}

func updateGlobalConfig(cli *CLI) {
	config.SetCatalogDBFile(cli.DBFile)
}

func initLogging() {
	handler := humanlog.NewHandler(os.Stdout, &humanlog.Options{
		Level: slog.LevelInfo,
	})

	slog.SetDefault(slog.New(handler))
}

// openRunner builds the store, optional cache, and runner for one command
// invocation. The returned cleanup closes both databases.
func openRunner(cli *CLI) (*ingest.Runner, *catalog.Store, func(), error) {
	store, err := catalog.Open(config.CatalogDBFile)
	if err != nil {
		return nil, nil, nil, err
	}

	var responseCache *cache.DB
	if cli.Cache {
		ttl, err := time.ParseDuration(cli.CacheTTL)
		if err != nil {
			slog.Warn("Invalid cache TTL, using default", "ttl", cli.CacheTTL, "error", err)
			ttl = cache.DefaultTTL
		}
		responseCache, err = cache.Open(cli.CacheDBFile, ttl)
		if err != nil {
			slog.Warn("Failed to open response cache, continuing without", "error", err)
			responseCache = nil
		}
	}

	cleanup := func() {
		if responseCache != nil {
			_ = responseCache.Close()
		}
		_ = store.Close()
	}

	return ingest.NewRunner(store, responseCache, config.RunDelay), store, cleanup, nil
}

// Run methods for each command

func (s *ScrapeCmd) Run(cli *CLI) error {
	spec := ingest.Spec{
		Type:       s.Type,
		Query:      s.Query,
		SourceName: s.Source,
		BaseURL:    s.BaseURL,
		Limit:      s.Limit,
	}

	if s.Selectors != "" {
		selectors, err := scrape.LoadSelectors(s.Selectors)
		if err != nil {
			return err
		}
		spec.Selectors = selectors
	}

	if err := spec.Validate(); err != nil {
		return err
	}

	runner, _, cleanup, err := openRunner(cli)
	if err != nil {
		return err
	}
	defer cleanup()

	result := runner.Run(context.Background(), spec)
	printResult(result)

	if result.Status == catalog.StatusFailed {
		return fmt.Errorf("run against %s failed: %s", result.SourceName, result.ErrorDetails)
	}
	return nil
}

func (b *BatchCmd) Run(cli *CLI) error {
	specs, err := ingest.LoadSpecs(b.File)
	if err != nil {
		return err
	}

	runner, _, cleanup, err := openRunner(cli)
	if err != nil {
		return err
	}
	defer cleanup()

	results, totals := runner.RunAll(context.Background(), specs)
	for _, result := range results {
		printResult(result)
	}

	slog.Info("Batch finished",
		"runs", len(results),
		"completed", totals.Completed,
		"failed", totals.Failed,
		"added", totals.Added,
		"updated", totals.Updated,
		"errors", totals.Errors,
	)
	return nil
}

func printResult(result ingest.Result) {
	if result.Status == catalog.StatusCompleted {
		slog.Info("Run completed",
			"source", result.SourceName,
			"added", result.BooksAdded,
			"updated", result.BooksUpdated,
			"errors", result.Errors,
		)
		return
	}
	slog.Error("Run failed", "source", result.SourceName, "details", result.ErrorDetails)
}

func (l *LogsCmd) Run(cli *CLI) error {
	store, err := catalog.Open(config.CatalogDBFile)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	logs, err := catalog.RecentLogs(context.Background(), store.DB(), l.Limit)
	if err != nil {
		return err
	}

	for _, log := range logs {
		completed := "-"
		if log.CompletedAt != nil {
			completed = log.CompletedAt.Format(time.RFC3339)
		}
		fmt.Printf("%-6d %-20s %-10s added=%-4d updated=%-4d errors=%-3d started=%s completed=%s\n",
			log.ID, log.SourceName, log.Status, log.BooksAdded, log.BooksUpdated,
			log.Errors, log.StartedAt.Format(time.RFC3339), completed)
		if log.ErrorDetails != "" {
			fmt.Printf("       %s\n", log.ErrorDetails)
		}
	}
	return nil
}

func (s *SourcesCmd) Run(cli *CLI) error {
	store, err := catalog.Open(config.CatalogDBFile)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	sources, err := catalog.ActiveSources(context.Background(), store.DB())
	if err != nil {
		return err
	}

	for _, source := range sources {
		lastScraped := "never"
		if source.LastScraped != nil {
			lastScraped = source.LastScraped.Format(time.RFC3339)
		}
		fmt.Printf("%-6d %-20s %-40s last_scraped=%s\n", source.ID, source.Name, source.BaseURL, lastScraped)
	}
	return nil
}
