package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lepinkainen/kirjava/internal/cache"
	"github.com/lepinkainen/kirjava/internal/catalog"
	"github.com/lepinkainen/kirjava/internal/ratelimit"
	"github.com/lepinkainen/kirjava/internal/scrape"
)

// Source types accepted in a run spec.
const (
	TypeAPIA             = "api-a"             // OpenLibrary subject API
	TypeAPIB             = "api-b"             // Google Books volume search
	TypeFixedHTML        = "fixed-html"        // known-layout listing page
	TypeConfigurableHTML = "configurable-html" // selector-driven page
)

// Spec describes one ingestion run: which adapter to use, what to ask it
// for, and which catalog source the results belong to.
type Spec struct {
	Type       string            `yaml:"type"`
	Query      string            `yaml:"query"`
	SourceName string            `yaml:"source_name"`
	BaseURL    string            `yaml:"base_url"`
	Limit      int               `yaml:"limit"`
	Selectors  *scrape.Selectors `yaml:"selectors"`
}

// Validate checks the spec before a run is attempted.
func (s Spec) Validate() error {
	if s.SourceName == "" {
		return fmt.Errorf("spec: source_name is required")
	}
	switch s.Type {
	case TypeAPIA, TypeAPIB:
		if s.Query == "" {
			return fmt.Errorf("spec %q: query is required for %s", s.SourceName, s.Type)
		}
	case TypeFixedHTML:
		if s.BaseURL == "" {
			return fmt.Errorf("spec %q: base_url is required for %s", s.SourceName, s.Type)
		}
	case TypeConfigurableHTML:
		if s.BaseURL == "" {
			return fmt.Errorf("spec %q: base_url is required for %s", s.SourceName, s.Type)
		}
		if err := s.Selectors.Validate(); err != nil {
			return fmt.Errorf("spec %q: %w", s.SourceName, err)
		}
	default:
		return fmt.Errorf("spec %q: unknown source type %q", s.SourceName, s.Type)
	}
	return nil
}

// LoadSpecs reads an ordered list of run specs from a YAML file.
func LoadSpecs(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	var specs []Spec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse spec file: %w", err)
	}
	for _, s := range specs {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

// Result is the outcome of one run. Every run, successful or not, yields a
// Result; callers never receive a bare error for a whole run.
type Result struct {
	LogID        int64
	SourceID     int64
	SourceName   string
	BooksAdded   int
	BooksUpdated int
	Errors       int
	Status       string
	ErrorDetails string
}

// Totals aggregates a multi-source batch.
type Totals struct {
	Added     int
	Updated   int
	Errors    int
	Completed int
	Failed    int
}

// Runner executes ingestion runs against one catalog store. It holds only
// injected dependencies and is safe to reuse across runs.
type Runner struct {
	store *catalog.Store
	cache *cache.DB
	delay time.Duration

	// newAdapter builds the adapter for a spec; tests override it.
	newAdapter func(Spec) (scrape.Adapter, error)
}

// NewRunner creates a runner. A nil cache disables API response caching;
// delay is the politeness pause between sequential batch runs.
func NewRunner(store *catalog.Store, c *cache.DB, delay time.Duration) *Runner {
	r := &Runner{
		store: store,
		cache: c,
		delay: delay,
	}
	r.newAdapter = r.defaultAdapter
	return r
}

// defaultAdapter maps a validated spec onto a concrete adapter. A non-empty
// BaseURL overrides the API adapters' default endpoint, which also keeps
// them testable against local fixtures.
func (r *Runner) defaultAdapter(spec Spec) (scrape.Adapter, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	switch spec.Type {
	case TypeAPIA:
		adapter := scrape.NewOpenLibrary(spec.Query, spec.Limit, r.cache)
		if spec.BaseURL != "" {
			adapter.BaseURL = spec.BaseURL
		}
		return adapter, nil
	case TypeAPIB:
		adapter := scrape.NewGoogleBooks(spec.Query, spec.Limit, r.cache)
		if spec.BaseURL != "" {
			adapter.BaseURL = spec.BaseURL
		}
		return adapter, nil
	case TypeFixedHTML:
		return scrape.NewListing(spec.BaseURL), nil
	default:
		return scrape.NewCustom(spec.BaseURL, spec.Selectors), nil
	}
}

// Run executes one ingestion run: get-or-create the source, open its log,
// fetch candidates, run the dedup/upsert batch, and close the log. Adapter
// and commit failures terminate the run as failed; per-candidate failures
// are counted but leave the run completed.
func (r *Runner) Run(ctx context.Context, spec Spec) Result {
	result := Result{SourceName: spec.SourceName, Status: catalog.StatusFailed}

	sourceID, err := r.ensureSource(ctx, spec)
	if err != nil {
		slog.Error("Failed to resolve source", "source", spec.SourceName, "error", err)
		result.Errors = 1
		result.ErrorDetails = err.Error()
		return result
	}
	result.SourceID = sourceID

	logID, err := catalog.CreateLog(ctx, r.store.DB(), sourceID)
	if err != nil {
		slog.Error("Failed to open scraping log", "source", spec.SourceName, "error", err)
		result.Errors = 1
		result.ErrorDetails = err.Error()
		return result
	}
	result.LogID = logID

	adapter, err := r.newAdapter(spec)
	if err != nil {
		return r.fail(ctx, result, err)
	}

	slog.Info("Starting ingestion run", "source", spec.SourceName, "type", spec.Type, "log_id", logID)

	candidates, err := adapter.Fetch(ctx)
	if err != nil {
		return r.fail(ctx, result, err)
	}

	batch, err := SaveBatch(ctx, r.store, sourceID, candidates)
	if err != nil {
		return r.fail(ctx, result, err)
	}

	result.Status = catalog.StatusCompleted
	result.BooksAdded = batch.Added
	result.BooksUpdated = batch.Updated
	result.Errors = batch.Failed
	result.ErrorDetails = batch.ErrorDetails()

	if err := catalog.CloseLog(ctx, r.store.DB(), logID, catalog.StatusCompleted,
		batch.Added, batch.Updated, batch.Failed, result.ErrorDetails); err != nil {
		slog.Error("Failed to close scraping log", "log_id", logID, "error", err)
	}

	slog.Info("Ingestion run completed", "source", spec.SourceName,
		"added", batch.Added, "updated", batch.Updated, "failed", batch.Failed)
	return result
}

// fail records the terminal failed state for a run whose log is already open.
func (r *Runner) fail(ctx context.Context, result Result, runErr error) Result {
	slog.Error("Ingestion run failed", "source", result.SourceName, "log_id", result.LogID, "error", runErr)

	result.Status = catalog.StatusFailed
	result.Errors = 1
	result.ErrorDetails = runErr.Error()

	if err := catalog.CloseLog(ctx, r.store.DB(), result.LogID, catalog.StatusFailed,
		0, 0, 1, runErr.Error()); err != nil {
		slog.Error("Failed to close scraping log", "log_id", result.LogID, "error", err)
	}
	return result
}

// ensureSource resolves the catalog source for a spec in its own small
// transaction, creating it on first use.
func (r *Runner) ensureSource(ctx context.Context, spec Spec) (int64, error) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	sourceID, err := catalog.GetOrCreateSource(ctx, tx, spec.SourceName, spec.BaseURL)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit source creation: %w", err)
	}
	return sourceID, nil
}

// RunAll executes the specs strictly sequentially, pausing the politeness
// delay between consecutive runs but not after the last. A failed run is
// converted into its failed Result and never blocks the remaining entries.
func (r *Runner) RunAll(ctx context.Context, specs []Spec) ([]Result, Totals) {
	limiter := ratelimit.NewInterval("run-batch", r.delay)

	results := make([]Result, 0, len(specs))
	var totals Totals

	for _, spec := range specs {
		// The first wait consumes the limiter's initial token immediately;
		// every following wait enforces the inter-run delay.
		if err := limiter.Wait(ctx); err != nil {
			slog.Warn("Batch interrupted", "source", spec.SourceName, "error", err)
			results = append(results, Result{
				SourceName:   spec.SourceName,
				Status:       catalog.StatusFailed,
				Errors:       1,
				ErrorDetails: err.Error(),
			})
			totals.Failed++
			totals.Errors++
			continue
		}

		result := r.Run(ctx, spec)
		results = append(results, result)

		totals.Added += result.BooksAdded
		totals.Updated += result.BooksUpdated
		totals.Errors += result.Errors
		if result.Status == catalog.StatusCompleted {
			totals.Completed++
		} else {
			totals.Failed++
		}
	}

	return results, totals
}
