// Package ingest drives ingestion runs: it feeds adapter candidates through
// the dedup/upsert engine inside one audited transaction and records every
// outcome in the scraping log.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lepinkainen/kirjava/internal/catalog"
	"github.com/lepinkainen/kirjava/internal/scrape"
)

// BatchResult summarizes one dedup/upsert batch. Added and Updated count
// only the candidates that succeeded individually; Failures carries one
// message per failed candidate so callers see them instead of just logs.
type BatchResult struct {
	Added    int
	Updated  int
	Failed   int
	Failures []string
}

// ErrorDetails joins the per-candidate failure messages for the log row.
func (r BatchResult) ErrorDetails() string {
	return strings.Join(r.Failures, "; ")
}

// SaveBatch reconciles the candidates against the catalog inside a single
// transaction. Per candidate, in input order: resolve an existing book via
// the match cascade and merge into it, or insert a new row; then relink
// authors and categories. A failure on one candidate is recorded and
// skipped, and the batch still commits with whatever succeeded. Only a commit
// failure aborts the run and rolls back everything.
func SaveBatch(ctx context.Context, store *catalog.Store, sourceID int64, candidates []scrape.Candidate) (BatchResult, error) {
	var result BatchResult

	tx, err := store.Begin(ctx)
	if err != nil {
		return result, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range candidates {
		added, err := saveCandidate(ctx, tx, sourceID, c)
		if err != nil {
			slog.Error("Failed to save candidate", "title", c.Title, "error", err)
			result.Failed++
			result.Failures = append(result.Failures, fmt.Sprintf("%s: %v", c.Title, err))
			continue
		}
		if added {
			result.Added++
		} else {
			result.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return BatchResult{}, fmt.Errorf("failed to commit batch: %w", err)
	}

	if err := catalog.TouchSourceLastScraped(ctx, store.DB(), sourceID); err != nil {
		slog.Warn("Failed to update source last-scraped time", "source_id", sourceID, "error", err)
	}

	return result, nil
}

// saveCandidate upserts one candidate. The bool reports whether a new book
// row was inserted (as opposed to an existing one updated).
func saveCandidate(ctx context.Context, tx *sql.Tx, sourceID int64, c scrape.Candidate) (bool, error) {
	if c.Title == "" {
		return false, errors.New("candidate has no title")
	}

	bookID, found, err := catalog.FindBookID(ctx, tx, c)
	if err != nil {
		return false, err
	}

	added := !found
	if found {
		if err := catalog.UpdateBook(ctx, tx, bookID, c); err != nil {
			return false, err
		}
	} else {
		bookID, err = catalog.InsertBook(ctx, tx, c, sourceID)
		if err != nil {
			return false, err
		}
	}

	if len(c.Authors) > 0 {
		if err := catalog.RelinkAuthors(ctx, tx, bookID, c.Authors); err != nil {
			return false, err
		}
	}
	if len(c.Categories) > 0 {
		if err := catalog.RelinkCategories(ctx, tx, bookID, c.Categories); err != nil {
			return false, err
		}
	}

	return added, nil
}
