package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/kirjava/internal/catalog"
	"github.com/lepinkainen/kirjava/internal/scrape"
)

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createSource(t *testing.T, store *catalog.Store, name string) int64 {
	t.Helper()

	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	id, err := catalog.GetOrCreateSource(context.Background(), tx, name, "https://example.com")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	return id
}

func countBooks(t *testing.T, store *catalog.Store) int {
	t.Helper()

	var count int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM books").Scan(&count))
	return count
}

func TestSaveBatchInsertsAndLinks(t *testing.T) {
	store := openTestStore(t)
	sourceID := createSource(t, store, "test")

	result, err := SaveBatch(context.Background(), store, sourceID, []scrape.Candidate{
		{
			Title:           "Dune",
			ISBN:            "9780441013593",
			PublicationYear: 1965,
			Authors:         []string{"Frank Herbert"},
			Categories:      []string{"Science Fiction"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Zero(t, result.Updated)
	assert.Zero(t, result.Failed)

	var authors, categories int
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM book_authors").Scan(&authors))
	require.NoError(t, store.DB().QueryRow("SELECT COUNT(*) FROM book_categories").Scan(&categories))
	assert.Equal(t, 1, authors)
	assert.Equal(t, 1, categories)
}

func TestSaveBatchReingestionByISBNUpdates(t *testing.T) {
	store := openTestStore(t)
	sourceID := createSource(t, store, "test")

	candidates := []scrape.Candidate{
		{Title: "Dune", ISBN: "9780441013593", PublicationYear: 1965},
	}

	first, err := SaveBatch(context.Background(), store, sourceID, candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Added)

	second, err := SaveBatch(context.Background(), store, sourceID, candidates)
	require.NoError(t, err)
	assert.Zero(t, second.Added, "re-running the same source must never duplicate by ISBN")
	assert.Equal(t, 1, second.Updated)
	assert.Equal(t, 1, countBooks(t, store))
}

func TestSaveBatchTitleYearCollapse(t *testing.T) {
	store := openTestStore(t)
	sourceID := createSource(t, store, "test")

	_, err := SaveBatch(context.Background(), store, sourceID, []scrape.Candidate{
		{Title: "Hyperion", PublicationYear: 1989, Publisher: "Doubleday"},
	})
	require.NoError(t, err)

	result, err := SaveBatch(context.Background(), store, sourceID, []scrape.Candidate{
		{Title: "Hyperion", PublicationYear: 1989, Description: "The Shrike awaits"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated, "same title and year must collapse into one row")
	assert.Equal(t, 1, countBooks(t, store))

	var publisher, description string
	require.NoError(t, store.DB().QueryRow(
		"SELECT publisher, description FROM books WHERE title = 'Hyperion'").
		Scan(&publisher, &description))
	assert.Equal(t, "Doubleday", publisher, "merge keeps earlier data")
	assert.Equal(t, "The Shrike awaits", description, "merge adds newly supplied data")
}

func TestSaveBatchDuneScenario(t *testing.T) {
	// Two candidates in one batch: one with ISBN, one bare title. The second
	// must not match by ISBN, falls through title+year (no year) to the
	// title-only rule, and merges into the same row.
	store := openTestStore(t)
	sourceID := createSource(t, store, "test")

	result, err := SaveBatch(context.Background(), store, sourceID, []scrape.Candidate{
		{Title: "Dune", ISBN: "9780441013593"},
		{Title: "Dune"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, countBooks(t, store))
}

func TestSaveBatchToleratesSingleBadCandidate(t *testing.T) {
	store := openTestStore(t)
	sourceID := createSource(t, store, "test")

	candidates := make([]scrape.Candidate, 0, 10)
	for i := 0; i < 10; i++ {
		if i == 4 {
			// no title: fails inside the engine without poisoning the batch
			candidates = append(candidates, scrape.Candidate{ISBN: "123"})
			continue
		}
		candidates = append(candidates, scrape.Candidate{Title: fmt.Sprintf("Book %d", i)})
	}

	result, err := SaveBatch(context.Background(), store, sourceID, candidates)
	require.NoError(t, err, "a single bad record must not fail the batch")
	assert.Equal(t, 9, result.Added)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, 9, countBooks(t, store), "successful candidates still commit")
}

func TestSaveBatchTouchesSourceLastScraped(t *testing.T) {
	store := openTestStore(t)
	sourceID := createSource(t, store, "test")

	_, err := SaveBatch(context.Background(), store, sourceID, []scrape.Candidate{{Title: "Dune"}})
	require.NoError(t, err)

	var lastScraped sql.NullString
	require.NoError(t, store.DB().QueryRow(
		"SELECT last_scraped FROM sources WHERE id = ?", sourceID).Scan(&lastScraped))
	assert.True(t, lastScraped.Valid, "a committed batch stamps the source")
}

func TestSaveBatchEmptyInput(t *testing.T) {
	store := openTestStore(t)
	sourceID := createSource(t, store, "test")

	result, err := SaveBatch(context.Background(), store, sourceID, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Added)
	assert.Zero(t, result.Updated)
	assert.Zero(t, result.Failed)
}

func TestBatchResultErrorDetails(t *testing.T) {
	result := BatchResult{Failures: []string{"a: boom", "b: bust"}}
	assert.Equal(t, "a: boom; b: bust", result.ErrorDetails())
	assert.Empty(t, BatchResult{}.ErrorDetails())
}
