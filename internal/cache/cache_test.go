package cache

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type payload struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

func openTestCache(t *testing.T, ttl time.Duration) *DB {
	t.Helper()

	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestGetOrFetchMissThenHit(t *testing.T) {
	c := openTestCache(t, time.Hour)

	var fetches int
	fetch := func() (payload, error) {
		fetches++
		return payload{Title: "Dune", Year: 1965}, nil
	}

	got, fromCache, err := GetOrFetch(c, OpenLibraryTable, "subject:fantasy", fetch)
	require.NoError(t, err)
	require.False(t, fromCache)
	require.Equal(t, "Dune", got.Title)

	got, fromCache, err = GetOrFetch(c, OpenLibraryTable, "subject:fantasy", fetch)
	require.NoError(t, err)
	require.True(t, fromCache)
	require.Equal(t, 1965, got.Year)
	require.Equal(t, 1, fetches)
}

func TestGetOrFetchExpiredEntryRefetches(t *testing.T) {
	c := openTestCache(t, time.Nanosecond)

	var fetches int
	fetch := func() (payload, error) {
		fetches++
		return payload{Title: "Dune"}, nil
	}

	_, _, err := GetOrFetch(c, GoogleBooksTable, "q:dune", fetch)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, fromCache, err := GetOrFetch(c, GoogleBooksTable, "q:dune", fetch)
	require.NoError(t, err)
	require.False(t, fromCache)
	require.Equal(t, 2, fetches)
}

func TestGetOrFetchNilCacheFetchesDirectly(t *testing.T) {
	got, fromCache, err := GetOrFetch(nil, OpenLibraryTable, "key", func() (payload, error) {
		return payload{Title: "direct"}, nil
	})
	require.NoError(t, err)
	require.False(t, fromCache)
	require.Equal(t, "direct", got.Title)
}

func TestGetOrFetchPropagatesFetchError(t *testing.T) {
	c := openTestCache(t, time.Hour)

	wantErr := errors.New("upstream down")
	_, _, err := GetOrFetch(c, OpenLibraryTable, "key", func() (payload, error) {
		return payload{}, wantErr
	})
	require.ErrorIs(t, err, wantErr)
}

func TestInvalidTableRejected(t *testing.T) {
	c := openTestCache(t, time.Hour)

	err := c.put("books; DROP TABLE sources", "k", "v")
	require.Error(t, err)
}
