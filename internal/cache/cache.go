// Package cache provides a small SQLite-backed TTL cache for raw API
// responses, so repeated ingestion runs against the same upstream do not
// hammer the external service.
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultTTL is the default time-to-live for cached entries (30 days).
const DefaultTTL = 720 * time.Hour

// FetchFunc represents a function that fetches data from an external source.
type FetchFunc[T any] func() (T, error)

// DB manages the SQLite database connection for response caching.
type DB struct {
	db  *sql.DB
	mu  sync.RWMutex
	ttl time.Duration
}

// Open opens (or creates) the cache database at the given path and
// initializes the cache tables. A non-positive ttl falls back to DefaultTTL.
func Open(path string, ttl time.Duration) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.Ping(); err != nil {
		closeErr := db.Close()
		return nil, errors.Join(fmt.Errorf("failed to connect to cache database: %w", err), closeErr)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &DB{db: db, ttl: ttl}

	for _, schema := range allSchemas {
		if _, err := c.db.Exec(schema); err != nil {
			closeErr := c.db.Close()
			return nil, errors.Join(fmt.Errorf("failed to create cache table: %w", err), closeErr)
		}
	}

	return c, nil
}

// Close closes the database connection.
func (c *DB) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// get returns the cached payload for the key if present and younger than the
// TTL. The bool reports whether a usable entry was found.
func (c *DB) get(table, key string) (string, bool, error) {
	if !validTables[table] {
		return "", false, fmt.Errorf("invalid cache table name: %s", table)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var data string
	var cachedAt time.Time
	query := fmt.Sprintf("SELECT data, cached_at FROM %s WHERE cache_key = ?", table)
	err := c.db.QueryRow(query, key).Scan(&data, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query cache: %w", err)
	}

	if time.Since(cachedAt) > c.ttl {
		return "", false, nil
	}
	return data, true, nil
}

// put stores the payload under the key, replacing any previous entry.
func (c *DB) put(table, key, data string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid cache table name: %s", table)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	query := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (cache_key, data, cached_at) VALUES (?, ?, ?)", table)
	if _, err := c.db.Exec(query, key, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// GetOrFetch retrieves data from the cache or fetches it using fetchFunc.
// A nil *DB disables caching entirely and delegates straight to fetchFunc.
// The bool reports whether the value came from the cache.
func GetOrFetch[T any](c *DB, table, key string, fetchFunc FetchFunc[T]) (T, bool, error) {
	var zero T

	if c == nil {
		data, err := fetchFunc()
		return data, false, err
	}

	cached, hit, err := c.get(table, key)
	if err == nil && hit {
		var result T
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			slog.Debug("Cache hit", "table", table, "key", key)
			return result, true, nil
		}
		slog.Warn("Failed to unmarshal cached data, will refetch", "table", table, "key", key, "error", err)
	}
	if err != nil {
		slog.Warn("Cache lookup failed, fetching directly", "table", table, "key", key, "error", err)
	}

	data, err := fetchFunc()
	if err != nil {
		return zero, false, err
	}

	encoded, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to marshal data for caching", "table", table, "key", key, "error", err)
		return data, false, nil
	}
	if err := c.put(table, key, string(encoded)); err != nil {
		slog.Warn("Failed to store cache entry", "table", table, "key", key, "error", err)
	}

	return data, false, nil
}
