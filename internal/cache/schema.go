package cache

// SQL schemas for cache tables.
// All cache tables use "cache_key" as the primary key column for consistency.

// OpenLibraryTable is the cache table for OpenLibrary subject responses.
const OpenLibraryTable = "openlibrary_cache"

// GoogleBooksTable is the cache table for Google Books volume responses.
const GoogleBooksTable = "googlebooks_cache"

const openLibrarySchema = `
CREATE TABLE IF NOT EXISTS openlibrary_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_openlibrary_cached_at ON openlibrary_cache(cached_at);
`

const googleBooksSchema = `
CREATE TABLE IF NOT EXISTS googlebooks_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_googlebooks_cached_at ON googlebooks_cache(cached_at);
`

var allSchemas = []string{
	openLibrarySchema,
	googleBooksSchema,
}

// validTables is the whitelist of allowed cache table names,
// used to prevent SQL injection when interpolating table names.
var validTables = map[string]bool{
	OpenLibraryTable: true,
	GoogleBooksTable: true,
}
