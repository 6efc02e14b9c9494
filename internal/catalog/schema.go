package catalog

// SQL schemas for the catalog tables. Associations carry foreign keys so a
// book/author/category row must exist before it can be linked.

const sourcesSchema = `
CREATE TABLE IF NOT EXISTS sources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	base_url TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	last_scraped DATETIME
);
`

const booksSchema = `
CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	subtitle TEXT,
	isbn TEXT,
	publication_year INTEGER,
	publisher TEXT,
	pages INTEGER,
	language TEXT NOT NULL DEFAULT 'English',
	description TEXT,
	cover_image_url TEXT,
	pdf_url TEXT,
	download_url TEXT,
	source_id INTEGER NOT NULL REFERENCES sources(id),
	source_url TEXT,
	scraped_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_updated DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_books_isbn ON books(isbn);
CREATE INDEX IF NOT EXISTS idx_books_title ON books(title);
`

const authorsSchema = `
CREATE TABLE IF NOT EXISTS authors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
`

const categoriesSchema = `
CREATE TABLE IF NOT EXISTS categories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);
`

const bookAuthorsSchema = `
CREATE TABLE IF NOT EXISTS book_authors (
	book_id INTEGER NOT NULL REFERENCES books(id),
	author_id INTEGER NOT NULL REFERENCES authors(id),
	position INTEGER NOT NULL,
	PRIMARY KEY (book_id, author_id)
);
`

const bookCategoriesSchema = `
CREATE TABLE IF NOT EXISTS book_categories (
	book_id INTEGER NOT NULL REFERENCES books(id),
	category_id INTEGER NOT NULL REFERENCES categories(id),
	PRIMARY KEY (book_id, category_id)
);
`

const scrapingLogsSchema = `
CREATE TABLE IF NOT EXISTS scraping_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id INTEGER NOT NULL REFERENCES sources(id),
	started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME,
	books_added INTEGER NOT NULL DEFAULT 0,
	books_updated INTEGER NOT NULL DEFAULT 0,
	errors INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'running',
	error_details TEXT
);

CREATE INDEX IF NOT EXISTS idx_scraping_logs_started_at ON scraping_logs(started_at);
`

// allSchemas contains all catalog table schemas in dependency order.
var allSchemas = []string{
	sourcesSchema,
	booksSchema,
	authorsSchema,
	categoriesSchema,
	bookAuthorsSchema,
	bookCategoriesSchema,
	scrapingLogsSchema,
}
