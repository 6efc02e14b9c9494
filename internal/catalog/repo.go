package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lepinkainen/kirjava/internal/scrape"
)

// nullStr converts a zero-value string to NULL for insertion.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullInt converts a zero-value int to NULL for insertion.
func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

// GetOrCreateSource returns the id of the source with the given name,
// inserting it as active if absent. Names are globally unique.
func GetOrCreateSource(ctx context.Context, tx *sql.Tx, name, baseURL string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM sources WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up source %q: %w", name, err)
	}

	result, err := tx.ExecContext(ctx,
		"INSERT INTO sources (name, base_url, is_active) VALUES (?, ?, 1)", name, baseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %q: %w", name, err)
	}
	return result.LastInsertId()
}

// GetOrCreateAuthor returns the id of the author with the given name,
// inserting it if absent.
func GetOrCreateAuthor(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM authors WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up author %q: %w", name, err)
	}

	result, err := tx.ExecContext(ctx, "INSERT INTO authors (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert author %q: %w", name, err)
	}
	return result.LastInsertId()
}

// GetOrCreateCategory returns the id of the category with the given name,
// inserting it if absent.
func GetOrCreateCategory(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM categories WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up category %q: %w", name, err)
	}

	result, err := tx.ExecContext(ctx, "INSERT INTO categories (name) VALUES (?)", name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert category %q: %w", name, err)
	}
	return result.LastInsertId()
}

// FindBookID applies the match cascade and returns the first existing book
// the candidate resolves to: ISBN exact match, then (title, publication
// year), then title alone. The bool reports whether a match was found.
func FindBookID(ctx context.Context, tx *sql.Tx, c scrape.Candidate) (int64, bool, error) {
	var id int64

	if c.ISBN != "" {
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM books WHERE isbn = ? LIMIT 1", c.ISBN).Scan(&id)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, false, fmt.Errorf("failed to match by ISBN: %w", err)
		}
	}

	if c.PublicationYear != 0 {
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM books WHERE title = ? AND publication_year = ? LIMIT 1",
			c.Title, c.PublicationYear).Scan(&id)
		if err == nil {
			return id, true, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, false, fmt.Errorf("failed to match by title and year: %w", err)
		}
	}

	err := tx.QueryRowContext(ctx,
		"SELECT id FROM books WHERE title = ? LIMIT 1", c.Title).Scan(&id)
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("failed to match by title: %w", err)
	}

	return 0, false, nil
}

// InsertBook inserts a new book row for the candidate. Absent optional
// fields persist as NULL; an absent language gets the default.
func InsertBook(ctx context.Context, tx *sql.Tx, c scrape.Candidate, sourceID int64) (int64, error) {
	language := c.Language
	if language == "" {
		language = DefaultLanguage
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO books (
			title, subtitle, isbn, publication_year, publisher, pages,
			language, description, cover_image_url, pdf_url, download_url,
			source_id, source_url, scraped_at, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		c.Title, nullStr(c.Subtitle), nullStr(c.ISBN), nullInt(c.PublicationYear),
		nullStr(c.Publisher), nullInt(c.Pages), language, nullStr(c.Description),
		nullStr(c.CoverImageURL), nullStr(c.PDFURL), nullStr(c.DownloadURL),
		sourceID, nullStr(c.SourceURL))
	if err != nil {
		return 0, fmt.Errorf("failed to insert book %q: %w", c.Title, err)
	}
	return result.LastInsertId()
}

// UpdateBook merges the candidate into an existing book row. Each mergeable
// field is overwritten only when the candidate supplies a value: stored data
// is never erased by an absent field. last_updated always advances.
func UpdateBook(ctx context.Context, tx *sql.Tx, id int64, c scrape.Candidate) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE books SET
			subtitle = COALESCE(?, subtitle),
			publisher = COALESCE(?, publisher),
			pages = COALESCE(?, pages),
			description = COALESCE(?, description),
			cover_image_url = COALESCE(?, cover_image_url),
			isbn = COALESCE(?, isbn),
			last_updated = CURRENT_TIMESTAMP
		WHERE id = ?`,
		nullStr(c.Subtitle), nullStr(c.Publisher), nullInt(c.Pages),
		nullStr(c.Description), nullStr(c.CoverImageURL), nullStr(c.ISBN), id)
	if err != nil {
		return fmt.Errorf("failed to update book %d: %w", id, err)
	}
	return nil
}

// RelinkAuthors replaces the book's author linkage with the given ordered
// name list: all existing rows are deleted, then one row per non-empty name
// is inserted with its 1-based position. Authors are created as needed.
func RelinkAuthors(ctx context.Context, tx *sql.Tx, bookID int64, names []string) error {
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM book_authors WHERE book_id = ?", bookID); err != nil {
		return fmt.Errorf("failed to unlink authors for book %d: %w", bookID, err)
	}

	position := 0
	for _, name := range names {
		if name == "" {
			continue
		}
		position++

		authorID, err := GetOrCreateAuthor(ctx, tx, name)
		if err != nil {
			return err
		}
		// REPLACE keeps the pair unique when the same author appears twice.
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO book_authors (book_id, author_id, position) VALUES (?, ?, ?)",
			bookID, authorID, position); err != nil {
			return fmt.Errorf("failed to link author %q to book %d: %w", name, bookID, err)
		}
	}
	return nil
}

// RelinkCategories links the book to each non-empty category name,
// creating categories as needed. Existing links are left untouched:
// relinking is additive, never replacing.
func RelinkCategories(ctx context.Context, tx *sql.Tx, bookID int64, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}

		categoryID, err := GetOrCreateCategory(ctx, tx, name)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO book_categories (book_id, category_id) VALUES (?, ?)",
			bookID, categoryID); err != nil {
			return fmt.Errorf("failed to link category %q to book %d: %w", name, bookID, err)
		}
	}
	return nil
}

// TouchSourceLastScraped stamps the source's last-scraped time. Runs on the
// DB handle after the batch transaction has committed.
func TouchSourceLastScraped(ctx context.Context, db *sql.DB, sourceID int64) error {
	if _, err := db.ExecContext(ctx,
		"UPDATE sources SET last_scraped = CURRENT_TIMESTAMP WHERE id = ?", sourceID); err != nil {
		return fmt.Errorf("failed to touch source %d: %w", sourceID, err)
	}
	return nil
}
