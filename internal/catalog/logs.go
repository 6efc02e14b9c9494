package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Log operations run on the DB handle, not the per-run transaction: the
// audit trail must survive a rolled-back batch.

// CreateLog opens the audit row for one ingestion run with status running.
// The returned id is the run's identity.
func CreateLog(ctx context.Context, db *sql.DB, sourceID int64) (int64, error) {
	result, err := db.ExecContext(ctx,
		"INSERT INTO scraping_logs (source_id, started_at, status) VALUES (?, CURRENT_TIMESTAMP, ?)",
		sourceID, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to create scraping log: %w", err)
	}
	return result.LastInsertId()
}

// CloseLog writes the single terminal update for a run: final status,
// counts, error details and the completion timestamp.
func CloseLog(ctx context.Context, db *sql.DB, logID int64, status string, added, updated, errors int, errorDetails string) error {
	_, err := db.ExecContext(ctx, `
		UPDATE scraping_logs SET
			completed_at = CURRENT_TIMESTAMP,
			books_added = ?,
			books_updated = ?,
			errors = ?,
			status = ?,
			error_details = ?
		WHERE id = ?`,
		added, updated, errors, status, nullStr(errorDetails), logID)
	if err != nil {
		return fmt.Errorf("failed to close scraping log %d: %w", logID, err)
	}
	return nil
}

// GetLog returns one scraping log row joined with its source.
func GetLog(ctx context.Context, db *sql.DB, logID int64) (*ScrapingLog, error) {
	row := db.QueryRowContext(ctx, `
		SELECT l.id, l.source_id, s.name, s.base_url, l.started_at, l.completed_at,
		       l.books_added, l.books_updated, l.errors, l.status, l.error_details
		FROM scraping_logs l
		JOIN sources s ON s.id = l.source_id
		WHERE l.id = ?`, logID)

	log, err := scanLog(row)
	if err != nil {
		return nil, fmt.Errorf("failed to load scraping log %d: %w", logID, err)
	}
	return log, nil
}

// RecentLogs returns the most recent scraping logs joined with source name
// and base URL, newest first.
func RecentLogs(ctx context.Context, db *sql.DB, limit int) ([]ScrapingLog, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.QueryContext(ctx, `
		SELECT l.id, l.source_id, s.name, s.base_url, l.started_at, l.completed_at,
		       l.books_added, l.books_updated, l.errors, l.status, l.error_details
		FROM scraping_logs l
		JOIN sources s ON s.id = l.source_id
		ORDER BY l.started_at DESC, l.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scraping logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []ScrapingLog
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scraping log: %w", err)
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

// ActiveSources returns all sources flagged active, ordered by name.
func ActiveSources(ctx context.Context, db *sql.DB) ([]Source, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, base_url, is_active, last_scraped
		FROM sources
		WHERE is_active = 1
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sources: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var sources []Source
	for rows.Next() {
		var s Source
		var lastScraped sql.NullTime
		if err := rows.Scan(&s.ID, &s.Name, &s.BaseURL, &s.IsActive, &lastScraped); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		if lastScraped.Valid {
			t := lastScraped.Time
			s.LastScraped = &t
		}
		sources = append(sources, s)
	}
	return sources, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanLog(row scanner) (*ScrapingLog, error) {
	var log ScrapingLog
	var completedAt sql.NullTime
	var errorDetails sql.NullString

	err := row.Scan(&log.ID, &log.SourceID, &log.SourceName, &log.BaseURL,
		&log.StartedAt, &completedAt, &log.BooksAdded, &log.BooksUpdated,
		&log.Errors, &log.Status, &errorDetails)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		log.CompletedAt = &t
	}
	log.ErrorDetails = errorDetails.String
	return &log, nil
}
