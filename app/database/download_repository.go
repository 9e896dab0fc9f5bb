package database

import (
	"fmt"
)

var _ DownloadRepository = (*downloadRepository)(nil)

// downloadRepository handles database operations for per-link outcomes
type downloadRepository struct {
	db *DB
}

func NewDownloadRepository(db *DB) DownloadRepository {
	return &downloadRepository{db: db}
}

func (r *downloadRepository) InsertOutcome(d Download) error {
	_, err := r.db.Exec(`
		INSERT INTO downloads (run_id, url, date, author, destination, succeeded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, d.RunID, d.URL, d.Date, d.Author, d.Destination, d.Succeeded, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert download outcome: %w", err)
	}

	return nil
}

func (r *downloadRepository) GetFailed(runID string) ([]Download, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, url, date, author, destination, succeeded, created_at
		FROM downloads
		WHERE run_id = ? AND succeeded = 0
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed downloads: %w", err)
	}
	defer rows.Close()

	var downloads []Download
	for rows.Next() {
		var d Download
		if err := rows.Scan(&d.ID, &d.RunID, &d.URL, &d.Date, &d.Author,
			&d.Destination, &d.Succeeded, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		downloads = append(downloads, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate downloads: %w", err)
	}

	return downloads, nil
}

func (r *downloadRepository) GetOutcomeCounts(runID string) (int, int, error) {
	var succeeded, failed int
	err := r.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN succeeded = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN succeeded = 0 THEN 1 ELSE 0 END), 0)
		FROM downloads
		WHERE run_id = ?
	`, runID).Scan(&succeeded, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count outcomes: %w", err)
	}

	return succeeded, failed, nil
}
