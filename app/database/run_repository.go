package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ RunRepository = (*runRepository)(nil)

// runRepository handles database operations for runs
type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) InsertRun(run Run) error {
	_, err := r.db.Exec(`
		INSERT INTO runs (id, root_dir, started_at)
		VALUES (?, ?, ?)
	`, run.ID, run.RootDir, run.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

func (r *runRepository) FinishRun(id string, finishedAt time.Time, totalRecords, totalLinks, succeeded, failed int) error {
	result, err := r.db.Exec(`
		UPDATE runs
		SET finished_at = ?, total_records = ?, total_links = ?, succeeded = ?, failed = ?
		WHERE id = ?
	`, finishedAt, totalRecords, totalLinks, succeeded, failed, id)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", id)
	}

	return nil
}

func (r *runRepository) GetRun(id string) (*Run, error) {
	var run Run
	err := r.db.QueryRow(`
		SELECT id, root_dir, started_at, finished_at, total_records, total_links, succeeded, failed
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.ID, &run.RootDir, &run.StartedAt, &run.FinishedAt,
		&run.TotalRecords, &run.TotalLinks, &run.Succeeded, &run.Failed)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}
