package database

import (
	"time"
)

type RunRepository interface {
	InsertRun(run Run) error
	FinishRun(id string, finishedAt time.Time, totalRecords, totalLinks, succeeded, failed int) error
	GetRun(id string) (*Run, error)
}

type DownloadRepository interface {
	InsertOutcome(d Download) error
	GetFailed(runID string) ([]Download, error)
	GetOutcomeCounts(runID string) (succeeded int, failed int, err error)
}
