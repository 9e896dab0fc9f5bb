package database

import (
	"time"
)

// Run is one batch invocation of the harvester.
type Run struct {
	ID           string
	RootDir      string
	StartedAt    time.Time
	FinishedAt   *time.Time
	TotalRecords int
	TotalLinks   int
	Succeeded    int
	Failed       int
}

// Download is the recorded outcome of one descriptor within a run. The
// manifest is a best-effort record of what happened; the JSON result files
// remain the source of truth for the batch.
type Download struct {
	ID          int64
	RunID       string
	URL         string
	Date        string
	Author      string
	Destination string
	Succeeded   bool
	CreatedAt   time.Time
}
