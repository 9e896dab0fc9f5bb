package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrMissingDate marks an exported file that parsed as JSON but carries no
// date key. Such files are skipped the same way malformed JSON is, so one bad
// export never aborts the whole merge.
var ErrMissingDate = errors.New("record has no date field")

// accumulator carries the grouping state through the directory walk. Keeping
// it an explicit value instead of package-level state keeps Merge a pure
// function of the filesystem snapshot.
type accumulator struct {
	byDate  map[string][]Record
	dates   []string
	dirs    map[string]struct{}
	skipped int
}

func newAccumulator() *accumulator {
	return &accumulator{
		byDate: make(map[string][]Record),
		dirs:   make(map[string]struct{}),
	}
}

func (a *accumulator) add(rec Record) {
	if _, ok := a.byDate[rec.Date]; !ok {
		a.dates = append(a.dates, rec.Date)
	}
	a.byDate[rec.Date] = append(a.byDate[rec.Date], rec)
	a.dirs[rec.SourceDirectory] = struct{}{}
}

// Merge recursively visits every JSON file under root, parses each one as a
// chat record, injects provenance, and returns a single dataset ordered by
// ascending date. Records sharing a date keep the order they were encountered
// in during the walk. Malformed or date-less files are logged and skipped.
func Merge(root string) (*Dataset, error) {
	acc := newAccumulator()

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".json") {
			return nil
		}

		rec, err := parseFile(path)
		if err != nil {
			slog.Warn("Skipping chat-log file", "file", path, "error", err)
			acc.skipped++
			return nil
		}

		acc.add(rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	ds := acc.dataset()

	slog.Info("Merge completed",
		"root", root,
		"records", ds.Metadata.TotalRecords,
		"skipped", acc.skipped,
		"directories", len(ds.Metadata.SourceDirectories))

	return ds, nil
}

func parseFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("failed to read file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	if rec.Date == "" {
		return Record{}, ErrMissingDate
	}

	rec.SourceDirectory = filepath.Base(filepath.Dir(path))
	rec.SourceFile = filepath.Base(path)

	return rec, nil
}

// dataset flattens the accumulator into the final ordered dataset and
// recomputes its metadata. Date ordering is lexicographic, which is correct
// for the fixed-width YYYY-MM-DD keys the exports use.
func (a *accumulator) dataset() *Dataset {
	dates := make([]string, len(a.dates))
	copy(dates, a.dates)
	sort.Strings(dates)

	total := 0
	for _, recs := range a.byDate {
		total += len(recs)
	}

	records := make([]Record, 0, total)
	for _, date := range dates {
		records = append(records, a.byDate[date]...)
	}

	dirs := make([]string, 0, len(a.dirs))
	for dir := range a.dirs {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)

	meta := Metadata{
		TotalRecords:      len(records),
		SourceDirectories: dirs,
	}
	if len(dates) > 0 {
		meta.DateRange = DateRange{Start: dates[0], End: dates[len(dates)-1]}
	}

	return &Dataset{AllRecords: records, Metadata: meta}
}
