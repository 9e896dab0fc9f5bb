package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/lysyi3m/chat-harvest/app/archive"
	"github.com/lysyi3m/chat-harvest/app/cfg"
	"github.com/lysyi3m/chat-harvest/app/database"
	"github.com/lysyi3m/chat-harvest/app/download"
	"github.com/lysyi3m/chat-harvest/app/links"
	"github.com/lysyi3m/chat-harvest/app/tasks"
)

const (
	mergedFile = "merged_chat_records.json"
	linksFile  = "alicdn_links.json"
	failedFile = "failed_downloads.json"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	slog.Info("Starting chat harvest", "version", appCfg.Version, "root", appCfg.RootDir)

	// The manifest is best-effort: the JSON result files are the source of
	// truth, so a broken manifest database only costs history, not the batch.
	runRepo, dlRepo, closeDB := openManifest(appCfg.ManifestPath)
	defer closeDB()

	runID := ulid.Make().String()
	startedAt := time.Now().UTC()
	if runRepo != nil {
		run := database.Run{ID: runID, RootDir: appCfg.RootDir, StartedAt: startedAt}
		if err := runRepo.InsertRun(run); err != nil {
			slog.Warn("Failed to record run in manifest", "run_id", runID, "error", err)
		}
	}

	// Merge phase
	dataset, err := archive.Merge(appCfg.RootDir)
	if err != nil {
		log.Fatalf("Failed to merge chat records: %v", err)
	}

	mergedPath := filepath.Join(appCfg.OutputDir, mergedFile)
	if err := archive.WriteDataset(mergedPath, dataset); err != nil {
		log.Fatalf("Failed to write merged dataset: %v", err)
	}
	fmt.Printf("Merged %d records from %d directories into %s\n",
		dataset.Metadata.TotalRecords, len(dataset.Metadata.SourceDirectories), mergedPath)
	if dataset.Metadata.TotalRecords > 0 {
		fmt.Printf("Date range: %s .. %s\n",
			dataset.Metadata.DateRange.Start, dataset.Metadata.DateRange.End)
	}

	// Extraction phase
	descriptors := links.Extract(dataset)
	linksPath := filepath.Join(appCfg.OutputDir, linksFile)
	if err := links.WriteDescriptors(linksPath, descriptors); err != nil {
		log.Fatalf("Failed to write link list: %v", err)
	}
	fmt.Printf("Extracted %d image links into %s\n", len(descriptors), linksPath)

	// Download phase
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: download.RequestTimeout}
	fetcher := download.NewFetcher(httpClient, appCfg.DownloadsDir, appCfg.UserAgent)
	runner := tasks.NewRunner(fetcher)

	outcomes, failed := runner.Run(ctx, descriptors)

	if dlRepo != nil {
		recordOutcomes(dlRepo, fetcher, runID, descriptors, outcomes)
	}

	failedPath := filepath.Join(appCfg.OutputDir, failedFile)
	if len(failed) > 0 {
		if err := links.WriteDescriptors(failedPath, failed); err != nil {
			log.Fatalf("Failed to write failure report: %v", err)
		}
		fmt.Printf("%d of %d downloads failed, failed links saved to %s\n",
			len(failed), len(descriptors), failedPath)
	} else {
		// A clean run leaves no failure report, including one from a
		// previous run over the same output directory.
		os.Remove(failedPath)
		fmt.Printf("All %d downloads succeeded\n", len(descriptors))
	}

	if runRepo != nil {
		err := runRepo.FinishRun(runID, time.Now().UTC(),
			dataset.Metadata.TotalRecords, len(descriptors),
			len(descriptors)-len(failed), len(failed))
		if err != nil {
			slog.Warn("Failed to finalize run in manifest", "run_id", runID, "error", err)
		}
	}

	slog.Info("Harvest completed",
		"run_id", runID,
		"records", dataset.Metadata.TotalRecords,
		"links", len(descriptors),
		"failed", len(failed),
		"duration", time.Since(startedAt))
}

func openManifest(path string) (database.RunRepository, database.DownloadRepository, func()) {
	db, err := database.NewConnection(path)
	if err != nil {
		slog.Warn("Manifest database unavailable, continuing without it", "path", path, "error", err)
		return nil, nil, func() {}
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Warn("Manifest migrations failed, continuing without manifest", "path", path, "error", err)
		db.Close()
		return nil, nil, func() {}
	}
	slog.Debug("Manifest ready", "path", path, "migration_version", version, "dirty", dirty)

	return database.NewRunRepository(db), database.NewDownloadRepository(db), func() { db.Close() }
}

func recordOutcomes(dlRepo database.DownloadRepository, fetcher *download.Fetcher,
	runID string, descriptors []links.Descriptor, outcomes []bool) {
	now := time.Now().UTC()
	for i, d := range descriptors {
		dest, err := fetcher.DestPath(d)
		if err != nil {
			dest = ""
		}

		outcome := database.Download{
			RunID:       runID,
			URL:         d.URL,
			Date:        d.Date,
			Author:      d.Name,
			Destination: dest,
			Succeeded:   outcomes[i],
			CreatedAt:   now,
		}
		if err := dlRepo.InsertOutcome(outcome); err != nil {
			slog.Warn("Failed to record download outcome", "url", d.URL, "error", err)
		}
	}
}
