package tasks

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/time/rate"

	"github.com/lysyi3m/chat-harvest/app/download"
	"github.com/lysyi3m/chat-harvest/app/links"
)

var _ FetcherInterface = (*download.Fetcher)(nil)

const (
	// WorkerCount bounds concurrent requests against the CDN.
	WorkerCount = 3

	// submissionsPerSecond paces the submitting path: a token bucket at two
	// submissions per second throttles burst request rate regardless of pool
	// availability.
	submissionsPerSecond = 2
)

type job struct {
	slot int
	task TaskInterface
}

// Runner fans a descriptor list out across a fixed worker pool and collects
// per-descriptor outcomes preserving input order. Completion order is not
// guaranteed; each outcome is re-associated with its descriptor by submission
// slot.
type Runner struct {
	fetcher     FetcherInterface
	workerCount int
	limiter     *rate.Limiter
}

func NewRunner(fetcher FetcherInterface) *Runner {
	return &Runner{
		fetcher:     fetcher,
		workerCount: WorkerCount,
		limiter:     rate.NewLimiter(rate.Limit(submissionsPerSecond), 1),
	}
}

// Run downloads every descriptor and returns the outcome list plus the
// input-order subsequence of descriptors whose final outcome was failure.
// len(outcomes) always equals len(descriptors).
func (r *Runner) Run(ctx context.Context, descriptors []links.Descriptor) ([]bool, []links.Descriptor) {
	outcomes := make([]bool, len(descriptors))

	jobs := make(chan job)
	var wg sync.WaitGroup

	for i := 0; i < r.workerCount; i++ {
		wg.Add(1)
		go r.worker(ctx, i, jobs, outcomes, &wg)
	}

	for i, d := range descriptors {
		if err := r.limiter.Wait(ctx); err != nil {
			slog.Warn("Submission stopped", "submitted", i, "total", len(descriptors), "error", err)
			break
		}
		jobs <- job{slot: i, task: NewDownloadTask(d, r.fetcher)}
	}
	close(jobs)

	wg.Wait()

	var failed []links.Descriptor
	for i, ok := range outcomes {
		if !ok {
			failed = append(failed, descriptors[i])
		}
	}

	slog.Info("Batch completed",
		"total", len(descriptors),
		"succeeded", len(descriptors)-len(failed),
		"failed", len(failed))

	return outcomes, failed
}

func (r *Runner) worker(ctx context.Context, id int, jobs <-chan job, outcomes []bool, wg *sync.WaitGroup) {
	defer wg.Done()

	for jb := range jobs {
		outcomes[jb.slot] = r.executeTask(ctx, id, jb.task)
	}
}

// executeTask runs one task, downgrading a panic to a failure outcome so a
// single bad link never aborts sibling tasks.
func (r *Runner) executeTask(ctx context.Context, workerID int, task TaskInterface) (ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Worker task panicked", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "panic", rec)
			ok = false
		}
	}()

	task.Start()
	ok = task.Execute(ctx)

	slog.Debug("Task completed",
		"worker_id", workerID,
		"type", string(task.GetType()),
		"id", task.GetID(),
		"duration", task.GetDuration(),
		"ok", ok)

	return ok
}
