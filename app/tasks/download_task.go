package tasks

import (
	"context"

	"github.com/lysyi3m/chat-harvest/app/links"
)

// FetcherInterface is the piece of the download worker the orchestrator
// needs. Retry and idempotence policy live behind it.
type FetcherInterface interface {
	Fetch(ctx context.Context, d links.Descriptor) bool
}

type DownloadTask struct {
	Task
	Descriptor links.Descriptor
	fetcher    FetcherInterface
}

func NewDownloadTask(d links.Descriptor, fetcher FetcherInterface) *DownloadTask {
	return &DownloadTask{
		Task:       NewTask(TaskTypeDownload),
		Descriptor: d,
		fetcher:    fetcher,
	}
}

func (t *DownloadTask) Execute(ctx context.Context) bool {
	return t.fetcher.Fetch(ctx, t.Descriptor)
}
