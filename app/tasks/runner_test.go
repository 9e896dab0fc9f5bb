package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/lysyi3m/chat-harvest/app/links"
)

// stubFetcher reports a canned outcome per URL and records how it was called.
type stubFetcher struct {
	mu       sync.Mutex
	outcomes map[string]bool
	panics   map[string]bool
	calls    []string
}

func (s *stubFetcher) Fetch(ctx context.Context, d links.Descriptor) bool {
	s.mu.Lock()
	s.calls = append(s.calls, d.URL)
	s.mu.Unlock()

	if s.panics[d.URL] {
		panic("boom: " + d.URL)
	}
	return s.outcomes[d.URL]
}

// unpaced returns a runner whose limiter never blocks, so tests are not
// wall-clock bound.
func unpaced(fetcher FetcherInterface) *Runner {
	r := NewRunner(fetcher)
	r.limiter = rate.NewLimiter(rate.Inf, 1)
	return r
}

func descs(urls ...string) []links.Descriptor {
	out := make([]links.Descriptor, 0, len(urls))
	for _, u := range urls {
		out = append(out, links.Descriptor{URL: u, Date: "2024-01-01"})
	}
	return out
}

func TestRunPreservesInputOrder(t *testing.T) {
	fetcher := &stubFetcher{outcomes: map[string]bool{
		"https://img.alicdn.com/a.jpg": true,
		"https://img.alicdn.com/b.jpg": false,
		"https://img.alicdn.com/c.jpg": true,
		"https://img.alicdn.com/d.jpg": false,
	}}

	input := descs(
		"https://img.alicdn.com/a.jpg",
		"https://img.alicdn.com/b.jpg",
		"https://img.alicdn.com/c.jpg",
		"https://img.alicdn.com/d.jpg",
	)

	outcomes, failed := unpaced(fetcher).Run(context.Background(), input)

	require.Len(t, outcomes, len(input))
	assert.Equal(t, []bool{true, false, true, false}, outcomes)

	// Failed descriptors are the input-order subsequence of false outcomes.
	require.Len(t, failed, 2)
	assert.Equal(t, "https://img.alicdn.com/b.jpg", failed[0].URL)
	assert.Equal(t, "https://img.alicdn.com/d.jpg", failed[1].URL)

	assert.Len(t, fetcher.calls, len(input))
}

func TestRunPanicBecomesFailureOutcome(t *testing.T) {
	fetcher := &stubFetcher{
		outcomes: map[string]bool{
			"https://img.alicdn.com/ok1.jpg": true,
			"https://img.alicdn.com/ok2.jpg": true,
		},
		panics: map[string]bool{
			"https://img.alicdn.com/bad.jpg": true,
		},
	}

	input := descs(
		"https://img.alicdn.com/ok1.jpg",
		"https://img.alicdn.com/bad.jpg",
		"https://img.alicdn.com/ok2.jpg",
	)

	outcomes, failed := unpaced(fetcher).Run(context.Background(), input)

	assert.Equal(t, []bool{true, false, true}, outcomes)
	require.Len(t, failed, 1)
	assert.Equal(t, "https://img.alicdn.com/bad.jpg", failed[0].URL)
}

func TestRunEmptyInput(t *testing.T) {
	outcomes, failed := unpaced(&stubFetcher{}).Run(context.Background(), nil)

	assert.Empty(t, outcomes)
	assert.Empty(t, failed)
}

func TestRunPacesSubmissions(t *testing.T) {
	fetcher := &stubFetcher{outcomes: map[string]bool{}}
	runner := NewRunner(fetcher)

	input := descs(
		"https://img.alicdn.com/1.jpg",
		"https://img.alicdn.com/2.jpg",
		"https://img.alicdn.com/3.jpg",
	)

	start := time.Now()
	outcomes, _ := runner.Run(context.Background(), input)
	elapsed := time.Since(start)

	require.Len(t, outcomes, 3)
	// Token bucket at 2 submissions/second: the third submission cannot
	// happen before ~1s has passed.
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
}

func TestRunStopsSubmittingOnCancel(t *testing.T) {
	fetcher := &stubFetcher{outcomes: map[string]bool{}}
	runner := NewRunner(fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := descs(
		"https://img.alicdn.com/1.jpg",
		"https://img.alicdn.com/2.jpg",
	)

	outcomes, failed := runner.Run(ctx, input)

	// Outcome count still equals input count; unsubmitted slots are failures.
	require.Len(t, outcomes, len(input))
	assert.Len(t, failed, len(input))
}
