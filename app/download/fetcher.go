package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lysyi3m/chat-harvest/app/links"
)

const (
	// MaxAttempts is the total number of tries per descriptor, including the
	// first one.
	MaxAttempts = 3

	// RequestTimeout bounds a single attempt; a hung request is bounded by
	// nothing else.
	RequestTimeout = 10 * time.Second
)

// imageExtensions are the basenames treated as already carrying an image
// extension. Anything else gets ".jpg" appended. This is a filename
// heuristic, not content sniffing, and can mislabel the true format.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Fetcher downloads a single image descriptor to local storage. Safe for
// concurrent use by multiple workers as long as descriptors resolve to
// distinct destination paths; two URLs sharing a basename under the same date
// race on the same file and the last writer wins.
type Fetcher struct {
	httpClient *http.Client
	dir        string
	userAgent  string
	sleep      func(time.Duration)
}

func NewFetcher(httpClient *http.Client, dir, userAgent string) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		dir:        dir,
		userAgent:  userAgent,
		sleep:      time.Sleep,
	}
}

// DestPath resolves the local destination for a descriptor:
// <dir>/<date>/<basename-of-url-path>, with the extension heuristic applied.
func (f *Fetcher) DestPath(d links.Descriptor) (string, error) {
	parsed, err := url.Parse(d.URL)
	if err != nil {
		return "", fmt.Errorf("failed to parse URL: %w", err)
	}

	name := filepath.Base(parsed.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("URL has no usable basename: %s", d.URL)
	}

	if !imageExtensions[strings.ToLower(filepath.Ext(name))] {
		name += ".jpg"
	}

	return filepath.Join(f.dir, d.Date, name), nil
}

// Fetch downloads one descriptor and reports success. An already existing
// destination file counts as success without any network call, which keeps
// reruns of a batch cheap and safe. Request-level failures (transport error,
// non-2xx status, non-image content type) are retried with exponential
// backoff; any path or I/O error is downgraded to a failure outcome so a
// single bad link never aborts the batch.
func (f *Fetcher) Fetch(ctx context.Context, d links.Descriptor) bool {
	dest, err := f.DestPath(d)
	if err != nil {
		slog.Warn("Failed to resolve destination", "url", d.URL, "error", err)
		return false
	}

	if _, err := os.Stat(dest); err == nil {
		slog.Debug("Already downloaded, skipping", "url", d.URL, "dest", dest)
		return true
	}

	var lastErr error
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if attempt > 0 {
			// Backoff 1s, 2s between attempts.
			f.sleep(time.Duration(1<<(attempt-1)) * time.Second)
		}

		body, err := f.request(ctx, d.URL)
		if err != nil {
			lastErr = err
			slog.Warn("Download attempt failed", "url", d.URL, "attempt", attempt+1, "error", err)
			continue
		}

		if err := writeFile(dest, body); err != nil {
			slog.Warn("Failed to persist image", "url", d.URL, "dest", dest, "error", err)
			return false
		}

		slog.Debug("Downloaded image", "url", d.URL, "dest", dest, "bytes", len(body))
		return true
	}

	slog.Error("Download failed after retries", "url", d.URL, "attempts", MaxAttempts, "error", lastErr)
	return false
}

func (f *Fetcher) request(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Browser-like header set so the CDN does not reject the request.
	// Accept-Encoding is identity to keep the body verbatim on disk.
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Referer", "https://www.taobao.com/")
	req.Header.Set("Accept", "image/avif,image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "identity")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	// A 200 with an HTML error page is still a failure.
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image") {
		return nil, fmt.Errorf("unexpected content type: %q", contentType)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}

func writeFile(dest string, body []byte) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(dest, body, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
