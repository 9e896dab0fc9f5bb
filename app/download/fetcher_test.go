package download

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/chat-harvest/app/links"
)

func newTestFetcher(t *testing.T) (*Fetcher, *[]time.Duration) {
	t.Helper()

	var sleeps []time.Duration
	f := NewFetcher(&http.Client{Timeout: time.Second}, t.TempDir(), "test-agent")
	f.sleep = func(d time.Duration) {
		sleeps = append(sleeps, d)
	}

	return f, &sleeps
}

func TestDestPath(t *testing.T) {
	f, _ := newTestFetcher(t)

	tests := []struct {
		url  string
		want string
	}{
		{"https://img.alicdn.com/a.jpg", "a.jpg"},
		{"https://img.alicdn.com/x/y/b.png", "b.png"},
		{"https://img.alicdn.com/c.gif", "c.gif"},
		{"https://img.alicdn.com/d.jpeg", "d.jpeg"},
		{"https://img.alicdn.com/e.JPG", "e.JPG"},
		// The extension heuristic: anything unrecognized gets .jpg appended.
		{"https://img.alicdn.com/noext", "noext.jpg"},
		{"https://img.alicdn.com/f.webp", "f.webp.jpg"},
	}

	for _, tt := range tests {
		dest, err := f.DestPath(links.Descriptor{URL: tt.url, Date: "2024-01-01"})
		require.NoError(t, err, tt.url)
		assert.Equal(t, filepath.Join(f.dir, "2024-01-01", tt.want), dest, tt.url)
	}
}

func TestFetchSuccessWritesFile(t *testing.T) {
	f, _ := newTestFetcher(t)

	body := []byte("fake image bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(body)
	}))
	defer server.Close()

	d := links.Descriptor{URL: server.URL + "/a.jpg", Date: "2024-01-01"}
	require.True(t, f.Fetch(context.Background(), d))

	written, err := os.ReadFile(filepath.Join(f.dir, "2024-01-01", "a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, body, written)
}

func TestFetchIdempotence(t *testing.T) {
	f, _ := newTestFetcher(t)

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("img"))
	}))
	defer server.Close()

	d := links.Descriptor{URL: server.URL + "/a.jpg", Date: "2024-01-01"}

	require.True(t, f.Fetch(context.Background(), d))
	assert.Equal(t, int32(1), requests.Load())

	// Second invocation sees the existing file and performs no network call.
	require.True(t, f.Fetch(context.Background(), d))
	assert.Equal(t, int32(1), requests.Load())
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	f, sleeps := newTestFetcher(t)

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("img"))
	}))
	defer server.Close()

	d := links.Descriptor{URL: server.URL + "/b.png", Date: "2024-01-02"}
	require.True(t, f.Fetch(context.Background(), d))

	assert.Equal(t, int32(3), requests.Load())
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *sleeps)
}

func TestFetchFailsAfterMaxAttempts(t *testing.T) {
	f, sleeps := newTestFetcher(t)

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	d := links.Descriptor{URL: server.URL + "/c.jpg", Date: "2024-01-03"}
	require.False(t, f.Fetch(context.Background(), d))

	assert.Equal(t, int32(MaxAttempts), requests.Load())
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *sleeps)

	_, err := os.Stat(filepath.Join(f.dir, "2024-01-03", "c.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetchRejectsNonImageResponse(t *testing.T) {
	f, _ := newTestFetcher(t)

	// A 200 carrying an HTML error page must not be persisted as an image.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>blocked</html>"))
	}))
	defer server.Close()

	d := links.Descriptor{URL: server.URL + "/d.jpg", Date: "2024-01-04"}
	require.False(t, f.Fetch(context.Background(), d))

	_, err := os.Stat(filepath.Join(f.dir, "2024-01-04", "d.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetchSendsBrowserHeaders(t *testing.T) {
	f, _ := newTestFetcher(t)

	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("img"))
	}))
	defer server.Close()

	d := links.Descriptor{URL: server.URL + "/e.jpg", Date: "2024-01-05"}
	require.True(t, f.Fetch(context.Background(), d))

	assert.Equal(t, "test-agent", got.Get("User-Agent"))
	assert.Equal(t, "https://www.taobao.com/", got.Get("Referer"))
	assert.Contains(t, got.Get("Accept"), "image/")
	assert.NotEmpty(t, got.Get("Accept-Language"))
	assert.Equal(t, "no-cache", got.Get("Cache-Control"))
}

func TestFetchBadURLIsFailure(t *testing.T) {
	f, _ := newTestFetcher(t)

	d := links.Descriptor{URL: "https://img.alicdn.com/", Date: "2024-01-06"}
	assert.False(t, f.Fetch(context.Background(), d))
}
