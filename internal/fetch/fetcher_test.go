package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/webrag/internal/config"
	"github.com/hyperjump/webrag/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(maxBytes int64, allowed ...string) *Fetcher {
	return New(&config.FetchConfig{
		HTTPTimeoutSeconds: 5,
		MaxDownloadBytes:   maxBytes,
		UserAgent:          "webrag-test/1.0",
		AllowedDomains:     allowed,
	})
}

func TestAllowed(t *testing.T) {
	f := newTestFetcher(1024, "docs.example.com", " Golang.org ")
	tests := []struct {
		url  string
		want bool
	}{
		{"https://docs.example.com/x", true},
		{"https://sub.docs.example.com/x", true},
		{"https://DOCS.EXAMPLE.COM:8443/x", true},
		{"https://api.example.com/x", false},
		{"https://evildocs.example.com/x", false},
		{"https://example.com/", false},
		{"https://golang.org/doc", true},
		{"https://pkg.golang.org/doc", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.Allowed(tt.url), tt.url)
	}

	open := newTestFetcher(1024)
	assert.True(t, open.Allowed("https://anything.example/"))
}

func TestFetch_OK(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><p>héllo</p></body></html>"))
	}))
	defer srv.Close()

	m := metrics.New()
	f := New(&config.FetchConfig{HTTPTimeoutSeconds: 5, MaxDownloadBytes: 1024, UserAgent: "webrag-test/1.0"}, WithMetrics(m))
	page, err := f.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	assert.Equal(t, "webrag-test/1.0", gotUA)
	assert.Equal(t, "text/html", page.ContentType)
	assert.Equal(t, "utf-8", page.Charset)
	assert.Equal(t, "<html><body><p>héllo</p></body></html>", page.Text)
	assert.Equal(t, srv.URL+"/page", page.URL)
}

func TestFetch_TooLargeStreamed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		flusher := w.(http.Flusher)
		chunk := []byte(strings.Repeat("a", 512))
		for i := 0; i < 8; i++ {
			_, _ = w.Write(chunk)
			flusher.Flush()
		}
	}))
	defer srv.Close()

	f := newTestFetcher(1024)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooLarge), "got %v", err)
}

func TestFetch_TooLargeContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2048")
		_, _ = w.Write([]byte(strings.Repeat("b", 2048)))
	}))
	defer srv.Close()

	f := newTestFetcher(1024)
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetch_ExactlyAtCap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("c", 1024)))
	}))
	defer srv.Close()

	page, err := newTestFetcher(1024).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, page.Body, 1024)
}

func TestFetch_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestFetcher(1024).Fetch(context.Background(), srv.URL+"/missing")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "/missing")
}

func TestFetch_DomainNotAllowed(t *testing.T) {
	f := newTestFetcher(1024, "docs.example.com")
	_, err := f.Fetch(context.Background(), "https://api.example.com/x")
	assert.ErrorIs(t, err, ErrDomainNotAllowed)
}

func TestFetch_RedirectToDisallowedDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "http://evil.invalid/steal", http.StatusFound)
	}))
	defer srv.Close()

	f := newTestFetcher(1024, "127.0.0.1")
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrDomainNotAllowed)
}

func TestFetch_InvalidURL(t *testing.T) {
	f := newTestFetcher(1024)
	for _, raw := range []string{"not a url", "ftp://example.com/file", "http://", "://missing-scheme"} {
		_, err := f.Fetch(context.Background(), raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

func TestFetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := newTestFetcher(1024).Fetch(context.Background(), addr)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTooLarge)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestFetch_DeclaredCharset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=ISO-8859-1")
		_, _ = w.Write([]byte("caf\xe9"))
	}))
	defer srv.Close()

	page, err := newTestFetcher(1024).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "café", page.Text)
	assert.Equal(t, "iso-8859-1", page.Charset)
}

func TestDecode(t *testing.T) {
	assert.Equal(t, "café", Decode([]byte("caf\xe9"), "latin1"))
	assert.Equal(t, "hello�world", Decode([]byte("hello\x80world"), ""))
	assert.Equal(t, "hello�world", Decode([]byte("hello\x80world"), "x-no-such-charset"))
	assert.Equal(t, "plain", Decode([]byte("plain"), "utf-8"))
}
