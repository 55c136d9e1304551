package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	appLog "schedgrid/internal/log"
)

// Source is one ICS feed.
type Source struct {
	// ID is the feed identifier; it doubles as the resource sub-id.
	ID string
	// Name is a display name for the feed.
	Name string
	// URL is the ICS endpoint.
	URL string
}

// FetchResult contains the outcome of fetching a single feed.
type FetchResult struct {
	Source    Source
	Body      []byte
	FromCache bool // body came from the disk cache (304, or network failure)
}

// cacheEntry holds HTTP cache validators for one URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FetcherOptions configures NewFetcher.
type FetcherOptions struct {
	// CacheDir holds one subdirectory per feed URL. Defaults to ./var/ics-cache.
	CacheDir string
	// Timeout bounds a single HTTP request. Defaults to 15s.
	Timeout time.Duration
	// PerMinute limits outgoing requests; zero disables limiting.
	PerMinute int
	// Client overrides the HTTP client (tests).
	Client *http.Client
}

// Fetcher downloads ICS feeds with conditional requests (ETag /
// Last-Modified) and a disk-backed body cache used as fallback.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	limiter  *rate.Limiter
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.CacheDir == "" {
		opts.CacheDir = "./var/ics-cache"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	f := &Fetcher{client: client, cacheDir: opts.CacheDir}
	if opts.PerMinute > 0 {
		f.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.PerMinute)), opts.PerMinute)
	}
	return f
}

// FetchOne fetches src, falling back to the cached body when the server is
// unreachable or answers with an error status.
func (f *Fetcher) FetchOne(ctx context.Context, src Source) (FetchResult, error) {
	if src.URL == "" {
		return FetchResult{}, fmt.Errorf("ics: source %q: URL is empty", src.ID)
	}

	cachePath := f.cachePathForURL(src.URL)
	if err := os.MkdirAll(cachePath, 0o700); err != nil {
		return FetchResult{}, fmt.Errorf("ics: create cache dir: %w", err)
	}
	meta, _ := loadCacheMeta(cachePath)
	cachedBody, _ := os.ReadFile(filepath.Join(cachePath, "body.ics"))

	fromCache := func(reason string, cause error) (FetchResult, error) {
		if len(cachedBody) == 0 {
			return FetchResult{}, fmt.Errorf("ics: source %q: %s: %w", src.ID, reason, cause)
		}
		appLog.Warn("ics fetch failed, using cached body", "id", src.ID, "url", redactURL(src.URL), "reason", reason, "err", cause)
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return fromCache("rate limit wait", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return FetchResult{}, fmt.Errorf("ics: build request: %w", err)
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Debug("ics fetch start", "id", src.ID, "url", redactURL(src.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		return fromCache("network error", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fromCache("read body", err)
		}
		newMeta := cacheEntry{
			URL:          src.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(cachePath, newMeta, body); err != nil {
			appLog.Error("ics cache save failed", err, "id", src.ID, "url", redactURL(src.URL))
		}
		appLog.Info("ics fetch success", "id", src.ID, "url", redactURL(src.URL), "bytes", len(body))
		return FetchResult{Source: src, Body: body}, nil

	case http.StatusNotModified:
		if len(cachedBody) == 0 {
			return FetchResult{}, fmt.Errorf("ics: source %q: 304 Not Modified without cached body", src.ID)
		}
		appLog.Debug("ics fetch not modified", "id", src.ID)
		return FetchResult{Source: src, Body: cachedBody, FromCache: true}, nil

	default:
		return fromCache("status "+resp.Status, errors.New(resp.Status))
	}
}

func (f *Fetcher) cachePathForURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadCacheMeta(cachePath string) (cacheEntry, error) {
	var meta cacheEntry
	data, err := os.ReadFile(filepath.Join(cachePath, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheEntry{}, err
	}
	return meta, nil
}

func saveCache(cachePath string, meta cacheEntry, body []byte) error {
	// Body first so meta never points at a missing body.
	if err := os.WriteFile(filepath.Join(cachePath, "body.ics"), body, 0o600); err != nil {
		return err
	}
	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(cachePath, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host of a feed URL for logging; private
// calendar URLs usually carry a secret in the path or query.
func redactURL(u string) string {
	const redacted = "/...(redacted)"
	i := strings.Index(u, "://")
	if i < 0 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + redacted
}
