// Package httpcache provides disk-backed HTTP response caching with
// single-flight fetches, retry of transient failures and per-domain pacing.
package httpcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/localfs"

	"github.com/codeGROOVE-dev/linkedinbot/pkg/auth"
)

// UserAgent is the browser User-Agent string sent with every request.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0"

const (
	cacheName = "linkedinbot"

	maxBodyBytes = 8 << 20

	// fetchBudget bounds a single fetch including its retry.
	fetchBudget = 10 * time.Second
)

// Stats tracks cache hit/miss statistics.
type Stats struct {
	Hits   int64
	Misses int64
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

var (
	hits   atomic.Int64
	misses atomic.Int64
)

// CacheStats returns the current cache statistics.
func CacheStats() Stats {
	return Stats{Hits: hits.Load(), Misses: misses.Load()}
}

// ResetStats resets the cache statistics.
func ResetStats() {
	hits.Store(0)
	misses.Store(0)
}

// Cacher is the single-flight cache FetchURL reads through.
type Cacher interface {
	GetSet(ctx context.Context, key string, fetch func(context.Context) ([]byte, error), ttl ...time.Duration) ([]byte, error)
	TTL() time.Duration
}

// Cache wraps sfcache for HTTP response caching.
type Cache struct {
	*sfcache.TieredCache[string, []byte]

	ttl time.Duration
}

// New creates a new Cache with disk persistence under the user cache
// directory (~/.cache/linkedinbot on Linux).
func New(ttl time.Duration) (*Cache, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return NewWithPath(ttl, filepath.Join(cacheDir, cacheName))
}

// NewWithPath creates a new Cache with disk persistence at the specified path.
func NewWithPath(ttl time.Duration, cachePath string) (*Cache, error) {
	if err := os.MkdirAll(cachePath, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	persist, err := localfs.New[string, []byte](cacheName, cachePath)
	if err != nil {
		return nil, fmt.Errorf("create persistence layer: %w", err)
	}

	tc, err := sfcache.NewTiered[string, []byte](persist, sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &Cache{TieredCache: tc, ttl: ttl}, nil
}

// TTL returns the default TTL for cache entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// URLToKey converts a URL to a cache key using SHA256 hash.
func URLToKey(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(hash[:])
}

// HTTPError represents an HTTP error response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// ResponseValidator validates a response body. Returns true if cacheable.
type ResponseValidator func(body []byte) bool

// FetchURL fetches a URL through the cache. Concurrent callers for the same
// URL share one request.
func FetchURL(ctx context.Context, cache Cacher, client *http.Client, req *http.Request, logger *slog.Logger) ([]byte, error) {
	return FetchURLWithValidator(ctx, cache, client, req, logger, nil)
}

// credentialKey scopes cache entries to the li_at session in the client's jar.
func credentialKey(client *http.Client, req *http.Request) string {
	if client.Jar == nil {
		return ""
	}
	cookies := client.Jar.Cookies(req.URL)
	if len(cookies) == 0 {
		return ""
	}
	for _, c := range cookies {
		if c.Name == auth.TokenCookie && c.Value != "" {
			return "|" + URLToKey(c.Value)[:16]
		}
	}
	return "|auth"
}

// FetchURLWithValidator fetches a URL with caching and optional response validation.
// If validator returns false, the response is returned but NOT cached.
// Only successful bodies and 404 responses are cached; authentication,
// rate-limit and network failures always reach the server again next time.
func FetchURLWithValidator(
	ctx context.Context,
	cache Cacher,
	client *http.Client,
	req *http.Request,
	logger *slog.Logger,
	validator ResponseValidator,
) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cacheKey := req.URL.String() + credentialKey(client, req)

	if cache == nil {
		misses.Add(1)
		return doFetch(ctx, client, req, logger)
	}

	var fetched bool
	data, err := cache.GetSet(ctx, URLToKey(cacheKey), func(ctx context.Context) ([]byte, error) {
		fetched = true
		misses.Add(1)
		logger.DebugContext(ctx, "cache miss", "url", req.URL.String())

		body, fetchErr := doFetch(ctx, client, req, logger)
		if fetchErr != nil {
			var httpErr *HTTPError
			if errors.As(fetchErr, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
				return fmt.Appendf(nil, "ERROR:%d", httpErr.StatusCode), nil
			}
			return nil, fetchErr
		}
		if validator != nil && !validator(body) {
			logger.DebugContext(ctx, "skipping cache due to validation failure", "key", cacheKey)
			return nil, &validationError{data: body}
		}
		return body, nil
	}, cache.TTL())

	if !fetched {
		hits.Add(1)
		logger.DebugContext(ctx, "cache hit", "url", req.URL.String())
	}

	var validErr *validationError
	if errors.As(err, &validErr) {
		return validErr.data, nil
	}
	if err != nil {
		return nil, err
	}

	if code, found := strings.CutPrefix(string(data), "ERROR:"); found {
		status, _ := strconv.Atoi(code) //nolint:errcheck // 0 is acceptable default
		return nil, &HTTPError{StatusCode: status, URL: req.URL.String()}
	}

	return data, nil
}

type validationError struct{ data []byte }

func (*validationError) Error() string { return "validation failed" }

func doFetch(ctx context.Context, client *http.Client, req *http.Request, logger *slog.Logger) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchBudget)
	defer cancel()

	return retry.DoWithData(
		func() ([]byte, error) {
			if err := DefaultRateLimiter.Wait(ctx, req.URL.String(), logger); err != nil {
				return nil, err
			}

			resp, err := client.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close() //nolint:errcheck // intentional

			if resp.StatusCode != http.StatusOK {
				return nil, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String()}
			}

			return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		},
		retry.Context(ctx),
		retry.Attempts(2),                     // single retry
		retry.Delay(300*time.Millisecond),     // delay before retry
		retry.MaxJitter(200*time.Millisecond), // small jitter
		retry.RetryIf(isRetryableError),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.DebugContext(ctx, "retrying HTTP request", "attempt", n+1, "url", req.URL.String(), "error", err)
		}),
	)
}

// isRetryableError returns true for transient errors that should be retried.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false // other 4xx errors are permanent
		}
	}
	// Network errors, timeouts, etc. are retryable
	return true
}
