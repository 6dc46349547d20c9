package httpcache

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// DefaultMinDelay is the pause enforced between requests to the same host.
const DefaultMinDelay = 1100 * time.Millisecond

// DefaultRateLimiter paces every fetch made through this package.
var DefaultRateLimiter = NewRateLimiter(DefaultMinDelay)

// RateLimiter spaces out requests per host.
type RateLimiter struct {
	lastRequest sync.Map // host -> time.Time
	hostLocks   sync.Map // host -> *sync.Mutex

	mu        sync.RWMutex
	overrides map[string]time.Duration
	minDelay  time.Duration
}

// NewRateLimiter returns a limiter that waits at least minDelay between
// requests to the same host.
func NewRateLimiter(minDelay time.Duration) *RateLimiter {
	return &RateLimiter{
		minDelay:  minDelay,
		overrides: map[string]time.Duration{},
	}
}

// SetDelay overrides the minimum delay for one host. A zero delay disables
// pacing for that host.
func (r *RateLimiter) SetDelay(host string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[host] = d
}

// ClearDelay removes a per-host override.
func (r *RateLimiter) ClearDelay(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overrides, host)
}

func (r *RateLimiter) delay(host string) time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.overrides[host]; ok {
		return d
	}
	return r.minDelay
}

// Wait blocks until a request to rawURL's host may proceed, or ctx is done.
// URLs without a host are never delayed.
func (r *RateLimiter) Wait(ctx context.Context, rawURL string, logger *slog.Logger) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil //nolint:nilerr // unparseable URLs fail later in the transport
	}
	host := u.Host

	lockI, _ := r.hostLocks.LoadOrStore(host, &sync.Mutex{})
	lock, ok := lockI.(*sync.Mutex)
	if !ok {
		return nil
	}
	lock.Lock()
	defer lock.Unlock()

	delay := r.delay(host)
	if lastI, ok := r.lastRequest.Load(host); ok && delay > 0 {
		if last, ok := lastI.(time.Time); ok {
			if elapsed := time.Since(last); elapsed < delay {
				wait := delay - elapsed
				if logger != nil {
					logger.DebugContext(ctx, "rate limit pause", "host", host, "wait", wait)
				}
				t := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					t.Stop()
					return ctx.Err()
				case <-t.C:
				}
			}
		}
	}

	r.lastRequest.Store(host, time.Now())
	return nil
}
