package handlers

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/neomercado/api/internal/platform/httpx"
	"github.com/neomercado/api/internal/platform/requestctx"
)

type rateLimiter interface {
	Allow(key string) bool
}

type slidingWindowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time
	mu     sync.Mutex
	store  map[string]rateEntry
}

type rateEntry struct {
	count int
	reset time.Time
}

// newRateLimiter builds a fixed-window per-key limiter. A nil limiter allows
// everything, so handlers can treat rate limiting as optional.
func newRateLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &slidingWindowLimiter{
		limit:  limit,
		window: window,
		clock:  clock,
		store:  make(map[string]rateEntry),
	}
}

func (l *slidingWindowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.store[key]
	if !ok || now.After(entry.reset) {
		l.store[key] = rateEntry{count: 1, reset: now.Add(l.window)}
		l.pruneExpiredLocked(now)
		return true
	}
	if entry.count >= l.limit {
		return false
	}
	entry.count++
	l.store[key] = entry
	return true
}

func (l *slidingWindowLimiter) pruneExpiredLocked(now time.Time) {
	for key, entry := range l.store {
		if now.After(entry.reset) {
			delete(l.store, key)
		}
	}
}

// allowRequest applies the limiter keyed by scope and client address, writing
// the 429 response itself when the budget is exhausted.
func allowRequest(w http.ResponseWriter, r *http.Request, limiter rateLimiter, scope string) bool {
	if limiter == nil {
		return true
	}
	ip := requestctx.ClientIP(r.Context())
	if ip == "" {
		ip = r.RemoteAddr
	}
	if limiter.Allow(scope + ":" + ip) {
		return true
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
	return false
}
