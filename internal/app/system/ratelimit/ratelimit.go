// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter provides rate limiting using a sliding window algorithm.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // max requests per window
	duration time.Duration // window duration
	cleanup  time.Duration // how often to clean old entries
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a new rate limiter.
// limit: maximum requests allowed per duration
// duration: the time window for counting requests
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		cleanup:  duration * 2,
	}
	go l.cleanupLoop()
	return l
}

// Allow checks if a request from the given key should be allowed.
// Returns true if allowed, false if rate limited.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]

	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{
			count:     1,
			expiresAt: now.Add(l.duration),
		}
		return true
	}

	if w.count >= l.limit {
		return false
	}

	w.count++
	return true
}

// Remaining returns how many requests are left for this key in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]

	if !exists || now.After(w.expiresAt) {
		return l.limit
	}

	remaining := l.limit - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the rate limit for a specific key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// cleanupLoop periodically removes expired entries to prevent memory leaks.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, w := range l.windows {
			if now.After(w.expiresAt) {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}

// ClientIP extracts the client IP from an HTTP request.
// It checks X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// ScanLimiter throttles denied authorization attempts at the gate. Short
// codes are only 8 characters; without a throttle a hostile client could
// enumerate them. It tracks both IP-based and per-actor limits so neither a
// single station nor a distributed probe gets unbounded guesses.
//
// Only denials count against the limits: Record is called after a rejected
// attempt, and a granted attempt resets the actor's window.
type ScanLimiter struct {
	ipLimiter    *Limiter
	actorLimiter *Limiter
}

// NewScanLimiter creates a limiter configured for gate protection.
// Defaults: 30 denied attempts per IP per minute, 10 per actor per minute.
func NewScanLimiter() *ScanLimiter {
	return &ScanLimiter{
		ipLimiter:    New(30, time.Minute),
		actorLimiter: New(10, time.Minute),
	}
}

// NewScanLimiterWithConfig creates a scan limiter with custom limits.
func NewScanLimiterWithConfig(ipLimit int, ipDuration time.Duration, actorLimit int, actorDuration time.Duration) *ScanLimiter {
	return &ScanLimiter{
		ipLimiter:    New(ipLimit, ipDuration),
		actorLimiter: New(actorLimit, actorDuration),
	}
}

// Blocked reports whether the attempt should be rejected outright because
// the IP or actor already burned through their denial budget.
func (sl *ScanLimiter) Blocked(r *http.Request, actorKey string) bool {
	if sl.ipLimiter.Remaining(ClientIP(r)) == 0 {
		return true
	}
	if actorKey != "" && sl.actorLimiter.Remaining(actorKey) == 0 {
		return true
	}
	return false
}

// Record counts one denied attempt against both windows.
func (sl *ScanLimiter) Record(r *http.Request, actorKey string) {
	sl.ipLimiter.Allow(ClientIP(r))
	if actorKey != "" {
		sl.actorLimiter.Allow(actorKey)
	}
}

// ResetActor clears the actor's window after a granted attempt, so a guard
// with a stack of valid passes and the odd typo never locks themselves out.
func (sl *ScanLimiter) ResetActor(actorKey string) {
	if actorKey != "" {
		sl.actorLimiter.Reset(actorKey)
	}
}
