// Package ratelimit provides rate limiting functionality using a token
// bucket per client.
package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// TokenBucket allows a number of requests per window, with tokens refilling
// at a steady rate.
type TokenBucket struct {
	capacity   int
	refillRate float64 // tokens per second
	tokens     float64
	lastRefill time.Time
	mu         sync.Mutex
}

func newTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: time.Now(),
	}
}

// allow checks if a token is available and consumes it if so.
func (tb *TokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)
	tb.tokens = min(float64(tb.capacity), tb.tokens+elapsed.Seconds()*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled bool
	// Limit is requests per Window for each client IP.
	Limit  int
	Window time.Duration
	// ExpensiveLimit applies to job-creating POST routes.
	ExpensiveLimit  int
	CleanupInterval time.Duration
}

// Limiter manages per-client token buckets.
type Limiter struct {
	config *Config

	mu         sync.Mutex
	buckets    map[string]*TokenBucket
	lastAccess map[string]time.Time

	cleanupStop chan struct{}
	stopOnce    sync.Once
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = LoadConfig()
	}
	l := &Limiter{
		config:      config,
		buckets:     make(map[string]*TokenBucket),
		lastAccess:  make(map[string]time.Time),
		cleanupStop: make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// cleanupLoop drops buckets for clients not seen in a while so the map does
// not grow without bound.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.cleanupStop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * l.config.CleanupInterval)
			l.mu.Lock()
			for client, seen := range l.lastAccess {
				if seen.Before(cutoff) {
					delete(l.buckets, client)
					delete(l.lastAccess, client)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop ends the cleanup loop.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.cleanupStop) })
}

// bucketFor returns (creating if needed) the bucket for a client and bucket
// key, marking the access time.
func (l *Limiter) bucketFor(client, key string, limit int, window time.Duration) *TokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := client + "|" + key
	bucket, ok := l.buckets[id]
	if !ok {
		bucket = newTokenBucket(limit, float64(limit)/window.Seconds())
		l.buckets[id] = bucket
	}
	l.lastAccess[id] = time.Now()
	return bucket
}

// expensive reports whether a request starts a detached job.
func expensive(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}
	switch r.URL.Path {
	case "/briefs/generate", "/reports", "/research":
		return true
	}
	// /research/{id}/synthesize launches a detached job too.
	if strings.HasPrefix(r.URL.Path, "/research/") && strings.HasSuffix(r.URL.Path, "/synthesize") {
		return true
	}
	return false
}

// Middleware wraps next with per-client rate limiting.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.config.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		client, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			client = r.RemoteAddr
		}

		limit := l.config.Limit
		key := "default"
		if expensive(r) {
			limit = l.config.ExpensiveLimit
			key = "expensive"
		}

		if !l.bucketFor(client, key, limit, l.config.Window).allow() {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.config.Window.Seconds())))
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
