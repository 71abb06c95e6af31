package middleware

import (
	"net/http"
	"sync"
	"time"
)

// RateLimit caps request throughput per client IP across the dictation
// API group. Each client gets a token bucket of size burst refilled at
// perSecond tokens per second; a request that finds its bucket empty is
// rejected with 429. The router wires the values from config
// (RATE_LIMIT_RPS, RATE_LIMIT_BURST).
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	lim := newClientLimiter(perSecond, burst)
	go lim.evictIdle()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !lim.take(clientIP(r)) {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP trusts X-Real-Ip when present; chi's RealIP middleware sets it
// from the proxy headers ahead of this one.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-Ip"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// clientLimiter tracks one token bucket per client IP.
type clientLimiter struct {
	mu        sync.Mutex
	perSecond float64
	burst     float64
	clients   map[string]*tokenBucket
	now       func() time.Time
}

type tokenBucket struct {
	remaining float64
	refilled  time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	return &clientLimiter{
		perSecond: perSecond,
		burst:     float64(burst),
		clients:   make(map[string]*tokenBucket),
		now:       time.Now,
	}
}

// take refills the caller's bucket for the time elapsed since its last
// request, then spends one token. It reports false when the bucket is
// empty.
func (l *clientLimiter) take(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.clients[ip]
	if !ok {
		l.clients[ip] = &tokenBucket{remaining: l.burst - 1, refilled: now}
		return true
	}

	b.remaining += now.Sub(b.refilled).Seconds() * l.perSecond
	if b.remaining > l.burst {
		b.remaining = l.burst
	}
	b.refilled = now

	if b.remaining < 1 {
		return false
	}
	b.remaining--
	return true
}

// evictIdle drops buckets for clients that have gone quiet so the map
// does not grow without bound.
func (l *clientLimiter) evictIdle() {
	const (
		sweepEvery = 2 * time.Minute
		idleAfter  = 10 * time.Minute
	)
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		stale := l.now().Add(-idleAfter)
		for ip, b := range l.clients {
			if b.refilled.Before(stale) {
				delete(l.clients, ip)
			}
		}
		l.mu.Unlock()
	}
}
