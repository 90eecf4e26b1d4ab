package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// limiter tracks fixed-window request counts per client IP. Windows are
// pruned opportunistically so one chatty client cannot grow the map forever.
type limiter struct {
	limit  int
	window time.Duration

	mu        sync.Mutex
	windows   map[string]*requestWindow
	lastPrune time.Time
}

type requestWindow struct {
	count   int
	resetAt time.Time
}

// RateLimit caps requests per client IP within a fixed window. Generation
// requests are long-lived; the cap guards the upstream model quota, not
// server concurrency.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	l := &limiter{
		limit:   limit,
		window:  per,
		windows: make(map[string]*requestWindow),
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if retryAfter, ok := l.allow(clientIP(r), time.Now()); !ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())+1))
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// allow records one request for the client and reports whether it fits in
// the current window. When it does not, it returns the time until reset.
func (l *limiter) allow(ip string, now time.Time) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)

	win, ok := l.windows[ip]
	if !ok || now.After(win.resetAt) {
		win = &requestWindow{resetAt: now.Add(l.window)}
		l.windows[ip] = win
	}
	if win.count >= l.limit {
		return time.Until(win.resetAt), false
	}
	win.count++
	return 0, true
}

func (l *limiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.window {
		return
	}
	l.lastPrune = now
	for ip, win := range l.windows {
		if now.After(win.resetAt) {
			delete(l.windows, ip)
		}
	}
}
