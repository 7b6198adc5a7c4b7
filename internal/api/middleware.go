package api

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ratedesk/internal/metrics"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// metricPath collapses IDs so metric label cardinality stays bounded.
func metricPath(p string) string {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i, seg := range parts {
		if i >= 2 && seg != "" && seg != "events" && seg != "stream" && seg != "ws" {
			parts[i] = ":id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

// MetricsMiddleware records request counts and durations.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		status := fmt.Sprintf("%d", rec.status)
		path := metricPath(r.URL.Path)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

// clientLimiter hands out one token bucket per caller, keyed by carrier
// header when present, remote IP otherwise. Idle entries are dropped after
// an hour so the map does not grow without bound.
type clientLimiter struct {
	mu      sync.Mutex
	clients map[string]*limiterEntry
	rps     rate.Limit
	burst   int
}

type limiterEntry struct {
	lim  *rate.Limiter
	seen time.Time
}

func newClientLimiter(rps float64, burst int) *clientLimiter {
	cl := &clientLimiter{
		clients: make(map[string]*limiterEntry),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
	go cl.reap()
	return cl
}

func (c *clientLimiter) reap() {
	for range time.Tick(10 * time.Minute) {
		c.mu.Lock()
		for k, e := range c.clients {
			if time.Since(e.seen) > time.Hour {
				delete(c.clients, k)
			}
		}
		c.mu.Unlock()
	}
}

func (c *clientLimiter) allow(key string) bool {
	c.mu.Lock()
	e, ok := c.clients[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(c.rps, c.burst)}
		c.clients[key] = e
	}
	e.seen = time.Now()
	c.mu.Unlock()
	return e.lim.Allow()
}

func clientKey(r *http.Request) string {
	if carrier := r.Header.Get("X-Carrier-Id"); carrier != "" {
		return "carrier:" + carrier
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware enforces a per-client request rate. Tunable via
// RATE_LIMIT_RPS and RATE_LIMIT_BURST; 0 RPS disables limiting.
func RateLimitMiddleware(next http.Handler) http.Handler {
	rps := 50.0
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		fmt.Sscanf(v, "%f", &rps)
	}
	burst := 100
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		fmt.Sscanf(v, "%d", &burst)
	}
	if rps <= 0 {
		return next
	}
	cl := newClientLimiter(rps, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !cl.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}
