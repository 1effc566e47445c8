package middleware

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"switchboard-hq/switchboard/pkg/config"
	"switchboard-hq/switchboard/pkg/proxy/types"
)

// slidingWindow is a bucketed rolling counter. Old buckets outside the
// window are pruned on every access, which avoids the reset spike of fixed
// windows while bounding memory to window/bucketSize buckets.
type slidingWindow struct {
	window     time.Duration
	bucketSize time.Duration
	buckets    []windowBucket
}

type windowBucket struct {
	timestamp time.Time
	count     int64
}

// newSlidingWindow creates a rolling counter over the given window with the
// given bucket granularity.
func newSlidingWindow(window, bucketSize time.Duration) *slidingWindow {
	n := int(window / bucketSize)
	if n == 0 {
		n = 1
	}
	return &slidingWindow{
		window:     window,
		bucketSize: bucketSize,
		buckets:    make([]windowBucket, n),
	}
}

// add counts one request at time now.
func (sw *slidingWindow) add(now time.Time) {
	sw.prune(now)
	slot := sw.slot(now)
	if !sw.buckets[slot].timestamp.Truncate(sw.bucketSize).Equal(now.Truncate(sw.bucketSize)) {
		sw.buckets[slot] = windowBucket{timestamp: now}
	}
	sw.buckets[slot].count++
}

// sum returns the total count inside the window at time now.
func (sw *slidingWindow) sum(now time.Time) int64 {
	sw.prune(now)
	var total int64
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() {
			total += sw.buckets[i].count
		}
	}
	return total
}

// prune clears buckets older than the window.
func (sw *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.window)
	for i := range sw.buckets {
		if !sw.buckets[i].timestamp.IsZero() && sw.buckets[i].timestamp.Before(cutoff) {
			sw.buckets[i] = windowBucket{}
		}
	}
}

// slot maps now onto a circular bucket index.
func (sw *slidingWindow) slot(now time.Time) int {
	return int(now.UnixNano()/int64(sw.bucketSize)) % len(sw.buckets)
}

// clientWindows holds the three quota windows for one client.
type clientWindows struct {
	burst    *slidingWindow
	minute   *slidingWindow
	hour     *slidingWindow
	lastSeen time.Time
}

// RateLimiter enforces per-client request quotas over rolling windows:
// a ten-second burst limit, a one-minute limit, and a one-hour limit.
// Clients are keyed by IP.
type RateLimiter struct {
	cfg     config.RateLimitConfig
	mu      sync.Mutex
	clients map[string]*clientWindows
	logger  *slog.Logger
}

// staleClientAge is how long an idle client entry survives before pruning.
const staleClientAge = 2 * time.Hour

// NewRateLimiter creates a limiter from configuration.
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		clients: make(map[string]*clientWindows),
		logger:  slog.Default().With("component", "middleware.ratelimit"),
	}
}

// Allow checks and counts one request for the client. It returns false with
// the violated quota's name when the request must be rejected.
func (rl *RateLimiter) Allow(client string) (bool, string) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cw, ok := rl.clients[client]
	if !ok {
		cw = &clientWindows{
			burst:  newSlidingWindow(10*time.Second, time.Second),
			minute: newSlidingWindow(time.Minute, time.Second),
			hour:   newSlidingWindow(time.Hour, time.Minute),
		}
		cw.lastSeen = now
		rl.clients[client] = cw
		rl.pruneStaleLocked(now)
	}
	cw.lastSeen = now

	switch {
	case cw.burst.sum(now) >= int64(rl.cfg.BurstLimit):
		return false, "burst"
	case cw.minute.sum(now) >= int64(rl.cfg.RequestsPerMinute):
		return false, "per_minute"
	case cw.hour.sum(now) >= int64(rl.cfg.RequestsPerHour):
		return false, "per_hour"
	}

	cw.burst.add(now)
	cw.minute.add(now)
	cw.hour.add(now)
	return true, ""
}

// pruneStaleLocked drops clients idle past staleClientAge. Called under the
// limiter mutex when a new client is admitted, which bounds map growth to
// active traffic.
func (rl *RateLimiter) pruneStaleLocked(now time.Time) {
	for client, cw := range rl.clients {
		if now.Sub(cw.lastSeen) > staleClientAge {
			delete(rl.clients, client)
		}
	}
}

// exemptPaths skips operational endpoints so probes and scrapes are never
// throttled.
var exemptPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// RateLimitMiddleware rejects requests over quota with 429 in the uniform
// error format.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exemptPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			client := clientIP(r)
			allowed, quota := limiter.Allow(client)
			if !allowed {
				limiter.logger.Warn("rate limit exceeded",
					"client", client,
					"quota", quota,
					"path", r.URL.Path,
					"request_id", GetRequestID(r.Context()),
				)

				errResp := types.NewError(types.KindRateLimited,
					types.CodeRateLimitExceeded,
					"Rate limit exceeded: "+quota).Response()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				writeJSONBody(w, errResp)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the client address, preferring X-Forwarded-For when a
// proxy sits in front.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeJSONBody encodes a JSON body on an already-written header.
func writeJSONBody(w http.ResponseWriter, data interface{}) {
	_ = json.NewEncoder(w).Encode(data)
}
