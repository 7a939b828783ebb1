package api

import (
	"errors"
	"log"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RouteClass splits HTTP traffic into separate per-IP budgets so a client
// polling frames cannot spend the tokens its moves need
type RouteClass int

const (
	ReadRoutes    RouteClass = iota // GET state, frames, sounds
	CommandRoutes                   // POST start, move, dash, grid, spawn
)

func (c RouteClass) String() string {
	if c == CommandRoutes {
		return "command"
	}
	return "read"
}

// ClassOf maps a request to its budget by method
func ClassOf(r *http.Request) RouteClass {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ReadRoutes
	}
	return CommandRoutes
}

// Budget is one token bucket
type Budget struct {
	PerSecond float64
	Burst     int
}

// retryAfter is the whole seconds until the bucket refills one token
func (b Budget) retryAfter() int {
	if b.PerSecond <= 0 {
		return 60
	}
	secs := int(math.Ceil(1 / b.PerSecond))
	if secs < 1 {
		return 1
	}
	if secs > 60 {
		return 60
	}
	return secs
}

// RateLimitConfig configures the per-IP HTTP limiter
type RateLimitConfig struct {
	Read            Budget        // polling routes
	Command         Budget        // input routes
	CleanupInterval time.Duration // idle IPs are forgotten after twice this
}

// DefaultRateLimitConfig allows a browser polling frames at 10 fps plus
// state, with room for a player mashing arrows
var DefaultRateLimitConfig = RateLimitConfig{
	Read:            Budget{PerSecond: 20, Burst: 40},
	Command:         Budget{PerSecond: 15, Burst: 15},
	CleanupInterval: 5 * time.Minute,
}

type ipBuckets struct {
	buckets  [2]*rate.Limiter // indexed by RouteClass
	lastSeen atomic.Int64     // unix nanos
}

// IPRateLimiter keeps a read and a command bucket per client IP
type IPRateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*ipBuckets
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once

	allowed  [2]atomic.Uint64
	rejected [2]atomic.Uint64
}

// NewIPRateLimiter creates the limiter and starts its idle sweep
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		clients:  make(map[string]*ipBuckets),
		config:   cfg,
		stopChan: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the sweep goroutine
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *IPRateLimiter) budget(class RouteClass) Budget {
	if class == CommandRoutes {
		return rl.config.Command
	}
	return rl.config.Read
}

func (rl *IPRateLimiter) bucketsFor(ip string, now time.Time) *ipBuckets {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[ip]
	if !ok {
		b = &ipBuckets{}
		for _, class := range []RouteClass{ReadRoutes, CommandRoutes} {
			budget := rl.budget(class)
			b.buckets[class] = rate.NewLimiter(rate.Limit(budget.PerSecond), budget.Burst)
		}
		rl.clients[ip] = b
	}
	b.lastSeen.Store(now.UnixNano())
	return b
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case now := <-ticker.C:
			rl.prune(now)
		}
	}
}

// prune forgets IPs idle for two cleanup intervals
func (rl *IPRateLimiter) prune(now time.Time) {
	cutoff := now.Add(-2 * rl.config.CleanupInterval).UnixNano()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, b := range rl.clients {
		if b.lastSeen.Load() < cutoff {
			delete(rl.clients, ip)
		}
	}
}

// Allow spends one token from ip's bucket for class
func (rl *IPRateLimiter) Allow(ip string, class RouteClass) bool {
	now := time.Now()
	if rl.bucketsFor(ip, now).buckets[class].AllowN(now, 1) {
		rl.allowed[class].Add(1)
		return true
	}
	rl.rejected[class].Add(1)
	return false
}

// Clients returns how many IPs are tracked
func (rl *IPRateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Middleware rejects over-budget requests with 429 and a Retry-After
// derived from the class refill rate
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := ClassOf(r)
		if !rl.Allow(GetClientIP(r), class) {
			RecordConnectionRejected("rate_limit_" + class.String())
			w.Header().Set("Retry-After", strconv.Itoa(rl.budget(class).retryAfter()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns allowed and rejected counts per class
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	stats := make(map[string]uint64, 5)
	for _, class := range []RouteClass{ReadRoutes, CommandRoutes} {
		stats[class.String()+"_allowed"] = rl.allowed[class].Load()
		stats[class.String()+"_rejected"] = rl.rejected[class].Load()
	}
	stats["clients"] = uint64(rl.Clients())
	return stats
}

// GetClientIP extracts the client IP from an HTTP request
// Handles X-Forwarded-For header for proxied requests
func GetClientIP(r *http.Request) string {
	// Check X-Forwarded-For for proxied requests
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take first IP (original client IP)
		// CAUTION: This can be spoofed if not behind a trusted proxy
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	// Check X-Real-IP header
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	// Fall back to RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

var (
	errArenaFull = errors.New("arena is full")
	errIPLimit   = errors.New("too many connections from your IP")
)

// ConnLimiter caps concurrent sockets in total and per IP
type ConnLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	total    int
	maxPerIP int
	maxTotal int
	rejected atomic.Uint64
}

// NewConnLimiter creates a socket limiter
func NewConnLimiter(maxPerIP, maxTotal int) *ConnLimiter {
	return &ConnLimiter{
		perIP:    make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// Acquire reserves a slot for ip. Callers must Release it when the socket
// closes, or right away if the upgrade fails.
func (l *ConnLimiter) Acquire(ip string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.total >= l.maxTotal:
		l.rejected.Add(1)
		return errArenaFull
	case l.perIP[ip] >= l.maxPerIP:
		l.rejected.Add(1)
		return errIPLimit
	}
	l.perIP[ip]++
	l.total++
	return nil
}

// Release frees a slot taken by Acquire
func (l *ConnLimiter) Release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n, ok := l.perIP[ip]
	if !ok {
		return
	}
	if n <= 1 {
		delete(l.perIP, ip)
	} else {
		l.perIP[ip] = n - 1
	}
	l.total--
}

// Count returns the open sockets for ip
func (l *ConnLimiter) Count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}

// Total returns all open sockets
func (l *ConnLimiter) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// GetStats returns socket limiter statistics
func (l *ConnLimiter) GetStats() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return map[string]uint64{
		"open":     uint64(l.total),
		"ips":      uint64(len(l.perIP)),
		"rejected": l.rejected.Load(),
	}
}

// DefaultAllowedOrigins are the browser origins accepted for CORS and WebSocket
var DefaultAllowedOrigins = []string{
	"http://localhost:*",
	"http://127.0.0.1:*",
}

// OriginPolicy decides which browser origins may open a socket.
// Patterns are exact origins, or use "*" for a port ("http://localhost:*")
// or a subdomain ("https://*.example.com").
type OriginPolicy struct {
	Allowed []string
}

// Check implements websocket.Upgrader.CheckOrigin. Requests without an
// Origin header come from non-browser clients and are accepted.
func (p OriginPolicy) Check(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if p.IsAllowed(origin) {
		return true
	}
	log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
	RecordConnectionRejected("origin")
	return false
}

// IsAllowed checks an origin against the patterns
func (p OriginPolicy) IsAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	allowed := p.Allowed
	if allowed == nil {
		allowed = DefaultAllowedOrigins
	}
	for _, pattern := range allowed {
		if matchOrigin(pattern, origin) {
			return true
		}
	}
	return false
}

func matchOrigin(pattern, origin string) bool {
	if pattern == "*" || pattern == origin {
		return true
	}
	star := strings.Index(pattern, "*")
	if star < 0 {
		return false
	}
	prefix, suffix := pattern[:star], pattern[star+1:]
	if len(origin) <= len(prefix)+len(suffix) {
		return false
	}
	if !strings.HasPrefix(origin, prefix) || !strings.HasSuffix(origin, suffix) {
		return false
	}
	// the wildcard covers one port or one host label, never a path or scheme
	middle := origin[len(prefix) : len(origin)-len(suffix)]
	return !strings.ContainsAny(middle, "/.:")
}
