package input

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter implements per-source command rate limiting
type RateLimiter struct {
	mu       sync.Mutex
	sources  map[string]*sourceLimit
	config   RateLimitConfig
	stopChan chan struct{}
	stopOnce sync.Once
}

type sourceLimit struct {
	limiter *rate.Limiter
	lastCmd time.Time
}

// RateLimitConfig configures rate limiting behavior
type RateLimitConfig struct {
	PerSecond float64       // sustained commands per second
	Burst     int           // commands allowed at once
	IdleTTL   time.Duration // forget sources idle this long
}

// DefaultRateLimitConfig allows a held arrow key plus some mashing
var DefaultRateLimitConfig = RateLimitConfig{
	PerSecond: 30,
	Burst:     10,
	IdleTTL:   5 * time.Minute,
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = DefaultRateLimitConfig.PerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultRateLimitConfig.Burst
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultRateLimitConfig.IdleTTL
	}
	rl := &RateLimiter{
		sources:  make(map[string]*sourceLimit),
		config:   cfg,
		stopChan: make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a source can execute a command
func (rl *RateLimiter) Allow(source string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limit, exists := rl.sources[source]
	if !exists {
		limit = &sourceLimit{limiter: rate.NewLimiter(rate.Limit(rl.config.PerSecond), rl.config.Burst)}
		rl.sources[source] = limit
	}
	limit.lastCmd = time.Now()
	return limit.limiter.Allow()
}

// Sources returns the number of tracked sources
func (rl *RateLimiter) Sources() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.sources)
}

// Stop ends the cleanup goroutine
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

// cleanup removes idle entries every minute
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
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

func (rl *RateLimiter) prune(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := now.Add(-rl.config.IdleTTL)
	for key, limit := range rl.sources {
		if limit.lastCmd.Before(cutoff) {
			delete(rl.sources, key)
		}
	}
}
