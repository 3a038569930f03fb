package server

import (
	"sync"
	"time"
)

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	MaxRequests int           // Maximum requests per window (default: 120)
	Window      time.Duration // Sliding window length (default: 1 minute)
}

// DefaultRateLimitConfig returns the default rate limiting configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxRequests: 120,
		Window:      time.Minute,
	}
}

// rateLimiter is a sliding window limiter keyed by client IP.
type rateLimiter struct {
	mu     sync.Mutex
	config RateLimitConfig
	now    func() time.Time

	// requests holds request timestamps per IP, oldest first.
	requests map[string][]time.Time
}

func newRateLimiter(config RateLimitConfig) *rateLimiter {
	def := DefaultRateLimitConfig()
	if config.MaxRequests <= 0 {
		config.MaxRequests = def.MaxRequests
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	return &rateLimiter{
		config:   config,
		now:      time.Now,
		requests: make(map[string][]time.Time),
	}
}

// checkResult is the outcome of a rate limit check.
type checkResult struct {
	Allowed    bool
	RetryAfter time.Duration
	Attempts   int
}

// check records a request from ip and reports whether it may proceed.
func (rl *rateLimiter) check(ip string) checkResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	recent := prune(rl.requests[ip], now.Add(-rl.config.Window))
	rl.requests[ip] = recent

	if len(recent) >= rl.config.MaxRequests {
		retryAfter := recent[0].Add(rl.config.Window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return checkResult{RetryAfter: retryAfter, Attempts: len(recent)}
	}

	rl.requests[ip] = append(recent, now)
	return checkResult{Allowed: true, Attempts: len(recent) + 1}
}

// cleanup drops IPs with no requests inside the window.
func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	windowStart := rl.now().Add(-rl.config.Window)
	for ip, ts := range rl.requests {
		if recent := prune(ts, windowStart); len(recent) == 0 {
			delete(rl.requests, ip)
		} else {
			rl.requests[ip] = recent
		}
	}
}

// prune returns the timestamps after windowStart.
func prune(ts []time.Time, windowStart time.Time) []time.Time {
	i := 0
	for i < len(ts) && !ts[i].After(windowStart) {
		i++
	}
	return ts[i:]
}
