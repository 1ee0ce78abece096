package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// bucketExpiry is how long an idle bucket is kept.
const bucketExpiry = 10 * time.Minute

// RateLimitConfig configures a RateLimiter. A zero RequestsPerMinute
// disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int
	BurstSize         int
}

// RateLimiter implements token bucket rate limiting per key.
type RateLimiter struct {
	buckets     map[string]*tokenBucket
	bucketMutex sync.Mutex
	config      RateLimitConfig
	now         func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimitResult is the outcome of one Check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// NewRateLimiter creates a rate limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.BurstSize <= 0 {
		config.BurstSize = 1
	}
	rl := &RateLimiter{
		buckets: make(map[string]*tokenBucket),
		config:  config,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go rl.cleanup(5 * time.Minute)
	return rl
}

// Check consumes a token for key.
func (rl *RateLimiter) Check(key string) RateLimitResult {
	if rl.config.RequestsPerMinute <= 0 {
		return RateLimitResult{Allowed: true, Remaining: rl.config.BurstSize}
	}

	rl.bucketMutex.Lock()
	defer rl.bucketMutex.Unlock()

	now := rl.now()
	bucket, ok := rl.buckets[key]
	if !ok {
		bucket = &tokenBucket{tokens: float64(rl.config.BurstSize), lastRefill: now}
		rl.buckets[key] = bucket
	}

	perToken := time.Minute / time.Duration(rl.config.RequestsPerMinute)
	if elapsed := now.Sub(bucket.lastRefill); elapsed > 0 {
		bucket.tokens += float64(elapsed) / float64(perToken)
		if bucket.tokens > float64(rl.config.BurstSize) {
			bucket.tokens = float64(rl.config.BurstSize)
		}
		bucket.lastRefill = now
	}

	if bucket.tokens >= 1 {
		bucket.tokens--
		return RateLimitResult{Allowed: true, Remaining: int(bucket.tokens)}
	}

	missing := 1 - bucket.tokens
	return RateLimitResult{RetryAfter: time.Duration(missing * float64(perToken))}
}

// Len returns the number of tracked keys.
func (rl *RateLimiter) Len() int {
	rl.bucketMutex.Lock()
	defer rl.bucketMutex.Unlock()
	return len(rl.buckets)
}

func (rl *RateLimiter) cleanup(every time.Duration) {
	defer close(rl.done)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.performCleanup()
		case <-rl.stop:
			return
		}
	}
}

// performCleanup drops buckets that have not been used recently.
func (rl *RateLimiter) performCleanup() {
	rl.bucketMutex.Lock()
	defer rl.bucketMutex.Unlock()

	now := rl.now()
	for key, bucket := range rl.buckets {
		if now.Sub(bucket.lastRefill) > bucketExpiry {
			delete(rl.buckets, key)
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to exit.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
	<-rl.done
}

// clientIP extracts the client address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
