// Package ratelimit provides DoS protection for the edge process's
// WebSocket upgrade endpoint: a per-IP token bucket layered under a
// system-wide one, so a single abusive client can't starve everyone else
// and a distributed flood still hits a global ceiling.
package ratelimit

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Config holds the token-bucket parameters for both limiter levels.
type Config struct {
	IPBurst int           // max burst connection attempts per IP
	IPRate  float64       // sustained connection attempts/sec per IP
	IPTTL   time.Duration // forget an IP's bucket after this long idle

	GlobalBurst int     // max burst connection attempts system-wide
	GlobalRate  float64 // sustained connection attempts/sec system-wide
}

// DefaultConfig returns sane defaults for a single edge instance.
func DefaultConfig() Config {
	return Config{
		IPBurst:     10,
		IPRate:      1.0,
		IPTTL:       5 * time.Minute,
		GlobalBurst: 300,
		GlobalRate:  50.0,
	}
}

type ipBucket struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// ConnectionLimiter is a two-level token bucket: per-IP and global.
type ConnectionLimiter struct {
	cfg Config

	mu      sync.RWMutex
	buckets map[string]*ipBucket

	global *rate.Limiter
	logger zerolog.Logger

	stopCleanup chan struct{}
}

// New builds a ConnectionLimiter and starts its background cleanup loop,
// which evicts IP buckets idle longer than cfg.IPTTL.
func New(cfg Config, logger zerolog.Logger) *ConnectionLimiter {
	cl := &ConnectionLimiter{
		cfg:         cfg,
		buckets:     make(map[string]*ipBucket),
		global:      rate.NewLimiter(rate.Limit(cfg.GlobalRate), cfg.GlobalBurst),
		logger:      logger.With().Str("component", "connection_limiter").Logger(),
		stopCleanup: make(chan struct{}),
	}
	go cl.cleanupLoop()

	cl.logger.Info().
		Float64("ip_rate", cfg.IPRate).
		Int("ip_burst", cfg.IPBurst).
		Float64("global_rate", cfg.GlobalRate).
		Int("global_burst", cfg.GlobalBurst).
		Msg("connection limiter initialized")

	return cl
}

// Allow reports whether a new connection attempt from ip should proceed.
// Checks the global bucket first so a single hot IP can't mask a
// system-wide flood from the cheaper check.
func (cl *ConnectionLimiter) Allow(ip string) bool {
	if !cl.global.Allow() {
		cl.logger.Debug().Str("ip", ip).Msg("rejected: global rate limit exceeded")
		return false
	}
	if !cl.ipLimiter(ip).Allow() {
		cl.logger.Debug().Str("ip", ip).Msg("rejected: per-IP rate limit exceeded")
		return false
	}
	return true
}

func (cl *ConnectionLimiter) ipLimiter(ip string) *rate.Limiter {
	cl.mu.RLock()
	bucket, ok := cl.buckets[ip]
	cl.mu.RUnlock()
	if ok {
		cl.mu.Lock()
		bucket.lastAccess = time.Now()
		cl.mu.Unlock()
		return bucket.limiter
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if bucket, ok = cl.buckets[ip]; ok {
		bucket.lastAccess = time.Now()
		return bucket.limiter
	}
	bucket = &ipBucket{
		limiter:    rate.NewLimiter(rate.Limit(cl.cfg.IPRate), cl.cfg.IPBurst),
		lastAccess: time.Now(),
	}
	cl.buckets[ip] = bucket
	return bucket.limiter
}

func (cl *ConnectionLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cl.cleanup()
		case <-cl.stopCleanup:
			return
		}
	}
}

func (cl *ConnectionLimiter) cleanup() {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	now := time.Now()
	for ip, bucket := range cl.buckets {
		if now.Sub(bucket.lastAccess) > cl.cfg.IPTTL {
			delete(cl.buckets, ip)
		}
	}
}

// Stop ends the cleanup loop. Safe to call once during shutdown.
func (cl *ConnectionLimiter) Stop() {
	close(cl.stopCleanup)
}

// TrackedIPs returns the number of IP buckets currently held, for
// diagnostics.
func (cl *ConnectionLimiter) TrackedIPs() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.buckets)
}
