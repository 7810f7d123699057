package auth

import (
	"strings"
	"sync"
	"time"
)

// RateLimiter throttles login attempts per client IP and login name, so one
// student mistyping a password does not lock out the rest of a shared campus NAT.
type RateLimiter struct {
	mu       sync.RWMutex
	attempts map[string]*attemptRecord
	cfg      RateLimitConfig
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

func (r *attemptRecord) lockedAt(now time.Time) bool {
	return !r.lockedUntil.IsZero() && now.Before(r.lockedUntil)
}

// RateLimitConfig is filled from the AUTH_* settings. Zero values pick defaults:
// 5 attempts in 15 minutes, a 30 minute lockout, and a 5 minute sweep.
type RateLimitConfig struct {
	MaxAttempts     int
	WindowDuration  time.Duration
	LockoutDuration time.Duration
	CleanupInterval time.Duration
}

func (c *RateLimitConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = 15 * time.Minute
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = 30 * time.Minute
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
}

// NewRateLimiter starts a limiter and its background sweep. Call Stop when done.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	cfg.applyDefaults()
	rl := &RateLimiter{
		attempts: make(map[string]*attemptRecord),
		cfg:      cfg,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the background sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Logins are case-insensitive, so the key is too.
func rateLimitKey(ip, login string) string {
	return ip + ":" + strings.ToLower(strings.TrimSpace(login))
}

// Allow reports whether another attempt may be made, and if not, how long to wait.
func (rl *RateLimiter) Allow(ip, login string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.RLock()
	defer rl.mu.RUnlock()

	record, ok := rl.attempts[rateLimitKey(ip, login)]
	switch {
	case !ok:
		return true, 0
	case record.lockedAt(now):
		return false, record.lockedUntil.Sub(now)
	case now.Sub(record.firstAttempt) > rl.cfg.WindowDuration:
		return true, 0
	case record.count < rl.cfg.MaxAttempts:
		return true, 0
	}
	return false, rl.cfg.LockoutDuration
}

// RecordFailure counts a failed login and reports whether it triggered a lockout.
func (rl *RateLimiter) RecordFailure(ip, login string) (bool, time.Duration) {
	key := rateLimitKey(ip, login)
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, ok := rl.attempts[key]
	if !ok || now.Sub(record.firstAttempt) > rl.cfg.WindowDuration {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[key] = record
	}

	record.count++
	if record.count < rl.cfg.MaxAttempts {
		return false, 0
	}
	record.lockedUntil = now.Add(rl.cfg.LockoutDuration)
	return true, rl.cfg.LockoutDuration
}

// RecordSuccess forgets earlier failures for the pair.
func (rl *RateLimiter) RecordSuccess(ip, login string) {
	rl.mu.Lock()
	delete(rl.attempts, rateLimitKey(ip, login))
	rl.mu.Unlock()
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

// sweep drops records whose window and lockout have both passed.
func (rl *RateLimiter) sweep() {
	now := rl.now()
	expiry := rl.cfg.WindowDuration + rl.cfg.LockoutDuration

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, record := range rl.attempts {
		if now.Sub(record.firstAttempt) > expiry && !record.lockedAt(now) {
			delete(rl.attempts, key)
		}
	}
}
