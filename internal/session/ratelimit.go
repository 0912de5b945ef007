package session

import (
	"sync"
	"time"
)

// rateLimiter is a per-session token bucket refilled once a second,
// bounding how many player actions one session may submit per second
// before ErrCodeRateLimited is returned. A nil *rateLimiter always allows,
// so a zero RateLimitPerSecond disables limiting entirely.
type rateLimiter struct {
	mu       sync.Mutex
	perSec   int
	tokens   int
	lastFill time.Time
}

func newRateLimiter(perSec int) *rateLimiter {
	if perSec <= 0 {
		return nil
	}
	return &rateLimiter{perSec: perSec, tokens: perSec, lastFill: time.Now()}
}

// Allow reports whether the caller may proceed, consuming a token if so.
func (r *rateLimiter) Allow() bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if now := time.Now(); now.Sub(r.lastFill) >= time.Second {
		r.tokens = r.perSec
		r.lastFill = now
	}
	if r.tokens <= 0 {
		return false
	}
	r.tokens--
	return true
}
