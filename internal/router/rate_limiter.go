package router

import (
	"sync"
	"time"
)

// DefaultMessagesPerMinute bounds a single connection's send rate.
// FUNCTIONAL DISCOVERY: Drawing produces far more events than chat; 240/min
// covers continuous freehand strokes while still catching runaway clients
const DefaultMessagesPerMinute = 240

// RateLimiter implements per-connection rate limiting
// ARCHITECTURAL DISCOVERY: Per-connection state tracking with periodic
// cleanup prevents memory leaks as connections churn
type RateLimiter struct {
	mu        sync.Mutex
	perMinute int
	clients   map[string]*clientLimit
}

// clientLimit tracks rate limiting for a single connection
type clientLimit struct {
	messageCount int
	windowStart  time.Time
}

// NewRateLimiter creates a new rate limiter; perMinute <= 0 selects the default
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = DefaultMessagesPerMinute
	}
	return &RateLimiter{
		perMinute: perMinute,
		clients:   make(map[string]*clientLimit),
	}
}

// Allow checks whether the connection may send another message
// TECHNICAL DISCOVERY: Minute window resets in place for consistent limiting
func (rl *RateLimiter) Allow(connID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	limit, exists := rl.clients[connID]
	if !exists {
		rl.clients[connID] = &clientLimit{messageCount: 1, windowStart: now}
		return true
	}

	if now.Sub(limit.windowStart) >= time.Minute {
		limit.messageCount = 1
		limit.windowStart = now
		return true
	}

	if limit.messageCount >= rl.perMinute {
		return false
	}

	limit.messageCount++
	return true
}

// Cleanup removes stale connection entries (call periodically)
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for connID, limit := range rl.clients {
		if now.Sub(limit.windowStart) > 5*time.Minute {
			delete(rl.clients, connID)
		}
	}
}
