package router

import (
	"testing"
	"time"
)

func TestRateLimiter_AllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(5)

	for i := 0; i < 5; i++ {
		if !rl.Allow("conn1") {
			t.Fatalf("Message %d denied below the limit", i)
		}
	}

	if rl.Allow("conn1") {
		t.Error("Message above the limit was allowed")
	}
}

func TestRateLimiter_DefaultLimit(t *testing.T) {
	rl := NewRateLimiter(0)
	if rl.perMinute != DefaultMessagesPerMinute {
		t.Errorf("Expected default %d, got %d", DefaultMessagesPerMinute, rl.perMinute)
	}

	rl = NewRateLimiter(-10)
	if rl.perMinute != DefaultMessagesPerMinute {
		t.Errorf("Expected default %d for negative input, got %d", DefaultMessagesPerMinute, rl.perMinute)
	}
}

func TestRateLimiter_PerConnectionIsolation(t *testing.T) {
	rl := NewRateLimiter(1)

	if !rl.Allow("conn1") {
		t.Fatal("First message from conn1 denied")
	}
	if rl.Allow("conn1") {
		t.Error("Second message from conn1 allowed")
	}

	// A different connection has its own window
	if !rl.Allow("conn2") {
		t.Error("First message from conn2 denied")
	}
}

func TestRateLimiter_WindowReset(t *testing.T) {
	rl := NewRateLimiter(1)

	if !rl.Allow("conn1") {
		t.Fatal("First message denied")
	}
	if rl.Allow("conn1") {
		t.Fatal("Second message allowed within window")
	}

	// Age the window out manually instead of sleeping for a minute
	rl.mu.Lock()
	rl.clients["conn1"].windowStart = time.Now().Add(-2 * time.Minute)
	rl.mu.Unlock()

	if !rl.Allow("conn1") {
		t.Error("Message denied after window reset")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(10)

	rl.Allow("stale")
	rl.Allow("fresh")

	rl.mu.Lock()
	rl.clients["stale"].windowStart = time.Now().Add(-10 * time.Minute)
	rl.mu.Unlock()

	rl.Cleanup()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, exists := rl.clients["stale"]; exists {
		t.Error("Stale entry survived cleanup")
	}
	if _, exists := rl.clients["fresh"]; !exists {
		t.Error("Fresh entry removed by cleanup")
	}
}
