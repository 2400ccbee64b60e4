package interfaces

import (
	"context"
	"time"
)

// StateStore is the durable key-value contract for canvas state
// ARCHITECTURAL DISCOVERY: Single interface for all persistence operations
// keeps the routing layer independent of the store technology
type StateStore interface {
	// Get returns the latest state blob for a canvas.
	// FUNCTIONAL DISCOVERY: The boolean distinguishes "no prior writes"
	// (nil, false, nil) from a store-connectivity failure (non-nil error);
	// callers must never treat an empty canvas as an error
	Get(ctx context.Context, canvasID string) ([]byte, bool, error)

	// Set replaces the state blob for a canvas. A zero TTL stores the
	// blob without expiry.
	// TECHNICAL DISCOVERY: Full-blob replace is the deliberate last-write-wins
	// policy; there is no merge operation in this contract
	Set(ctx context.Context, canvasID string, blob []byte, ttl time.Duration) error

	// Canvases lists the canvas IDs currently holding state.
	// FUNCTIONAL DISCOVERY: Needed by the snapshot archiver to sweep
	// live state into durable storage
	Canvases(ctx context.Context) ([]string, error)

	// HealthCheck verifies store connectivity
	// FUNCTIONAL DISCOVERY: Context enables health check timeout to prevent
	// hanging health checks from blocking application startup
	HealthCheck(ctx context.Context) error

	// Close releases the store handle
	Close() error
}
