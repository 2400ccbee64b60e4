package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"drawboard/internal/websocket"
	"drawboard/pkg/interfaces"
	"drawboard/pkg/types"
)

// Router implements the interfaces.MessageRouter interface
// ARCHITECTURAL DISCOVERY: Pure routing logic without connection handling;
// fan-out happens first and the durability checkpoint is decoupled so store
// latency never stalls live delivery
type Router struct {
	registry      *websocket.Registry
	store         interfaces.StateStore
	rateLimiter   *RateLimiter
	checkpointTTL time.Duration
}

// NewRouter creates a new message router
// FUNCTIONAL DISCOVERY: Dependency injection enables testing with mock stores
func NewRouter(registry *websocket.Registry, store interfaces.StateStore, perMinute int, checkpointTTL time.Duration) *Router {
	return &Router{
		registry:      registry,
		store:         store,
		rateLimiter:   NewRateLimiter(perMinute),
		checkpointTTL: checkpointTTL,
	}
}

// Route validates a message, fans it out to same-canvas peers excluding the
// sender, and asynchronously checkpoints the canvas state
// FUNCTIONAL DISCOVERY: Delivery to live peers is the primary guarantee;
// the checkpoint is best-effort relative to it and its failure is only logged
func (r *Router) Route(ctx context.Context, message *types.DrawingMessage, senderConnID string) error {
	if err := message.Validate(); err != nil {
		return err
	}

	// Sender must still be a member of the room it is sending to
	if _, exists := r.registry.Get(message.CanvasID, senderConnID); !exists {
		return ErrSenderNotSubscribed
	}

	// TECHNICAL DISCOVERY: Rate limit keyed by connection ID, applied before
	// fan-out so a runaway client cannot saturate its canvas
	if !r.rateLimiter.Allow(senderConnID) {
		return ErrRateLimitExceeded
	}

	// Marshal once, deliver the same bytes to every peer
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	delivered := r.registry.Broadcast(message.CanvasID, payload, senderConnID)
	log.Printf("Message routed: canvas=%s action=%s from=%s delivered=%d",
		message.CanvasID, message.Action, senderConnID, delivered)

	// ARCHITECTURAL DISCOVERY: Checkpoint runs on its own goroutine with its
	// own deadline; the request context may be gone before the write lands
	go r.checkpoint(message)

	return nil
}

// checkpoint persists the latest canvas state to the store
// FUNCTIONAL DISCOVERY: Full-snapshot replace per checkpoint is the
// deliberate last-write-wins policy; concurrent senders may overwrite each
// other and no merge is attempted
func (r *Router) checkpoint(message *types.DrawingMessage) {
	state := &types.CanvasState{
		CanvasID:     message.CanvasID,
		LastAction:   message.Action,
		Data:         message.Data,
		UpdatedBy:    message.UserID,
		UpdatedAt:    time.Now().UTC(),
		CheckpointID: uuid.New().String(),
	}

	blob, err := json.Marshal(state)
	if err != nil {
		log.Printf("Checkpoint encode failed: canvas=%s err=%v", message.CanvasID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.store.Set(ctx, message.CanvasID, blob, r.checkpointTTL); err != nil {
		// Store errors are non-fatal to live delivery
		log.Printf("Checkpoint write failed: canvas=%s err=%v", message.CanvasID, err)
	}
}

// GetState reads the latest durable snapshot for a canvas
// FUNCTIONAL DISCOVERY: (nil, nil) is the valid result for a canvas with no
// prior writes; a non-nil error always means the store itself failed, so
// callers can tell "empty canvas" from "store unavailable"
func (r *Router) GetState(ctx context.Context, canvasID string) (*types.CanvasState, error) {
	blob, found, err := r.store.Get(ctx, canvasID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	if !found {
		return nil, nil
	}

	var state types.CanvasState
	if err := json.Unmarshal(blob, &state); err != nil {
		return nil, fmt.Errorf("failed to decode canvas state: %w", err)
	}

	return &state, nil
}
