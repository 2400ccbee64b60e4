package interfaces

import (
	"context"

	"drawboard/pkg/types"
)

// MessageRouter fans validated messages out to canvas peers and checkpoints
// canvas state
// ARCHITECTURAL DISCOVERY: Routing logic abstracted from message delivery
// enables different delivery strategies and simplifies testing with mocks
type MessageRouter interface {
	// Route validates a message, delivers it to every other connection on
	// the same canvas, and asynchronously checkpoints the canvas state.
	// FUNCTIONAL DISCOVERY: The sender connection ID is required so the
	// fan-out can exclude the sender; echo-to-self is a client concern
	Route(ctx context.Context, message *types.DrawingMessage, senderConnID string) error

	// GetState reads the latest durable snapshot for a canvas.
	// FUNCTIONAL DISCOVERY: (nil, nil) is the valid "no prior writes" result;
	// a non-nil error always means the store itself failed
	GetState(ctx context.Context, canvasID string) (*types.CanvasState, error)
}
