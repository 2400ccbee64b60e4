package interfaces

// Connection represents a live client connection subscribed to a canvas
// ARCHITECTURAL DISCOVERY: Pure abstraction without implementation details
// ensures clean boundaries between WebSocket infrastructure and routing logic
type Connection interface {
	// WriteJSON sends a JSON message to the client (thread-safe)
	// FUNCTIONAL DISCOVERY: Thread-safety requirement documented in interface
	// so all implementations use a single-writer pattern to prevent races
	WriteJSON(v interface{}) error

	// WriteText sends a pre-encoded text frame to the client (thread-safe)
	// TECHNICAL DISCOVERY: Fan-out marshals a message once and delivers the
	// same bytes to every peer, so raw writes are part of the contract
	WriteText(data []byte) error

	// Close closes the connection and cleans up resources
	Close() error

	// GetID returns the server-assigned connection identifier
	GetID() string

	// GetCanvasID returns the canvas this connection is subscribed to
	// ARCHITECTURAL DISCOVERY: Canvas scoping at connection level enables
	// room-based routing and canvas-scoped teardown
	GetCanvasID() string

	// GetUserID returns the connected user's ID; empty for anonymous users
	GetUserID() string

	// IsOpen reports whether the connection still accepts writes
	IsOpen() bool
}
