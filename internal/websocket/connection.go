package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Mode selects the per-connection handler strategy
// ARCHITECTURAL DISCOVERY: One configurable behavior instead of parallel
// service implementations; the strategy is chosen at subscribe time from
// the connection path
type Mode string

const (
	// ModeDraw routes messages through the broadcast router to canvas peers
	ModeDraw Mode = "draw"
	// ModeEcho writes each frame straight back to the sender; used by
	// connectivity probes and never touches the registry
	ModeEcho Mode = "echo"
)

// Liveness states of a connection
const (
	StateOpen    = "open"
	StateClosing = "closing"
	StateClosed  = "closed"
)

// Connection implements the interfaces.Connection interface
// ARCHITECTURAL DISCOVERY: WebSocket writes must be serialized to prevent
// race conditions; single writer goroutine owns the transport for writes
type Connection struct {
	id       string
	canvasID string
	userID   string
	mode     Mode

	conn    *websocket.Conn
	writeCh chan []byte // FUNCTIONAL DISCOVERY: 100 buffer absorbs fan-out bursts on busy canvases

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu    sync.RWMutex // Protect liveness state
	state string
}

// NewConnection creates a new connection wrapper around an accepted socket.
// The connection ID is server-assigned; clients cannot forge it.
func NewConnection(conn *websocket.Conn, canvasID, userID string, mode Mode) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Connection{
		id:       uuid.New().String(),
		canvasID: canvasID,
		userID:   userID,
		mode:     mode,
		conn:     conn,
		writeCh:  make(chan []byte, 100),
		ctx:      ctx,
		cancel:   cancel,
		state:    StateOpen,
	}

	// Start the single writer goroutine
	go c.writeLoop()

	return c
}

// ARCHITECTURAL DISCOVERY: Single writer goroutine pattern eliminates races
func (c *Connection) writeLoop() {
	defer func() {
		// Drain remaining messages on exit
		for len(c.writeCh) > 0 {
			<-c.writeCh
		}
	}()

	for {
		select {
		case data := <-c.writeCh:
			// FUNCTIONAL DISCOVERY: 5-second write deadline keeps one slow
			// peer from stalling the writer indefinitely
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// WriteJSON marshals v and queues it for delivery
func (c *Connection) WriteJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrInvalidJSON
	}
	return c.WriteText(data)
}

// WriteText queues a pre-encoded text frame for delivery
func (c *Connection) WriteText(data []byte) error {
	// Check if connection is closed
	select {
	case <-c.ctx.Done():
		return ErrConnectionClosed
	default:
	}

	// Send to write channel with timeout
	select {
	case c.writeCh <- data:
		return nil
	case <-time.After(5 * time.Second):
		return ErrWriteTimeout
	case <-c.ctx.Done():
		return ErrConnectionClosed
	}
}

// Close tears the connection down exactly once
// ARCHITECTURAL DISCOVERY: Clean shutdown requires careful goroutine
// coordination; every exit path (client close, I/O error, host shutdown)
// funnels into this routine
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosing
		c.mu.Unlock()

		// Cancel context to stop the writer goroutine
		c.cancel()

		if c.conn != nil {
			err = c.conn.Close()
		}

		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
	})
	return err
}

// GetID returns the server-assigned connection identifier
func (c *Connection) GetID() string {
	return c.id
}

// GetCanvasID returns the canvas this connection subscribed to
func (c *Connection) GetCanvasID() string {
	return c.canvasID
}

// GetUserID returns the user ID; empty for anonymous participants
func (c *Connection) GetUserID() string {
	return c.userID
}

// GetMode returns the handler strategy selected at subscribe time
func (c *Connection) GetMode() Mode {
	return c.mode
}

// State returns the current liveness state
func (c *Connection) State() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsOpen reports whether the connection still accepts writes
func (c *Connection) IsOpen() bool {
	return c.State() == StateOpen
}
