package websocket

import (
	"log"
	"sync"
)

// Registry maps canvas IDs to the set of live connections subscribed to them
// ARCHITECTURAL DISCOVERY: Pure connection tracking without business logic
// maintains clean separation between membership and message routing; the
// registry owns no durability and is rebuilt empty on process restart
type Registry struct {
	mu    sync.RWMutex                      // TECHNICAL DISCOVERY: RWMutex optimizes for broadcast-heavy read patterns
	rooms map[string]map[string]*Connection // canvasID -> connectionID -> Connection
}

// NewRegistry creates a new connection registry
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]*Connection),
	}
}

// Subscribe adds a connection to a canvas room
// FUNCTIONAL DISCOVERY: A connection belongs to exactly one room; the room
// key must match the canvas the connection was accepted for
func (r *Registry) Subscribe(canvasID string, conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}
	if conn.GetCanvasID() != canvasID {
		return ErrCanvasMismatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[canvasID] == nil {
		r.rooms[canvasID] = make(map[string]*Connection)
	}
	r.rooms[canvasID][conn.GetID()] = conn

	return nil
}

// Unsubscribe removes a connection from a canvas room
// FUNCTIONAL DISCOVERY: Idempotent operation safe for concurrent teardown;
// unsubscribing an unknown connection is a no-op, not an error, because
// the close and error paths may both reach it
func (r *Registry) Unsubscribe(canvasID string, conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	room, exists := r.rooms[canvasID]
	if !exists {
		return
	}

	delete(room, conn.GetID())

	// TECHNICAL DISCOVERY: Clean up empty room maps to prevent memory leaks
	if len(room) == 0 {
		delete(r.rooms, canvasID)
	}
}

// Broadcast delivers a frame to every connection in a room except the sender
// and returns the delivered count
// ARCHITECTURAL DISCOVERY: Snapshot-then-iterate discipline; membership is
// copied under the read lock and deliveries happen outside it so no observer
// sees a half-applied membership set mid-broadcast
func (r *Registry) Broadcast(canvasID string, payload []byte, excludeConnID string) int {
	r.mu.RLock()
	room := r.rooms[canvasID]
	targets := make([]*Connection, 0, len(room))
	for connID, conn := range room {
		if connID == excludeConnID {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		// FUNCTIONAL DISCOVERY: Each delivery attempt is isolated; one dead
		// socket must not abort the rest of the fan-out, it only triggers
		// that connection's own teardown
		if err := conn.WriteText(payload); err != nil {
			log.Printf("Broadcast delivery failed: canvas=%s conn=%s err=%v", canvasID, conn.GetID(), err)
			go func(c *Connection) {
				r.Unsubscribe(canvasID, c)
				_ = c.Close()
			}(conn)
			continue
		}
		delivered++
	}

	return delivered
}

// Get returns a room member by connection ID
func (r *Registry) Get(canvasID, connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, exists := r.rooms[canvasID][connID]
	return conn, exists
}

// Connections returns a snapshot of a room's membership
func (r *Registry) Connections(canvasID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[canvasID]
	conns := make([]*Connection, 0, len(room))
	for _, conn := range room {
		conns = append(conns, conn)
	}
	return conns
}

// Stats returns registry counters for monitoring and debugging
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, room := range r.rooms {
		total += len(room)
	}

	return map[string]int{
		"active_canvases":   len(r.rooms),
		"total_connections": total,
	}
}

// DrainAll closes every registered connection and empties the registry.
// Used by host-initiated shutdown so no connection outlives the process
// lifecycle that owns it.
func (r *Registry) DrainAll() {
	r.mu.Lock()
	var conns []*Connection
	for _, room := range r.rooms {
		for _, conn := range room {
			conns = append(conns, conn)
		}
	}
	r.rooms = make(map[string]map[string]*Connection)
	r.mu.Unlock()

	for _, conn := range conns {
		if err := conn.Close(); err != nil {
			log.Printf("Failed to close connection during drain: conn=%s err=%v", conn.GetID(), err)
		}
	}
}
