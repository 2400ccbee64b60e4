package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"drawboard/pkg/types"
)

// State is the agent's connection lifecycle state
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateClosing      State = "closing"
	StateClosed       State = "closed"
)

// Event types observable through On/Off
const (
	EventOpen    = "open"
	EventMessage = "message"
	EventError   = "error"
	EventClose   = "close"
)

// DefaultBackoff is the fixed reconnect interval browser clients expect
const DefaultBackoff = 5 * time.Second

// Listener receives event payloads: []byte for message, error for
// error/close, nil for open
type Listener func(data interface{})

// Config holds agent settings
// FUNCTIONAL DISCOVERY: Backoff and retry cap are injectable rather than
// hard-coded; MaxRetries of 0 keeps the baseline retry-forever behavior
type Config struct {
	URL              string
	Backoff          time.Duration
	MaxRetries       int
	HandshakeTimeout time.Duration
}

// Agent maintains one logical connection across transient network failures
// ARCHITECTURAL DISCOVERY: State machine Disconnected -> Connecting ->
// Connected -> (Disconnected on failure | Closing on manual close) -> Closed;
// a manual-close flag set before transport shutdown lets the close handler
// distinguish "I asked for this" from "the network failed"
type Agent struct {
	cfg Config

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	manualClose bool
	retries     int
	timer       *time.Timer

	// TECHNICAL DISCOVERY: Separate write mutex serializes transport writes
	// without holding the state lock across network I/O
	writeMu sync.Mutex

	listeners map[string][]listenerEntry
	nextID    int
}

type listenerEntry struct {
	id int
	fn Listener
}

// NewAgent creates a reconnection agent for the given endpoint
func NewAgent(cfg Config) *Agent {
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &Agent{
		cfg:       cfg,
		state:     StateDisconnected,
		listeners: make(map[string][]listenerEntry),
	}
}

// Connect establishes the connection
// FUNCTIONAL DISCOVERY: No-op while Connecting or Connected, which prevents
// duplicate sockets when callers and the retry timer race
func (a *Agent) Connect() error {
	a.mu.Lock()
	switch a.state {
	case StateConnecting, StateConnected:
		a.mu.Unlock()
		return nil
	case StateClosing, StateClosed:
		a.mu.Unlock()
		return ErrAgentClosed
	}
	a.state = StateConnecting
	a.mu.Unlock()

	return a.dial()
}

// dial performs one connection attempt; the caller must have moved the
// state to Connecting
func (a *Agent) dial() error {
	dialer := websocket.Dialer{HandshakeTimeout: a.cfg.HandshakeTimeout}
	conn, resp, err := dialer.Dial(a.cfg.URL, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		a.emit(EventError, err)

		a.mu.Lock()
		if a.manualClose {
			a.state = StateClosed
			a.mu.Unlock()
			return err
		}
		a.state = StateDisconnected
		a.mu.Unlock()

		a.scheduleReconnect()
		return err
	}

	a.mu.Lock()
	if a.manualClose {
		// Close() raced the handshake; discard the new socket
		a.state = StateClosed
		a.mu.Unlock()
		_ = conn.Close()
		return ErrAgentClosed
	}
	a.conn = conn
	a.state = StateConnected
	a.retries = 0
	a.mu.Unlock()

	a.emit(EventOpen, nil)
	go a.readLoop(conn)

	return nil
}

// scheduleReconnect arms exactly one retry attempt after the backoff interval
func (a *Agent) scheduleReconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.manualClose {
		return
	}

	// MaxRetries of 0 retries indefinitely
	if a.cfg.MaxRetries > 0 && a.retries >= a.cfg.MaxRetries {
		a.state = StateClosed
		return
	}

	a.retries++
	a.state = StateConnecting
	a.timer = time.AfterFunc(a.cfg.Backoff, func() {
		_ = a.dial()
	})
}

// readLoop pumps inbound frames until the transport fails or closes
func (a *Agent) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			a.handleClose(err)
			return
		}
		a.emit(EventMessage, data)
	}
}

// handleClose runs once per transport close, manual or not
func (a *Agent) handleClose(cause error) {
	a.mu.Lock()
	wasManual := a.manualClose
	a.conn = nil
	if wasManual {
		a.state = StateClosed
	} else {
		a.state = StateDisconnected
	}
	a.mu.Unlock()

	a.emit(EventClose, cause)

	if !wasManual {
		a.scheduleReconnect()
	}
}

// Close shuts the agent down and suppresses any further auto-reconnect
// FUNCTIONAL DISCOVERY: The manual flag is set before the transport shutdown
// so the close-event path and any pending retry both observe it
func (a *Agent) Close() error {
	a.mu.Lock()
	if a.state == StateClosed {
		a.mu.Unlock()
		return nil
	}

	a.manualClose = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}

	conn := a.conn
	if conn == nil {
		a.state = StateClosed
		a.mu.Unlock()
		return nil
	}
	a.state = StateClosing
	a.mu.Unlock()

	a.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	a.writeMu.Unlock()

	// readLoop observes the closed transport and finishes the transition
	return conn.Close()
}

// Send transmits a raw text frame
// FUNCTIONAL DISCOVERY: Fails fast when not Connected instead of queueing;
// canvas state can have moved on by the time connectivity returns, so hidden
// buffering would replay stale operations
func (a *Agent) Send(data []byte) error {
	a.mu.Lock()
	if a.state != StateConnected || a.conn == nil {
		a.mu.Unlock()
		return ErrNotConnected
	}
	conn := a.conn
	a.mu.Unlock()

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, data)
}

// SendMessage transmits a drawing message
func (a *Agent) SendMessage(msg *types.DrawingMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return a.Send(data)
}

// State returns the current lifecycle state
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// On registers a listener for an event type and returns its registration ID
// FUNCTIONAL DISCOVERY: Listeners fire synchronously in registration order;
// no ordering is guaranteed relative to other event types
func (a *Agent) On(event string, fn Listener) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.nextID++
	a.listeners[event] = append(a.listeners[event], listenerEntry{id: a.nextID, fn: fn})
	return a.nextID
}

// Off removes a previously registered listener
func (a *Agent) Off(event string, id int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries := a.listeners[event]
	for i, entry := range entries {
		if entry.id == id {
			a.listeners[event] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// emit delivers an event to listeners outside the state lock so callbacks
// may call back into the agent
func (a *Agent) emit(event string, data interface{}) {
	a.mu.Lock()
	entries := make([]listenerEntry, len(a.listeners[event]))
	copy(entries, a.listeners[event])
	a.mu.Unlock()

	for _, entry := range entries {
		entry.fn(data)
	}
}
