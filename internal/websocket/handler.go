package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"drawboard/pkg/types"
)

// WebSocket upgrader with production-ready settings
// ARCHITECTURAL DISCOVERY: Separate upgrader configuration enables reuse
// and consistent WebSocket settings across handler instances
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// FUNCTIONAL DISCOVERY: Allow all origins for development
		// Production deployments should implement stricter origin checking
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// MessageSink receives validated inbound messages for routing
// ARCHITECTURAL DISCOVERY: Narrow interface keeps the handler decoupled from
// the hub implementation and avoids an import cycle between the packages
type MessageSink interface {
	Enqueue(message *types.DrawingMessage, sender *Connection) error
}

// Handler owns client connections end-to-end: accept, subscribe, read loop,
// teardown
// ARCHITECTURAL DISCOVERY: Clean separation of WebSocket handling from
// routing logic; the handler never writes to the state store directly
type Handler struct {
	registry     *Registry
	sink         MessageSink
	pingInterval time.Duration
	readTimeout  time.Duration
}

// NewHandler creates a new WebSocket handler with dependency injection
func NewHandler(registry *Registry, sink MessageSink, pingInterval, readTimeout time.Duration) *Handler {
	return &Handler{
		registry:     registry,
		sink:         sink,
		pingInterval: pingInterval,
		readTimeout:  readTimeout,
	}
}

// HandleWebSocket handles WebSocket connection requests with comprehensive
// validation
// ARCHITECTURAL DISCOVERY: Multi-stage validation (path -> canvas ID ->
// upgrade -> subscribe) ensures garbage routes are rejected with a defined
// status before any message exchange, never silently routed to a default room
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	mode, canvasID, ok := parseTarget(r.URL.Path)
	if !ok {
		http.Error(w, "Unknown websocket service path", http.StatusNotFound)
		return
	}

	if !types.IsValidCanvasID(canvasID) {
		http.Error(w, "Invalid canvas ID", http.StatusBadRequest)
		return
	}

	// UserID is optional: anonymous participants draw without an identity
	userID := r.URL.Query().Get("user_id")
	if userID != "" && !types.IsValidUserID(userID) {
		http.Error(w, "Invalid user_id format", http.StatusBadRequest)
		return
	}

	// Upgrade to WebSocket
	// FUNCTIONAL DISCOVERY: Upgrade after validation prevents resource waste
	// on invalid requests while providing proper HTTP error responses
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wsConn := NewConnection(conn, canvasID, userID, mode)

	// Echo connections never join a room; they exist for connectivity probes
	if mode == ModeDraw {
		if err := h.registry.Subscribe(canvasID, wsConn); err != nil {
			log.Printf("Failed to subscribe connection: %v", err)
			_ = wsConn.Close()
			return
		}
	}

	log.Printf("Connection accepted: conn=%s canvas=%s mode=%s user=%s",
		wsConn.GetID(), canvasID, mode, userID)

	go h.handleConnection(wsConn)
}

// parseTarget extracts the handler mode and canvas ID from an upgrade path
// of the form /ws/{mode}/{canvasId}
func parseTarget(path string) (Mode, string, bool) {
	rest, found := strings.CutPrefix(path, "/ws/")
	if !found {
		return "", "", false
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] == "" {
		return "", "", false
	}

	switch Mode(parts[0]) {
	case ModeDraw:
		return ModeDraw, parts[1], true
	case ModeEcho:
		return ModeEcho, parts[1], true
	default:
		return "", "", false
	}
}

// handleConnection manages the connection lifecycle with heartbeat monitoring
// ARCHITECTURAL DISCOVERY: All exit paths (client close, I/O error, shutdown)
// funnel into one deferred teardown so no dangling connection ever remains
// registered after the read loop exits
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		if conn.GetMode() == ModeDraw {
			h.registry.Unsubscribe(conn.GetCanvasID(), conn)
		}
		_ = conn.Close()
		log.Printf("Connection closed: conn=%s canvas=%s", conn.GetID(), conn.GetCanvasID())
	}()

	// Set up ping/pong heartbeat monitoring
	if err := conn.conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
		log.Printf("Failed to set read deadline: %v", err)
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	// FUNCTIONAL DISCOVERY: Separate ticker goroutine keeps heartbeat timing
	// independent of message processing or client responsiveness
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ticker.C:
				if err := conn.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
					return
				}
			case <-conn.ctx.Done():
				return
			}
		}
	}()

	// Read pump - handle incoming frames
	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			// TECHNICAL DISCOVERY: Abrupt EOF and graceful close take the
			// same teardown path; only the log line differs
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: conn=%s err=%v", conn.GetID(), err)
			}
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}

		if conn.GetMode() == ModeEcho {
			// Echo strategy: frame goes straight back to the sender
			if err := conn.WriteText(data); err != nil {
				log.Printf("Echo write failed: conn=%s err=%v", conn.GetID(), err)
				break
			}
			continue
		}

		h.handleFrame(conn, data)
	}
}

// handleFrame decodes and forwards one inbound frame
// FUNCTIONAL DISCOVERY: A malformed frame rejects that single message and
// keeps the connection open; only transport corruption closes the socket
func (h *Handler) handleFrame(conn *Connection, data []byte) {
	var msg types.DrawingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Rejected malformed frame: conn=%s err=%v", conn.GetID(), err)
		return
	}

	// The room the connection was accepted for is authoritative; a client
	// cannot inject messages into another canvas by rewriting the field
	msg.CanvasID = conn.GetCanvasID()
	if msg.UserID == "" {
		msg.UserID = conn.GetUserID()
	}

	if err := h.sink.Enqueue(&msg, conn); err != nil {
		log.Printf("Failed to enqueue message: conn=%s err=%v", conn.GetID(), err)
	}
}
