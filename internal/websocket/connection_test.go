package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"drawboard/pkg/interfaces"
)

// Test WebSocket upgrader for creating test connections
var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Architectural Validation Tests
func TestConnection_InterfaceCompliance(t *testing.T) {
	// Verify Connection implements interfaces.Connection
	var _ interfaces.Connection = &Connection{}
}

// Functional Validation Tests
func TestConnection_NewConnectionInitialization(t *testing.T) {
	wsConn := createTestWebSocketConnection(t)
	defer wsConn.Close()

	conn := NewConnection(wsConn, "canvas1", "alice", ModeDraw)
	defer conn.Close()

	if conn.GetID() == "" {
		t.Error("Connection ID not assigned")
	}
	if conn.GetCanvasID() != "canvas1" {
		t.Errorf("Expected canvasID 'canvas1', got '%s'", conn.GetCanvasID())
	}
	if conn.GetUserID() != "alice" {
		t.Errorf("Expected userID 'alice', got '%s'", conn.GetUserID())
	}
	if conn.GetMode() != ModeDraw {
		t.Errorf("Expected mode draw, got '%s'", conn.GetMode())
	}
	if conn.writeCh == nil {
		t.Error("Write channel not initialized")
	}
	if cap(conn.writeCh) != 100 {
		t.Errorf("Expected write channel buffer of 100, got %d", cap(conn.writeCh))
	}
	if !conn.IsOpen() {
		t.Error("New connection should be open")
	}
}

func TestConnection_ServerAssignedIDsAreUnique(t *testing.T) {
	wsConn1 := createTestWebSocketConnection(t)
	defer wsConn1.Close()
	wsConn2 := createTestWebSocketConnection(t)
	defer wsConn2.Close()

	conn1 := NewConnection(wsConn1, "canvas1", "", ModeDraw)
	defer conn1.Close()
	conn2 := NewConnection(wsConn2, "canvas1", "", ModeDraw)
	defer conn2.Close()

	if conn1.GetID() == conn2.GetID() {
		t.Error("Two connections received the same ID")
	}
}

func TestConnection_WriteJSONValidData(t *testing.T) {
	wsConn := createTestWebSocketConnection(t)
	defer wsConn.Close()

	conn := NewConnection(wsConn, "canvas1", "alice", ModeDraw)
	defer conn.Close()

	testData := map[string]interface{}{
		"action": "draw",
		"data":   "test payload",
	}

	// Should successfully write JSON
	err := conn.WriteJSON(testData)
	if err != nil {
		t.Errorf("WriteJSON failed: %v", err)
	}
}

func TestConnection_WriteJSONInvalidData(t *testing.T) {
	wsConn := createTestWebSocketConnection(t)
	defer wsConn.Close()

	conn := NewConnection(wsConn, "canvas1", "alice", ModeDraw)
	defer conn.Close()

	// Function type cannot be marshaled to JSON
	invalidData := map[string]interface{}{
		"func": func() {},
	}

	err := conn.WriteJSON(invalidData)
	if err != ErrInvalidJSON {
		t.Errorf("Expected ErrInvalidJSON, got %v", err)
	}
}

func TestConnection_CloseIdempotent(t *testing.T) {
	wsConn := createTestWebSocketConnection(t)
	defer wsConn.Close()

	conn := NewConnection(wsConn, "canvas1", "alice", ModeDraw)

	// Close should be safe to call multiple times
	err1 := conn.Close()
	err2 := conn.Close()
	err3 := conn.Close()

	if err1 != nil {
		t.Errorf("First close failed: %v", err1)
	}
	if err2 != nil {
		t.Errorf("Second close failed: %v", err2)
	}
	if err3 != nil {
		t.Errorf("Third close failed: %v", err3)
	}
	if conn.State() != StateClosed {
		t.Errorf("Expected state %q after close, got %q", StateClosed, conn.State())
	}
}

func TestConnection_WriteAfterClose(t *testing.T) {
	wsConn := createTestWebSocketConnection(t)
	defer wsConn.Close()

	conn := NewConnection(wsConn, "canvas1", "alice", ModeDraw)
	conn.Close()

	// Give time for context cancellation to propagate
	time.Sleep(10 * time.Millisecond)

	err := conn.WriteText([]byte(`{"action":"draw"}`))
	if err != ErrConnectionClosed {
		t.Errorf("Expected ErrConnectionClosed, got %v", err)
	}
}

// Technical Validation Tests (Race Detection)
func TestConnection_ConcurrentWrites(t *testing.T) {
	wsConn := createTestWebSocketConnection(t)
	defer wsConn.Close()

	conn := NewConnection(wsConn, "canvas1", "alice", ModeDraw)
	defer conn.Close()

	const numGoroutines = 10
	const messagesPerGoroutine = 10

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Test concurrent writes don't cause race conditions
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < messagesPerGoroutine; j++ {
				testData := map[string]interface{}{
					"worker":  id,
					"message": j,
				}
				conn.WriteJSON(testData) // Should be thread-safe
			}
		}(i)
	}

	wg.Wait()
}

func TestConnection_GoroutineCleanup(t *testing.T) {
	wsConn := createTestWebSocketConnection(t)
	defer wsConn.Close()

	conn := NewConnection(wsConn, "canvas1", "alice", ModeDraw)

	// Give time for writeLoop to start
	time.Sleep(10 * time.Millisecond)

	err := conn.Close()
	if err != nil {
		t.Errorf("Close failed: %v", err)
	}

	// Wait for goroutine cleanup
	time.Sleep(100 * time.Millisecond)

	// If there are goroutine leaks, the race detector should catch them
}

// Helper function to create a test WebSocket connection
func createTestWebSocketConnection(t *testing.T) *websocket.Conn {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		defer conn.Close()

		// Keep connection alive for testing
		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}))

	t.Cleanup(func() { server.Close() })

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to create test WebSocket connection: %v", err)
	}

	return conn
}
