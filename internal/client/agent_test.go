package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"drawboard/pkg/types"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// echoServer upgrades connections and echoes every text frame back
type echoServer struct {
	server *httptest.Server

	mu    sync.Mutex
	conns []*websocket.Conn
}

func newEchoServer(t *testing.T) *echoServer {
	es := &echoServer{}
	es.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		es.mu.Lock()
		es.conns = append(es.conns, conn)
		es.mu.Unlock()

		defer func() {
			conn.Close()
			es.mu.Lock()
			for i, c := range es.conns {
				if c == conn {
					es.conns = append(es.conns[:i], es.conns[i+1:]...)
					break
				}
			}
			es.mu.Unlock()
		}()

		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if err := conn.WriteMessage(msgType, data); err != nil {
				break
			}
		}
	}))
	t.Cleanup(func() { es.server.Close() })
	return es
}

func (es *echoServer) url() string {
	return "ws" + strings.TrimPrefix(es.server.URL, "http")
}

// dropAll closes every server-side connection to simulate a network failure
func (es *echoServer) dropAll() {
	es.mu.Lock()
	defer es.mu.Unlock()
	for _, conn := range es.conns {
		conn.Close()
	}
	es.conns = nil
}

func waitForState(t *testing.T, agent *Agent, want State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if agent.State() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected state %q, got %q", want, agent.State())
}

func TestAgent_ConnectAndClose(t *testing.T) {
	server := newEchoServer(t)
	agent := NewAgent(Config{URL: server.url()})

	if agent.State() != StateDisconnected {
		t.Errorf("Expected initial state disconnected, got %q", agent.State())
	}

	if err := agent.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	waitForState(t, agent, StateConnected)

	if err := agent.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	waitForState(t, agent, StateClosed)
}

func TestAgent_DuplicateConnectIsNoOp(t *testing.T) {
	server := newEchoServer(t)
	agent := NewAgent(Config{URL: server.url()})
	defer agent.Close()

	if err := agent.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	waitForState(t, agent, StateConnected)

	// Second connect while connected must not open a second socket
	if err := agent.Connect(); err != nil {
		t.Errorf("Duplicate connect should be a no-op, got %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	server.mu.Lock()
	count := len(server.conns)
	server.mu.Unlock()
	if count != 1 {
		t.Errorf("Expected exactly 1 server-side connection, got %d", count)
	}
}

func TestAgent_ConnectAfterClose(t *testing.T) {
	server := newEchoServer(t)
	agent := NewAgent(Config{URL: server.url()})

	agent.Connect()
	waitForState(t, agent, StateConnected)
	agent.Close()
	waitForState(t, agent, StateClosed)

	if err := agent.Connect(); err != ErrAgentClosed {
		t.Errorf("Expected ErrAgentClosed, got %v", err)
	}
}

func TestAgent_SendFailsFastWhenDisconnected(t *testing.T) {
	agent := NewAgent(Config{URL: "ws://127.0.0.1:1/ws/draw/canvas1"})

	err := agent.Send([]byte(`{"action":"draw"}`))
	if err != ErrNotConnected {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}

	err = agent.SendMessage(&types.DrawingMessage{CanvasID: "canvas1", Action: types.ActionDraw})
	if err != ErrNotConnected {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
}

func TestAgent_SendAndReceive(t *testing.T) {
	server := newEchoServer(t)
	agent := NewAgent(Config{URL: server.url()})
	defer agent.Close()

	received := make(chan []byte, 1)
	agent.On(EventMessage, func(data interface{}) {
		if b, ok := data.([]byte); ok {
			select {
			case received <- b:
			default:
			}
		}
	})

	agent.Connect()
	waitForState(t, agent, StateConnected)

	sent := `{"canvasId":"canvas1","action":"draw"}`
	if err := agent.Send([]byte(sent)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case data := <-received:
		if string(data) != sent {
			t.Errorf("Expected echo %q, got %q", sent, string(data))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for echoed message")
	}
}

func TestAgent_AutoReconnectAfterDrop(t *testing.T) {
	server := newEchoServer(t)
	agent := NewAgent(Config{
		URL:     server.url(),
		Backoff: 50 * time.Millisecond, // Short interval keeps the test fast
	})
	defer agent.Close()

	var opens int32
	var mu sync.Mutex
	openCount := func() int32 {
		mu.Lock()
		defer mu.Unlock()
		return opens
	}
	agent.On(EventOpen, func(interface{}) {
		mu.Lock()
		opens++
		mu.Unlock()
	})

	agent.Connect()
	waitForState(t, agent, StateConnected)
	if openCount() != 1 {
		t.Fatalf("Expected 1 open event, got %d", openCount())
	}

	// Simulate a network failure; the agent must come back on its own
	server.dropAll()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if openCount() >= 2 && agent.State() == StateConnected {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Agent did not reconnect: opens=%d state=%q", openCount(), agent.State())
}

func TestAgent_ManualCloseSuppressesReconnect(t *testing.T) {
	server := newEchoServer(t)
	agent := NewAgent(Config{
		URL:     server.url(),
		Backoff: 50 * time.Millisecond,
	})

	agent.Connect()
	waitForState(t, agent, StateConnected)

	agent.Close()
	waitForState(t, agent, StateClosed)

	// Wait past several backoff intervals; no new connection may appear
	time.Sleep(300 * time.Millisecond)

	server.mu.Lock()
	count := len(server.conns)
	server.mu.Unlock()
	if count != 0 {
		t.Errorf("Expected no reconnect after manual close, found %d connections", count)
	}
	if agent.State() != StateClosed {
		t.Errorf("Expected state closed, got %q", agent.State())
	}
}

func TestAgent_MaxRetriesStopsRetrying(t *testing.T) {
	// Nothing listens at this address
	agent := NewAgent(Config{
		URL:              "ws://127.0.0.1:1/ws/draw/canvas1",
		Backoff:          20 * time.Millisecond,
		MaxRetries:       2,
		HandshakeTimeout: 100 * time.Millisecond,
	})

	var errorEvents int
	var mu sync.Mutex
	agent.On(EventError, func(interface{}) {
		mu.Lock()
		errorEvents++
		mu.Unlock()
	})

	agent.Connect()

	waitForState(t, agent, StateClosed)

	mu.Lock()
	defer mu.Unlock()
	// Initial attempt plus two retries
	if errorEvents != 3 {
		t.Errorf("Expected 3 failed attempts, got %d", errorEvents)
	}
}

func TestAgent_ListenerOrderAndOff(t *testing.T) {
	server := newEchoServer(t)
	agent := NewAgent(Config{URL: server.url()})
	defer agent.Close()

	var mu sync.Mutex
	var order []int

	agent.On(EventOpen, func(interface{}) {
		mu.Lock()
		order = append(order, 1)
		mu.Unlock()
	})
	second := agent.On(EventOpen, func(interface{}) {
		mu.Lock()
		order = append(order, 2)
		mu.Unlock()
	})
	agent.On(EventOpen, func(interface{}) {
		mu.Lock()
		order = append(order, 3)
		mu.Unlock()
	})

	// Removed listener must not fire
	agent.Off(EventOpen, second)

	agent.Connect()
	waitForState(t, agent, StateConnected)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 1 || order[1] != 3 {
		t.Errorf("Expected listeners [1 3] in registration order, got %v", order)
	}
}
