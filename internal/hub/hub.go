package hub

import (
	"context"
	"log"
	"sync"
	"time"

	"drawboard/internal/websocket"
	"drawboard/pkg/interfaces"
	"drawboard/pkg/types"
)

// Hub is the process-scoped coordinator between connection handling and
// message routing, with explicit initialization and shutdown
// ARCHITECTURAL DISCOVERY: A single routing goroutine serializes all
// forwarding, which preserves each sender's send order end to end; frames
// enter the channel in read-loop order and leave it one at a time. No
// ordering is guaranteed across different senders.
type Hub struct {
	// FUNCTIONAL DISCOVERY: Buffered channel absorbs message bursts from
	// many canvases without blocking individual read loops
	messageChannel  chan *messageContext
	shutdownChannel chan struct{}

	registry *websocket.Registry
	router   interfaces.MessageRouter

	running bool
	mu      sync.RWMutex
}

// messageContext wraps a message with its sender for attribution and for
// optional error feedback
type messageContext struct {
	message  *types.DrawingMessage
	sender   *websocket.Connection
	received time.Time
}

// NewHub creates a new hub
func NewHub(registry *websocket.Registry, router interfaces.MessageRouter) *Hub {
	return &Hub{
		messageChannel:  make(chan *messageContext, 1000),
		shutdownChannel: make(chan struct{}),
		registry:        registry,
		router:          router,
	}
}

// Start begins hub processing
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	log.Println("Starting message hub...")

	go h.run(ctx)

	return nil
}

// Stop shuts the hub down and drains every registered connection
// FUNCTIONAL DISCOVERY: Drain on shutdown guarantees no connection remains
// registered after the owning process lifecycle has ended
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrHubNotRunning
	}
	h.running = false
	h.mu.Unlock()

	log.Println("Stopping message hub...")

	select {
	case <-h.shutdownChannel:
		// Already closed
	default:
		close(h.shutdownChannel)
	}

	h.registry.DrainAll()

	return nil
}

// Enqueue queues a message for routing; implements websocket.MessageSink
// TECHNICAL DISCOVERY: Non-blocking send keeps a full hub from stalling
// connection read loops; the frame is dropped and reported instead
func (h *Hub) Enqueue(message *types.DrawingMessage, sender *websocket.Connection) error {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return ErrHubNotRunning
	}
	h.mu.RUnlock()

	select {
	case h.messageChannel <- &messageContext{message: message, sender: sender, received: time.Now()}:
		return nil
	default:
		return ErrMessageChannelFull
	}
}

// run is the main hub processing loop
func (h *Hub) run(ctx context.Context) {
	defer log.Println("Hub processing stopped")

	for {
		select {
		case msgCtx := <-h.messageChannel:
			h.handleMessage(ctx, msgCtx)

		case <-h.shutdownChannel:
			log.Println("Hub shutdown requested")
			return

		case <-ctx.Done():
			log.Println("Hub context cancelled")
			return
		}
	}
}

// handleMessage routes one message and reports failures to the sender
// FUNCTIONAL DISCOVERY: Router errors are logged but never crash the hub;
// a rejected message produces no broadcast and the connection stays open
func (h *Hub) handleMessage(ctx context.Context, msgCtx *messageContext) {
	if err := h.router.Route(ctx, msgCtx.message, msgCtx.sender.GetID()); err != nil {
		log.Printf("Message routing failed: canvas=%s conn=%s err=%v",
			msgCtx.message.CanvasID, msgCtx.sender.GetID(), err)
		h.sendErrorToSender(msgCtx.sender, err)
	}
}

// sendErrorToSender sends an error frame back to the sender. The core does
// not require this feedback; it is a courtesy to interactive clients.
func (h *Hub) sendErrorToSender(sender *websocket.Connection, routingErr error) {
	errorMsg := map[string]interface{}{
		"action": "error",
		"data": map[string]interface{}{
			"message": "Message could not be delivered",
			"reason":  routingErr.Error(),
		},
		"timestamp": time.Now().UTC(),
	}

	if err := sender.WriteJSON(errorMsg); err != nil {
		log.Printf("Failed to send error frame: conn=%s err=%v", sender.GetID(), err)
	}
}
