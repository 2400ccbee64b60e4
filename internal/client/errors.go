package client

import "errors"

// Agent-specific error types
var (
	ErrNotConnected = errors.New("websocket is not connected; message not sent")
	ErrAgentClosed  = errors.New("agent has been closed")
)
