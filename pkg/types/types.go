package types

import (
	"encoding/json"
	"time"
)

// ARCHITECTURAL DISCOVERY: Action constants defined exactly as the wire
// protocol names them so every component validates against the same set
const (
	ActionDraw   = "draw"
	ActionClear  = "clear"
	ActionMove   = "move"
	ActionCursor = "cursor"
	ActionSync   = "sync"
)

// recognizedActions is the extension point for the wire protocol: a deployment
// that adds a new action registers it here and every validation path picks it up.
// FUNCTIONAL DISCOVERY: Unrecognized actions are rejected, never forwarded,
// to prevent protocol drift between clients sharing a canvas
var recognizedActions = map[string]bool{
	ActionDraw:   true,
	ActionClear:  true,
	ActionMove:   true,
	ActionCursor: true,
	ActionSync:   true,
}

// DrawingMessage is the unit of canvas synchronization
// ARCHITECTURAL DISCOVERY: Data kept as json.RawMessage keeps the payload
// opaque (stroke point lists, full-state blobs) and avoids a decode/encode
// round trip on the broadcast path
type DrawingMessage struct {
	CanvasID string          `json:"canvasId"`
	UserID   string          `json:"userId,omitempty"` // empty = anonymous participant
	Action   string          `json:"action"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// CanvasState is the durable snapshot checkpointed per canvas
// FUNCTIONAL DISCOVERY: Each checkpoint replaces the whole snapshot
// (last write wins); concurrent edits are not merged
type CanvasState struct {
	CanvasID     string          `json:"canvas_id"`
	LastAction   string          `json:"last_action"`
	Data         json.RawMessage `json:"data,omitempty"`
	UpdatedBy    string          `json:"updated_by,omitempty"`
	UpdatedAt    time.Time       `json:"updated_at"`
	CheckpointID string          `json:"checkpoint_id"`
}
