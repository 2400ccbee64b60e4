package types

import (
	"regexp"
)

// FUNCTIONAL DISCOVERY: Regex compiled once at package initialization
// for better performance in high-frequency validation scenarios
var (
	canvasIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	userIDRegex   = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// MaxPayloadSize caps the opaque data payload of a single message.
// TECHNICAL DISCOVERY: 64KB covers full-state sync blobs from busy canvases
// while bounding per-frame memory on the broadcast path
const MaxPayloadSize = 65536

// Validate ensures the message meets all requirements
// ARCHITECTURAL DISCOVERY: Validation at type level ensures consistency
// across all components without duplicating validation logic
func (m *DrawingMessage) Validate() error {
	if m.Action == "" {
		return ErrMissingAction
	}
	if !IsValidAction(m.Action) {
		return ErrUnknownAction
	}
	if !IsValidCanvasID(m.CanvasID) {
		return ErrInvalidCanvasID
	}
	// UserID may be empty: anonymous participants are allowed
	if m.UserID != "" && !IsValidUserID(m.UserID) {
		return ErrInvalidUserID
	}
	if len(m.Data) > MaxPayloadSize {
		return ErrPayloadTooLarge
	}
	return nil
}

// IsValidCanvasID checks if a canvas ID meets format requirements
// FUNCTIONAL DISCOVERY: 1-64 character limit matches the shared-code scheme
// used by the canvas catalog and keeps store keys bounded
func IsValidCanvasID(canvasID string) bool {
	if len(canvasID) < 1 || len(canvasID) > 64 {
		return false
	}
	return canvasIDRegex.MatchString(canvasID)
}

// IsValidUserID checks if a user ID meets format requirements
func IsValidUserID(userID string) bool {
	if len(userID) < 1 || len(userID) > 50 {
		return false
	}
	return userIDRegex.MatchString(userID)
}

// IsValidAction checks if the action is one of the recognized kinds
// ARCHITECTURAL DISCOVERY: Explicit validation prevents undefined actions
// from entering the routing system
func IsValidAction(action string) bool {
	return recognizedActions[action]
}

// RecognizedActions returns the currently recognized action names.
func RecognizedActions() []string {
	actions := make([]string, 0, len(recognizedActions))
	for action := range recognizedActions {
		actions = append(actions, action)
	}
	return actions
}
