package types

import "errors"

// ARCHITECTURAL DISCOVERY: Specific error types enable proper error handling
// and user-friendly error messages throughout the system
var (
	ErrInvalidCanvasID = errors.New("canvas ID must be 1-64 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidUserID   = errors.New("user ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrMissingAction   = errors.New("message is missing an action")
	ErrUnknownAction   = errors.New("unrecognized drawing action")
	ErrPayloadTooLarge = errors.New("message payload exceeds 64KB limit")
)
