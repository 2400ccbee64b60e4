package interfaces

import "errors"

// Common interface errors used across components
var (
	ErrStoreUnavailable = errors.New("state store unavailable")
)
