package router

import "errors"

// Router-specific error types
var (
	ErrSenderNotSubscribed = errors.New("sender not subscribed to canvas")
	ErrRateLimitExceeded   = errors.New("rate limit exceeded")
)
