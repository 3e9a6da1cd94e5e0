package router

import "errors"

// Router errors. All of them are answered to the sender with an error event.
var (
	ErrMalformedFrame    = errors.New("malformed frame")
	ErrUnauthorizedEvent = errors.New("role not authorized to send this event")
	ErrInvalidPayload    = errors.New("invalid event payload")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)
