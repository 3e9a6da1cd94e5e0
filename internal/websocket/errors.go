package websocket

import "errors"

// Connection errors
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrInvalidJSON      = errors.New("invalid JSON data")
)

// Registry errors
var (
	ErrNilConnection       = errors.New("connection cannot be nil")
	ErrDuplicateConnection = errors.New("connection already registered")
)

// Handler errors
var (
	ErrInvalidRole  = errors.New("invalid role: must be 'teacher' or 'student'")
	ErrMissingToken = errors.New("teacher connections require a token")
)
