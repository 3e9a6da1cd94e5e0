package interfaces

// Connection represents one connected WebSocket client
type Connection interface {
	// ID returns the server-assigned connection ID. It never changes.
	ID() string

	// Role returns "teacher" or "student"
	Role() string

	// WriteJSON queues a JSON frame for the client. Safe for concurrent use.
	WriteJSON(v interface{}) error

	// Close closes the connection and cleans up resources
	Close() error
}

// Broadcaster delivers outbound events. Components never touch connections
// directly so a scoped (per-class) delivery strategy can be substituted.
type Broadcaster interface {
	// BroadcastAll sends event to every connected client
	BroadcastAll(event interface{})

	// SendTo sends event to a single connection. Returns ErrConnectionNotFound
	// when the connection is gone.
	SendTo(connectionID string, event interface{}) error
}
