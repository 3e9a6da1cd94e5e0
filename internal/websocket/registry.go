package websocket

import (
	"errors"
	"log/slog"
	"sync"

	"classhub/pkg/interfaces"
)

// Registry tracks open connections by connection ID and delivers outbound
// events. It is the only websocket structure shared with the hub goroutine.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]interfaces.Connection
	logger      *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		connections: make(map[string]interfaces.Connection),
		logger:      logger.With("component", "registry"),
	}
}

// Register adds conn
func (r *Registry) Register(conn interfaces.Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.connections[conn.ID()]; exists {
		return ErrDuplicateConnection
	}
	r.connections[conn.ID()] = conn
	return nil
}

// Unregister removes conn. Unknown connections are ignored.
func (r *Registry) Unregister(conn interfaces.Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if registered, ok := r.connections[conn.ID()]; ok && registered == conn {
		delete(r.connections, conn.ID())
	}
}

// Get returns the connection with id
func (r *Registry) Get(id string) (interfaces.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[id]
	return conn, ok
}

// Count returns the number of open connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// CountByRole returns open connections per role
func (r *Registry) CountByRole() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, conn := range r.connections {
		counts[conn.Role()]++
	}
	return counts
}

// BroadcastAll queues event on every open connection
func (r *Registry) BroadcastAll(event interface{}) {
	r.mu.RLock()
	targets := make([]interfaces.Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	for _, conn := range targets {
		r.deliver(conn, event)
	}
}

// SendTo queues event on a single connection
func (r *Registry) SendTo(connectionID string, event interface{}) error {
	conn, ok := r.Get(connectionID)
	if !ok {
		return interfaces.ErrConnectionNotFound
	}
	return r.deliver(conn, event)
}

// deliver drops connections that cannot keep up; their read pump then
// unregisters them.
func (r *Registry) deliver(conn interfaces.Connection, event interface{}) error {
	err := conn.WriteJSON(event)
	if errors.Is(err, ErrSendBufferFull) {
		r.logger.Warn("closing slow connection", "connection", conn.ID(), "role", conn.Role())
		_ = conn.Close()
	} else if err != nil && !errors.Is(err, ErrConnectionClosed) {
		r.logger.Error("failed to queue event", "connection", conn.ID(), "error", err)
	}
	return err
}
