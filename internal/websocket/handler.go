package websocket

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"classhub/internal/router"
	"classhub/pkg/types"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = types.MaxPayloadBytes + 1024
)

var upgrader = websocket.Upgrader{
	// Classroom clients are served from other origins on the LAN
	CheckOrigin:      func(r *http.Request) bool { return true },
	HandshakeTimeout: 10 * time.Second,
}

// Dispatcher is the hub as seen from the transport
type Dispatcher interface {
	Connect(connID, role string) error
	Disconnect(connID string) error
	Dispatch(req *router.Request) error
}

// TokenVerifier checks teacher tokens
type TokenVerifier interface {
	Verify(token string) (*types.Teacher, error)
}

// Handler upgrades HTTP requests and pumps frames between clients and the hub
type Handler struct {
	registry *Registry
	hub      Dispatcher
	router   *router.Router
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewHandler creates a websocket handler
func NewHandler(registry *Registry, hub Dispatcher, r *router.Router, verifier TokenVerifier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: registry,
		hub:      hub,
		router:   r,
		verifier: verifier,
		logger:   logger.With("component", "websocket"),
	}
}

// HandleWebSocket serves GET /ws?role=student or /ws?role=teacher&token=...
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	switch role {
	case types.RoleStudent:
	case types.RoleTeacher:
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, ErrMissingToken.Error(), http.StatusUnauthorized)
			return
		}
		if _, err := h.verifier.Verify(token); err != nil {
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}
	default:
		http.Error(w, ErrInvalidRole.Error(), http.StatusBadRequest)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := NewConnection(ws, role)
	if err := h.registry.Register(conn); err != nil {
		h.logger.Error("failed to register connection", "error", err)
		_ = conn.Close()
		return
	}
	if err := h.hub.Connect(conn.ID(), role); err != nil {
		h.logger.Error("hub rejected connection", "connection", conn.ID(), "error", err)
		h.registry.Unregister(conn)
		_ = conn.Close()
		return
	}

	h.logger.Info("client connected", "connection", conn.ID(), "role", role, "remote", r.RemoteAddr)
	go h.handleConnection(conn)
}

// handleConnection is the read pump. It owns the connection's cleanup.
func (h *Handler) handleConnection(conn *Connection) {
	defer func() {
		h.registry.Unregister(conn)
		if err := h.hub.Disconnect(conn.ID()); err != nil {
			h.logger.Debug("hub not notified of disconnect", "connection", conn.ID(), "error", err)
		}
		h.router.Forget(conn.ID())
		_ = conn.Close()
		h.logger.Info("client disconnected", "connection", conn.ID(), "role", conn.Role())
	}()

	conn.conn.SetReadLimit(readLimit)
	if err := conn.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(conn)

	for {
		messageType, data, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "connection", conn.ID(), "error", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		h.route(conn, data)
	}
}

func (h *Handler) pingLoop(conn *Connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := conn.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		case <-conn.Done():
			return
		}
	}
}

func (h *Handler) route(conn *Connection, data []byte) {
	req, eventType, err := h.router.Decode(conn.ID(), conn.Role(), data)
	if err != nil {
		if errors.Is(err, router.ErrRateLimitExceeded) {
			h.logger.Warn("rate limit exceeded", "connection", conn.ID(), "event", eventType)
		} else {
			h.logger.Debug("rejected frame", "connection", conn.ID(), "event", eventType, "error", err)
		}
		h.replyError(conn, eventType, err.Error())
		return
	}

	if err := h.hub.Dispatch(req); err != nil {
		h.logger.Error("failed to dispatch request", "connection", conn.ID(), "event", eventType, "error", err)
		h.replyError(conn, eventType, "server busy, please try again")
	}
}

func (h *Handler) replyError(conn *Connection, eventType, message string) {
	event := types.NewEvent(types.EventError, types.ErrorPayload{Event: eventType, Message: message})
	if err := conn.WriteJSON(event); err != nil {
		h.logger.Debug("failed to send error", "connection", conn.ID(), "error", err)
	}
}
