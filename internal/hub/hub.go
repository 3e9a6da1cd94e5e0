package hub

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"classhub/internal/competition"
	"classhub/internal/presence"
	"classhub/internal/router"
	"classhub/internal/selection"
	"classhub/internal/tasks"
	"classhub/pkg/interfaces"
	"classhub/pkg/types"
)

// Store is the part of the persistence layer the hub needs
type Store interface {
	interfaces.StudentDirectory
	interfaces.ActivityRecorder
}

// Config tunes the hub's timers
type Config struct {
	SweepInterval    time.Duration
	HeartbeatTimeout time.Duration
	StoreTimeout     time.Duration
}

// DefaultConfig returns the classroom defaults
func DefaultConfig() Config {
	return Config{
		SweepInterval:    5 * time.Second,
		HeartbeatTimeout: presence.DefaultHeartbeatTimeout,
		StoreTimeout:     5 * time.Second,
	}
}

// Option customises a Hub, mostly for tests
type Option func(*Hub)

// WithClock replaces time.Now for presence and competition timing
func WithClock(clock func() time.Time) Option {
	return func(h *Hub) { h.now = clock }
}

// WithAfterFunc replaces time.AfterFunc for the competition timer
func WithAfterFunc(afterFunc competition.AfterFunc) Option {
	return func(h *Hub) { h.afterFunc = afterFunc }
}

type connectEvent struct {
	connID     string
	role       string
	registered chan struct{}
}

// Hub owns all live classroom state. Every mutation happens on the run
// goroutine; other goroutines only post onto its channels.
type Hub struct {
	requestChannel    chan *router.Request
	connectChannel    chan connectEvent
	disconnectChannel chan string
	continuations     chan func()
	expiryChannel     chan uint64
	shutdownChannel   chan struct{}
	done              chan struct{}

	broadcaster interfaces.Broadcaster
	store       Store
	logger      *slog.Logger
	config      Config
	now         func() time.Time
	afterFunc   competition.AfterFunc

	// Owned by the run goroutine
	selection   *selection.State
	presence    *presence.Tracker
	tasks       *tasks.Registry
	competition *competition.Machine
	connections map[string]string // connectionID -> role

	ctx     context.Context
	pending sync.WaitGroup // store calls in flight
	running bool
	mu      sync.RWMutex
}

// NewHub creates a stopped hub
func NewHub(config Config, broadcaster interfaces.Broadcaster, store Store, logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if config.SweepInterval <= 0 {
		config.SweepInterval = defaults.SweepInterval
	}
	if config.HeartbeatTimeout <= 0 {
		config.HeartbeatTimeout = defaults.HeartbeatTimeout
	}
	if config.StoreTimeout <= 0 {
		config.StoreTimeout = defaults.StoreTimeout
	}

	h := &Hub{
		requestChannel:    make(chan *router.Request, 1000),
		connectChannel:    make(chan connectEvent, 100),
		disconnectChannel: make(chan string, 100),
		continuations:     make(chan func(), 100),
		expiryChannel:     make(chan uint64, 1),
		shutdownChannel:   make(chan struct{}),
		done:              make(chan struct{}),
		broadcaster:       broadcaster,
		store:             store,
		logger:            logger.With("component", "hub"),
		config:            config,
		now:               time.Now,
		connections:       make(map[string]string),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.selection = selection.NewState(store)
	h.presence = presence.NewTracker(config.HeartbeatTimeout, h.now)
	h.tasks = tasks.NewRegistry()
	h.competition = competition.NewMachine(h.now, h.afterFunc)
	return h
}

// Start begins processing on a new goroutine
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.ctx = ctx

	h.logger.Info("starting hub", "sweep_interval", h.config.SweepInterval, "heartbeat_timeout", h.config.HeartbeatTimeout)
	go h.run(ctx)
	return nil
}

// Stop shuts the loop down and waits for in-flight store calls
func (h *Hub) Stop() error {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return ErrHubNotRunning
	}
	h.running = false
	close(h.shutdownChannel)
	h.mu.Unlock()

	<-h.done
	h.pending.Wait()
	h.logger.Info("hub stopped")
	return nil
}

// Connect announces a new connection and returns once the hub knows it, so
// requests read from the connection afterwards are never dropped as unknown.
func (h *Hub) Connect(connID, role string) error {
	if !h.isRunning() {
		return ErrHubNotRunning
	}
	ev := connectEvent{connID: connID, role: role, registered: make(chan struct{})}
	select {
	case h.connectChannel <- ev:
	default:
		return ErrConnectChannelFull
	}

	select {
	case <-ev.registered:
		return nil
	case <-h.done:
		return ErrHubNotRunning
	}
}

// Disconnect announces a closed connection. It blocks rather than drop the
// event so presence and participants are always cleaned up.
func (h *Hub) Disconnect(connID string) error {
	if !h.isRunning() {
		return ErrHubNotRunning
	}
	select {
	case h.disconnectChannel <- connID:
		return nil
	case <-h.done:
		return ErrHubNotRunning
	}
}

// Dispatch queues a decoded request
func (h *Hub) Dispatch(req *router.Request) error {
	if !h.isRunning() {
		return ErrHubNotRunning
	}
	select {
	case h.requestChannel <- req:
		return nil
	default:
		return ErrRequestChannelFull
	}
}

func (h *Hub) isRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}

// run is the only goroutine touching classroom state
func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	defer h.competition.Cancel()

	sweep := time.NewTicker(h.config.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case req := <-h.requestChannel:
			h.handleRequest(req)

		case ev := <-h.connectChannel:
			h.handleConnect(ev)

		case connID := <-h.disconnectChannel:
			h.handleDisconnect(connID)

		case fn := <-h.continuations:
			fn()

		case generation := <-h.expiryChannel:
			h.handleExpiry(generation)

		case <-sweep.C:
			h.sweep(h.now())

		case <-h.shutdownChannel:
			h.logger.Debug("hub shutdown requested")
			return

		case <-ctx.Done():
			h.logger.Debug("hub context cancelled")
			return
		}
	}
}

// post runs fn on the hub goroutine. It gives up once the hub has stopped.
func (h *Hub) post(fn func()) bool {
	select {
	case h.continuations <- fn:
		return true
	case <-h.done:
		return false
	}
}

// async runs a store call off the hub goroutine and posts then back onto it
func (h *Hub) async(call func(ctx context.Context) func()) {
	h.pending.Add(1)
	go func() {
		defer h.pending.Done()
		ctx, cancel := context.WithTimeout(h.ctx, h.config.StoreTimeout)
		defer cancel()

		if then := call(ctx); then != nil {
			h.post(then)
		}
	}()
}

func (h *Hub) onTimerExpired(generation uint64) {
	select {
	case h.expiryChannel <- generation:
	case <-h.done:
	}
}

func (h *Hub) handleRequest(req *router.Request) {
	if _, ok := h.connections[req.ConnID]; !ok {
		h.logger.Debug("dropping request from closed connection", "connection", req.ConnID, "event", req.Type)
		return
	}

	switch p := req.Payload.(type) {
	case *types.SelectClassPayload:
		h.handleSelectClass(p)
	case *types.CreateCompetitionPayload:
		h.handleCreateCompetition(req.ConnID, p)
	case *types.PublishTaskPayload:
		h.handleSetTask(req.ConnID, req.Type, p.TaskID, p.Active, nil)
	case *types.ToggleTaskPayload:
		showInTaskbar := p.ShowInTaskbar
		h.handleSetTask(req.ConnID, req.Type, p.TaskID, p.Active, &showInTaskbar)
	case *types.TaskQueryPayload:
		h.handleCheckTaskStatus(req.ConnID, p)
	case *types.JoinTaskPayload:
		h.handleJoinTask(req.ConnID, p)
	case *types.UpdateProgressPayload:
		h.handleUpdateProgress(req.ConnID, p)
	case *types.SubmitEmotionPayload:
		h.handleSubmitEmotion(req.ConnID, p)
	case *types.StudentPayload:
		switch req.Type {
		case types.EventJoinCompetition:
			h.handleJoinCompetition(req.ConnID, p.StudentID)
		case types.EventHeartbeat:
			h.presence.RecordHeartbeat(p.StudentID)
		case types.EventLogout:
			h.handleLogout(p.StudentID)
		}
	case nil:
		switch req.Type {
		case types.EventStartCompetition:
			h.handleStartCompetition(req.ConnID)
		case types.EventEndCompetition:
			h.handleEndCompetition()
		case types.EventGetSelectedClass:
			h.sendTo(req.ConnID, h.classSelectedEvent())
		case types.EventGetAvailableTasks:
			h.sendTo(req.ConnID, h.availableTasksEvent(nil))
		}
	default:
		h.logger.Warn("unhandled request", "event", req.Type)
	}
}

func (h *Hub) handleConnect(ev connectEvent) {
	h.connections[ev.connID] = ev.role
	h.logger.Debug("connection registered", "connection", ev.connID, "role", ev.role)
	if ev.registered != nil {
		close(ev.registered)
	}

	if _, ok := h.selection.Current(); ok {
		h.sendTo(ev.connID, h.classSelectedEvent())
	}
}

// handleDisconnect keeps presence so a refreshed page can log straight back in
func (h *Hub) handleDisconnect(connID string) {
	delete(h.connections, connID)

	studentID, ok := h.competition.RemoveConnection(connID)
	if !ok {
		studentID, ok = h.presence.StudentForConnection(connID)
	}
	if ok {
		h.logger.Info("student temporarily offline", "student", studentID, "connection", connID)
		h.broadcaster.BroadcastAll(types.NewEvent(types.EventStudentTemporarilyOffline, types.StudentEventPayload{StudentID: studentID}))
	}
}

// sweep reports students whose connection is still open but silent
func (h *Hub) sweep(now time.Time) {
	for _, studentID := range h.presence.Stale(now) {
		connID, _ := h.presence.ConnectionFor(studentID)
		if _, open := h.connections[connID]; !open {
			continue
		}
		h.logger.Info("student missed heartbeats", "student", studentID)
		h.broadcaster.BroadcastAll(types.NewEvent(types.EventStudentOffline, types.StudentEventPayload{StudentID: studentID}))
	}
}

func (h *Hub) sendTo(connID string, event types.Event) {
	if err := h.broadcaster.SendTo(connID, event); err != nil {
		h.logger.Debug("send failed", "connection", connID, "event", event.Type, "error", err)
	}
}

func (h *Hub) sendError(connID, eventType string, err error) {
	h.logger.Warn("request rejected", "connection", connID, "event", eventType, "error", err)
	h.sendTo(connID, types.NewEvent(types.EventError, types.ErrorPayload{Event: eventType, Message: err.Error()}))
}

func (h *Hub) classSelectedEvent() types.Event {
	current, ok := h.selection.Current()
	if !ok {
		return types.NewEvent(types.EventClassSelected, types.ClassSelectedPayload{Selected: false})
	}
	return types.NewEvent(types.EventClassSelected, types.ClassSelectedPayload{
		ClassID:   current.ClassID,
		ClassName: current.ClassName,
		Selected:  true,
	})
}

func (h *Hub) availableTasksEvent(student *types.StudentInfo) types.Event {
	all, active := h.tasks.List()
	return types.NewEvent(types.EventAvailableTasks, types.AvailableTasksPayload{
		Tasks:       all,
		Active:      active,
		StudentInfo: student,
	})
}
