package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"classhub/internal/auth"
	"classhub/internal/hub"
	"classhub/pkg/interfaces"
	"classhub/pkg/types"
)

// Authenticator issues and checks teacher tokens
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Verify(token string) (*types.Teacher, error)
	Logout(token string)
	RevokeTeacher(teacherID int64) int
}

// LiveState exposes the hub's in-memory classroom state
type LiveState interface {
	Snapshot(ctx context.Context) (*hub.Snapshot, error)
}

// ConnectionCounter reports open websocket connections
type ConnectionCounter interface {
	CountByRole() map[string]int
}

// Server is the REST surface. It holds no classroom state of its own.
type Server struct {
	store       interfaces.Store
	auth        Authenticator
	live        LiveState
	connections ConnectionCounter
	validate    *validator.Validate
	logger      *slog.Logger
	router      chi.Router
	started     time.Time
}

// NewServer wires every route. ws, when non-nil, is mounted at /ws.
func NewServer(store interfaces.Store, authenticator Authenticator, live LiveState, connections ConnectionCounter, ws http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:       store,
		auth:        authenticator,
		live:        live,
		connections: connections,
		validate:    validator.New(),
		logger:      logger.With("component", "api"),
		router:      chi.NewRouter(),
		started:     time.Now(),
	}
	s.setupRoutes(ws)
	return s
}

func (s *Server) setupRoutes(ws http.Handler) {
	r := s.router
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	if ws != nil {
		r.Handle("/ws", ws)
	}

	r.Group(func(r chi.Router) {
		r.Use(jsonMiddleware)
		r.Get("/health", s.healthCheck)

		r.Route("/api", func(r chi.Router) {
			r.Use(chiMiddleware.Timeout(30 * time.Second))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", s.login)
				r.Get("/verify", s.verify)
				r.Post("/logout", s.logout)
			})

			// Public routes used by student pages
			r.Get("/students/{studentID}", s.lookupStudent)
			r.Post("/competition/results", s.createResults)
			r.Get("/competition/results", s.listResults)
			r.Post("/tasks/logs", s.createTaskLog)
			r.Get("/tasks/emotion-logs", s.listEmotionLogs)

			r.Group(func(r chi.Router) {
				r.Use(s.requireTeacher)

				r.Get("/classes", s.listClasses)
				r.Post("/classes", s.createClass)
				r.Route("/classes/{classID}", func(r chi.Router) {
					r.Get("/", s.getClass)
					r.Put("/", s.updateClass)
					r.Delete("/", s.deleteClass)
					r.Get("/students", s.listStudents)
					r.Post("/students", s.createStudent)
					r.Post("/students/import-text", s.importStudents)
					r.Get("/groups", s.listGroups)
					r.Post("/groups", s.createGroup)
					r.Post("/auto-group", s.autoGroup)
				})
				r.Delete("/students/{studentID}", s.deleteStudent)
				r.Route("/groups/{groupID}", func(r chi.Router) {
					r.Get("/", s.getGroup)
					r.Put("/", s.updateGroup)
					r.Delete("/", s.deleteGroup)
					r.Post("/students", s.addGroupMembers)
					r.Delete("/students/batch", s.removeGroupMembers)
					r.Delete("/students/{studentID}", s.removeGroupMember)
				})
				r.Get("/presence", s.presence)

				r.Route("/admin/teachers", func(r chi.Router) {
					r.Use(s.requireAdmin)
					r.Get("/", s.listTeachers)
					r.Post("/", s.createTeacher)
					r.Get("/{teacherID}", s.getTeacher)
					r.Put("/{teacherID}", s.updateTeacher)
					r.Delete("/{teacherID}", s.deleteTeacher)
				})
			})
		})
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Database    string         `json:"database"`
	Connections map[string]int `json:"connections"`
	Uptime      string         `json:"uptime"`
}

// GET /health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:      "healthy",
		Timestamp:   time.Now(),
		Database:    "healthy",
		Connections: map[string]int{},
		Uptime:      time.Since(s.started).Round(time.Second).String(),
	}
	if s.connections != nil {
		response.Connections = s.connections.CountByRole()
	}

	status := http.StatusOK
	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Error("health check failed", "error", err)
		response.Status = "unhealthy"
		response.Database = "error: " + err.Error()
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, response)
}

// GET /api/presence
func (s *Server) presence(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.live.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("failed to read live state", "error", err)
		s.sendError(w, "Live state unavailable", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chiMiddleware.GetReqID(r.Context()),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
