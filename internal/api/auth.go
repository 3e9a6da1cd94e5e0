package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"classhub/internal/auth"
	"classhub/pkg/types"
)

type contextKey string

const teacherCtxKey contextKey = "teacher"

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=200"`
}

// bearerToken reads "Authorization: Bearer <token>"
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (s *Server) requireTeacher(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			s.sendError(w, "Authorization token required", http.StatusUnauthorized)
			return
		}
		teacher, err := s.auth.Verify(token)
		if err != nil {
			s.sendError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), teacherCtxKey, teacher)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin runs after requireTeacher
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		teacher := teacherFromContext(r.Context())
		if teacher == nil || !teacher.IsAdmin {
			s.sendError(w, "Administrator access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func teacherFromContext(ctx context.Context) *types.Teacher {
	teacher, _ := ctx.Value(teacherCtxKey).(*types.Teacher)
	return teacher
}

// POST /api/auth/login
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "log in", err)
		return
	}

	session, err := s.auth.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrMissingCredentials):
		s.sendError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	case err != nil:
		s.sendStoreError(w, "log in", err)
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

// GET /api/auth/verify
func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	teacher, err := s.auth.Verify(bearerToken(r))
	if err != nil {
		s.sendError(w, "Invalid or expired token", http.StatusUnauthorized)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"teacher": teacher})
}

// POST /api/auth/logout
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if token := bearerToken(r); token != "" {
		s.auth.Logout(token)
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}
