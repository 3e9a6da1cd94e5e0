package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"classhub/pkg/interfaces"
	"classhub/pkg/types"
)

const maxBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var errBadRequest = errors.New("bad request")

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.writeJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

// decodeJSON reads a size-limited body into v and runs its validate tags
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed on %s", errBadRequest, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// sendStoreError maps store and validation errors to HTTP statuses
func (s *Server) sendStoreError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, errBadRequest):
		s.sendError(w, strings.TrimPrefix(err.Error(), errBadRequest.Error()+": "), http.StatusBadRequest)
	case errors.Is(err, interfaces.ErrNotFound):
		s.sendError(w, "Not found", http.StatusNotFound)
	case errors.Is(err, interfaces.ErrConflict):
		s.sendError(w, "Already exists", http.StatusConflict)
	case errors.Is(err, interfaces.ErrClassNotEmpty):
		s.sendError(w, "Class still has students, remove them first", http.StatusConflict)
	case errors.Is(err, interfaces.ErrTeacherHasClasses):
		s.sendError(w, "Teacher still owns classes, reassign or delete them first", http.StatusConflict)
	case errors.Is(err, interfaces.ErrClassEmpty):
		s.sendError(w, "Class has no students", http.StatusBadRequest)
	case errors.Is(err, interfaces.ErrNotInClass):
		s.sendError(w, "Some students do not exist or belong to another class", http.StatusBadRequest)
	case isValidationError(err):
		s.sendError(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("request failed", "action", action, "error", err)
		s.sendError(w, "Failed to "+action, http.StatusInternalServerError)
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		types.ErrInvalidStudentID,
		types.ErrInvalidClassName,
		types.ErrInvalidGrade,
		types.ErrInvalidStudentName,
		types.ErrInvalidGroupName,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

// dateRange parses startDate and endDate query values. A bare date as
// endDate covers that whole day.
func dateRange(r *http.Request) (from, to *time.Time, err error) {
	if raw := r.URL.Query().Get("startDate"); raw != "" {
		t, _, err := parseDate(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid startDate", errBadRequest)
		}
		from = &t
	}
	if raw := r.URL.Query().Get("endDate"); raw != "" {
		t, dateOnly, err := parseDate(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: invalid endDate", errBadRequest)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		to = &t
	}
	return from, to, nil
}

func parseDate(raw string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	return t, false, err
}
