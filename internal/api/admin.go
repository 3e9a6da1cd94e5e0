package api

import (
	"net/http"
	"strings"

	"classhub/internal/auth"
	"classhub/pkg/types"
)

type TeacherRequest struct {
	Username   string `json:"username" validate:"required,max=50"`
	Password   string `json:"password" validate:"required,min=6,max=200"`
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"omitempty,email,max=200"`
	Department string `json:"department" validate:"max=100"`
	IsAdmin    bool   `json:"isAdmin"`
}

// TeacherUpdateRequest leaves the password alone when it is empty. The
// username is fixed once the account exists.
type TeacherUpdateRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	Email      string `json:"email" validate:"omitempty,email,max=200"`
	Department string `json:"department" validate:"max=100"`
	Password   string `json:"password" validate:"omitempty,min=6,max=200"`
}

func (s *Server) loadTeacher(w http.ResponseWriter, r *http.Request) (*types.Teacher, bool) {
	teacherID, err := pathID(r, "teacherID")
	if err != nil {
		s.sendStoreError(w, "load teacher", err)
		return nil, false
	}
	teacher, err := s.store.GetTeacher(r.Context(), teacherID)
	if err != nil {
		s.sendStoreError(w, "load teacher", err)
		return nil, false
	}
	return teacher, true
}

// GET /api/admin/teachers
func (s *Server) listTeachers(w http.ResponseWriter, r *http.Request) {
	teachers, err := s.store.ListTeachers(r.Context())
	if err != nil {
		s.sendStoreError(w, "list teachers", err)
		return
	}
	if teachers == nil {
		teachers = []*types.Teacher{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"teachers": teachers})
}

// POST /api/admin/teachers
func (s *Server) createTeacher(w http.ResponseWriter, r *http.Request) {
	var req TeacherRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "create teacher", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.sendStoreError(w, "create teacher", err)
		return
	}
	teacher := &types.Teacher{
		Username:     strings.TrimSpace(req.Username),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Department:   strings.TrimSpace(req.Department),
		PasswordHash: hash,
		IsAdmin:      req.IsAdmin,
	}
	if err := s.store.CreateTeacher(r.Context(), teacher); err != nil {
		s.sendStoreError(w, "create teacher", err)
		return
	}

	s.logger.Info("teacher account created", "teacher_id", teacher.ID, "username", teacher.Username,
		"by", teacherFromContext(r.Context()).Username)
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"teacher": teacher})
}

// GET /api/admin/teachers/{teacherID}
func (s *Server) getTeacher(w http.ResponseWriter, r *http.Request) {
	teacher, ok := s.loadTeacher(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"teacher": teacher})
}

// PUT /api/admin/teachers/{teacherID}. A new password signs the teacher out
// everywhere.
func (s *Server) updateTeacher(w http.ResponseWriter, r *http.Request) {
	teacher, ok := s.loadTeacher(w, r)
	if !ok {
		return
	}

	var req TeacherUpdateRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "update teacher", err)
		return
	}
	teacher.Name = strings.TrimSpace(req.Name)
	teacher.Email = strings.TrimSpace(req.Email)
	teacher.Department = strings.TrimSpace(req.Department)
	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			s.sendStoreError(w, "update teacher", err)
			return
		}
		teacher.PasswordHash = hash
	}

	if err := s.store.UpdateTeacher(r.Context(), teacher); err != nil {
		s.sendStoreError(w, "update teacher", err)
		return
	}
	if req.Password != "" {
		s.auth.RevokeTeacher(teacher.ID)
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"teacher": teacher})
}

// DELETE /api/admin/teachers/{teacherID}
func (s *Server) deleteTeacher(w http.ResponseWriter, r *http.Request) {
	teacher, ok := s.loadTeacher(w, r)
	if !ok {
		return
	}
	caller := teacherFromContext(r.Context())
	if teacher.ID == caller.ID {
		s.sendError(w, "You cannot delete your own account", http.StatusBadRequest)
		return
	}

	if err := s.store.DeleteTeacher(r.Context(), teacher.ID); err != nil {
		s.sendStoreError(w, "delete teacher", err)
		return
	}
	s.auth.RevokeTeacher(teacher.ID)

	s.logger.Info("teacher account deleted", "teacher_id", teacher.ID, "username", teacher.Username, "by", caller.Username)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Teacher deleted"})
}
