package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"classhub/pkg/interfaces"
	"classhub/pkg/types"
)

// defaultGroupPrefix names auto-created groups "Group 1", "Group 2", ...
const defaultGroupPrefix = "Group "

type GroupRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type MembersRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,max=500,dive,required,max=50"`
}

type AutoGroupRequest struct {
	StudentsPerGroup int    `json:"studentsPerGroup" validate:"required,min=1,max=500"`
	GroupPrefix      string `json:"groupPrefix" validate:"max=50"`
}

// ownedGroup loads the group in the URL and checks the caller manages its class
func (s *Server) ownedGroup(w http.ResponseWriter, r *http.Request) (*types.Group, bool) {
	groupID, err := pathID(r, "groupID")
	if err != nil {
		s.sendStoreError(w, "load group", err)
		return nil, false
	}

	group, err := s.store.GetGroup(r.Context(), groupID)
	if err != nil {
		s.sendStoreError(w, "load group", err)
		return nil, false
	}
	class, err := s.store.GetClass(r.Context(), group.ClassID)
	if err != nil {
		s.sendStoreError(w, "load group", err)
		return nil, false
	}
	if !canManage(teacherFromContext(r.Context()), class) {
		s.sendStoreError(w, "load group", interfaces.ErrNotFound)
		return nil, false
	}
	return group, true
}

// GET /api/classes/{classID}/groups
func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	class, ok := s.ownedClass(w, r)
	if !ok {
		return
	}

	groups, err := s.store.ListGroups(r.Context(), class.ID)
	if err != nil {
		s.sendStoreError(w, "list groups", err)
		return
	}
	if groups == nil {
		groups = []*types.Group{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"groups": groups})
}

// POST /api/classes/{classID}/groups
func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	class, ok := s.ownedClass(w, r)
	if !ok {
		return
	}

	var req GroupRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "create group", err)
		return
	}

	group := &types.Group{
		ClassID:     class.ID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := s.store.CreateGroup(r.Context(), group); err != nil {
		s.sendStoreError(w, "create group", err)
		return
	}

	s.logger.Info("group created", "class_id", class.ID, "group_id", group.ID, "name", group.Name)
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"group": group})
}

// POST /api/classes/{classID}/auto-group
func (s *Server) autoGroup(w http.ResponseWriter, r *http.Request) {
	class, ok := s.ownedClass(w, r)
	if !ok {
		return
	}

	var req AutoGroupRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "group students", err)
		return
	}
	prefix := req.GroupPrefix
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultGroupPrefix
	}

	groups, err := s.store.AutoGroup(r.Context(), class.ID, req.StudentsPerGroup, prefix)
	if err != nil {
		s.sendStoreError(w, "group students", err)
		return
	}

	s.logger.Info("class auto-grouped", "class_id", class.ID, "groups", len(groups), "size", req.StudentsPerGroup)
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": fmt.Sprintf("Created %d groups of up to %d students", len(groups), req.StudentsPerGroup),
		"groups":  groups,
	})
}

// GET /api/groups/{groupID}
func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := s.ownedGroup(w, r)
	if !ok {
		return
	}

	students, err := s.store.ListGroupMembers(r.Context(), group.ID)
	if err != nil {
		s.sendStoreError(w, "list group members", err)
		return
	}
	if students == nil {
		students = []*types.Student{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"group": group, "students": students})
}

// PUT /api/groups/{groupID}
func (s *Server) updateGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := s.ownedGroup(w, r)
	if !ok {
		return
	}

	var req GroupRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "update group", err)
		return
	}
	group.Name = strings.TrimSpace(req.Name)
	group.Description = req.Description

	if err := s.store.UpdateGroup(r.Context(), group); err != nil {
		s.sendStoreError(w, "update group", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"group": group})
}

// DELETE /api/groups/{groupID}
func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	group, ok := s.ownedGroup(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteGroup(r.Context(), group.ID); err != nil {
		s.sendStoreError(w, "delete group", err)
		return
	}

	s.logger.Info("group deleted", "group_id", group.ID)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Group deleted"})
}

// POST /api/groups/{groupID}/students
func (s *Server) addGroupMembers(w http.ResponseWriter, r *http.Request) {
	group, ok := s.ownedGroup(w, r)
	if !ok {
		return
	}

	var req MembersRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "add group members", err)
		return
	}

	added, err := s.store.AddGroupMembers(r.Context(), group.ID, req.StudentIDs)
	if err != nil {
		s.sendStoreError(w, "add group members", err)
		return
	}
	if added == 0 {
		s.sendError(w, "All students are already in the group", http.StatusConflict)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Added %d students to the group", added),
		"count":   added,
	})
}

// DELETE /api/groups/{groupID}/students/{studentID}
func (s *Server) removeGroupMember(w http.ResponseWriter, r *http.Request) {
	group, ok := s.ownedGroup(w, r)
	if !ok {
		return
	}

	removed, err := s.store.RemoveGroupMembers(r.Context(), group.ID, []string{chi.URLParam(r, "studentID")})
	if err != nil {
		s.sendStoreError(w, "remove group member", err)
		return
	}
	if removed == 0 {
		s.sendError(w, "Student is not in this group", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Student removed from the group"})
}

// DELETE /api/groups/{groupID}/students/batch takes the IDs in the body
func (s *Server) removeGroupMembers(w http.ResponseWriter, r *http.Request) {
	group, ok := s.ownedGroup(w, r)
	if !ok {
		return
	}

	var req MembersRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "remove group members", err)
		return
	}

	removed, err := s.store.RemoveGroupMembers(r.Context(), group.ID, req.StudentIDs)
	if err != nil {
		s.sendStoreError(w, "remove group members", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      fmt.Sprintf("Removed %d students from the group", removed),
		"deletedCount": removed,
	})
}
