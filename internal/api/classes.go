package api

import (
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"

	"classhub/pkg/interfaces"
	"classhub/pkg/types"
)

type ClassRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Grade       string `json:"grade" validate:"required,max=50"`
	Description string `json:"description" validate:"max=500"`
}

type StudentRequest struct {
	StudentID string `json:"studentId" validate:"required,max=50"`
	Name      string `json:"name" validate:"required,max=100"`
	Email     string `json:"email" validate:"omitempty,email,max=200"`
}

// ImportRequest accepts either raw text, one "studentId name" per line, or
// records the client has already split.
type ImportRequest struct {
	Text           string               `json:"text" validate:"max=200000"`
	StudentRecords []types.ImportRecord `json:"studentRecords" validate:"max=2000"`
}

type StudentLookupResponse struct {
	Student *types.Student `json:"student"`
	Class   *types.Class   `json:"class"`
}

// ownedClass loads the class in the URL and checks the caller may manage it.
// Classes of other teachers look missing unless the caller is an admin.
func (s *Server) ownedClass(w http.ResponseWriter, r *http.Request) (*types.Class, bool) {
	classID, err := pathID(r, "classID")
	if err != nil {
		s.sendStoreError(w, "load class", err)
		return nil, false
	}

	class, err := s.store.GetClass(r.Context(), classID)
	if err != nil {
		s.sendStoreError(w, "load class", err)
		return nil, false
	}
	if !canManage(teacherFromContext(r.Context()), class) {
		s.sendStoreError(w, "load class", interfaces.ErrNotFound)
		return nil, false
	}
	return class, true
}

func canManage(teacher *types.Teacher, class *types.Class) bool {
	return teacher != nil && (teacher.IsAdmin || class.TeacherID == teacher.ID)
}

// GET /api/classes
func (s *Server) listClasses(w http.ResponseWriter, r *http.Request) {
	teacher := teacherFromContext(r.Context())
	var owner int64
	if !teacher.IsAdmin {
		owner = teacher.ID
	}

	classes, err := s.store.ListClasses(r.Context(), owner)
	if err != nil {
		s.sendStoreError(w, "list classes", err)
		return
	}
	if classes == nil {
		classes = []*types.Class{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"classes": classes})
}

// POST /api/classes
func (s *Server) createClass(w http.ResponseWriter, r *http.Request) {
	var req ClassRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "create class", err)
		return
	}

	class := &types.Class{
		Name:        strings.TrimSpace(req.Name),
		Grade:       strings.TrimSpace(req.Grade),
		Description: req.Description,
		TeacherID:   teacherFromContext(r.Context()).ID,
	}
	if err := s.store.CreateClass(r.Context(), class); err != nil {
		s.sendStoreError(w, "create class", err)
		return
	}

	s.logger.Info("class created", "class_id", class.ID, "name", class.Name)
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"class": class})
}

// GET /api/classes/{classID}
func (s *Server) getClass(w http.ResponseWriter, r *http.Request) {
	class, ok := s.ownedClass(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"class": class})
}

// PUT /api/classes/{classID}
func (s *Server) updateClass(w http.ResponseWriter, r *http.Request) {
	class, ok := s.ownedClass(w, r)
	if !ok {
		return
	}

	var req ClassRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "update class", err)
		return
	}
	class.Name = strings.TrimSpace(req.Name)
	class.Grade = strings.TrimSpace(req.Grade)
	class.Description = req.Description

	if err := s.store.UpdateClass(r.Context(), class); err != nil {
		s.sendStoreError(w, "update class", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"class": class})
}

// DELETE /api/classes/{classID}
func (s *Server) deleteClass(w http.ResponseWriter, r *http.Request) {
	class, ok := s.ownedClass(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteClass(r.Context(), class.ID); err != nil {
		s.sendStoreError(w, "delete class", err)
		return
	}

	s.logger.Info("class deleted", "class_id", class.ID)
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Class deleted"})
}

// GET /api/classes/{classID}/students
func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	class, ok := s.ownedClass(w, r)
	if !ok {
		return
	}

	students, err := s.store.ListStudents(r.Context(), class.ID)
	if err != nil {
		s.sendStoreError(w, "list students", err)
		return
	}
	if students == nil {
		students = []*types.Student{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"class": class, "students": students})
}

// POST /api/classes/{classID}/students
func (s *Server) createStudent(w http.ResponseWriter, r *http.Request) {
	class, ok := s.ownedClass(w, r)
	if !ok {
		return
	}

	var req StudentRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "add student", err)
		return
	}

	student := &types.Student{
		StudentID: strings.TrimSpace(req.StudentID),
		Name:      strings.TrimSpace(req.Name),
		ClassID:   class.ID,
		Email:     req.Email,
	}
	if err := s.store.CreateStudent(r.Context(), student); err != nil {
		s.sendStoreError(w, "add student", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{"student": student})
}

// POST /api/classes/{classID}/students/import-text
func (s *Server) importStudents(w http.ResponseWriter, r *http.Request) {
	class, ok := s.ownedClass(w, r)
	if !ok {
		return
	}

	var req ImportRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.sendStoreError(w, "import students", err)
		return
	}

	records, rejected := req.StudentRecords, []types.ImportFailure{}
	if strings.TrimSpace(req.Text) != "" {
		parsed, bad := ParseImportText(req.Text)
		records = append(records, parsed...)
		rejected = append(rejected, bad...)
	}
	if len(records) == 0 && len(rejected) == 0 {
		s.sendError(w, "No student records supplied", http.StatusBadRequest)
		return
	}

	report, err := s.store.ImportStudents(r.Context(), class.ID, records)
	if err != nil {
		s.sendStoreError(w, "import students", err)
		return
	}
	report.Failed = append(rejected, report.Failed...)

	s.logger.Info("students imported", "class_id", class.ID, "added", len(report.Success), "failed", len(report.Failed))
	s.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": fmt.Sprintf("Imported %d students, %d failed", len(report.Success), len(report.Failed)),
		"results": report,
	})
}

// ParseImportText splits text into records. Each non-blank line holds a
// student ID followed by a name, separated by whitespace or commas.
func ParseImportText(text string) ([]types.ImportRecord, []types.ImportFailure) {
	var records []types.ImportRecord
	var failed []types.ImportFailure

	for _, line := range strings.Split(text, "\n") {
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) || r == ',' || r == '，'
		})
		switch len(fields) {
		case 0:
			continue
		case 1:
			failed = append(failed, types.ImportFailure{StudentID: fields[0], Reason: "missing name"})
		default:
			records = append(records, types.ImportRecord{
				StudentID: fields[0],
				Name:      strings.Join(fields[1:], " "),
			})
		}
	}
	return records, failed
}

// DELETE /api/students/{studentID}
func (s *Server) deleteStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentID")
	student, err := s.store.GetStudent(r.Context(), studentID)
	if err != nil {
		s.sendStoreError(w, "delete student", err)
		return
	}
	class, err := s.store.GetClass(r.Context(), student.ClassID)
	if err != nil {
		s.sendStoreError(w, "delete student", err)
		return
	}
	if !canManage(teacherFromContext(r.Context()), class) {
		s.sendStoreError(w, "delete student", interfaces.ErrNotFound)
		return
	}

	if err := s.store.DeleteStudent(r.Context(), studentID); err != nil {
		s.sendStoreError(w, "delete student", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Student deleted"})
}

// GET /api/students/{studentID} is public so the student login page can
// show who is logging in.
func (s *Server) lookupStudent(w http.ResponseWriter, r *http.Request) {
	student, err := s.store.GetStudent(r.Context(), chi.URLParam(r, "studentID"))
	if err != nil {
		s.sendStoreError(w, "look up student", err)
		return
	}
	class, err := s.store.GetClass(r.Context(), student.ClassID)
	if err != nil {
		s.sendStoreError(w, "look up student", err)
		return
	}
	s.writeJSON(w, http.StatusOK, StudentLookupResponse{Student: student, Class: class})
}
