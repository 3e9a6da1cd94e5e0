package types

import (
	"encoding/json"
	"time"
)

// Roles a WebSocket connection can hold.
const (
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// Task identifiers of the fixed catalog.
const (
	TaskTypingGame    = "typing-game"
	TaskQRCodeScanner = "qrcode-scanner"
	TaskEmotionCards  = "emotion-cards"
	TaskImageFilter   = "image-filter"
	TaskWhiteboard    = "whiteboard"
)

// TaskLog statuses
const (
	TaskStatusCompleted = "completed"
)

// Class is a teaching group owned by a teacher.
type Class struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Grade       string    `json:"grade" db:"grade"`
	Description string    `json:"description,omitempty" db:"description"`
	TeacherID   int64     `json:"teacherId" db:"teacher_id"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Student is keyed by the student-facing ID, not a surrogate key.
type Student struct {
	StudentID string    `json:"studentId" db:"student_id"`
	Name      string    `json:"name" db:"name"`
	ClassID   int64     `json:"classId" db:"class_id"`
	Email     string    `json:"email,omitempty" db:"email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Teacher can log in and own classes.
type Teacher struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email,omitempty" db:"email"`
	Department   string    `json:"department,omitempty" db:"department"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsAdmin      bool      `json:"isAdmin" db:"is_admin"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Group is a named subset of one class. A student may sit in several
// groups of their class.
type Group struct {
	ID           int64     `json:"id" db:"id"`
	ClassID      int64     `json:"classId" db:"class_id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description,omitempty" db:"description"`
	StudentCount int       `json:"studentCount" db:"-"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// CompetitionResult is one archived row per finishing student.
type CompetitionResult struct {
	ID              int64     `json:"id" db:"id"`
	StudentID       string    `json:"studentId" db:"student_id"`
	StudentName     string    `json:"studentName,omitempty" db:"-"`
	ClassID         int64     `json:"classId" db:"class_id"`
	CompetitionText string    `json:"competitionText" db:"competition_text"`
	Accuracy        float64   `json:"accuracy" db:"accuracy"`
	Progress        float64   `json:"progress" db:"progress"`
	CompletionTime  int64     `json:"completionTime" db:"completion_time"` // milliseconds
	CompetitionDate time.Time `json:"competitionDate" db:"competition_date"`
}

// TaskLog records a student completing a non-competition task.
type TaskLog struct {
	ID          int64           `json:"id" db:"id"`
	TaskID      string          `json:"taskId" db:"task_id"`
	TaskType    string          `json:"taskType" db:"task_type"`
	StudentID   string          `json:"studentId" db:"student_id"`
	StudentName string          `json:"studentName,omitempty" db:"-"`
	ClassID     int64           `json:"classId" db:"class_id"`
	TaskResult  json.RawMessage `json:"taskResult" db:"task_result"`
	TaskStatus  string          `json:"taskStatus" db:"task_status"`
	CompletedAt time.Time       `json:"completedAt" db:"completed_at"`
}

// SelectedClass is the one class currently in focus server-wide.
type SelectedClass struct {
	ClassID   int64  `json:"classId"`
	ClassName string `json:"className"`
}

// TaskDefinition is a catalog entry. The catalog never changes at runtime.
type TaskDefinition struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

// ActiveTask is a published catalog entry.
type ActiveTask struct {
	TaskDefinition
	Active        bool           `json:"active"`
	ShowInTaskbar bool           `json:"showInTaskbar,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
}

// CompetitionEntry is a finalized in-memory result of a running competition.
type CompetitionEntry struct {
	StudentID      string  `json:"studentId"`
	Accuracy       float64 `json:"accuracy"`
	CompletionTime int64   `json:"completionTime"` // milliseconds since start
}

// ResultFilter narrows competition result queries. Zero values mean "any".
type ResultFilter struct {
	ClassID   int64
	StudentID string
	Text      string
	From      *time.Time
	To        *time.Time
}

// TaskLogFilter narrows task log queries. Zero values mean "any".
type TaskLogFilter struct {
	TaskID  string
	ClassID int64
	Status  string
	From    *time.Time
	To      *time.Time
}

// ImportRecord is one line of a bulk student import.
type ImportRecord struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
}

// ImportFailure explains why an import record was rejected.
type ImportFailure struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Reason    string `json:"reason"`
}

// ImportReport is returned by bulk student imports.
type ImportReport struct {
	Success []ImportRecord  `json:"success"`
	Failed  []ImportFailure `json:"failed"`
}
