package types

import "encoding/json"

// Inbound event names, teacher side.
const (
	EventSelectClass       = "select_class"
	EventCreateCompetition = "create_competition"
	EventStartCompetition  = "start_competition"
	EventEndCompetition    = "end_competition"
	EventPublishTask       = "publish_task"
	EventToggleTask        = "toggle_task"
	EventCheckTaskStatus   = "check_task_status"
)

// Inbound event names, student side.
const (
	EventJoinCompetition   = "join_competition"
	EventJoinTask          = "join_task"
	EventUpdateProgress    = "update_progress"
	EventSubmitEmotion     = "submit_emotion"
	EventHeartbeat         = "heartbeat"
	EventLogout            = "logout"
	EventGetSelectedClass  = "get_selected_class"
	EventGetAvailableTasks = "get_available_tasks"
)

// Outbound event names.
const (
	EventClassSelected             = "class_selected"
	EventCompetitionCreated        = "competition_created"
	EventCompetitionJoined         = "competition_joined"
	EventWaitingForCompetition     = "waiting_for_competition"
	EventJoinError                 = "join_error"
	EventCompetitionStarted        = "competition_started"
	EventCompetitionEnded          = "competition_ended"
	EventProgressUpdated           = "progress_updated"
	EventAvailableTasks            = "available_tasks"
	EventTaskAvailable             = "task_available"
	EventTaskStatusUpdate          = "task_status_update"
	EventTaskStatusResult          = "task_status_result"
	EventTaskJoined                = "task_joined"
	EventStudentLoggedIn           = "student_logged_in"
	EventStudentLoggedOut          = "student_logged_out"
	EventStudentOffline            = "student_offline"
	EventStudentTemporarilyOffline = "student_temporarily_offline"
	EventForceLogout               = "force_logout"
	EventAllStudentsLoggedOut      = "all_students_logged_out"
	EventEmotionSubmissionResult   = "emotion_submission_result"
	EventError                     = "error"
)

// Envelope is an inbound frame. Data is decoded once the type is known.
type Envelope struct {
	Type string          `json:"type" validate:"required,max=50"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is an outbound frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// NewEvent builds an outbound frame.
func NewEvent(eventType string, data any) Event {
	return Event{Type: eventType, Data: data}
}

// Inbound payloads

type SelectClassPayload struct {
	ClassID   int64  `json:"classId" validate:"required,gt=0"`
	ClassName string `json:"className" validate:"required,max=200"`
}

type CreateCompetitionPayload struct {
	Text      string `json:"text"`
	Duration  int    `json:"duration"`
	ClassID   int64  `json:"classId" validate:"required,gt=0"`
	ClassName string `json:"className" validate:"required,max=200"`
}

type PublishTaskPayload struct {
	TaskID  string `json:"taskId" validate:"required,max=50"`
	Active  bool   `json:"active"`
	ClassID int64  `json:"classId" validate:"gte=0"`
}

type ToggleTaskPayload struct {
	TaskID        string `json:"taskId" validate:"required,max=50"`
	Active        bool   `json:"active"`
	ShowInTaskbar bool   `json:"showInTaskbar"`
}

type TaskQueryPayload struct {
	TaskID string `json:"taskId" validate:"required,max=50"`
}

// StudentPayload carries only a student ID (join, heartbeat, logout, task listing).
type StudentPayload struct {
	StudentID string `json:"studentId" validate:"required,max=50"`
}

type JoinTaskPayload struct {
	TaskID    string `json:"taskId" validate:"required,max=50"`
	StudentID string `json:"studentId" validate:"required,max=50"`
}

// UpdateProgressPayload values are clamped to [0,100] by the competition.
type UpdateProgressPayload struct {
	Progress float64 `json:"progress"`
	Accuracy float64 `json:"accuracy"`
}

type SubmitEmotionPayload struct {
	StudentID   string `json:"studentId" validate:"required,max=50"`
	EmotionID   string `json:"emotionId" validate:"required,max=50"`
	EmotionName string `json:"emotionName" validate:"required,max=100"`
}

// Outbound payloads

type ClassSelectedPayload struct {
	ClassID   int64  `json:"classId,omitempty"`
	ClassName string `json:"className,omitempty"`
	Selected  bool   `json:"selected"`
}

type ClassInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type CompetitionCreatedPayload struct {
	Duration  int    `json:"duration"`
	ClassID   int64  `json:"classId"`
	ClassName string `json:"className"`
}

type CompetitionJoinedPayload struct {
	Text      string    `json:"text"`
	Duration  int       `json:"duration"` // remaining seconds
	IsStarted bool      `json:"isStarted"`
	ClassInfo ClassInfo `json:"classInfo"`
}

type WaitingPayload struct {
	ClassInfo ClassInfo `json:"classInfo"`
}

type JoinErrorPayload struct {
	Message string `json:"message"`
	NoClass bool   `json:"noClass,omitempty"`
}

type CompetitionEndedPayload struct {
	Results []CompetitionEntry `json:"results"`
}

type ProgressPayload struct {
	StudentID string  `json:"studentId"`
	Progress  float64 `json:"progress"`
	Accuracy  float64 `json:"accuracy"`
}

type AvailableTasksPayload struct {
	Tasks       []TaskDefinition `json:"tasks"`
	Active      []ActiveTask     `json:"active"`
	StudentInfo *StudentInfo     `json:"studentInfo,omitempty"`
}

type StudentInfo struct {
	StudentID string    `json:"studentId"`
	Name      string    `json:"name"`
	Class     ClassInfo `json:"class"`
}

type TaskStatusPayload struct {
	TaskID        string `json:"taskId"`
	TaskName      string `json:"taskName,omitempty"`
	Active        bool   `json:"active"`
	ShowInTaskbar *bool  `json:"showInTaskbar,omitempty"`
}

type TaskJoinedPayload struct {
	TaskID    string `json:"taskId"`
	Text      string `json:"text,omitempty"`
	Duration  int    `json:"duration,omitempty"`
	IsStarted bool   `json:"isStarted,omitempty"`
	Waiting   bool   `json:"waiting,omitempty"`
	Message   string `json:"message,omitempty"`
}

type StudentEventPayload struct {
	StudentID string `json:"studentId"`
}

type SubmissionResultPayload struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
