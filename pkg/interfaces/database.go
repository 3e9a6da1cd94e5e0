package interfaces

import (
	"context"

	"classhub/pkg/types"
)

// Store handles all persistence operations. It is the only component the
// real-time core reaches through blocking calls.
type Store interface {
	StudentDirectory
	ActivityRecorder

	// Class operations

	// CreateClass inserts a class and sets its ID. Duplicate names yield ErrConflict.
	CreateClass(ctx context.Context, class *types.Class) error

	// ListClasses returns classes owned by teacherID, or all classes when teacherID is 0
	ListClasses(ctx context.Context, teacherID int64) ([]*types.Class, error)

	// UpdateClass updates name, grade and description
	UpdateClass(ctx context.Context, class *types.Class) error

	// DeleteClass refuses with ErrClassNotEmpty while students reference the class
	DeleteClass(ctx context.Context, classID int64) error

	// Student operations

	// CreateStudent inserts a student. Duplicate IDs yield ErrConflict.
	CreateStudent(ctx context.Context, student *types.Student) error

	// ListStudents returns the students of a class ordered by student ID
	ListStudents(ctx context.Context, classID int64) ([]*types.Student, error)

	// ImportStudents inserts records one by one and reports per-record outcome
	ImportStudents(ctx context.Context, classID int64, records []types.ImportRecord) (*types.ImportReport, error)

	// DeleteStudent removes a single student
	DeleteStudent(ctx context.Context, studentID string) error

	// Teacher operations

	CreateTeacher(ctx context.Context, teacher *types.Teacher) error
	GetTeacher(ctx context.Context, teacherID int64) (*types.Teacher, error)
	GetTeacherByUsername(ctx context.Context, username string) (*types.Teacher, error)
	CountTeachers(ctx context.Context) (int, error)

	// ListTeachers returns every account, newest first
	ListTeachers(ctx context.Context) ([]*types.Teacher, error)

	// UpdateTeacher rewrites name, email, department and password hash.
	// A taken email yields ErrConflict.
	UpdateTeacher(ctx context.Context, teacher *types.Teacher) error

	// DeleteTeacher refuses with ErrTeacherHasClasses while the teacher owns a class
	DeleteTeacher(ctx context.Context, teacherID int64) error

	// Group operations

	// CreateGroup inserts a group and sets its ID. Names are unique per class.
	CreateGroup(ctx context.Context, group *types.Group) error

	GetGroup(ctx context.Context, groupID int64) (*types.Group, error)

	// ListGroups returns the groups of a class newest first, with member counts
	ListGroups(ctx context.Context, classID int64) ([]*types.Group, error)

	// UpdateGroup updates name and description
	UpdateGroup(ctx context.Context, group *types.Group) error

	// DeleteGroup removes a group and its memberships
	DeleteGroup(ctx context.Context, groupID int64) error

	// ListGroupMembers returns the students of a group ordered by student ID
	ListGroupMembers(ctx context.Context, groupID int64) ([]*types.Student, error)

	// AddGroupMembers adds students that are not members yet and returns how
	// many were added. Every student must belong to the group's class, or
	// nothing is added and ErrNotInClass is returned.
	AddGroupMembers(ctx context.Context, groupID int64, studentIDs []string) (int, error)

	// RemoveGroupMembers removes the listed students and returns how many
	// memberships existed
	RemoveGroupMembers(ctx context.Context, groupID int64, studentIDs []string) (int, error)

	// AutoGroup splits the class roster, ordered by student ID, into
	// consecutive groups of size students named prefix1, prefix2 and so on.
	// An empty class yields ErrClassEmpty.
	AutoGroup(ctx context.Context, classID int64, size int, prefix string) ([]*types.Group, error)

	// Activity operations

	// CreateCompetitionResult stores a single result and sets its ID
	CreateCompetitionResult(ctx context.Context, result *types.CompetitionResult) error

	// Query operations

	// ListCompetitionResults returns results newest first
	ListCompetitionResults(ctx context.Context, filter types.ResultFilter) ([]*types.CompetitionResult, error)

	// ListTaskLogs returns logs newest first
	ListTaskLogs(ctx context.Context, filter types.TaskLogFilter) ([]*types.TaskLog, error)

	// Health and lifecycle operations

	// HealthCheck verifies database connectivity and basic operations
	HealthCheck(ctx context.Context) error

	// Close closes the database connection and cleans up resources
	Close() error
}
