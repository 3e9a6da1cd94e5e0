package interfaces

import (
	"context"

	"classhub/pkg/types"
)

// StudentDirectory resolves students and classes for membership checks
type StudentDirectory interface {
	// GetStudent returns ErrNotFound for an unknown student ID
	GetStudent(ctx context.Context, studentID string) (*types.Student, error)

	// GetClass returns ErrNotFound for an unknown class ID
	GetClass(ctx context.Context, classID int64) (*types.Class, error)
}

// ActivityRecorder archives the outcome of live tasks
type ActivityRecorder interface {
	// SaveCompetitionResults stores one row per entry, all sharing text and class
	SaveCompetitionResults(ctx context.Context, classID int64, text string, entries []types.CompetitionEntry) error

	// CreateTaskLog appends a task log. ID and CompletedAt are filled in when zero.
	CreateTaskLog(ctx context.Context, log *types.TaskLog) error
}
