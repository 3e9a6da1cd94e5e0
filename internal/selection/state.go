package selection

import (
	"context"
	"errors"
	"fmt"

	"classhub/pkg/interfaces"
	"classhub/pkg/types"
)

// State holds the single process-wide selected class. It is owned by the
// hub goroutine and is not safe for concurrent use.
type State struct {
	directory interfaces.StudentDirectory
	current   *types.SelectedClass
}

// NewState creates an empty selection backed by directory for membership checks
func NewState(directory interfaces.StudentDirectory) *State {
	return &State{directory: directory}
}

// Select overwrites the selection. changed reports whether a different
// class was selected before; selecting the first class is not a change.
func (s *State) Select(classID int64, className string) (previous types.SelectedClass, changed bool) {
	if s.current != nil {
		previous = *s.current
		changed = previous.ClassID != classID
	}
	s.current = &types.SelectedClass{ClassID: classID, ClassName: className}
	return previous, changed
}

// Current returns the selected class, if any
func (s *State) Current() (types.SelectedClass, bool) {
	if s.current == nil {
		return types.SelectedClass{}, false
	}
	return *s.current, true
}

// Clear drops the selection
func (s *State) Clear() {
	s.current = nil
}

// Membership snapshots the current selection so ResolveMember can run off
// the hub goroutine.
func (s *State) Membership() Membership {
	m := Membership{directory: s.directory}
	if s.current != nil {
		selected := *s.current
		m.selected = &selected
	}
	return m
}

// ResolveMember loads studentID and checks it belongs to the selected class
func (s *State) ResolveMember(ctx context.Context, studentID string) (*types.Student, error) {
	return s.Membership().ResolveMember(ctx, studentID)
}

// Membership is an immutable view of the selection at one instant.
type Membership struct {
	directory interfaces.StudentDirectory
	selected  *types.SelectedClass
}

// Selected returns the class captured by the snapshot
func (m Membership) Selected() (types.SelectedClass, bool) {
	if m.selected == nil {
		return types.SelectedClass{}, false
	}
	return *m.selected, true
}

// ResolveMember is safe to call from any goroutine.
func (m Membership) ResolveMember(ctx context.Context, studentID string) (*types.Student, error) {
	if m.selected == nil {
		return nil, ErrNoClassSelected
	}

	student, err := m.directory.GetStudent(ctx, studentID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to look up student %s: %w", studentID, err)
	}

	if student.ClassID != m.selected.ClassID {
		return nil, ErrNotInSelectedClass
	}
	return student, nil
}
