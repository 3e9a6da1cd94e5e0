package selection

import "errors"

// Membership errors returned by ResolveMember
var (
	ErrNoClassSelected    = errors.New("no class is currently selected")
	ErrStudentNotFound    = errors.New("student not found")
	ErrNotInSelectedClass = errors.New("student is not in the selected class")
)
