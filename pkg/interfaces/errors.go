package interfaces

import "errors"

// Common interface errors used across components
var (
	ErrNotFound           = errors.New("record not found")
	ErrConflict           = errors.New("record already exists")
	ErrClassNotEmpty      = errors.New("class still has students")
	ErrClassEmpty         = errors.New("class has no students")
	ErrTeacherHasClasses  = errors.New("teacher still owns classes")
	ErrNotInClass         = errors.New("student does not belong to the class")
	ErrUnauthorized       = errors.New("unauthorized access")
	ErrConnectionNotFound = errors.New("connection not found")
)
