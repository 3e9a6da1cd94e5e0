package types

import "errors"

// Validation errors shared by the REST layer and the event router.
var (
	ErrInvalidStudentID   = errors.New("student ID must be 1-50 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidClassName   = errors.New("class name must be 1-200 characters")
	ErrInvalidGrade       = errors.New("grade must be 1-50 characters")
	ErrInvalidStudentName = errors.New("student name must be 1-100 characters")
	ErrInvalidGroupName   = errors.New("group name must be 1-100 characters")
	ErrInvalidEventType   = errors.New("invalid event type")
	ErrContentTooLarge    = errors.New("event payload exceeds 64KB limit")
)
