package types

import (
	"regexp"
	"unicode/utf8"
)

// MaxPayloadBytes bounds a single inbound frame.
const MaxPayloadBytes = 64 * 1024

var studentIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validate checks the fields the database does not constrain.
func (c *Class) Validate() error {
	if n := utf8.RuneCountInString(c.Name); n < 1 || n > 200 {
		return ErrInvalidClassName
	}
	if n := utf8.RuneCountInString(c.Grade); n < 1 || n > 50 {
		return ErrInvalidGrade
	}
	return nil
}

// Validate checks ID format and name length.
func (s *Student) Validate() error {
	if !IsValidStudentID(s.StudentID) {
		return ErrInvalidStudentID
	}
	if n := utf8.RuneCountInString(s.Name); n < 1 || n > 100 {
		return ErrInvalidStudentName
	}
	return nil
}

// Validate checks name length.
func (g *Group) Validate() error {
	if n := utf8.RuneCountInString(g.Name); n < 1 || n > 100 {
		return ErrInvalidGroupName
	}
	return nil
}

// Validate checks the envelope type against the known vocabulary and size limit.
func (e *Envelope) Validate() error {
	if !IsInboundEventType(e.Type) {
		return ErrInvalidEventType
	}
	if len(e.Data) > MaxPayloadBytes {
		return ErrContentTooLarge
	}
	return nil
}

// IsValidStudentID checks if a student ID meets format requirements
func IsValidStudentID(id string) bool {
	if len(id) < 1 || len(id) > 50 {
		return false
	}
	return studentIDRegex.MatchString(id)
}

// IsTeacherEvent reports whether only teacher connections may send eventType.
func IsTeacherEvent(eventType string) bool {
	switch eventType {
	case EventSelectClass,
		EventCreateCompetition,
		EventStartCompetition,
		EventEndCompetition,
		EventPublishTask,
		EventToggleTask:
		return true
	default:
		return false
	}
}

// IsInboundEventType checks if the event type is one a client may send.
func IsInboundEventType(eventType string) bool {
	if IsTeacherEvent(eventType) {
		return true
	}
	switch eventType {
	case EventCheckTaskStatus,
		EventJoinCompetition,
		EventJoinTask,
		EventUpdateProgress,
		EventSubmitEmotion,
		EventHeartbeat,
		EventLogout,
		EventGetSelectedClass,
		EventGetAvailableTasks:
		return true
	default:
		return false
	}
}
