package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestStudent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		student Student
		wantErr error
	}{
		{"valid", Student{StudentID: "2023001", Name: "Li Lei", ClassID: 1}, nil},
		{"empty id", Student{StudentID: "", Name: "Li Lei"}, ErrInvalidStudentID},
		{"id with space", Student{StudentID: "2023 001", Name: "Li Lei"}, ErrInvalidStudentID},
		{"id too long", Student{StudentID: strings.Repeat("1", 51), Name: "Li Lei"}, ErrInvalidStudentID},
		{"empty name", Student{StudentID: "2023001", Name: ""}, ErrInvalidStudentName},
		{"unicode name", Student{StudentID: "2023001", Name: "韩梅梅"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.student.Validate(); err != tt.wantErr {
				t.Errorf("Student.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClass_Validate(t *testing.T) {
	tests := []struct {
		name    string
		class   Class
		wantErr error
	}{
		{"valid", Class{Name: "Class 1", Grade: "7"}, nil},
		{"empty name", Class{Name: "", Grade: "7"}, ErrInvalidClassName},
		{"name too long", Class{Name: strings.Repeat("a", 201), Grade: "7"}, ErrInvalidClassName},
		{"empty grade", Class{Name: "Class 1"}, ErrInvalidGrade},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.class.Validate(); err != tt.wantErr {
				t.Errorf("Class.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEnvelope_Validate(t *testing.T) {
	tests := []struct {
		name     string
		envelope Envelope
		wantErr  error
	}{
		{"teacher event", Envelope{Type: EventSelectClass}, nil},
		{"student event", Envelope{Type: EventHeartbeat, Data: json.RawMessage(`{"studentId":"s1"}`)}, nil},
		{"outbound type rejected", Envelope{Type: EventForceLogout}, ErrInvalidEventType},
		{"unknown type", Envelope{Type: "drop_tables"}, ErrInvalidEventType},
		{"too large", Envelope{Type: EventHeartbeat, Data: json.RawMessage(`"` + strings.Repeat("x", MaxPayloadBytes) + `"`)}, ErrContentTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.envelope.Validate(); err != tt.wantErr {
				t.Errorf("Envelope.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsTeacherEvent(t *testing.T) {
	teacherOnly := []string{
		EventSelectClass, EventCreateCompetition, EventStartCompetition,
		EventEndCompetition, EventPublishTask, EventToggleTask,
	}
	for _, e := range teacherOnly {
		if !IsTeacherEvent(e) {
			t.Errorf("IsTeacherEvent(%q) = false, want true", e)
		}
	}

	open := []string{EventCheckTaskStatus, EventJoinCompetition, EventHeartbeat, EventGetSelectedClass}
	for _, e := range open {
		if IsTeacherEvent(e) {
			t.Errorf("IsTeacherEvent(%q) = true, want false", e)
		}
	}
}

func TestTeacher_PasswordHashNotSerialized(t *testing.T) {
	data, err := json.Marshal(Teacher{Username: "admin", PasswordHash: "secret-hash"})
	if err != nil {
		t.Fatalf("Failed to marshal teacher: %v", err)
	}
	if strings.Contains(string(data), "secret-hash") {
		t.Error("password hash must not be serialized")
	}
}
