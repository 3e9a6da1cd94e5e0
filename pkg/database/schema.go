package database

import (
	"database/sql"
	"fmt"
)

// SchemaValidator checks a live database against the expected schema
type SchemaValidator struct {
	db *sql.DB
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator(db *sql.DB) *SchemaValidator {
	return &SchemaValidator{db: db}
}

// RequiredTables maps every table to what it stores
var RequiredTables = map[string]string{
	"teachers":            "Teacher accounts",
	"classes":             "Class data storage",
	"students":            "Student roster",
	"competition_results": "Archived typing competition results",
	"task_logs":           "Completed task submissions",
	"student_groups":      "Groups within a class",
	"group_members":       "Group membership",
	"schema_migrations":   "Migration tracking",
}

// RequiredIndexes maps every index to the query it serves
var RequiredIndexes = map[string]string{
	"idx_students_class":        "Class roster lookups",
	"idx_results_class_date":    "Class result history",
	"idx_results_student":       "Student result history",
	"idx_task_logs_task_class":  "Task log filtering",
	"idx_task_logs_completed":   "Task log date ranges",
	"idx_teachers_email":        "Unique teacher emails",
	"idx_group_members_student": "Groups of a student",
}

// ValidateTablesExist verifies that all required tables exist
func (v *SchemaValidator) ValidateTablesExist() error {
	for table, description := range RequiredTables {
		exists, err := v.objectExists("table", table)
		if err != nil {
			return fmt.Errorf("error checking table %s (%s): %w", table, description, err)
		}
		if !exists {
			return fmt.Errorf("required table %s (%s) does not exist", table, description)
		}
	}
	return nil
}

// ValidateTableStructure verifies column types of the tables the core writes to
func (v *SchemaValidator) ValidateTableStructure() error {
	resultColumns := map[string]string{
		"id":               "INTEGER",
		"student_id":       "TEXT",
		"class_id":         "INTEGER",
		"competition_text": "TEXT",
		"accuracy":         "REAL",
		"progress":         "REAL",
		"completion_time":  "INTEGER",
		"competition_date": "DATETIME",
	}
	if err := v.validateColumns("competition_results", resultColumns); err != nil {
		return fmt.Errorf("competition_results table structure invalid: %w", err)
	}

	logColumns := map[string]string{
		"id":           "INTEGER",
		"task_id":      "TEXT",
		"task_type":    "TEXT",
		"student_id":   "TEXT",
		"class_id":     "INTEGER",
		"task_result":  "TEXT",
		"task_status":  "TEXT",
		"completed_at": "DATETIME",
	}
	if err := v.validateColumns("task_logs", logColumns); err != nil {
		return fmt.Errorf("task_logs table structure invalid: %w", err)
	}

	teacherColumns := map[string]string{
		"id":         "INTEGER",
		"username":   "TEXT",
		"email":      "TEXT",
		"department": "TEXT",
	}
	if err := v.validateColumns("teachers", teacherColumns); err != nil {
		return fmt.Errorf("teachers table structure invalid: %w", err)
	}

	return nil
}

// ValidateIndexes verifies that all performance indexes exist
func (v *SchemaValidator) ValidateIndexes() error {
	for index, purpose := range RequiredIndexes {
		exists, err := v.objectExists("index", index)
		if err != nil {
			return fmt.Errorf("error checking index %s (%s): %w", index, purpose, err)
		}
		if !exists {
			return fmt.Errorf("required index %s (%s) does not exist", index, purpose)
		}
	}
	return nil
}

// ValidateConstraints verifies that foreign keys are enforced
func (v *SchemaValidator) ValidateConstraints() error {
	_, err := v.db.Exec(`
		INSERT INTO students (student_id, name, class_id, created_at)
		VALUES ('__fk_check__', 'fk check', -1, CURRENT_TIMESTAMP)
	`)
	if err == nil {
		_, _ = v.db.Exec("DELETE FROM students WHERE student_id = '__fk_check__'")
		return fmt.Errorf("foreign key constraint not enforced: students.class_id")
	}
	return nil
}

func (v *SchemaValidator) objectExists(kind, name string) (bool, error) {
	var count int
	err := v.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type=? AND name=?",
		kind, name,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// validateColumns checks that a table has the expected columns with correct types
func (v *SchemaValidator) validateColumns(tableName string, expectedColumns map[string]string) error {
	rows, err := v.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	foundColumns := make(map[string]string)
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull int
		var defaultValue interface{}
		var pk int

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			return err
		}
		foundColumns[name] = dataType
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for expectedCol, expectedType := range expectedColumns {
		foundType, exists := foundColumns[expectedCol]
		if !exists {
			return fmt.Errorf("column %s not found", expectedCol)
		}
		if foundType != expectedType {
			return fmt.Errorf("column %s has type %s, expected %s", expectedCol, foundType, expectedType)
		}
	}

	return nil
}
