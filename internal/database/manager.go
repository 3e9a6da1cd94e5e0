package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	dbconfig "classhub/pkg/database"
	"classhub/pkg/interfaces"
	"classhub/pkg/types"
)

// writeRetryDelay is how long a busy write waits before its single retry
var writeRetryDelay = 500 * time.Millisecond

// Manager implements interfaces.Store on SQLite. Reads go straight to the
// pool; every write is funnelled through a single writer goroutine.
type Manager struct {
	db           *sql.DB
	config       *dbconfig.Config
	logger       *slog.Logger
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	closed       bool
	mu           sync.RWMutex
}

type writeOperation struct {
	ctx       context.Context
	operation func(context.Context, *sql.DB) error
	result    chan error
}

var _ interfaces.Store = (*Manager)(nil)

// NewManager opens the database, applies migrations and starts the writer
func NewManager(config *dbconfig.Config, logger *slog.Logger) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxConnections)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if err := applySQLiteOptimizations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply SQLite optimizations: %w", err)
	}

	migrations := dbconfig.NewMigrationManager(db, config.MigrationsPath)
	if err := migrations.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	if err := migrations.ValidateSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	manager := &Manager{
		db:           db,
		config:       config,
		logger:       logger.With("component", "database"),
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
	}

	manager.wg.Add(1)
	go manager.writeLoop()

	return manager, nil
}

// writeLoop processes all write operations in a single goroutine
func (m *Manager) writeLoop() {
	defer m.wg.Done()

	for {
		select {
		case op := <-m.writeChannel:
			err := op.operation(op.ctx, m.db)
			if isBusy(err) {
				m.logger.Warn("database busy, retrying write", "delay", writeRetryDelay, "error", err)
				time.Sleep(writeRetryDelay)
				err = op.operation(op.ctx, m.db)
			}
			op.result <- err

		case <-m.shutdown:
			m.logger.Debug("write loop shutting down")
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion
func (m *Manager) executeWrite(ctx context.Context, operation func(context.Context, *sql.DB) error) error {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrManagerClosed
	}
	m.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case m.writeChannel <- writeOperation{ctx: ctx, operation: operation, result: result}:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.shutdown:
		return ErrManagerClosed
	}

	select {
	case err := <-result:
		return err
	case <-time.After(30 * time.Second):
		return ErrWriteTimeout
	}
}

// Class operations

// GetClass retrieves a class by ID
func (m *Manager) GetClass(ctx context.Context, classID int64) (*types.Class, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, name, grade, description, teacher_id, created_at
		FROM classes
		WHERE id = ?
	`, classID)

	class, err := scanClass(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query class: %w", err)
	}
	return class, nil
}

// CreateClass inserts a class and assigns its ID
func (m *Manager) CreateClass(ctx context.Context, class *types.Class) error {
	if err := class.Validate(); err != nil {
		return err
	}
	if class.CreatedAt.IsZero() {
		class.CreatedAt = time.Now().UTC()
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			INSERT INTO classes (name, grade, description, teacher_id, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, class.Name, class.Grade, class.Description, class.TeacherID, class.CreatedAt.UTC())
		if err != nil {
			return translateError("insert class", err)
		}
		class.ID, err = res.LastInsertId()
		return err
	})
}

// ListClasses returns classes ordered by name
func (m *Manager) ListClasses(ctx context.Context, teacherID int64) ([]*types.Class, error) {
	query := `SELECT id, name, grade, description, teacher_id, created_at FROM classes`
	var args []interface{}
	if teacherID != 0 {
		query += ` WHERE teacher_id = ?`
		args = append(args, teacherID)
	}
	query += ` ORDER BY name ASC`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query classes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	classes := []*types.Class{}
	for rows.Next() {
		class, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan class row: %w", err)
		}
		classes = append(classes, class)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating class rows: %w", err)
	}
	return classes, nil
}

// UpdateClass updates name, grade and description
func (m *Manager) UpdateClass(ctx context.Context, class *types.Class) error {
	if err := class.Validate(); err != nil {
		return err
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			UPDATE classes
			SET name = ?, grade = ?, description = ?
			WHERE id = ?
		`, class.Name, class.Grade, class.Description, class.ID)
		if err != nil {
			return translateError("update class", err)
		}
		return requireAffected(res)
	})
}

// DeleteClass removes a class that has no students left
func (m *Manager) DeleteClass(ctx context.Context, classID int64) error {
	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var students int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM students WHERE class_id = ?", classID,
		).Scan(&students); err != nil {
			return fmt.Errorf("failed to count students: %w", err)
		}
		if students > 0 {
			return interfaces.ErrClassNotEmpty
		}

		// rows posted over REST may reference the class under a student from another one
		if _, err := tx.ExecContext(ctx, "DELETE FROM task_logs WHERE class_id = ?", classID); err != nil {
			return fmt.Errorf("failed to delete task logs: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM competition_results WHERE class_id = ?", classID); err != nil {
			return fmt.Errorf("failed to delete results: %w", err)
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM classes WHERE id = ?", classID)
		if err != nil {
			return fmt.Errorf("failed to delete class: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// Student operations

// GetStudent retrieves a student by student ID
func (m *Manager) GetStudent(ctx context.Context, studentID string) (*types.Student, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT student_id, name, class_id, email, created_at
		FROM students
		WHERE student_id = ?
	`, studentID)

	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query student: %w", err)
	}
	return student, nil
}

// CreateStudent inserts a single student
func (m *Manager) CreateStudent(ctx context.Context, student *types.Student) error {
	if err := student.Validate(); err != nil {
		return err
	}
	if student.CreatedAt.IsZero() {
		student.CreatedAt = time.Now().UTC()
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		return insertStudent(ctx, db, student)
	})
}

// ListStudents returns the roster of a class
func (m *Manager) ListStudents(ctx context.Context, classID int64) ([]*types.Student, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT student_id, name, class_id, email, created_at
		FROM students
		WHERE class_id = ?
		ORDER BY student_id ASC
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer func() { _ = rows.Close() }()

	students := []*types.Student{}
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student rows: %w", err)
	}
	return students, nil
}

// ImportStudents inserts each record independently. A bad or duplicate
// record is reported and does not stop the rest of the import.
func (m *Manager) ImportStudents(ctx context.Context, classID int64, records []types.ImportRecord) (*types.ImportReport, error) {
	if _, err := m.GetClass(ctx, classID); err != nil {
		return nil, err
	}

	report := &types.ImportReport{
		Success: []types.ImportRecord{},
		Failed:  []types.ImportFailure{},
	}

	err := m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		now := time.Now().UTC()
		for _, record := range records {
			student := &types.Student{
				StudentID: record.StudentID,
				Name:      record.Name,
				ClassID:   classID,
				CreatedAt: now,
			}
			if err := student.Validate(); err != nil {
				report.Failed = append(report.Failed, importFailure(record, err.Error()))
				continue
			}

			err := insertStudent(ctx, db, student)
			switch {
			case err == nil:
				report.Success = append(report.Success, record)
			case errors.Is(err, interfaces.ErrConflict):
				report.Failed = append(report.Failed, importFailure(record, "already exists"))
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return report, nil
}

// DeleteStudent removes a student together with their archived activity
func (m *Manager) DeleteStudent(ctx context.Context, studentID string) error {
	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, "DELETE FROM students WHERE student_id = ?", studentID)
		if err != nil {
			return fmt.Errorf("failed to delete student: %w", err)
		}
		return requireAffected(res)
	})
}

// Teacher operations

// CreateTeacher inserts a teacher account
func (m *Manager) CreateTeacher(ctx context.Context, teacher *types.Teacher) error {
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = time.Now().UTC()
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			INSERT INTO teachers (username, name, email, department, password_hash, is_admin, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, teacher.Username, teacher.Name, teacher.Email, teacher.Department,
			teacher.PasswordHash, teacher.IsAdmin, teacher.CreatedAt.UTC())
		if err != nil {
			return translateError("insert teacher", err)
		}
		teacher.ID, err = res.LastInsertId()
		return err
	})
}

// GetTeacher retrieves a teacher by ID
func (m *Manager) GetTeacher(ctx context.Context, teacherID int64) (*types.Teacher, error) {
	return m.queryTeacher(ctx, "id = ?", teacherID)
}

// GetTeacherByUsername retrieves a teacher by login name
func (m *Manager) GetTeacherByUsername(ctx context.Context, username string) (*types.Teacher, error) {
	return m.queryTeacher(ctx, "username = ?", username)
}

const teacherColumns = `id, username, name, email, department, password_hash, is_admin, created_at`

func (m *Manager) queryTeacher(ctx context.Context, where string, arg interface{}) (*types.Teacher, error) {
	row := m.db.QueryRowContext(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE `+where, arg)

	teacher, err := scanTeacher(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query teacher: %w", err)
	}
	return teacher, nil
}

// CountTeachers returns the number of teacher accounts
func (m *Manager) CountTeachers(ctx context.Context) (int, error) {
	var count int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM teachers").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count teachers: %w", err)
	}
	return count, nil
}

// ListTeachers returns every account, newest first
func (m *Manager) ListTeachers(ctx context.Context) ([]*types.Teacher, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT `+teacherColumns+` FROM teachers ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query teachers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	teachers := []*types.Teacher{}
	for rows.Next() {
		teacher, err := scanTeacher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan teacher row: %w", err)
		}
		teachers = append(teachers, teacher)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating teacher rows: %w", err)
	}
	return teachers, nil
}

// UpdateTeacher rewrites the profile and password hash. The username and
// admin flag never change.
func (m *Manager) UpdateTeacher(ctx context.Context, teacher *types.Teacher) error {
	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			UPDATE teachers
			SET name = ?, email = ?, department = ?, password_hash = ?
			WHERE id = ?
		`, teacher.Name, teacher.Email, teacher.Department, teacher.PasswordHash, teacher.ID)
		if err != nil {
			return translateError("update teacher", err)
		}
		return requireAffected(res)
	})
}

// DeleteTeacher removes an account that owns no classes
func (m *Manager) DeleteTeacher(ctx context.Context, teacherID int64) error {
	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var classes int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM classes WHERE teacher_id = ?", teacherID,
		).Scan(&classes); err != nil {
			return fmt.Errorf("failed to count classes: %w", err)
		}
		if classes > 0 {
			return interfaces.ErrTeacherHasClasses
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM teachers WHERE id = ?", teacherID)
		if err != nil {
			return fmt.Errorf("failed to delete teacher: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}

		return tx.Commit()
	})
}

// Activity operations

// SaveCompetitionResults archives the finishers of one competition in a
// single transaction. Completion time doubles as progress 100.
func (m *Manager) SaveCompetitionResults(ctx context.Context, classID int64, text string, entries []types.CompetitionEntry) error {
	if len(entries) == 0 {
		return nil
	}
	date := time.Now().UTC()

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO competition_results
				(student_id, class_id, competition_text, accuracy, progress, completion_time, competition_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare result insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, entry := range entries {
			if _, err := stmt.ExecContext(ctx,
				entry.StudentID, classID, text, entry.Accuracy, 100.0, entry.CompletionTime, date,
			); err != nil {
				return translateError("insert result for "+entry.StudentID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit results: %w", err)
		}
		return nil
	})
}

// CreateCompetitionResult stores one result posted through the REST surface
func (m *Manager) CreateCompetitionResult(ctx context.Context, result *types.CompetitionResult) error {
	if result.CompetitionDate.IsZero() {
		result.CompetitionDate = time.Now().UTC()
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			INSERT INTO competition_results
				(student_id, class_id, competition_text, accuracy, progress, completion_time, competition_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, result.StudentID, result.ClassID, result.CompetitionText, result.Accuracy,
			result.Progress, result.CompletionTime, result.CompetitionDate.UTC())
		if err != nil {
			return translateError("insert result", err)
		}
		result.ID, err = res.LastInsertId()
		return err
	})
}

// CreateTaskLog appends a task log
func (m *Manager) CreateTaskLog(ctx context.Context, log *types.TaskLog) error {
	if log.CompletedAt.IsZero() {
		log.CompletedAt = time.Now().UTC()
	}
	if log.TaskStatus == "" {
		log.TaskStatus = types.TaskStatusCompleted
	}
	result := string(log.TaskResult)
	if result == "" {
		result = "{}"
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			INSERT INTO task_logs
				(task_id, task_type, student_id, class_id, task_result, task_status, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, log.TaskID, log.TaskType, log.StudentID, log.ClassID, result, log.TaskStatus, log.CompletedAt.UTC())
		if err != nil {
			return translateError("insert task log", err)
		}
		log.ID, err = res.LastInsertId()
		return err
	})
}

// ListCompetitionResults returns results newest first with the student name joined in
func (m *Manager) ListCompetitionResults(ctx context.Context, filter types.ResultFilter) ([]*types.CompetitionResult, error) {
	var where []string
	var args []interface{}
	if filter.ClassID != 0 {
		where = append(where, "r.class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.StudentID != "" {
		where = append(where, "r.student_id = ?")
		args = append(args, filter.StudentID)
	}
	if filter.Text != "" {
		where = append(where, "r.competition_text LIKE ?")
		args = append(args, "%"+filter.Text+"%")
	}
	where, args = appendRange(where, args, "r.competition_date", filter.From, filter.To)

	query := `
		SELECT r.id, r.student_id, COALESCE(s.name, ''), r.class_id, r.competition_text,
			r.accuracy, r.progress, COALESCE(r.completion_time, 0), r.competition_date
		FROM competition_results r
		LEFT JOIN students s ON s.student_id = r.student_id` +
		whereClause(where) + `
		ORDER BY r.competition_date DESC, r.id DESC`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []*types.CompetitionResult{}
	for rows.Next() {
		var result types.CompetitionResult
		if err := rows.Scan(
			&result.ID,
			&result.StudentID,
			&result.StudentName,
			&result.ClassID,
			&result.CompetitionText,
			&result.Accuracy,
			&result.Progress,
			&result.CompletionTime,
			&result.CompetitionDate,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating result rows: %w", err)
	}
	return results, nil
}

// ListTaskLogs returns logs newest first with the student name joined in
func (m *Manager) ListTaskLogs(ctx context.Context, filter types.TaskLogFilter) ([]*types.TaskLog, error) {
	var where []string
	var args []interface{}
	if filter.TaskID != "" {
		where = append(where, "l.task_id = ?")
		args = append(args, filter.TaskID)
	}
	if filter.ClassID != 0 {
		where = append(where, "l.class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		where = append(where, "l.task_status = ?")
		args = append(args, filter.Status)
	}
	where, args = appendRange(where, args, "l.completed_at", filter.From, filter.To)

	query := `
		SELECT l.id, l.task_id, l.task_type, l.student_id, COALESCE(s.name, ''), l.class_id,
			l.task_result, l.task_status, l.completed_at
		FROM task_logs l
		LEFT JOIN students s ON s.student_id = l.student_id` +
		whereClause(where) + `
		ORDER BY l.completed_at DESC, l.id DESC`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query task logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	logs := []*types.TaskLog{}
	for rows.Next() {
		var log types.TaskLog
		var result string
		if err := rows.Scan(
			&log.ID,
			&log.TaskID,
			&log.TaskType,
			&log.StudentID,
			&log.StudentName,
			&log.ClassID,
			&result,
			&log.TaskStatus,
			&log.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task log row: %w", err)
		}
		log.TaskResult = []byte(result)
		logs = append(logs, &log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task log rows: %w", err)
	}
	return logs, nil
}

// HealthCheck validates database connectivity
func (m *Manager) HealthCheck(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	var count int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM classes").Scan(&count); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}

	return nil
}

// GetDB returns the underlying database connection
func (m *Manager) GetDB() *sql.DB {
	return m.db
}

// Close stops the writer and closes the pool. Safe to call twice.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.shutdown)
	m.wg.Wait()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClass(row rowScanner) (*types.Class, error) {
	var class types.Class
	err := row.Scan(
		&class.ID,
		&class.Name,
		&class.Grade,
		&class.Description,
		&class.TeacherID,
		&class.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &class, nil
}

func scanTeacher(row rowScanner) (*types.Teacher, error) {
	var teacher types.Teacher
	err := row.Scan(
		&teacher.ID,
		&teacher.Username,
		&teacher.Name,
		&teacher.Email,
		&teacher.Department,
		&teacher.PasswordHash,
		&teacher.IsAdmin,
		&teacher.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &teacher, nil
}

func scanStudent(row rowScanner) (*types.Student, error) {
	var student types.Student
	err := row.Scan(
		&student.StudentID,
		&student.Name,
		&student.ClassID,
		&student.Email,
		&student.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func insertStudent(ctx context.Context, db *sql.DB, student *types.Student) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO students (student_id, name, class_id, email, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, student.StudentID, student.Name, student.ClassID, student.Email, student.CreatedAt.UTC())
	if err != nil {
		return translateError("insert student", err)
	}
	return nil
}

func importFailure(record types.ImportRecord, reason string) types.ImportFailure {
	return types.ImportFailure{StudentID: record.StudentID, Name: record.Name, Reason: reason}
}

// appendRange adds inclusive bounds on a timestamp column
func appendRange(where []string, args []interface{}, column string, from, to *time.Time) ([]string, []interface{}) {
	if from != nil {
		where = append(where, column+" >= ?")
		args = append(args, from.UTC())
	}
	if to != nil {
		where = append(where, column+" <= ?")
		args = append(args, to.UTC())
	}
	return where, args
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return "\n\t\tWHERE " + strings.Join(conditions, " AND ")
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return interfaces.ErrNotFound
	}
	return nil
}

// translateError maps SQLite constraint failures onto the store's sentinel errors
func translateError(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w", op, interfaces.ErrConflict)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s: %w", op, interfaces.ErrNotFound)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

// applySQLiteOptimizations applies pragmas the DSN cannot express
func applySQLiteOptimizations(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -64000",
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	return nil
}
