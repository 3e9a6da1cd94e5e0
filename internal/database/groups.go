package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"classhub/pkg/interfaces"
	"classhub/pkg/types"
)

const groupQuery = `
	SELECT g.id, g.class_id, g.name, g.description, g.created_at, COUNT(gm.student_id)
	FROM student_groups g
	LEFT JOIN group_members gm ON gm.group_id = g.id`

// CreateGroup inserts a group and assigns its ID
func (m *Manager) CreateGroup(ctx context.Context, group *types.Group) error {
	if err := group.Validate(); err != nil {
		return err
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		id, err := insertGroup(ctx, db, group)
		if err != nil {
			return err
		}
		group.ID = id
		return nil
	})
}

// GetGroup retrieves a group with its member count
func (m *Manager) GetGroup(ctx context.Context, groupID int64) (*types.Group, error) {
	row := m.db.QueryRowContext(ctx, groupQuery+`
		WHERE g.id = ?
		GROUP BY g.id
	`, groupID)

	group, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, interfaces.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query group: %w", err)
	}
	return group, nil
}

// ListGroups returns the groups of a class newest first
func (m *Manager) ListGroups(ctx context.Context, classID int64) ([]*types.Group, error) {
	rows, err := m.db.QueryContext(ctx, groupQuery+`
		WHERE g.class_id = ?
		GROUP BY g.id
		ORDER BY g.created_at DESC, g.id DESC
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer func() { _ = rows.Close() }()

	groups := []*types.Group{}
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group rows: %w", err)
	}
	return groups, nil
}

// UpdateGroup updates name and description
func (m *Manager) UpdateGroup(ctx context.Context, group *types.Group) error {
	if err := group.Validate(); err != nil {
		return err
	}

	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
			UPDATE student_groups
			SET name = ?, description = ?
			WHERE id = ?
		`, group.Name, group.Description, group.ID)
		if err != nil {
			return translateError("update group", err)
		}
		return requireAffected(res)
	})
}

// DeleteGroup removes a group. Memberships cascade.
func (m *Manager) DeleteGroup(ctx context.Context, groupID int64) error {
	return m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx, "DELETE FROM student_groups WHERE id = ?", groupID)
		if err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		return requireAffected(res)
	})
}

// ListGroupMembers returns the students of a group ordered by student ID
func (m *Manager) ListGroupMembers(ctx context.Context, groupID int64) ([]*types.Student, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT s.student_id, s.name, s.class_id, s.email, s.created_at
		FROM group_members gm
		JOIN students s ON s.student_id = gm.student_id
		WHERE gm.group_id = ?
		ORDER BY s.student_id ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer func() { _ = rows.Close() }()

	students := []*types.Student{}
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}
	return students, nil
}

// AddGroupMembers adds every listed student that is not a member yet. The
// whole batch is refused when any student is outside the group's class.
func (m *Manager) AddGroupMembers(ctx context.Context, groupID int64, studentIDs []string) (int, error) {
	ids := uniqueIDs(studentIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	var added int
	err := m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		added = 0
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var classID int64
		err = tx.QueryRowContext(ctx, "SELECT class_id FROM student_groups WHERE id = ?", groupID).Scan(&classID)
		if errors.Is(err, sql.ErrNoRows) {
			return interfaces.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to query group: %w", err)
		}

		args := make([]interface{}, 0, len(ids)+1)
		args = append(args, classID)
		for _, id := range ids {
			args = append(args, id)
		}
		var inClass int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM students WHERE class_id = ? AND student_id IN ("+placeholders(len(ids))+")", args...,
		).Scan(&inClass); err != nil {
			return fmt.Errorf("failed to check students: %w", err)
		}
		if inClass != len(ids) {
			return fmt.Errorf("%d of %d students: %w", len(ids)-inClass, len(ids), interfaces.ErrNotInClass)
		}

		now := time.Now().UTC()
		for _, id := range ids {
			res, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO group_members (group_id, student_id, created_at)
				VALUES (?, ?, ?)
			`, groupID, id, now)
			if err != nil {
				return translateError("add group member "+id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			added += int(n)
		}

		return tx.Commit()
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// RemoveGroupMembers drops the listed memberships and counts the ones that existed
func (m *Manager) RemoveGroupMembers(ctx context.Context, groupID int64, studentIDs []string) (int, error) {
	ids := uniqueIDs(studentIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, groupID)
	for _, id := range ids {
		args = append(args, id)
	}

	var removed int64
	err := m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		res, err := db.ExecContext(ctx,
			"DELETE FROM group_members WHERE group_id = ? AND student_id IN ("+placeholders(len(ids))+")", args...)
		if err != nil {
			return fmt.Errorf("failed to remove group members: %w", err)
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}

// AutoGroup partitions the roster into groups of size students. Either
// every group is created or none is.
func (m *Manager) AutoGroup(ctx context.Context, classID int64, size int, prefix string) ([]*types.Group, error) {
	if size < 1 {
		return nil, fmt.Errorf("group size must be at least 1, got %d", size)
	}

	var groups []*types.Group
	err := m.executeWrite(ctx, func(ctx context.Context, db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var exists int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM classes WHERE id = ?", classID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to query class: %w", err)
		}
		if exists == 0 {
			return interfaces.ErrNotFound
		}

		roster, err := classRoster(ctx, tx, classID)
		if err != nil {
			return err
		}
		if len(roster) == 0 {
			return interfaces.ErrClassEmpty
		}

		now := time.Now().UTC()
		groups = groups[:0]
		for start := 0; start < len(roster); start += size {
			members := roster[start:min(start+size, len(roster))]
			group := &types.Group{
				ClassID:      classID,
				Name:         prefix + strconv.Itoa(len(groups)+1),
				Description:  fmt.Sprintf("Auto-assigned, %d students per group", size),
				StudentCount: len(members),
				CreatedAt:    now,
			}
			if err := group.Validate(); err != nil {
				return err
			}
			if group.ID, err = insertGroup(ctx, tx, group); err != nil {
				return err
			}
			for _, studentID := range members {
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO group_members (group_id, student_id, created_at)
					VALUES (?, ?, ?)
				`, group.ID, studentID, now); err != nil {
					return translateError("add group member "+studentID, err)
				}
			}
			groups = append(groups, group)
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}
	return groups, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertGroup(ctx context.Context, db execer, group *types.Group) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO student_groups (class_id, name, description, created_at)
		VALUES (?, ?, ?, ?)
	`, group.ClassID, group.Name, group.Description, group.CreatedAt.UTC())
	if err != nil {
		return 0, translateError("insert group", err)
	}
	return res.LastInsertId()
}

func classRoster(ctx context.Context, tx *sql.Tx, classID int64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT student_id FROM students WHERE class_id = ? ORDER BY student_id ASC", classID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var roster []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		roster = append(roster, id)
	}
	return roster, rows.Err()
}

func scanGroup(row rowScanner) (*types.Group, error) {
	var group types.Group
	err := row.Scan(
		&group.ID,
		&group.ClassID,
		&group.Name,
		&group.Description,
		&group.CreatedAt,
		&group.StudentCount,
	)
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
