package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskchat/internal/database"
	"taskchat/internal/models"
)

// SQLiteStore implements Store on the shared SQLite database.
type SQLiteStore struct {
	db *database.DB
}

// NewSQLiteStore creates a SQLite-backed task store.
func NewSQLiteStore(db *database.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const taskColumns = `id, user_id, title, description, priority, due_date, tags, completed, created_at, updated_at, deleted_at`

// Create inserts a new task for the owner and returns the stored row.
func (s *SQLiteStore) Create(ctx context.Context, userID string, task models.Task) (*models.Task, error) {
	now := time.Now().UTC()
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description, priority, due_date, tags, completed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		userID, task.Title, task.Description, string(task.Priority), task.DueDate, string(tags), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read task id: %w", err)
	}
	return s.Get(ctx, userID, id)
}

// List returns the owner's active tasks, newest first.
func (s *SQLiteStore) List(ctx context.Context, userID string, status StatusFilter, limit int) ([]models.Task, error) {
	if limit <= 0 || limit > 200 {
		limit = 200
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ? AND deleted_at IS NULL`
	args := []any{userID}
	switch status {
	case StatusPending:
		query += ` AND completed = 0`
	case StatusCompleted:
		query += ` AND completed = 1`
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, rows.Err()
}

// Get returns one of the owner's active tasks, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, userID string, taskID int64) (*models.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		taskID, userID)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return task, err
}

// Update applies the non-nil fields and returns the updated row.
func (s *SQLiteStore) Update(ctx context.Context, userID string, taskID int64, update models.TaskUpdate) (*models.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	if update.Priority != nil {
		task.Priority = *update.Priority
	}
	if update.DueDate != nil {
		task.DueDate = update.DueDate
	}
	if update.Tags != nil {
		task.Tags = update.Tags
	}

	tags, err := json.Marshal(task.Tags)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, priority = ?, due_date = ?, tags = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		task.Title, task.Description, string(task.Priority), task.DueDate, string(tags), time.Now().UTC(),
		taskID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return s.Get(ctx, userID, taskID)
}

// SetCompleted sets the completion state. Setting an already-matching
// state is a no-op success, which is what makes complete_task
// idempotent at the tool layer.
func (s *SQLiteStore) SetCompleted(ctx context.Context, userID string, taskID int64, completed bool) (*models.Task, error) {
	task, err := s.Get(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.Completed == completed {
		return task, nil
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = ?, updated_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		boolToInt(completed), time.Now().UTC(), taskID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to set completion: %w", err)
	}
	return s.Get(ctx, userID, taskID)
}

// SoftDelete marks the task deleted without removing the row.
func (s *SQLiteStore) SoftDelete(ctx context.Context, userID string, taskID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), time.Now().UTC(), taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var task models.Task
	var priority string
	var tagsJSON string
	var completed int
	var dueDate, deletedAt sql.NullTime

	err := row.Scan(&task.ID, &task.UserID, &task.Title, &task.Description, &priority,
		&dueDate, &tagsJSON, &completed, &task.CreatedAt, &task.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	task.Priority = models.TaskPriority(priority)
	task.Completed = completed != 0
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		task.DeletedAt = &t
	}
	if err := json.Unmarshal([]byte(tagsJSON), &task.Tags); err != nil {
		task.Tags = nil
	}
	return &task, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
