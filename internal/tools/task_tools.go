package tools

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskchat/internal/models"
	"taskchat/internal/taskstore"
)

// Tool names. The action executor's intent table and the reference
// resolver address tools by these.
const (
	ToolCreateTask   = "create_task"
	ToolListTasks    = "list_tasks"
	ToolCompleteTask = "complete_task"
	ToolUpdateTask   = "update_task"
	ToolDeleteTask   = "delete_task"
)

// errNotFound is the uniform message for both missing tasks and tasks
// owned by someone else. Keeping the two indistinguishable prevents
// cross-owner enumeration.
const errNotFound = "task not found"

// RegisterTaskTools wires the five fixed task operations into the
// registry, all backed by the given store.
func RegisterTaskTools(registry *Registry, store taskstore.Store) error {
	taskTools := []*Tool{
		{
			Name:        ToolCreateTask,
			Description: "Create a new task for the owner",
			Mutating:    true,
			Execute:     createTaskFunc(store),
		},
		{
			Name:        ToolListTasks,
			Description: "List the owner's tasks with an optional status filter",
			Execute:     listTasksFunc(store),
		},
		{
			Name:        ToolCompleteTask,
			Description: "Mark a task as complete (idempotent)",
			Mutating:    true,
			Execute:     completeTaskFunc(store),
		},
		{
			Name:        ToolUpdateTask,
			Description: "Update fields of an existing task",
			Mutating:    true,
			Execute:     updateTaskFunc(store),
		},
		{
			Name:        ToolDeleteTask,
			Description: "Soft-delete a task",
			Mutating:    true,
			Execute:     deleteTaskFunc(store),
		},
	}

	for _, tool := range taskTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func createTaskFunc(store taskstore.Store) ExecuteFunc {
	return func(ctx context.Context, req Request) *Result {
		title := strings.TrimSpace(req.Entities.Title)
		if title == "" {
			return Fail("task title cannot be empty")
		}

		priority, ok := models.ParsePriority(req.Entities.Priority)
		if !ok {
			return Fail("invalid priority %q: must be high, medium or low", req.Entities.Priority)
		}

		var dueDate *time.Time
		if req.Entities.DueDate != "" {
			parsed, err := parseDueDate(req.Entities.DueDate)
			if err != nil {
				return Fail("invalid due date %q: use ISO format (e.g. 2026-01-15T10:30:00Z)", req.Entities.DueDate)
			}
			dueDate = parsed
		}

		task, err := store.Create(ctx, req.OwnerID, models.Task{
			Title:       title,
			Description: strings.TrimSpace(req.Entities.Description),
			Priority:    priority,
			DueDate:     dueDate,
			Tags:        req.Entities.Tags,
		})
		if err != nil {
			return Fail("failed to create task")
		}
		return Ok(task)
	}
}

func listTasksFunc(store taskstore.Store) ExecuteFunc {
	return func(ctx context.Context, req Request) *Result {
		status := taskstore.StatusAll
		if req.Entities.Completed != nil {
			if *req.Entities.Completed {
				status = taskstore.StatusCompleted
			} else {
				status = taskstore.StatusPending
			}
		}

		tasks, err := store.List(ctx, req.OwnerID, status, 0)
		if err != nil {
			return Fail("failed to list tasks")
		}
		return OkList(tasks)
	}
}

func completeTaskFunc(store taskstore.Store) ExecuteFunc {
	return func(ctx context.Context, req Request) *Result {
		if req.Entities.TaskID == 0 {
			return Fail("task ID is required to mark as complete")
		}

		completed := true
		if req.Entities.Completed != nil {
			completed = *req.Entities.Completed
		}

		task, err := store.SetCompleted(ctx, req.OwnerID, req.Entities.TaskID, completed)
		if err != nil {
			if errors.Is(err, taskstore.ErrNotFound) {
				return Fail(errNotFound)
			}
			return Fail("failed to update task completion")
		}
		return Ok(task)
	}
}

func updateTaskFunc(store taskstore.Store) ExecuteFunc {
	return func(ctx context.Context, req Request) *Result {
		if req.Entities.TaskID == 0 {
			return Fail("task ID is required to update")
		}

		var update models.TaskUpdate
		if title := strings.TrimSpace(req.Entities.Title); title != "" {
			update.Title = &title
		}
		if desc := strings.TrimSpace(req.Entities.Description); desc != "" {
			update.Description = &desc
		}
		if req.Entities.Priority != "" {
			priority, ok := models.ParsePriority(req.Entities.Priority)
			if !ok {
				return Fail("invalid priority %q: must be high, medium or low", req.Entities.Priority)
			}
			update.Priority = &priority
		}
		if req.Entities.DueDate != "" {
			parsed, err := parseDueDate(req.Entities.DueDate)
			if err != nil {
				return Fail("invalid due date %q: use ISO format", req.Entities.DueDate)
			}
			update.DueDate = parsed
		}
		if req.Entities.Tags != nil {
			update.Tags = req.Entities.Tags
		}

		task, err := store.Update(ctx, req.OwnerID, req.Entities.TaskID, update)
		if err != nil {
			if errors.Is(err, taskstore.ErrNotFound) {
				return Fail(errNotFound)
			}
			return Fail("failed to update task")
		}
		return Ok(task)
	}
}

func deleteTaskFunc(store taskstore.Store) ExecuteFunc {
	return func(ctx context.Context, req Request) *Result {
		if req.Entities.TaskID == 0 {
			return Fail("task ID is required to delete")
		}

		err := store.SoftDelete(ctx, req.OwnerID, req.Entities.TaskID)
		if err != nil {
			if errors.Is(err, taskstore.ErrNotFound) {
				return Fail(errNotFound)
			}
			return Fail("failed to delete task")
		}
		return &Result{Success: true}
	}
}

func parseDueDate(s string) (*time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			utc := t.UTC()
			return &utc, nil
		}
	}
	return nil, errors.New("unrecognized date format")
}
