// Package taskstore is the storage boundary of the external task
// service. Nothing outside internal/tools may touch it: all task reads
// and writes from the orchestration pipeline go through the tool layer.
package taskstore

import (
	"context"
	"errors"

	"taskchat/internal/models"
)

// ErrNotFound covers both "no such task" and "task belongs to another
// user". Callers must not be able to tell the two apart.
var ErrNotFound = errors.New("task not found")

// StatusFilter narrows List results by completion state.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

// ParseStatusFilter validates a filter string, defaulting empty input
// to "all".
func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch StatusFilter(s) {
	case StatusAll, StatusPending, StatusCompleted:
		return StatusFilter(s), true
	case "":
		return StatusAll, true
	}
	return "", false
}

// Store is the owner-scoped task persistence surface. Every operation
// takes the owner identity explicitly; implementations must never
// return or mutate another owner's rows.
type Store interface {
	Create(ctx context.Context, userID string, task models.Task) (*models.Task, error)
	List(ctx context.Context, userID string, status StatusFilter, limit int) ([]models.Task, error)
	Get(ctx context.Context, userID string, taskID int64) (*models.Task, error)
	Update(ctx context.Context, userID string, taskID int64, update models.TaskUpdate) (*models.Task, error)
	SetCompleted(ctx context.Context, userID string, taskID int64, completed bool) (*models.Task, error)
	SoftDelete(ctx context.Context, userID string, taskID int64) error
}
