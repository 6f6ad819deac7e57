package models

import "time"

// TaskPriority is the closed priority set carried over from the task
// service schema.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// ParsePriority validates a priority string, defaulting empty input to
// medium.
func ParsePriority(s string) (TaskPriority, bool) {
	switch TaskPriority(s) {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return TaskPriority(s), true
	case "":
		return PriorityMedium, true
	}
	return "", false
}

// Task mirrors the task service's record. The orchestration core never
// touches task storage directly; all reads and writes go through the
// tool layer.
type Task struct {
	ID          int64        `json:"id"`
	UserID      string       `json:"user_id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Completed   bool         `json:"completed"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	DeletedAt   *time.Time   `json:"deleted_at,omitempty"`
}

// TaskUpdate carries the optional fields of an update operation. Nil
// pointers leave the column untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	Priority    *TaskPriority
	DueDate     *time.Time
	Tags        []string
}
