package models

// Intent is the closed set of actions the classifier can map a user
// message onto. Anything that cannot be determined with confidence
// degrades to IntentUnclear.
type Intent string

const (
	IntentCreateTask   Intent = "create_task"
	IntentListTasks    Intent = "list_tasks"
	IntentCompleteTask Intent = "complete_task"
	IntentUpdateTask   Intent = "update_task"
	IntentDeleteTask   Intent = "delete_task"
	IntentUnclear      Intent = "unclear"
)

// ConfidenceThreshold gates execution: classifications below it are
// routed to the clarification branch instead of the action executor.
const ConfidenceThreshold = 0.7

// Valid reports whether the intent is one of the known variants.
func (i Intent) Valid() bool {
	switch i {
	case IntentCreateTask, IntentListTasks, IntentCompleteTask,
		IntentUpdateTask, IntentDeleteTask, IntentUnclear:
		return true
	}
	return false
}

// NeedsTaskID reports whether the intent operates on an existing task
// and therefore requires reference resolution when no explicit ID was
// extracted.
func (i Intent) NeedsTaskID() bool {
	switch i {
	case IntentCompleteTask, IntentUpdateTask, IntentDeleteTask:
		return true
	}
	return false
}

// Entities holds the slots extracted from a user message. Zero values
// mean the slot was absent.
type Entities struct {
	Title         string   `json:"title,omitempty"`
	Description   string   `json:"description,omitempty"`
	Priority      string   `json:"priority,omitempty"`
	DueDate       string   `json:"due_date,omitempty"`
	TaskID        int64    `json:"task_id,omitempty"`
	TaskReference string   `json:"task_reference,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	// Completed is a tri-state filter/target: nil when not mentioned.
	Completed *bool `json:"completed,omitempty"`
}

// ClassificationResult is the ephemeral output of the intent
// classifier. It is never persisted.
type ClassificationResult struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
}

// ResolutionResult is the ephemeral output of the reference resolver.
// More than one candidate always sets ConfirmationNeeded; zero
// candidates with ConfirmationNeeded=false is the distinct not-found
// outcome.
type ResolutionResult struct {
	TaskIDs            []int64     `json:"task_ids"`
	ConfirmationNeeded bool        `json:"confirmation_needed"`
	Matches            []TaskMatch `json:"matches"`
}

// TaskMatch is a candidate surfaced to the user when a reference is
// ambiguous.
type TaskMatch struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}
