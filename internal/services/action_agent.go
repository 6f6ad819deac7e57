package services

import (
	"context"
	"strings"

	"taskchat/internal/models"
	"taskchat/internal/tools"
)

// intentToolTable is the fixed mapping from intent variant to tool
// name. IntentUnclear is deliberately absent: it is a no-op that never
// reaches the tool layer.
var intentToolTable = map[models.Intent]string{
	models.IntentCreateTask:   tools.ToolCreateTask,
	models.IntentListTasks:    tools.ToolListTasks,
	models.IntentCompleteTask: tools.ToolCompleteTask,
	models.IntentUpdateTask:   tools.ToolUpdateTask,
	models.IntentDeleteTask:   tools.ToolDeleteTask,
}

// ActionAgent maps a classified intent plus resolved entities to
// exactly one tool invocation. Parameters are validated first; invalid
// input short-circuits without touching the tool layer.
type ActionAgent struct {
	registry *tools.Registry
}

// NewActionAgent creates an executor over the tool registry.
func NewActionAgent(registry *tools.Registry) *ActionAgent {
	return &ActionAgent{registry: registry}
}

// ValidationError is a parameter failure detected before any tool
// call. It is surfaced to the user as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Execute runs the single tool mapped to the intent. It never fans out
// to multiple tools for one user turn.
func (a *ActionAgent) Execute(ctx context.Context, intent models.Intent, entities models.Entities, ownerID, correlationID string) (*tools.Result, error) {
	if intent == models.IntentUnclear {
		return nil, &ValidationError{Message: "Could not determine what action to take. Please rephrase your request."}
	}

	toolName, ok := intentToolTable[intent]
	if !ok {
		return nil, &ValidationError{Message: "Unknown action. Please rephrase your request."}
	}

	if err := validateParams(intent, entities); err != nil {
		return nil, err
	}

	result := a.registry.Execute(ctx, toolName, tools.Request{
		OwnerID:       ownerID,
		CorrelationID: correlationID,
		Entities:      entities,
	})
	return result, nil
}

func validateParams(intent models.Intent, entities models.Entities) error {
	switch intent {
	case models.IntentCreateTask:
		if strings.TrimSpace(entities.Title) == "" {
			return &ValidationError{Message: "Task title is required"}
		}
	case models.IntentCompleteTask:
		if entities.TaskID <= 0 {
			return &ValidationError{Message: "Task ID is required to mark as complete"}
		}
	case models.IntentDeleteTask:
		if entities.TaskID <= 0 {
			return &ValidationError{Message: "Task ID is required to delete"}
		}
	case models.IntentUpdateTask:
		if entities.TaskID <= 0 {
			return &ValidationError{Message: "Task ID is required to update"}
		}
	}
	return nil
}
