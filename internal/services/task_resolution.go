package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"taskchat/internal/models"
	"taskchat/internal/tools"
)

// TaskResolver maps vague task references ("the grocery one", "the
// first one") to concrete task IDs. It only ever calls the read-only
// list_tasks tool; resolution must never mutate anything.
type TaskResolver struct {
	registry *tools.Registry
}

// NewTaskResolver creates a resolver over the tool registry.
func NewTaskResolver(registry *tools.Registry) *TaskResolver {
	return &TaskResolver{registry: registry}
}

// ordinals maps positional words to indexes into the listed order.
// -1 means the last task.
var ordinals = []struct {
	word  string
	index int
}{
	{"first", 0}, {"1st", 0},
	{"second", 1}, {"2nd", 1},
	{"third", 2}, {"3rd", 2},
	{"fourth", 3}, {"4th", 3},
	{"fifth", 4}, {"5th", 4},
	{"last", -1},
}

// Resolve turns the extracted entities into candidate task IDs.
// Exactly one candidate resolves silently; two or more always set
// ConfirmationNeeded so the pipeline asks instead of guessing; zero
// candidates is the distinct not-found outcome. The returned error is
// reserved for listing failures, never for "no match".
func (r *TaskResolver) Resolve(ctx context.Context, ownerID, correlationID string, entities models.Entities) (models.ResolutionResult, error) {
	// Explicit ID needs no resolution.
	if entities.TaskID != 0 {
		return models.ResolutionResult{TaskIDs: []int64{entities.TaskID}}, nil
	}

	reference := strings.ToLower(strings.TrimSpace(entities.TaskReference))
	if reference == "" {
		return models.ResolutionResult{}, nil
	}

	logger := slog.With("owner_id", ownerID, "correlation_id", correlationID, "reference", reference)

	// Positional references index into the pending list, which is the
	// order the user most recently saw.
	for _, ord := range ordinals {
		if !strings.Contains(reference, ord.word) {
			continue
		}
		pending := false
		result := r.listTasks(ctx, ownerID, correlationID, &pending)
		if !result.Success {
			return models.ResolutionResult{}, fmt.Errorf("failed to list tasks: %s", result.Error)
		}

		tasks := result.Tasks
		index := ord.index
		if index == -1 {
			index = len(tasks) - 1
		}
		if index < 0 || index >= len(tasks) {
			return models.ResolutionResult{}, nil
		}

		task := tasks[index]
		logger.Info("resolver: positional reference", "position", ord.word, "task_id", task.ID)
		return models.ResolutionResult{
			TaskIDs: []int64{task.ID},
			Matches: []models.TaskMatch{{ID: task.ID, Title: task.Title, Completed: task.Completed}},
		}, nil
	}

	// Fuzzy matching against all task titles.
	result := r.listTasks(ctx, ownerID, correlationID, nil)
	if !result.Success {
		return models.ResolutionResult{}, fmt.Errorf("failed to list tasks: %s", result.Error)
	}

	matches := []models.TaskMatch{}
	ids := []int64{}
	for _, task := range result.Tasks {
		title := strings.ToLower(task.Title)
		if strings.Contains(title, reference) || strings.Contains(reference, title) {
			matches = append(matches, models.TaskMatch{ID: task.ID, Title: task.Title, Completed: task.Completed})
			ids = append(ids, task.ID)
		}
	}

	logger.Info("resolver: fuzzy match", "match_count", len(matches))

	return models.ResolutionResult{
		TaskIDs:            ids,
		ConfirmationNeeded: len(matches) > 1,
		Matches:            matches,
	}, nil
}

func (r *TaskResolver) listTasks(ctx context.Context, ownerID, correlationID string, completed *bool) *tools.Result {
	return r.registry.Execute(ctx, tools.ToolListTasks, tools.Request{
		OwnerID:       ownerID,
		CorrelationID: correlationID,
		Entities:      models.Entities{Completed: completed},
	})
}
