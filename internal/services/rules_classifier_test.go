package services

import (
	"context"
	"testing"

	"taskchat/internal/models"
)

func TestRulesClassifierIntents(t *testing.T) {
	c := NewRulesClassifier()
	ctx := context.Background()

	cases := []struct {
		message string
		want    models.Intent
	}{
		{"show my tasks", models.IntentListTasks},
		{"list all todos", models.IntentListTasks},
		{"add a task to buy groceries", models.IntentCreateTask},
		{"remind me to call mom", models.IntentCreateTask},
		{"mark task 3 as done", models.IntentCompleteTask},
		{"delete task 5", models.IntentDeleteTask},
		{"remove the groceries task", models.IntentDeleteTask},
		{"change task 2 priority", models.IntentUpdateTask},
		{"what's the weather like", models.IntentUnclear},
	}

	for _, tc := range cases {
		got := c.Classify(ctx, tc.message, nil)
		if got.Intent != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.message, got.Intent, tc.want)
		}
	}
}

func TestRulesClassifierUnclearIsLowConfidence(t *testing.T) {
	c := NewRulesClassifier()
	got := c.Classify(context.Background(), "blah blah", nil)
	if got.Intent != models.IntentUnclear {
		t.Fatalf("expected unclear, got %s", got.Intent)
	}
	if got.Confidence >= models.ConfidenceThreshold {
		t.Errorf("unclear confidence %v must stay below the threshold", got.Confidence)
	}
}

func TestRulesClassifierExtractsTaskID(t *testing.T) {
	c := NewRulesClassifier()
	ctx := context.Background()

	cases := []struct {
		message string
		wantID  int64
	}{
		{"mark task 3 as done", 3},
		{"complete task id 12", 12},
		{"delete #42", 42},
		{"finish number 7", 7},
	}

	for _, tc := range cases {
		got := c.Classify(ctx, tc.message, nil)
		if got.Entities.TaskID != tc.wantID {
			t.Errorf("Classify(%q) task ID = %d, want %d", tc.message, got.Entities.TaskID, tc.wantID)
		}
	}
}

func TestRulesClassifierExtractsReferenceWhenNoID(t *testing.T) {
	c := NewRulesClassifier()

	got := c.Classify(context.Background(), "mark the groceries one as done", nil)
	if got.Intent != models.IntentCompleteTask {
		t.Fatalf("expected complete_task, got %s", got.Intent)
	}
	if got.Entities.TaskID != 0 {
		t.Errorf("no numeric ID present, got %d", got.Entities.TaskID)
	}
	if got.Entities.TaskReference == "" {
		t.Error("expected a textual task reference")
	}
}

func TestRulesClassifierExtractsCreateEntities(t *testing.T) {
	c := NewRulesClassifier()

	got := c.Classify(context.Background(), "add a task to file taxes as high priority", nil)
	if got.Intent != models.IntentCreateTask {
		t.Fatalf("expected create_task, got %s", got.Intent)
	}
	if got.Entities.Title != "file taxes" {
		t.Errorf("title = %q, want 'file taxes'", got.Entities.Title)
	}
	if got.Entities.Priority != "high" {
		t.Errorf("priority = %q, want high", got.Entities.Priority)
	}
}

func TestRulesClassifierListFilters(t *testing.T) {
	c := NewRulesClassifier()
	ctx := context.Background()

	got := c.Classify(ctx, "show my completed tasks", nil)
	if got.Entities.Completed == nil || !*got.Entities.Completed {
		t.Error("expected completed=true filter")
	}

	got = c.Classify(ctx, "show my pending tasks", nil)
	if got.Entities.Completed == nil || *got.Entities.Completed {
		t.Error("expected completed=false filter")
	}

	got = c.Classify(ctx, "show my tasks", nil)
	if got.Entities.Completed != nil {
		t.Error("expected no completion filter")
	}
}
