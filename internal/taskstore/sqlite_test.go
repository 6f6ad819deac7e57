package taskstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"taskchat/internal/database"
	"taskchat/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return NewSQLiteStore(db)
}

func mustCreate(t *testing.T, store *SQLiteStore, userID, title string) *models.Task {
	t.Helper()
	task, err := store.Create(context.Background(), userID, models.Task{Title: title, Priority: models.PriorityMedium})
	if err != nil {
		t.Fatalf("failed to create task %q: %v", title, err)
	}
	return task
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, store, "alice", "buy groceries")
	if created.ID == 0 {
		t.Fatal("expected created task to have an ID")
	}

	got, err := store.Get(ctx, "alice", created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "buy groceries" {
		t.Errorf("expected title 'buy groceries', got %q", got.Title)
	}
	if got.Completed {
		t.Error("new task should not be completed")
	}
}

func TestCrossOwnerAccessReadsAsNotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := mustCreate(t, store, "alice", "alice's task")

	if _, err := store.Get(ctx, "bob", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get by other owner: expected ErrNotFound, got %v", err)
	}

	title := "stolen"
	if _, err := store.Update(ctx, "bob", task.ID, models.TaskUpdate{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update by other owner: expected ErrNotFound, got %v", err)
	}

	if _, err := store.SetCompleted(ctx, "bob", task.ID, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetCompleted by other owner: expected ErrNotFound, got %v", err)
	}

	if err := store.SoftDelete(ctx, "bob", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("SoftDelete by other owner: expected ErrNotFound, got %v", err)
	}

	// A genuinely missing ID must be indistinguishable.
	if _, err := store.Get(ctx, "alice", 99999); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing ID: expected ErrNotFound, got %v", err)
	}

	// The task is untouched.
	got, err := store.Get(ctx, "alice", task.ID)
	if err != nil {
		t.Fatalf("owner Get after cross-owner attempts failed: %v", err)
	}
	if got.Title != "alice's task" || got.Completed {
		t.Errorf("task was modified by cross-owner attempts: %+v", got)
	}
}

func TestListScopedToOwnerAndStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a1 := mustCreate(t, store, "alice", "pending one")
	mustCreate(t, store, "alice", "pending two")
	mustCreate(t, store, "bob", "bob's task")

	if _, err := store.SetCompleted(ctx, "alice", a1.ID, true); err != nil {
		t.Fatalf("SetCompleted failed: %v", err)
	}

	all, err := store.List(ctx, "alice", StatusAll, 0)
	if err != nil {
		t.Fatalf("List all failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 tasks for alice, got %d", len(all))
	}

	pending, err := store.List(ctx, "alice", StatusPending, 0)
	if err != nil {
		t.Fatalf("List pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].Title != "pending two" {
		t.Errorf("unexpected pending list: %+v", pending)
	}

	completed, err := store.List(ctx, "alice", StatusCompleted, 0)
	if err != nil {
		t.Fatalf("List completed failed: %v", err)
	}
	if len(completed) != 1 || completed[0].ID != a1.ID {
		t.Errorf("unexpected completed list: %+v", completed)
	}
}

func TestSetCompletedIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := mustCreate(t, store, "alice", "write report")

	first, err := store.SetCompleted(ctx, "alice", task.ID, true)
	if err != nil {
		t.Fatalf("first SetCompleted failed: %v", err)
	}
	if !first.Completed {
		t.Fatal("task should be completed after first call")
	}

	// Completing an already-completed task succeeds without changing
	// anything.
	second, err := store.SetCompleted(ctx, "alice", task.ID, true)
	if err != nil {
		t.Fatalf("second SetCompleted failed: %v", err)
	}
	if !second.Completed {
		t.Error("task should remain completed after second call")
	}

	reopened, err := store.SetCompleted(ctx, "alice", task.ID, false)
	if err != nil {
		t.Fatalf("SetCompleted(false) failed: %v", err)
	}
	if reopened.Completed {
		t.Error("task should be pending after unmarking")
	}
}

func TestSoftDeleteHidesTask(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := mustCreate(t, store, "alice", "obsolete")

	if err := store.SoftDelete(ctx, "alice", task.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	if _, err := store.Get(ctx, "alice", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted task should read as not found, got %v", err)
	}

	tasks, err := store.List(ctx, "alice", StatusAll, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("deleted task still listed: %+v", tasks)
	}

	// Deleting again reads as not found, same as never existing.
	if err := store.SoftDelete(ctx, "alice", task.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second SoftDelete: expected ErrNotFound, got %v", err)
	}
}

func TestUpdatePartialFields(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	task := mustCreate(t, store, "alice", "draft email")

	priority := models.PriorityHigh
	updated, err := store.Update(ctx, "alice", task.ID, models.TaskUpdate{Priority: &priority})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Priority != models.PriorityHigh {
		t.Errorf("expected priority high, got %s", updated.Priority)
	}
	if updated.Title != "draft email" {
		t.Errorf("title should be untouched, got %q", updated.Title)
	}
}

func TestParseStatusFilter(t *testing.T) {
	cases := []struct {
		in   string
		want StatusFilter
		ok   bool
	}{
		{"all", StatusAll, true},
		{"pending", StatusPending, true},
		{"completed", StatusCompleted, true},
		{"", StatusAll, true},
		{"bogus", StatusAll, false},
	}
	for _, tc := range cases {
		got, ok := ParseStatusFilter(tc.in)
		if ok != tc.ok || (ok && got != tc.want) {
			t.Errorf("ParseStatusFilter(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
