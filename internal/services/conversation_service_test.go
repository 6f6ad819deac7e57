package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"taskchat/internal/database"
	"taskchat/internal/models"
)

func newTestConversations(t *testing.T) *ConversationService {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}
	return NewConversationService(db)
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	s := newTestConversations(t)
	ctx := context.Background()

	created, err := s.GetOrCreate(ctx, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a conversation ID")
	}

	// Same ID comes back unchanged, any number of times.
	for i := 0; i < 3; i++ {
		again, err := s.GetOrCreate(ctx, "alice", created.ID)
		if err != nil {
			t.Fatalf("GetOrCreate round %d failed: %v", i, err)
		}
		if again.ID != created.ID {
			t.Errorf("round %d returned a different conversation: %q", i, again.ID)
		}
	}
}

func TestGetOrCreateUnknownIDStartsFresh(t *testing.T) {
	s := newTestConversations(t)

	conv, err := s.GetOrCreate(context.Background(), "alice", "bogus-id")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if conv.ID == "bogus-id" || conv.ID == "" {
		t.Errorf("expected a fresh conversation, got %q", conv.ID)
	}
}

func TestGetOrCreateCrossOwnerStartsFresh(t *testing.T) {
	s := newTestConversations(t)
	ctx := context.Background()

	alices, err := s.GetOrCreate(ctx, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	// Bob naming alice's conversation gets his own thread, never hers.
	bobs, err := s.GetOrCreate(ctx, "bob", alices.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if bobs.ID == alices.ID {
		t.Error("cross-owner conversation ID was honored")
	}
}

func TestAppendTurnPreservesOrder(t *testing.T) {
	s := newTestConversations(t)
	ctx := context.Background()

	conv, err := s.GetOrCreate(ctx, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	turns := [][2]string{
		{"first question", "first answer"},
		{"second question", "second answer"},
		{"third question", "third answer"},
	}
	for _, turn := range turns {
		if err := s.AppendTurn(ctx, conv, turn[0], turn[1]); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
	}

	messages, err := s.Messages(ctx, "alice", conv.ID, 0)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(messages) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(messages))
	}

	for i, turn := range turns {
		user, assistant := messages[i*2], messages[i*2+1]
		if user.Role != models.RoleUser || user.Content != turn[0] {
			t.Errorf("message %d: got %s %q, want user %q", i*2, user.Role, user.Content, turn[0])
		}
		if assistant.Role != models.RoleAssistant || assistant.Content != turn[1] {
			t.Errorf("message %d: got %s %q, want assistant %q", i*2+1, assistant.Role, assistant.Content, turn[1])
		}
	}
}

func TestAppendTurnTruncatesOversizedContent(t *testing.T) {
	s := newTestConversations(t)
	ctx := context.Background()

	conv, err := s.GetOrCreate(ctx, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	huge := strings.Repeat("a", models.MaxMessageContentLength+500)
	if err := s.AppendTurn(ctx, conv, huge, "ok"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	messages, err := s.Messages(ctx, "alice", conv.ID, 0)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(messages[0].Content) != models.MaxMessageContentLength {
		t.Errorf("content length = %d, want %d", len(messages[0].Content), models.MaxMessageContentLength)
	}
}

func TestHistoryReturnsMostRecentInOrder(t *testing.T) {
	s := newTestConversations(t)
	ctx := context.Background()

	conv, err := s.GetOrCreate(ctx, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	for i := 0; i < 8; i++ {
		if err := s.AppendTurn(ctx, conv, "q", "a"); err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
	}

	history, err := s.History(ctx, "alice", conv.ID, 4)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(history))
	}
	// The window is the tail of the transcript in creation order.
	for i := 1; i < len(history); i++ {
		if history[i].ID <= history[i-1].ID {
			t.Errorf("history out of order at %d: %d then %d", i, history[i-1].ID, history[i].ID)
		}
	}
}

func TestListMostRecentFirst(t *testing.T) {
	s := newTestConversations(t)
	ctx := context.Background()

	older, err := s.GetOrCreate(ctx, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if err := s.AppendTurn(ctx, older, "q", "a"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	newer, err := s.GetOrCreate(ctx, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if err := s.AppendTurn(ctx, newer, "q", "a"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}
	if err := s.AppendTurn(ctx, newer, "q2", "a2"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	summaries, err := s.List(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(summaries))
	}
	if summaries[0].ID != newer.ID {
		t.Errorf("most recently active conversation should come first")
	}
	if summaries[0].MessageCount != 4 || summaries[1].MessageCount != 2 {
		t.Errorf("unexpected message counts: %d, %d", summaries[0].MessageCount, summaries[1].MessageCount)
	}
}

func TestMessagesCrossOwnerReadsAsNotFound(t *testing.T) {
	s := newTestConversations(t)
	ctx := context.Background()

	conv, err := s.GetOrCreate(ctx, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if err := s.AppendTurn(ctx, conv, "private", "reply"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	if _, err := s.Messages(ctx, "bob", conv.ID, 0); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("cross-owner Messages: expected ErrConversationNotFound, got %v", err)
	}
	if err := s.SoftDelete(ctx, "bob", conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("cross-owner SoftDelete: expected ErrConversationNotFound, got %v", err)
	}
}

func TestSoftDeleteConversationAndMessagesInLockstep(t *testing.T) {
	s := newTestConversations(t)
	ctx := context.Background()

	conv, err := s.GetOrCreate(ctx, "alice", "")
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if err := s.AppendTurn(ctx, conv, "q", "a"); err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}

	if err := s.SoftDelete(ctx, "alice", conv.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	if _, err := s.Messages(ctx, "alice", conv.ID, 0); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("deleted conversation should read as not found, got %v", err)
	}

	summaries, err := s.List(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("deleted conversation still listed: %+v", summaries)
	}

	// Deleting again reads as not found.
	if err := s.SoftDelete(ctx, "alice", conv.ID); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("second SoftDelete: expected ErrConversationNotFound, got %v", err)
	}
}
