package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"taskchat/internal/database"
	"taskchat/internal/models"
	"taskchat/internal/services"
	"taskchat/internal/taskstore"
	"taskchat/internal/tools"
)

// fixedClassifier makes handler tests deterministic without an
// inference backend.
type fixedClassifier struct {
	result models.ClassificationResult
}

func (f *fixedClassifier) Classify(_ context.Context, _ string, _ []models.Message) models.ClassificationResult {
	return f.result
}

func newTestApp(t *testing.T, classifier services.Classifier) *fiber.App {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Initialize(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	registry := tools.NewRegistry(0)
	if err := tools.RegisterTaskTools(registry, taskstore.NewSQLiteStore(db)); err != nil {
		t.Fatalf("failed to register task tools: %v", err)
	}

	conversations := services.NewConversationService(db)
	chatbot := services.NewChatbotService(
		conversations,
		classifier,
		services.NewTaskResolver(registry),
		services.NewActionAgent(registry),
		services.NewResponseFormatter(),
	)

	app := fiber.New()
	// Test identity comes from a header instead of a JWT.
	app.Use(func(c *fiber.Ctx) error {
		if user := c.Get("X-Test-User"); user != "" {
			c.Locals("user_id", user)
		}
		return c.Next()
	})

	chatHandler := NewChatHandler(chatbot)
	conversationHandler := NewConversationHandler(conversations)
	app.Post("/api/chat", chatHandler.Handle)
	app.Get("/api/conversations", conversationHandler.List)
	app.Get("/api/conversations/:id/messages", conversationHandler.Messages)
	app.Delete("/api/conversations/:id", conversationHandler.Delete)

	return app
}

func postChat(t *testing.T, app *fiber.App, user, message, conversationID string) (*models.ChatResponse, int) {
	t.Helper()

	body, _ := json.Marshal(models.ChatRequest{Message: message, ConversationID: conversationID})
	req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("chat request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		return nil, resp.StatusCode
	}

	var chat models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		t.Fatalf("failed to decode chat response: %v", err)
	}
	return &chat, resp.StatusCode
}

func TestChatEndpointCreateTask(t *testing.T) {
	app := newTestApp(t, &fixedClassifier{result: models.ClassificationResult{
		Intent:     models.IntentCreateTask,
		Confidence: 0.95,
		Entities:   models.Entities{Title: "buy groceries"},
	}})

	chat, status := postChat(t, app, "alice", "add a task to buy groceries", "")
	if status != fiber.StatusOK {
		t.Fatalf("status %d, want 200", status)
	}
	if !chat.Success || chat.Intent != "create_task" {
		t.Errorf("unexpected chat response: %+v", chat)
	}
	if !strings.Contains(chat.Response, "✓ Created task: 'buy groceries'") {
		t.Errorf("unexpected reply: %q", chat.Response)
	}
	if chat.ConversationID == "" || chat.CorrelationID == "" {
		t.Errorf("missing IDs in response: %+v", chat)
	}
}

func TestChatEndpointValidatesRequest(t *testing.T) {
	app := newTestApp(t, &fixedClassifier{result: models.ClassificationResult{
		Intent: models.IntentListTasks, Confidence: 0.95,
	}})

	// Missing message.
	if _, status := postChat(t, app, "alice", "", ""); status != fiber.StatusBadRequest {
		t.Errorf("empty message: status %d, want 400", status)
	}

	// Unauthenticated.
	body, _ := json.Marshal(models.ChatRequest{Message: "hi"})
	req := httptest.NewRequest("POST", "/api/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Errorf("no identity: status %d, want 401", resp.StatusCode)
	}

	// Oversized message.
	long := strings.Repeat("x", models.MaxChatMessageLength+1)
	if _, status := postChat(t, app, "alice", long, ""); status != fiber.StatusBadRequest {
		t.Errorf("oversized message: status %d, want 400", status)
	}
}

func TestConversationEndpointsRoundTrip(t *testing.T) {
	app := newTestApp(t, &fixedClassifier{result: models.ClassificationResult{
		Intent: models.IntentListTasks, Confidence: 0.95,
	}})

	chat, _ := postChat(t, app, "alice", "show my tasks", "")
	postChat(t, app, "alice", "show them again", chat.ConversationID)

	// List shows the conversation with its message count.
	req := httptest.NewRequest("GET", "/api/conversations", nil)
	req.Header.Set("X-Test-User", "alice")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	var listBody struct {
		Conversations []models.ConversationSummary `json:"conversations"`
		Count         int                          `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listBody); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if listBody.Count != 1 || listBody.Conversations[0].MessageCount != 4 {
		t.Errorf("unexpected conversation list: %+v", listBody)
	}

	// Messages come back in creation order.
	req = httptest.NewRequest("GET", fmt.Sprintf("/api/conversations/%s/messages", chat.ConversationID), nil)
	req.Header.Set("X-Test-User", "alice")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("messages request failed: %v", err)
	}
	var msgBody struct {
		Messages []models.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&msgBody); err != nil {
		t.Fatalf("failed to decode messages: %v", err)
	}
	if len(msgBody.Messages) != 4 || msgBody.Messages[0].Content != "show my tasks" {
		t.Errorf("unexpected messages: %+v", msgBody.Messages)
	}

	// Another owner reading the same conversation gets 404.
	req = httptest.NewRequest("GET", fmt.Sprintf("/api/conversations/%s/messages", chat.ConversationID), nil)
	req.Header.Set("X-Test-User", "bob")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("cross-owner request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("cross-owner messages: status %d, want 404", resp.StatusCode)
	}

	// Delete, then the conversation is gone.
	req = httptest.NewRequest("DELETE", "/api/conversations/"+chat.ConversationID, nil)
	req.Header.Set("X-Test-User", "alice")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("delete request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("delete: status %d, want 200", resp.StatusCode)
	}

	req = httptest.NewRequest("GET", fmt.Sprintf("/api/conversations/%s/messages", chat.ConversationID), nil)
	req.Header.Set("X-Test-User", "alice")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("post-delete request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("deleted conversation: status %d, want 404", resp.StatusCode)
	}
}
