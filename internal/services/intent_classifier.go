package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"taskchat/internal/models"
)

// Classifier turns a raw user message plus recent history into a
// structured classification. Implementations never mutate anything and
// never fail hard: an unusable backend degrades to the unclear
// fallback.
type Classifier interface {
	Classify(ctx context.Context, message string, history []models.Message) models.ClassificationResult
}

// historyWindow is how many trailing messages are sent as context.
const historyWindow = 10

// classifierSystemPrompt defines the classification task for the
// inference service. Kept deliberately strict about the output shape
// so the JSON can be parsed without a schema round-trip.
const classifierSystemPrompt = `You are an intent classifier for a todo-management assistant.
Users make typos and use informal language; interpret intent, not exact spelling.

Classify the user message into exactly one intent:
- create_task: user wants a new task
- list_tasks: user wants to see tasks (show, list, display, view)
- complete_task: user wants a task marked done
- update_task: user wants to modify an existing task
- delete_task: user wants a task removed
- unclear: intent cannot be determined

Extract entities when present:
- title: task title for create_task
- description: longer task text
- priority: high, medium or low
- due_date: ISO 8601 date if mentioned
- task_id: numeric task ID in any phrasing ("task 5", "id 20", "#42")
- task_reference: textual reference ("the grocery one", "first task", "it")
- completed: true/false completion filter or target
- tags: list of tags mentioned

If the recent conversation is provided and the user says "it" or "that one",
look there for the referenced task.

Respond with JSON only:
{"intent": "...", "confidence": 0.0-1.0, "entities": {...}}

Confidence: 1.0 for explicit keywords, 0.7-0.9 for clear intent,
below 0.7 when the request is ambiguous or empty of meaning.`

// IntentClassifier calls an OpenAI-compatible inference service.
// Exactly one external request per invocation; on failure it retries
// once after a fixed delay and then returns the deterministic unclear
// fallback.
type IntentClassifier struct {
	mu         sync.RWMutex
	provider   *models.InferenceProvider
	httpClient *http.Client
	// outLimiter keeps bursts of chat turns from hammering the
	// inference backend's rate limits.
	outLimiter *rate.Limiter
	retryDelay time.Duration
}

// NewIntentClassifier creates a classifier for the given provider.
// A nil provider is allowed; every call then degrades to the fallback.
func NewIntentClassifier(provider *models.InferenceProvider) *IntentClassifier {
	return &IntentClassifier{
		provider:   provider,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		outLimiter: rate.NewLimiter(rate.Limit(10), 20),
		retryDelay: 500 * time.Millisecond,
	}
}

// SetProvider swaps the inference provider. Called on providers.json
// hot reload.
func (c *IntentClassifier) SetProvider(provider *models.InferenceProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = provider
}

func (c *IntentClassifier) currentProvider() *models.InferenceProvider {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.provider
}

// fallbackResult is the deterministic degraded classification.
func fallbackResult() models.ClassificationResult {
	return models.ClassificationResult{Intent: models.IntentUnclear, Confidence: 0.0}
}

// Classify runs one classification with a single bounded retry. It
// never returns an error: an unavailable inference backend must not
// crash the pipeline.
func (c *IntentClassifier) Classify(ctx context.Context, message string, history []models.Message) models.ClassificationResult {
	provider := c.currentProvider()
	if provider == nil {
		slog.Debug("intent classifier: no provider configured, using fallback")
		return fallbackResult()
	}

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return fallbackResult()
			}
		}

		result, err := c.classifyOnce(ctx, provider, message, history)
		if err == nil {
			return result
		}
		slog.Warn("intent classifier: inference request failed",
			"attempt", attempt+1, "provider", provider.Name, "error", err)
	}

	metricsClassifierFallbacks.Inc()
	return fallbackResult()
}

func (c *IntentClassifier) classifyOnce(ctx context.Context, provider *models.InferenceProvider, message string, history []models.Message) (models.ClassificationResult, error) {
	if err := c.outLimiter.Wait(ctx); err != nil {
		return models.ClassificationResult{}, fmt.Errorf("outbound limiter: %w", err)
	}

	timeout := 15 * time.Second
	if provider.TimeoutSeconds > 0 {
		timeout = time.Duration(provider.TimeoutSeconds) * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := []map[string]any{
		{"role": "system", "content": classifierSystemPrompt},
	}
	start := len(history) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, msg := range history[start:] {
		messages = append(messages, map[string]any{
			"role":    string(msg.Role),
			"content": msg.Content,
		})
	}
	messages = append(messages, map[string]any{
		"role":    "user",
		"content": message,
	})

	reqBody := map[string]any{
		"model":       provider.Model,
		"messages":    messages,
		"temperature": 0.3,
		"max_tokens":  300,
		"stream":      false,
	}
	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(reqCtx, "POST", provider.BaseURL+"/chat/completions", bytes.NewBuffer(reqJSON))
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+provider.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.ClassificationResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return models.ClassificationResult{}, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return models.ClassificationResult{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return models.ClassificationResult{}, fmt.Errorf("no choices in response")
	}

	return parseClassification(completion.Choices[0].Message.Content)
}

// parseClassification extracts the classification from the model's
// reply, tolerating markdown fences and stray prose around the JSON.
func parseClassification(content string) (models.ClassificationResult, error) {
	content = stripMarkdownFences(content)

	doc := gjson.Parse(content)
	if !doc.Get("intent").Exists() {
		return models.ClassificationResult{}, fmt.Errorf("no intent in classifier output")
	}

	intent := models.Intent(doc.Get("intent").String())
	if !intent.Valid() {
		intent = models.IntentUnclear
	}

	confidence := doc.Get("confidence").Float()
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	entities := doc.Get("entities")
	result := models.ClassificationResult{
		Intent:     intent,
		Confidence: confidence,
		Entities: models.Entities{
			Title:         entities.Get("title").String(),
			Description:   entities.Get("description").String(),
			Priority:      entities.Get("priority").String(),
			DueDate:       entities.Get("due_date").String(),
			TaskID:        entities.Get("task_id").Int(),
			TaskReference: entities.Get("task_reference").String(),
		},
	}
	if completed := entities.Get("completed"); completed.Exists() {
		v := completed.Bool()
		result.Entities.Completed = &v
	}
	for _, tag := range entities.Get("tags").Array() {
		result.Entities.Tags = append(result.Entities.Tags, tag.String())
	}

	return result, nil
}

func stripMarkdownFences(content string) string {
	content = strings.TrimSpace(content)
	if idx := strings.Index(content, "```json"); idx >= 0 {
		content = content[idx+len("```json"):]
	} else if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[idx+3:]
	}
	if idx := strings.Index(content, "```"); idx >= 0 {
		content = content[:idx]
	}
	return strings.TrimSpace(content)
}
