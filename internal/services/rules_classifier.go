package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"taskchat/internal/models"
)

// RulesClassifier is a pattern-matching classifier with no external
// calls. It serves deployments with no inference provider configured
// and keeps the pipeline testable offline.
type RulesClassifier struct{}

// NewRulesClassifier creates the heuristic classifier.
func NewRulesClassifier() *RulesClassifier {
	return &RulesClassifier{}
}

var (
	taskIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\btask\s*id\s*(\d+)`),
		regexp.MustCompile(`\bid\s*(\d+)`),
		regexp.MustCompile(`\btask\s*(\d+)`),
		regexp.MustCompile(`\bnumber\s+(\d+)`),
		regexp.MustCompile(`#(\d+)`),
		regexp.MustCompile(`(\d+)\s+task`),
	}

	createTitlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`add\s+(?:a\s+|new\s+)?task\s+(?:to\s+)?(.+)`),
		regexp.MustCompile(`create\s+(?:a\s+|new\s+)?task\s+(?:for\s+|to\s+)?(.+)`),
		regexp.MustCompile(`remind\s+me\s+to\s+(.+)`),
		regexp.MustCompile(`new\s+task\s+(?:for\s+)?(.+)`),
		regexp.MustCompile(`(?:add|create)\s+(?:task\s+)?(.+)`),
	}

	statusSuffixPattern = regexp.MustCompile(`\s+as\s+(completed?|done|finished?)\s*$`)
	taskPrefixPattern   = regexp.MustCompile(`^\s*(?:the\s+|my\s+)?task\s+`)
)

// Classify matches keyword patterns against the lowered message.
// History is unused; positional references are handled downstream by
// the resolver.
func (c *RulesClassifier) Classify(_ context.Context, message string, _ []models.Message) models.ClassificationResult {
	msg := strings.ToLower(strings.TrimSpace(message))

	switch {
	case isListIntent(msg):
		return models.ClassificationResult{
			Intent:     models.IntentListTasks,
			Confidence: 0.95,
			Entities:   extractListFilters(msg),
		}
	case isDeleteIntent(msg):
		return models.ClassificationResult{
			Intent:     models.IntentDeleteTask,
			Confidence: 0.9,
			Entities:   extractTaskReference(msg, "delete", "remove", "trash", "cancel"),
		}
	case isCompleteIntent(msg):
		return models.ClassificationResult{
			Intent:     models.IntentCompleteTask,
			Confidence: 0.9,
			Entities:   extractTaskReference(msg, "complete", "done", "mark", "finish"),
		}
	case isCreateIntent(msg):
		return models.ClassificationResult{
			Intent:     models.IntentCreateTask,
			Confidence: 0.9,
			Entities:   extractCreateEntities(msg),
		}
	case isUpdateIntent(msg):
		return models.ClassificationResult{
			Intent:     models.IntentUpdateTask,
			Confidence: 0.85,
			Entities:   extractTaskReference(msg, "update", "change", "edit", "modify", "rename"),
		}
	}

	return models.ClassificationResult{Intent: models.IntentUnclear, Confidence: 0.2}
}

func isListIntent(msg string) bool {
	return containsAny(msg, "show", "list", "view", "display") &&
		containsAny(msg, "task", "todo")
}

func isCreateIntent(msg string) bool {
	if strings.Contains(msg, "remind me") {
		return true
	}
	return containsAny(msg, "add", "create", "new", "make") &&
		containsAny(msg, "task", "todo", "reminder")
}

func isCompleteIntent(msg string) bool {
	return containsAny(msg, "mark", "complete", "done", "finish")
}

func isDeleteIntent(msg string) bool {
	return containsAny(msg, "delete", "remove", "trash")
}

func isUpdateIntent(msg string) bool {
	return containsAny(msg, "update", "change", "edit", "modify", "rename")
}

func containsAny(msg string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

func extractTaskID(msg string) (int64, bool) {
	for _, pattern := range taskIDPatterns {
		if m := pattern.FindStringSubmatch(msg); m != nil {
			id, err := strconv.ParseInt(m[1], 10, 64)
			if err == nil && id > 0 {
				return id, true
			}
		}
	}
	return 0, false
}

func extractTaskReference(msg string, keywords ...string) models.Entities {
	var entities models.Entities

	if id, ok := extractTaskID(msg); ok {
		entities.TaskID = id
		return entities
	}

	for _, keyword := range keywords {
		idx := strings.Index(msg, keyword)
		if idx < 0 {
			continue
		}
		ref := strings.TrimSpace(msg[idx+len(keyword):])
		ref = statusSuffixPattern.ReplaceAllString(ref, "")
		ref = taskPrefixPattern.ReplaceAllString(ref, "")
		ref = strings.TrimSpace(ref)
		if len(ref) > 2 {
			entities.TaskReference = ref
			return entities
		}
	}
	return entities
}

func extractCreateEntities(msg string) models.Entities {
	var entities models.Entities

	for _, pattern := range createTitlePatterns {
		m := pattern.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		title := strings.TrimSpace(m[1])
		if _, err := strconv.Atoi(title); err == nil {
			continue
		}
		if len(title) > 2 {
			entities.Title = cleanTitle(title)
			break
		}
	}

	entities.Priority = extractPriority(msg)
	return entities
}

func extractListFilters(msg string) models.Entities {
	var entities models.Entities
	if containsAny(msg, "completed", "done", "finished") {
		v := true
		entities.Completed = &v
	} else if containsAny(msg, "pending", "active") {
		v := false
		entities.Completed = &v
	}
	return entities
}

func extractPriority(msg string) string {
	switch {
	case containsAny(msg, "high priority", "urgent", "important"):
		return "high"
	case strings.Contains(msg, "low priority"):
		return "low"
	case strings.Contains(msg, "medium priority"):
		return "medium"
	}
	return ""
}

var priorityPhrasePattern = regexp.MustCompile(`\s*(?:as\s+)?(?:high|medium|low)\s+priority\b`)

func cleanTitle(title string) string {
	title = priorityPhrasePattern.ReplaceAllString(title, "")
	title = strings.Trim(title, `"' `)
	return strings.Join(strings.Fields(title), " ")
}
