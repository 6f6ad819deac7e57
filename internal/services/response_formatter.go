package services

import (
	"fmt"
	"strings"

	"taskchat/internal/models"
	"taskchat/internal/tools"
)

// ResponseFormatter turns terminal pipeline states into user-facing
// text. It is a pure function of its inputs: no external calls, no
// randomness, every reachable state gets a distinct, actionable
// message.
type ResponseFormatter struct{}

// NewResponseFormatter creates the formatter.
func NewResponseFormatter() *ResponseFormatter {
	return &ResponseFormatter{}
}

// FormatLowConfidence is the clarification reply for classifications
// below the confidence threshold and for the degraded classifier path.
func (f *ResponseFormatter) FormatLowConfidence() string {
	return "I'm not sure what you want to do. Here are some things you can try:\n" +
		"- 'add a task to [task name]' - Create a new task\n" +
		"- 'show my tasks' - View all your tasks\n" +
		"- 'mark task [number] as done' - Complete a task\n" +
		"- 'delete task [number]' - Remove a task\n" +
		"\nPlease rephrase your request."
}

// FormatConfirmation lists ambiguous candidates back to the user
// instead of guessing. At most five are shown.
func (f *ResponseFormatter) FormatConfirmation(matches []models.TaskMatch) string {
	var b strings.Builder
	b.WriteString("I found multiple tasks matching your request. Which one did you mean?\n")
	for i, match := range matches {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "%d. %s (ID: %d)\n", i+1, match.Title, match.ID)
	}
	b.WriteString("\nPlease specify the task ID (e.g., 'mark task 5 as done').")
	return b.String()
}

// FormatNoMatch is the zero-candidate outcome, distinct from the
// ambiguous case.
func (f *ResponseFormatter) FormatNoMatch(reference string) string {
	return fmt.Sprintf("I couldn't find any task matching '%s'. Try 'show my tasks' to see your task list.", reference)
}

// FormatValidation surfaces a parameter validation failure.
func (f *ResponseFormatter) FormatValidation(err *ValidationError) string {
	return err.Message + ". Try rephrasing, for example: 'add a task to buy milk' or 'mark task 5 as done'."
}

// Format renders a tool result for the executed intent.
func (f *ResponseFormatter) Format(intent models.Intent, result *tools.Result) string {
	if result == nil {
		return "I processed your request, but something went missing along the way. Please try again."
	}
	if !result.Success {
		return f.formatError(intent, result.Error)
	}

	switch intent {
	case models.IntentCreateTask:
		return f.formatCreated(result.Task)
	case models.IntentListTasks:
		return f.formatList(result.Tasks)
	case models.IntentCompleteTask:
		return f.formatCompleted(result.Task)
	case models.IntentDeleteTask:
		return "✓ Task deleted successfully. It's been removed from your list."
	case models.IntentUpdateTask:
		return f.formatUpdated(result.Task)
	}
	return "I processed your request, but I'm not sure how to describe what happened."
}

func (f *ResponseFormatter) formatCreated(task *models.Task) string {
	if task == nil {
		return "✓ Task created."
	}
	response := fmt.Sprintf("✓ Created task: '%s' (ID: %d).", task.Title, task.ID)
	if task.Priority == models.PriorityHigh {
		response += " Marked as high priority."
	}
	if task.DueDate != nil {
		response += fmt.Sprintf(" Due: %s.", task.DueDate.Format("2006-01-02"))
	}
	return response
}

func (f *ResponseFormatter) formatList(tasks []models.Task) string {
	if len(tasks) == 0 {
		return "You don't have any tasks yet. Try creating one by saying 'add a task to...'."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d task(s):\n", len(tasks))
	for i, task := range tasks {
		if i >= 10 {
			fmt.Fprintf(&b, "...and %d more tasks.", len(tasks)-10)
			break
		}
		status := "○"
		if task.Completed {
			status = "✓"
		}
		fmt.Fprintf(&b, "%d. [%s] %s (ID: %d)", i+1, status, task.Title, task.ID)
		switch task.Priority {
		case models.PriorityHigh:
			b.WriteString(" 🔴")
		case models.PriorityLow:
			b.WriteString(" 🟢")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (f *ResponseFormatter) formatCompleted(task *models.Task) string {
	if task == nil {
		return "✓ Task marked as complete."
	}
	if task.Completed {
		return fmt.Sprintf("✓ Marked '%s' as complete. Great job! 🎉", task.Title)
	}
	return fmt.Sprintf("○ Unmarked '%s' as complete.", task.Title)
}

func (f *ResponseFormatter) formatUpdated(task *models.Task) string {
	if task == nil {
		return "✓ Task updated successfully."
	}
	return fmt.Sprintf("✓ Updated task '%s' successfully.", task.Title)
}

// formatError keeps internal error strings away from the user while
// staying actionable.
func (f *ResponseFormatter) formatError(intent models.Intent, errMsg string) string {
	lower := strings.ToLower(errMsg)

	if strings.Contains(lower, "not found") {
		return "I couldn't find that task. Try 'show my tasks' to see your task list."
	}
	if strings.Contains(lower, "required") || strings.Contains(lower, "cannot be empty") {
		if intent == models.IntentCreateTask {
			return "Task title is required. Try: 'add a task to [task name]'."
		}
		return fmt.Sprintf("Missing required information. %s.", errMsg)
	}
	if strings.Contains(lower, "invalid") {
		return fmt.Sprintf("%s.", errMsg)
	}
	return "I ran into an issue processing that. Please try again or rephrase your request."
}
