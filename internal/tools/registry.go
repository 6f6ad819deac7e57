// Package tools is the only code path permitted to read or write tasks
// on behalf of the orchestration pipeline. Every operation takes the
// owner identity as first-class input and is logged as an audit trail.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"taskchat/internal/models"
)

// Request carries one tool invocation. OwnerID is never inferred; the
// caller must supply the authenticated identity explicitly.
type Request struct {
	OwnerID       string
	CorrelationID string
	Entities      models.Entities
}

// Result is the uniform outcome of a tool invocation. Exactly one of
// Task/Tasks or Error is populated depending on Success.
type Result struct {
	Success bool          `json:"success"`
	Task    *models.Task  `json:"task,omitempty"`
	Tasks   []models.Task `json:"tasks,omitempty"`
	Error   string        `json:"error,omitempty"`
}

// Ok wraps a single-task success.
func Ok(task *models.Task) *Result {
	return &Result{Success: true, Task: task}
}

// OkList wraps a task-list success.
func OkList(tasks []models.Task) *Result {
	return &Result{Success: true, Tasks: tasks}
}

// Fail wraps a failure with a user-presentable error.
func Fail(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// ExecuteFunc is the function signature for tool execution.
type ExecuteFunc func(ctx context.Context, req Request) *Result

// Tool represents a callable tool with its metadata and execution function.
type Tool struct {
	Name        string
	Description string
	// Mutating marks tools the reference resolver must never call.
	Mutating bool
	Execute  ExecuteFunc
}

// Registry manages the fixed task-tool set.
type Registry struct {
	tools       map[string]*Tool
	mutex       sync.RWMutex
	toolTimeout time.Duration
}

var (
	toolInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskchat_tool_invocations_total",
		Help: "Total number of tool invocations by tool and outcome",
	}, []string{"tool", "outcome"})

	toolLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskchat_tool_invocation_duration_seconds",
		Help:    "Tool invocation latency in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	}, []string{"tool"})
)

// NewRegistry creates an empty registry. The tool timeout bounds each
// invocation so the tool layer stays inside the end-to-end latency
// budget.
func NewRegistry(toolTimeout time.Duration) *Registry {
	if toolTimeout <= 0 {
		toolTimeout = 2 * time.Second
	}
	return &Registry{
		tools:       make(map[string]*Tool),
		toolTimeout: toolTimeout,
	}
}

// Register adds a new tool to the registry.
func (r *Registry) Register(tool *Tool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if tool.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if tool.Execute == nil {
		return fmt.Errorf("tool %s must have an Execute function", tool.Name)
	}
	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("tool %s is already registered", tool.Name)
	}

	r.tools[tool.Name] = tool
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.tools)
}

// Execute runs a tool by name and writes one audit-trail record with
// owner, operation, parameter summary, result summary, latency and
// correlation ID.
//
// The invocation runs on a context detached from the caller's: a
// client disconnect mid-request must not leave a mutation half
// applied, so in-flight tool calls are allowed to complete under their
// own timeout.
func (r *Registry) Execute(ctx context.Context, name string, req Request) *Result {
	tool, exists := r.Get(name)
	if !exists {
		return Fail("tool %s not found", name)
	}

	toolCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.toolTimeout)
	defer cancel()

	start := time.Now()
	result := tool.Execute(toolCtx, req)
	latency := time.Since(start)

	outcome := "success"
	if !result.Success {
		outcome = "error"
	}
	toolInvocations.WithLabelValues(name, outcome).Inc()
	toolLatency.WithLabelValues(name).Observe(latency.Seconds())

	slog.Info("tool invoked",
		"tool", name,
		"owner_id", req.OwnerID,
		"correlation_id", req.CorrelationID,
		"params", summarizeParams(req.Entities),
		"success", result.Success,
		"result", summarizeResult(result),
		"latency_ms", latency.Milliseconds(),
	)

	return result
}

func summarizeParams(e models.Entities) string {
	switch {
	case e.TaskID != 0:
		return fmt.Sprintf("task_id=%d", e.TaskID)
	case e.Title != "":
		return fmt.Sprintf("title=%q", e.Title)
	case e.TaskReference != "":
		return fmt.Sprintf("reference=%q", e.TaskReference)
	}
	return ""
}

func summarizeResult(res *Result) string {
	switch {
	case !res.Success:
		return res.Error
	case res.Task != nil:
		return fmt.Sprintf("task %d", res.Task.ID)
	case res.Tasks != nil:
		return fmt.Sprintf("%d tasks", len(res.Tasks))
	}
	return "ok"
}
