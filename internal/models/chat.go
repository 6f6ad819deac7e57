package models

// MaxChatMessageLength bounds the inbound chat message.
const MaxChatMessageLength = 2000

// ChatRequest is the body of POST /api/chat. ConversationID empty
// means "start a new thread".
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the single reply produced for every chat turn,
// success or failure. CorrelationID threads the request through every
// logged operation.
type ChatResponse struct {
	Response          string `json:"response"`
	ConversationID    string `json:"conversation_id"`
	Intent            string `json:"intent"`
	Success           bool   `json:"success"`
	NeedsConfirmation bool   `json:"needs_confirmation,omitempty"`
	CorrelationID     string `json:"correlation_id"`
}

// ErrorCategory discriminates structured error responses so clients
// never have to parse free text.
type ErrorCategory string

const (
	ErrCategoryAuth        ErrorCategory = "auth"
	ErrCategoryRateLimit   ErrorCategory = "rate_limit"
	ErrCategoryValidation  ErrorCategory = "validation"
	ErrCategoryUnavailable ErrorCategory = "upstream_unavailable"
)

// ErrorResponse is the structured error shape for non-pipeline
// failures (auth, rate limit, request validation).
type ErrorResponse struct {
	Category ErrorCategory `json:"category"`
	Error    string        `json:"error"`
	// RetryAfter is seconds until the rate-limit window resets; only
	// set for rate_limit errors.
	RetryAfter int `json:"retry_after,omitempty"`
}
