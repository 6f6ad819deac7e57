package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskchat/internal/logging"
	"taskchat/internal/models"
)

// ChatbotService runs one chat turn through the full pipeline:
// classify, resolve references, execute the action, format the reply.
// It keeps no per-conversation state between calls; everything a turn
// needs is loaded from storage on entry.
type ChatbotService struct {
	conversations *ConversationService
	classifier    Classifier
	resolver      *TaskResolver
	agent         *ActionAgent
	formatter     *ResponseFormatter
	historyLimit  int
}

// NewChatbotService wires the pipeline stages together.
func NewChatbotService(conversations *ConversationService, classifier Classifier, resolver *TaskResolver, agent *ActionAgent, formatter *ResponseFormatter) *ChatbotService {
	return &ChatbotService{
		conversations: conversations,
		classifier:    classifier,
		resolver:      resolver,
		agent:         agent,
		formatter:     formatter,
		historyLimit:  historyWindow,
	}
}

// ProcessMessage handles one user message end to end. Every terminal
// outcome, including gated and failed ones, is persisted as a
// user/assistant turn and answered with a ChatResponse. An error is
// returned only when conversation storage itself fails.
func (s *ChatbotService) ProcessMessage(ctx context.Context, userID, conversationID, message string) (*models.ChatResponse, error) {
	start := time.Now()
	metricsChatRequests.Inc()
	defer func() {
		metricsChatLatency.Observe(time.Since(start).Seconds())
	}()

	correlationID := uuid.NewString()
	logger := logging.WithRequest(correlationID, userID)

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, &ValidationError{Message: "Message cannot be empty."}
	}
	if len(message) > models.MaxChatMessageLength {
		return nil, &ValidationError{Message: fmt.Sprintf("Message exceeds the %d character limit.", models.MaxChatMessageLength)}
	}

	conv, err := s.conversations.GetOrCreate(ctx, userID, conversationID)
	if err != nil {
		if errors.Is(err, ErrConversationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	logger = logging.WithConversation(logger, conv.ID)

	history, err := s.conversations.History(ctx, userID, conv.ID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	classification := s.classifier.Classify(ctx, message, history)
	logger.Info("intent classified",
		"intent", string(classification.Intent),
		"confidence", classification.Confidence)

	resp := s.runPipeline(ctx, logger, userID, correlationID, classification)
	resp.ConversationID = conv.ID
	resp.CorrelationID = correlationID

	if err := s.conversations.AppendTurn(ctx, conv, message, resp.Response); err != nil {
		return nil, fmt.Errorf("persisting turn: %w", err)
	}
	return resp, nil
}

// runPipeline covers everything after classification. The returned
// response has Intent/Success/NeedsConfirmation/Response populated;
// the caller fills in the conversation and correlation IDs.
func (s *ChatbotService) runPipeline(ctx context.Context, logger *slog.Logger, userID, correlationID string, classification models.ClassificationResult) *models.ChatResponse {
	intent := classification.Intent
	entities := classification.Entities

	if classification.Confidence < models.ConfidenceThreshold {
		logger.Info("confidence below threshold, asking for clarification",
			"intent", string(intent),
			"confidence", classification.Confidence)
		metricsChatOutcomes.WithLabelValues(outcomeLowConfidence).Inc()
		return &models.ChatResponse{
			Response: s.formatter.FormatLowConfidence(),
			Intent:   string(models.IntentUnclear),
			Success:  false,
		}
	}

	if intent.NeedsTaskID() && entities.TaskID == 0 {
		resolution, err := s.resolver.Resolve(ctx, userID, correlationID, entities)
		if err != nil {
			logger.Error("reference resolution failed", "error", err)
			metricsChatOutcomes.WithLabelValues(outcomeToolError).Inc()
			return &models.ChatResponse{
				Response: "Sorry, I couldn't look up your tasks right now. Please try again.",
				Intent:   string(intent),
				Success:  false,
			}
		}
		if resolution.ConfirmationNeeded {
			metricsChatOutcomes.WithLabelValues(outcomeConfirmation).Inc()
			return &models.ChatResponse{
				Response:          s.formatter.FormatConfirmation(resolution.Matches),
				Intent:            string(intent),
				Success:           false,
				NeedsConfirmation: true,
			}
		}
		if len(resolution.TaskIDs) == 0 {
			metricsChatOutcomes.WithLabelValues(outcomeNoMatch).Inc()
			return &models.ChatResponse{
				Response: s.formatter.FormatNoMatch(entities.TaskReference),
				Intent:   string(intent),
				Success:  false,
			}
		}
		entities.TaskID = resolution.TaskIDs[0]
	}

	result, err := s.agent.Execute(ctx, intent, entities, userID, correlationID)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			metricsChatOutcomes.WithLabelValues(outcomeValidation).Inc()
			return &models.ChatResponse{
				Response: s.formatter.FormatValidation(verr),
				Intent:   string(intent),
				Success:  false,
			}
		}
		logger.Error("action execution failed", "error", err)
		metricsChatOutcomes.WithLabelValues(outcomeToolError).Inc()
		return &models.ChatResponse{
			Response: "Sorry, something went wrong handling that. Please try again.",
			Intent:   string(intent),
			Success:  false,
		}
	}

	if result.Success {
		metricsChatOutcomes.WithLabelValues(outcomeSuccess).Inc()
	} else {
		metricsChatOutcomes.WithLabelValues(outcomeToolError).Inc()
	}
	return &models.ChatResponse{
		Response: s.formatter.Format(intent, result),
		Intent:   string(intent),
		Success:  result.Success,
	}
}
