package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"taskchat/internal/models"
	"taskchat/internal/services"
)

// ConversationHandler handles conversation-related HTTP requests
type ConversationHandler struct {
	conversations *services.ConversationService
}

// NewConversationHandler creates a new conversation handler
func NewConversationHandler(conversations *services.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversations: conversations}
}

// List returns the caller's active conversations, most recent first
// GET /api/conversations
func (h *ConversationHandler) List(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
			Category: models.ErrCategoryAuth,
			Error:    "Authentication required",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	summaries, err := h.conversations.List(c.Context(), userID, limit)
	if err != nil {
		log.Printf("❌ [CONVERSATION] List failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Category: models.ErrCategoryUnavailable,
			Error:    "Failed to load conversations",
		})
	}

	return c.JSON(fiber.Map{
		"conversations": summaries,
		"count":         len(summaries),
	})
}

// Messages returns one conversation's messages in creation order
// GET /api/conversations/:id/messages
func (h *ConversationHandler) Messages(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
			Category: models.ErrCategoryAuth,
			Error:    "Authentication required",
		})
	}

	conversationID := c.Params("id")
	if conversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Category: models.ErrCategoryValidation,
			Error:    "Conversation ID is required",
		})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "100"))
	messages, err := h.conversations.Messages(c.Context(), userID, conversationID, limit)
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
				Category: models.ErrCategoryValidation,
				Error:    "Conversation not found",
			})
		}
		log.Printf("❌ [CONVERSATION] Messages failed for conversation %s: %v", conversationID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Category: models.ErrCategoryUnavailable,
			Error:    "Failed to load messages",
		})
	}

	return c.JSON(fiber.Map{
		"conversation_id": conversationID,
		"messages":        messages,
		"count":           len(messages),
	})
}

// Delete soft-deletes a conversation and its messages
// DELETE /api/conversations/:id
func (h *ConversationHandler) Delete(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
			Category: models.ErrCategoryAuth,
			Error:    "Authentication required",
		})
	}

	conversationID := c.Params("id")
	if conversationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Category: models.ErrCategoryValidation,
			Error:    "Conversation ID is required",
		})
	}

	if err := h.conversations.SoftDelete(c.Context(), userID, conversationID); err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
				Category: models.ErrCategoryValidation,
				Error:    "Conversation not found",
			})
		}
		log.Printf("❌ [CONVERSATION] Delete failed for conversation %s: %v", conversationID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Category: models.ErrCategoryUnavailable,
			Error:    "Failed to delete conversation",
		})
	}

	log.Printf("🗑️  [CONVERSATION] Deleted conversation %s (user: %s)", conversationID, userID)
	return c.JSON(fiber.Map{"success": true})
}
