package handlers

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"

	"taskchat/internal/models"
	"taskchat/internal/services"
)

// ChatHandler handles chat turn requests
type ChatHandler struct {
	chatbot *services.ChatbotService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatbot *services.ChatbotService) *ChatHandler {
	return &ChatHandler{chatbot: chatbot}
}

// Handle runs one chat turn through the pipeline
// POST /api/chat
func (h *ChatHandler) Handle(c *fiber.Ctx) error {
	userID, ok := c.Locals("user_id").(string)
	if !ok || userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
			Category: models.ErrCategoryAuth,
			Error:    "Authentication required",
		})
	}

	var req models.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Category: models.ErrCategoryValidation,
			Error:    "Invalid request body",
		})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Category: models.ErrCategoryValidation,
			Error:    "Message is required",
		})
	}

	resp, err := h.chatbot.ProcessMessage(c.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Category: models.ErrCategoryValidation,
				Error:    verr.Message,
			})
		}
		if errors.Is(err, services.ErrConversationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
				Category: models.ErrCategoryValidation,
				Error:    "Conversation not found",
			})
		}
		log.Printf("❌ [CHAT] Turn failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse{
			Category: models.ErrCategoryUnavailable,
			Error:    "Something went wrong. Please try again.",
		})
	}

	return c.JSON(resp)
}
