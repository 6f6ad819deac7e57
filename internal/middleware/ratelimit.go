package middleware

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"taskchat/internal/models"
	"taskchat/internal/services"
)

// ChatRateLimitMiddleware enforces the per-owner chat budget. It runs
// after auth so the counter key is the owner identity, never the IP.
// Rejected requests report when the window resets and never reach the
// orchestrator.
func ChatRateLimitMiddleware(limiter services.RateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals("user_id").(string)
		if !ok || userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
				Category: models.ErrCategoryAuth,
				Error:    "Missing user identity",
			})
		}

		decision := limiter.Allow(c.Context(), userID)

		c.Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
		c.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
		c.Set("X-RateLimit-Reset", fmt.Sprintf("%d", decision.ResetAt.Unix()))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			log.Printf("⚠️  [RATE-LIMIT] User %s over chat budget, resets at %s", userID, decision.ResetAt.Format(time.RFC3339))
			services.RecordRateLimited()
			c.Set("Retry-After", fmt.Sprintf("%d", retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Category:   models.ErrCategoryRateLimit,
				Error:      "Rate limit exceeded. Please try again later.",
				RetryAfter: retryAfter,
			})
		}

		return c.Next()
	}
}
