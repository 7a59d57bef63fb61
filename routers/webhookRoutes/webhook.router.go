package webhookRoutes

import (
	webhookController "lms/controllers/webhook"

	"github.com/gofiber/fiber/v2"
)

// SetupWebhookRoutes registers the public gateway callback. No JWT here;
// the payload checksum is the only authentication.
func SetupWebhookRoutes(app *fiber.App) {
	webhookGroup := app.Group("/webhooks")

	webhookGroup.Post("/payment", webhookController.PaymentWebhook)
}
