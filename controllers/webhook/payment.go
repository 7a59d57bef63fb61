package webhookController

import (
	orderController "lms/controllers/order"
	"lms/database"
	"lms/middleware"
	"lms/utils"
	"log"

	"github.com/gofiber/fiber/v2"
)

// PaymentWebhook receives asynchronous payment notifications from the
// gateway. The only authentication is the payload checksum; nothing in the
// body is trusted before verification passes. After verification the endpoint
// always answers 2xx, including for duplicates and for internal cascade
// failures, because a non-2xx only makes the gateway retry an event that has
// already been applied.
func PaymentWebhook(c *fiber.Ctx) error {
	raw := c.Body()

	event, err := utils.VerifyWebhook(raw)
	if err != nil {
		log.Printf("[WEBHOOK] Rejected payload: %v", err)
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid signature!", nil)
	}

	if !event.Success {
		// The gateway reports failed/expired attempts too. No state change;
		// an unpaid order is eventually cancelled by the expiry sweep.
		log.Printf("[WEBHOOK] Non-success event for order %d, ignoring", event.OrderCode)
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Webhook received!", nil)
	}

	won, err := orderController.CompleteOrder(database.Database.Db, event.OrderCode, event.Reference, raw)
	if err != nil {
		// Logged as critical inside the cascade; still 2xx so the gateway
		// does not storm an order whose transaction row is already COMPLETED.
		log.Printf("[WEBHOOK] CRITICAL: cascade error for order %d: %v", event.OrderCode, err)
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Webhook received!", nil)
	}

	if !won {
		log.Printf("[WEBHOOK] Duplicate delivery for order %d", event.OrderCode)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Webhook processed!", nil)
}
