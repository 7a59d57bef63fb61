package orderRoutes

import (
	orderController "lms/controllers/order"
	"lms/middleware"
	orderValidator "lms/validators/order"

	"github.com/gofiber/fiber/v2"
)

func SetupOrderRoutes(app *fiber.App) {
	orderGroup := app.Group("/orders")

	orderGroup.Post("/", orderValidator.CreateOrder(), middleware.JWTMiddleware, orderController.CreateOrder)
	orderGroup.Get("/:orderCode", orderValidator.OrderCode(), middleware.JWTMiddleware, orderController.GetOrderStatus)
	orderGroup.Post("/:orderCode/cancel", orderValidator.OrderCode(), middleware.JWTMiddleware, orderController.CancelOrder)
}
