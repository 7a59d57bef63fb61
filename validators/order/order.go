package orderValidator

import (
	"lms/middleware"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CreateOrder validates a course purchase request
func CreateOrder() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			CourseIDs   []uint `json:"courseIds"`
			Description string `json:"description"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if len(reqData.CourseIDs) == 0 {
			errors["courseIds"] = "At least one course is required!"
		}
		seen := make(map[uint]bool)
		for _, id := range reqData.CourseIDs {
			if id == 0 {
				errors["courseIds"] = "Course IDs must be greater than 0!"
				break
			}
			if seen[id] {
				errors["courseIds"] = "Duplicate course IDs are not allowed!"
				break
			}
			seen[id] = true
		}
		if len(reqData.Description) > 255 {
			errors["description"] = "Description must be at most 255 characters!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCreateOrder", reqData)
		return c.Next()
	}
}

// OrderCode validates the orderCode path parameter
func OrderCode() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderCodeStr := strings.TrimSpace(c.Params("orderCode"))
		if orderCodeStr == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Order code is required!", nil)
		}

		orderCode, err := strconv.ParseInt(orderCodeStr, 10, 64)
		if err != nil || orderCode <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid order code!", nil)
		}

		c.Locals("orderCode", orderCode)
		return c.Next()
	}
}
