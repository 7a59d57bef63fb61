package courseController

import (
	"lms/database"
	"lms/middleware"
	"lms/models"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/now"
)

// AdminDashboard returns revenue and order counters (Admin only). Read-only
// projections over completed transactions; nothing here feeds back into the
// order state machine.
func AdminDashboard(c *fiber.Ctx) error {
	userId := c.Locals("userId").(uint)

	var admin models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = false AND role = ?", userId, "ADMIN").First(&admin).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Access denied! Admin only.", nil)
	}

	db := database.Database.Db

	type revenueRow struct {
		Total int64
	}

	var todayRevenue, monthRevenue, totalRevenue revenueRow
	db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("status = ? AND updated_at >= ?", models.TransactionStatusCompleted, now.BeginningOfDay()).
		Scan(&todayRevenue)
	db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("status = ? AND updated_at >= ?", models.TransactionStatusCompleted, now.BeginningOfMonth()).
		Scan(&monthRevenue)
	db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) as total").
		Where("status = ?", models.TransactionStatusCompleted).
		Scan(&totalRevenue)

	var pendingOrders, completedOrders, cancelledOrders int64
	db.Model(&models.Transaction{}).Where("status = ?", models.TransactionStatusPending).Count(&pendingOrders)
	db.Model(&models.Transaction{}).Where("status = ?", models.TransactionStatusCompleted).Count(&completedOrders)
	db.Model(&models.Transaction{}).Where("status = ?", models.TransactionStatusCancelled).Count(&cancelledOrders)

	var activeEnrollments int64
	db.Model(&models.Enrollment{}).Where("status = ? AND is_deleted = false", models.EnrollmentStatusEnrolled).Count(&activeEnrollments)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Dashboard fetched successfully!", fiber.Map{
		"revenue": fiber.Map{
			"today":     todayRevenue.Total,
			"thisMonth": monthRevenue.Total,
			"total":     totalRevenue.Total,
		},
		"orders": fiber.Map{
			"pending":   pendingOrders,
			"completed": completedOrders,
			"cancelled": cancelledOrders,
		},
		"activeEnrollments": activeEnrollments,
	})
}
