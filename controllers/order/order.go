package orderController

import (
	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/utils"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CreateOrder creates a payable order for one or more courses and returns the
// gateway checkout URL. The enrollment, payment and transaction rows are
// written in one database transaction; the gateway call happens only after
// that commit, so a gateway failure leaves a recoverable pending order.
func CreateOrder(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = false", userId).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	reqData, ok := c.Locals("validatedCreateOrder").(*struct {
		CourseIDs   []uint `json:"courseIds"`
		Description string `json:"description"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	// All requested courses must exist and be purchasable
	var courses []models.Course
	if err := db.Where("id IN ? AND is_deleted = false AND status = ? AND is_published = true",
		reqData.CourseIDs, "ACTIVE").Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}
	if len(courses) != len(reqData.CourseIDs) {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "One or more courses not found or not active!", nil)
	}

	// Reject repeat purchases of a course the user already holds or is paying for
	var existing int64
	db.Model(&models.Enrollment{}).
		Where("user_id = ? AND course_id IN ? AND status IN ? AND is_deleted = false",
			userId, reqData.CourseIDs,
			[]models.EnrollmentStatus{models.EnrollmentStatusPending, models.EnrollmentStatusEnrolled, models.EnrollmentStatusCompleted}).
		Count(&existing)
	if existing > 0 {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Already enrolled in one or more of these courses!", nil)
	}

	var amount int64
	for _, course := range courses {
		amount += course.Price
	}
	if amount <= 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Order amount must be greater than 0!", nil)
	}

	orderCode := utils.GenerateOrderCode()
	description := reqData.Description
	if description == "" {
		description = "Course purchase"
	}

	payment := models.Payment{
		UserID: userId,
		Amount: amount,
		Status: models.PaymentStatusPending,
	}

	// Atomic write scope: either every row of the order exists, or none do
	tx := db.Begin()

	if err := tx.Create(&payment).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create order!", nil)
	}

	for _, course := range courses {
		enrollment := models.Enrollment{
			UserID:    userId,
			CourseID:  course.ID,
			PaymentID: payment.ID,
			Status:    models.EnrollmentStatusPending,
		}
		if err := tx.Create(&enrollment).Error; err != nil {
			tx.Rollback()
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create order!", nil)
		}
	}

	transaction := models.Transaction{
		UserID:      userId,
		OrderCode:   orderCode,
		PaymentID:   payment.ID,
		Amount:      amount,
		Status:      models.TransactionStatusPending,
		Description: description,
	}
	if err := tx.Create(&transaction).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create order!", nil)
	}

	if err := tx.Model(&payment).Update("transaction_id", transaction.ID).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create order!", nil)
	}

	if err := tx.Commit().Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create order!", nil)
	}

	// The gateway has no compensating-transaction API, so a failure here must
	// not roll back the committed rows. The order stays pending and is picked
	// up by the expiry sweep if never paid.
	checkoutURL, err := utils.CreatePaymentLink(utils.CheckoutRequest{
		OrderCode:   orderCode,
		Amount:      amount,
		Description: description,
		BuyerEmail:  user.Email,
	})
	if err != nil {
		log.Printf("[ORDER] Gateway call failed for order %d: %v", orderCode, err)
		return middleware.JsonResponse(c, fiber.StatusBadGateway, false, "Payment gateway unavailable! Order kept pending.", fiber.Map{
			"orderCode": orderCode,
		})
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order created successfully!", fiber.Map{
		"orderCode":   orderCode,
		"amount":      amount,
		"checkoutUrl": checkoutURL,
	})
}

// CompleteOrder moves a pending order to COMPLETED. The first conditional
// update on the transaction row is the idempotency gate and the critical
// section: duplicate webhooks and racing cancels match zero rows there and
// change nothing. Returns whether this call won the transition.
//
// The cascade is deliberately not wrapped in a database transaction. Once the
// gateway has confirmed money movement the transaction row must stay
// COMPLETED; a crash mid-cascade leaves a state the reconciliation sweep
// finishes forward.
func CompleteOrder(db *gorm.DB, orderCode int64, reference string, raw []byte) (bool, error) {
	updates := map[string]interface{}{
		"status":         models.TransactionStatusCompleted,
		"gateway_txn_id": reference,
	}
	if len(raw) > 0 {
		updates["webhook_raw"] = datatypes.JSON(raw)
	}

	res := db.Model(&models.Transaction{}).
		Where("order_code = ? AND status = ?", orderCode, models.TransactionStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// Duplicate webhook delivery or already-cancelled order. Expected.
		log.Printf("[ORDER] Completion no-op for order %d (already finalized or unknown)", orderCode)
		return false, nil
	}

	var transaction models.Transaction
	if err := db.Where("order_code = ?", orderCode).First(&transaction).Error; err != nil {
		log.Printf("[ORDER] CRITICAL: order %d transaction completed but lookup failed: %v", orderCode, err)
		return true, err
	}

	if err := finishCompletion(db, &transaction); err != nil {
		return true, err
	}

	sendPurchaseConfirmation(db, &transaction)
	return true, nil
}

// finishCompletion cascades a completed transaction to its payment and
// enrollments. Every step is a conditional update, so re-running it for a
// half-finished order is harmless. Shared with the reconciliation sweep.
func finishCompletion(db *gorm.DB, transaction *models.Transaction) error {
	paymentDate := time.Now()
	res := db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", transaction.PaymentID, models.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":       models.PaymentStatusCompleted,
			"payment_date": paymentDate,
		})
	if res.Error != nil {
		log.Printf("[ORDER] CRITICAL: order %d payment update failed: %v", transaction.OrderCode, res.Error)
		return res.Error
	}

	if err := db.Model(&models.Enrollment{}).
		Where("payment_id = ? AND status = ?", transaction.PaymentID, models.EnrollmentStatusPending).
		Update("status", models.EnrollmentStatusEnrolled).Error; err != nil {
		log.Printf("[ORDER] CRITICAL: order %d enrollment update failed: %v", transaction.OrderCode, err)
		return err
	}

	return nil
}

// CancelOrderCascade moves a pending order to CANCELLED using the same
// conditional-update discipline as completion. Returns whether this call won;
// a false result means the order was already finalized by a competing writer.
func CancelOrderCascade(db *gorm.DB, orderCode int64) (bool, error) {
	res := db.Model(&models.Transaction{}).
		Where("order_code = ? AND status = ?", orderCode, models.TransactionStatusPending).
		Update("status", models.TransactionStatusCancelled)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	var transaction models.Transaction
	if err := db.Where("order_code = ?", orderCode).First(&transaction).Error; err != nil {
		log.Printf("[ORDER] CRITICAL: order %d transaction cancelled but lookup failed: %v", orderCode, err)
		return true, err
	}

	if err := db.Model(&models.Payment{}).
		Where("id = ? AND status = ?", transaction.PaymentID, models.PaymentStatusPending).
		Update("status", models.PaymentStatusCancelled).Error; err != nil {
		log.Printf("[ORDER] CRITICAL: order %d payment cancel failed: %v", orderCode, err)
		return true, err
	}

	if err := db.Model(&models.Enrollment{}).
		Where("payment_id = ? AND status = ?", transaction.PaymentID, models.EnrollmentStatusPending).
		Update("status", models.EnrollmentStatusCancelled).Error; err != nil {
		log.Printf("[ORDER] CRITICAL: order %d enrollment cancel failed: %v", orderCode, err)
		return true, err
	}

	return true, nil
}

// CancelOrder lets a buyer cancel their own unpaid order
func CancelOrder(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	orderCode := c.Locals("orderCode").(int64)
	db := database.Database.Db

	var transaction models.Transaction
	if err := db.Where("order_code = ? AND is_deleted = false", orderCode).First(&transaction).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found!", nil)
	}

	if transaction.UserID != userId {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You can only cancel your own orders!", nil)
	}

	won, err := CancelOrderCascade(db, orderCode)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to cancel order!", nil)
	}
	if !won {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "Order already finalized!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order cancelled successfully!", fiber.Map{
		"orderCode": orderCode,
		"status":    models.TransactionStatusCancelled,
	})
}

// GetOrderStatus returns the order status to its buyer
func GetOrderStatus(c *fiber.Ctx) error {
	userId, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	orderCode := c.Locals("orderCode").(int64)

	var transaction models.Transaction
	if err := database.Database.Db.Where("order_code = ? AND is_deleted = false", orderCode).First(&transaction).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Order not found!", nil)
	}

	if transaction.UserID != userId {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Access Denied!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Order status fetched!", fiber.Map{
		"orderCode":    transaction.OrderCode,
		"status":       transaction.Status,
		"amount":       transaction.Amount,
		"description":  transaction.Description,
		"gatewayTxnId": transaction.GatewayTxnID,
		"createdAt":    transaction.CreatedAt,
	})
}

// sendPurchaseConfirmation emails the buyer after a completed cascade.
// Best effort only; failures are logged and never bubble up to the gateway.
func sendPurchaseConfirmation(db *gorm.DB, transaction *models.Transaction) {
	var user models.User
	if err := db.Where("id = ?", transaction.UserID).First(&user).Error; err != nil {
		log.Printf("[ORDER] Could not load buyer for order %d confirmation email: %v", transaction.OrderCode, err)
		return
	}

	var enrollments []models.Enrollment
	if err := db.Where("payment_id = ?", transaction.PaymentID).Preload("Course").Find(&enrollments).Error; err != nil {
		log.Printf("[ORDER] Could not load enrollments for order %d confirmation email: %v", transaction.OrderCode, err)
		return
	}

	titles := make([]string, 0, len(enrollments))
	for _, enrollment := range enrollments {
		titles = append(titles, enrollment.Course.Title)
	}

	if err := utils.SendPurchaseConfirmationEmail(user.Email, user.Name, titles, transaction.OrderCode, transaction.Amount); err != nil {
		log.Printf("[ORDER] Confirmation email failed for order %d: %v", transaction.OrderCode, err)
	}
}
