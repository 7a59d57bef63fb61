package orderController

import (
	"lms/config"
	"lms/database"
	"lms/models"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// InitializeOrderSweeper starts the background jobs that clean up orders the
// request path cannot: stale pending orders (gateway call failed or buyer
// walked away) and half-finished completion cascades (crash between steps).
func InitializeOrderSweeper() {
	log.Println("[ORDER-SWEEPER] Initializing order sweeper...")

	c := cron.New()

	c.AddFunc("*/5 * * * *", func() {
		SweepExpiredOrders()
		ReconcileCompletedOrders()
	})

	c.Start()
	log.Printf("[ORDER-SWEEPER] Order sweeper started - runs every 5 minutes, TTL %d minutes", config.AppConfig.PendingOrderTTLMin)
}

// SweepExpiredOrders cancels orders that stayed pending past the configured
// TTL. It reuses the cancel cascade, so a webhook completing the same order
// concurrently always wins or loses cleanly at the conditional update.
func SweepExpiredOrders() {
	db := database.Database.Db
	cutoff := time.Now().Add(-time.Duration(config.AppConfig.PendingOrderTTLMin) * time.Minute)

	var stale []models.Transaction
	if err := db.
		Where("status = ? AND created_at < ? AND is_deleted = false", models.TransactionStatusPending, cutoff).
		Find(&stale).Error; err != nil {
		log.Printf("[ORDER-SWEEPER] Error fetching stale orders: %v", err)
		return
	}

	if len(stale) == 0 {
		return
	}
	log.Printf("[ORDER-SWEEPER] Found %d stale pending orders", len(stale))

	for _, transaction := range stale {
		won, err := CancelOrderCascade(db, transaction.OrderCode)
		if err != nil {
			log.Printf("[ORDER-SWEEPER] Error cancelling order %d: %v", transaction.OrderCode, err)
			continue
		}
		if won {
			log.Printf("[ORDER-SWEEPER] Cancelled expired order %d", transaction.OrderCode)
		}
	}
}

// ReconcileCompletedOrders finishes forward orders whose transaction is
// COMPLETED but whose payment is still PENDING. That state only exists when a
// process died between cascade steps; it is never rolled back because the
// gateway already confirmed the money.
func ReconcileCompletedOrders() {
	db := database.Database.Db

	var stuck []models.Transaction
	if err := db.Model(&models.Transaction{}).
		Select("transactions.*").
		Joins("JOIN payments ON payments.id = transactions.payment_id").
		Where("transactions.status = ? AND payments.status = ?", models.TransactionStatusCompleted, models.PaymentStatusPending).
		Find(&stuck).Error; err != nil {
		log.Printf("[ORDER-SWEEPER] Error fetching stuck orders: %v", err)
		return
	}

	if len(stuck) == 0 {
		return
	}
	log.Printf("[ORDER-SWEEPER] Found %d half-completed orders to reconcile", len(stuck))

	for _, transaction := range stuck {
		if err := finishCompletion(db, &transaction); err != nil {
			log.Printf("[ORDER-SWEEPER] Error reconciling order %d: %v", transaction.OrderCode, err)
			continue
		}
		log.Printf("[ORDER-SWEEPER] Reconciled order %d", transaction.OrderCode)
	}
}
