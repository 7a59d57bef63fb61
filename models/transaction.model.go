package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TransactionStatus defines the status of a gateway transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
)

// Transaction is the gateway-facing record of an order. OrderCode is the only
// value the gateway round-trips back, so it is the sole lookup key for inbound
// webhooks and the idempotency anchor for the whole order.
type Transaction struct {
	gorm.Model
	UserID       uint              `gorm:"not null;index" json:"userId"`
	OrderCode    int64             `gorm:"not null;uniqueIndex" json:"orderCode"`
	PaymentID    uint              `gorm:"index" json:"paymentId"`
	Amount       int64             `gorm:"not null" json:"amount"`
	Status       TransactionStatus `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	Description  string            `gorm:"type:text" json:"description"`
	GatewayTxnID *string           `gorm:"type:varchar(100);uniqueIndex" json:"gatewayTxnId"` // set on completion only

	// Raw webhook payload kept for audits and manual repair
	WebhookRaw datatypes.JSON `json:"-"`

	IsDeleted bool `gorm:"default:false" json:"isDeleted"`
}
