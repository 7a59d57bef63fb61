package models

import (
	"time"

	"gorm.io/gorm"
)

// PaymentStatus defines the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment is the aggregate unit of money for one checkout attempt. Its
// enrollments reference it by PaymentID and are never re-parented.
type Payment struct {
	gorm.Model
	UserID        uint          `gorm:"not null;index" json:"userId"`
	Amount        int64         `gorm:"not null" json:"amount"` // minor units, whole VND
	Status        PaymentStatus `gorm:"type:varchar(20);default:'PENDING'" json:"status"`
	TransactionID uint          `gorm:"index" json:"transactionId"`
	PaymentDate   *time.Time    `json:"paymentDate"`
	IsDeleted     bool          `gorm:"default:false" json:"isDeleted"`

	Enrollments []Enrollment `gorm:"foreignKey:PaymentID" json:"enrollments,omitempty"`
}
