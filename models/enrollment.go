package models

import (
	"gorm.io/gorm"
)

// EnrollmentStatus defines the lifecycle of a course enrollment
type EnrollmentStatus string

const (
	EnrollmentStatusPending   EnrollmentStatus = "PENDING"
	EnrollmentStatusEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment is a user's claim on one course. It is created PENDING as part
// of an order and only becomes ENROLLED through a completed payment.
type Enrollment struct {
	gorm.Model
	UserID    uint             `json:"user_id" gorm:"index;not null"`
	CourseID  uint             `json:"course_id" gorm:"index;not null"`
	PaymentID uint             `json:"payment_id" gorm:"index;not null"`
	Status    EnrollmentStatus `json:"status" gorm:"type:varchar(20);default:'PENDING'"`
	IsDeleted bool             `gorm:"default:false"`
	Course    Course           `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}
