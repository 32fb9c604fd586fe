package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/awesome-pro/subtrack/pkg/enums"
)

// User represents the canonical identity entity. Trial state lives here
// rather than on the subscription row so a user has lifecycle state even
// before any paid subscription exists.
type User struct {
	ID                 uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email              string                   `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash       string                   `gorm:"column:password_hash;not null"`
	FirstName          string                   `gorm:"column:first_name;not null"`
	LastName           string                   `gorm:"column:last_name;not null"`
	Phone              *string                  `gorm:"column:phone"`
	IsActive           bool                     `gorm:"column:is_active;not null;default:true"`
	LastLoginAt        *time.Time               `gorm:"column:last_login_at"`
	SubscriptionStatus enums.SubscriptionStatus `gorm:"column:subscription_status;type:subscription_status;not null;default:'inactive'"`
	IsOnTrial          bool                     `gorm:"column:is_on_trial;not null;default:false"`
	TrialStartDate     *time.Time               `gorm:"column:trial_start_date"`
	TrialEndDate       *time.Time               `gorm:"column:trial_end_date"`
	BillingCustomerRef *string                  `gorm:"column:billing_customer_ref"`
	CreatedAt          time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
