package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/awesome-pro/subtrack/pkg/enums"
)

// Subscription persists the single paid subscription attached to a user.
// One row per user; plan changes mutate this row and append history.
type Subscription struct {
	ID                      uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                  uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Plan                    enums.Plan         `gorm:"column:plan;type:plan;not null;default:'free'"`
	IsActive                bool               `gorm:"column:is_active;not null;default:false"`
	StartDate               *time.Time         `gorm:"column:start_date"`
	EndDate                 *time.Time         `gorm:"column:end_date"`
	Amount                  decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null;default:0"`
	Currency                string             `gorm:"column:currency;not null;default:'INR'"`
	BillingCycle            enums.BillingCycle `gorm:"column:billing_cycle;type:billing_cycle;not null;default:'monthly'"`
	AutoRenew               bool               `gorm:"column:auto_renew;not null;default:true"`
	ExternalSubscriptionRef *string            `gorm:"column:external_subscription_ref"`
	PaymentRef              *string            `gorm:"column:payment_ref"`
	CreatedAt               time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt               time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
