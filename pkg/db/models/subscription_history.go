package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/awesome-pro/subtrack/pkg/enums"
)

// SubscriptionHistory is the append-only audit trail of lifecycle events.
// Rows are never updated or deleted.
type SubscriptionHistory struct {
	ID             uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	SubscriptionID *uuid.UUID          `gorm:"column:subscription_id;type:uuid;index"`
	Action         enums.HistoryAction `gorm:"column:action;type:history_action;not null"`
	Plan           *enums.Plan         `gorm:"column:plan;type:plan"`
	PreviousPlan   *enums.Plan         `gorm:"column:previous_plan;type:plan"`
	Amount         *decimal.Decimal    `gorm:"column:amount;type:numeric(12,2)"`
	Currency       string              `gorm:"column:currency;not null;default:'INR'"`
	Notes          *string             `gorm:"column:notes;type:text"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}
