package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/awesome-pro/subtrack/pkg/enums"
)

// Notification records a reminder sent to a user about an expiring trial.
// The unique index on (user_id, tier, trial_end_date) makes reminder
// delivery idempotent across sweeper runs.
type Notification struct {
	ID           uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID          `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_notifications_dedupe"`
	Tier         enums.ReminderTier `gorm:"column:tier;type:reminder_tier;not null;uniqueIndex:idx_notifications_dedupe"`
	TrialEndDate time.Time          `gorm:"column:trial_end_date;not null;uniqueIndex:idx_notifications_dedupe"`
	Message      string             `gorm:"column:message;type:text;not null"`
	SentAt       time.Time          `gorm:"column:sent_at;not null"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}
