package subscriptions

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/awesome-pro/subtrack/pkg/db/models"
	"github.com/awesome-pro/subtrack/pkg/enums"
)

// SubscriptionDTO is the transport shape of a subscription row.
type SubscriptionDTO struct {
	ID                      uuid.UUID          `json:"id"`
	UserID                  uuid.UUID          `json:"user_id"`
	Plan                    enums.Plan         `json:"plan"`
	IsActive                bool               `json:"is_active"`
	StartDate               *time.Time         `json:"start_date,omitempty"`
	EndDate                 *time.Time         `json:"end_date,omitempty"`
	Amount                  decimal.Decimal    `json:"amount"`
	Currency                string             `json:"currency"`
	BillingCycle            enums.BillingCycle `json:"billing_cycle"`
	AutoRenew               bool               `json:"auto_renew"`
	ExternalSubscriptionRef *string            `json:"external_subscription_ref,omitempty"`
	CreatedAt               time.Time          `json:"created_at"`
	UpdatedAt               time.Time          `json:"updated_at"`
}

// HistoryDTO is the transport shape of an audit trail row.
type HistoryDTO struct {
	ID           uuid.UUID           `json:"id"`
	Action       enums.HistoryAction `json:"action"`
	Plan         *enums.Plan         `json:"plan,omitempty"`
	PreviousPlan *enums.Plan         `json:"previous_plan,omitempty"`
	Amount       *decimal.Decimal    `json:"amount,omitempty"`
	Currency     string              `json:"currency"`
	Notes        *string             `json:"notes,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// TrialStatusDTO mirrors the trial status endpoint payload.
type TrialStatusDTO struct {
	IsOnTrial      bool       `json:"is_on_trial"`
	TrialStartDate *time.Time `json:"trial_start_date,omitempty"`
	TrialEndDate   *time.Time `json:"trial_end_date,omitempty"`
	DaysLeft       int        `json:"days_left"`
	Message        string     `json:"message"`
}

// SubscribeInput carries the payload for an explicit paid subscription.
type SubscribeInput struct {
	Plan         enums.Plan         `json:"plan" validate:"required"`
	BillingCycle enums.BillingCycle `json:"billing_cycle" validate:"required"`
	Amount       decimal.Decimal    `json:"amount" validate:"required"`
	Currency     string             `json:"currency,omitempty"`
}

// SweepFailure records a single user the sweeper could not process.
type SweepFailure struct {
	UserID uuid.UUID
	Err    error
}

// SweepReport summarizes one expiry sweep run.
type SweepReport struct {
	Processed int
	Failures  []SweepFailure
}

// ReminderReport holds the cohort sizes of one reminder sweep. Cohorts
// overlap: a trial ending in 10 hours appears in all three.
type ReminderReport struct {
	ThreeDay   int `json:"3_days_reminder"`
	OneDay     int `json:"1_day_reminder"`
	TwelveHour int `json:"12_hours_reminder"`
}

// FromSubscriptionModel converts a persisted subscription to its DTO.
func FromSubscriptionModel(s *models.Subscription) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	return &SubscriptionDTO{
		ID:                      s.ID,
		UserID:                  s.UserID,
		Plan:                    s.Plan,
		IsActive:                s.IsActive,
		StartDate:               s.StartDate,
		EndDate:                 s.EndDate,
		Amount:                  s.Amount,
		Currency:                s.Currency,
		BillingCycle:            s.BillingCycle,
		AutoRenew:               s.AutoRenew,
		ExternalSubscriptionRef: s.ExternalSubscriptionRef,
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
	}
}

// FromHistoryModels converts audit rows to DTOs preserving order.
func FromHistoryModels(rows []models.SubscriptionHistory) []HistoryDTO {
	out := make([]HistoryDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, HistoryDTO{
			ID:           row.ID,
			Action:       row.Action,
			Plan:         row.Plan,
			PreviousPlan: row.PreviousPlan,
			Amount:       row.Amount,
			Currency:     row.Currency,
			Notes:        row.Notes,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out
}
