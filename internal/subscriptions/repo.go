package subscriptions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/awesome-pro/subtrack/pkg/db/models"
	"github.com/awesome-pro/subtrack/pkg/enums"
)

// Repository exposes subscription and lifecycle persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByUserID loads the user's subscription row.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetOrCreate returns the user's subscription, creating a free inactive row
// when none exists yet. The second return reports whether a row was created.
func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Subscription, bool, error) {
	sub, err := r.FindByUserID(ctx, userID)
	if err == nil {
		return sub, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	created := &models.Subscription{
		ID:           uuid.New(),
		UserID:       userID,
		Plan:         enums.PlanFree,
		IsActive:     false,
		Currency:     defaultCurrency,
		BillingCycle: enums.BillingCycleMonthly,
		AutoRenew:    true,
	}
	if err := r.db.WithContext(ctx).Create(created).Error; err != nil {
		return nil, false, err
	}
	return created, true, nil
}

// Save persists the full subscription row.
func (r *Repository) Save(ctx context.Context, sub *models.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}

// AppendHistory inserts an audit trail row. History is append-only.
func (r *Repository) AppendHistory(ctx context.Context, entry *models.SubscriptionHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListHistory returns the user's audit trail, newest first.
func (r *Repository) ListHistory(ctx context.Context, userID uuid.UUID, limit int) ([]models.SubscriptionHistory, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.SubscriptionHistory
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// TransitionUserStatus applies updates to the user row only when the current
// subscription_status still matches from. Returns false when another writer
// won the race (0 rows affected).
func (r *Repository) TransitionUserStatus(ctx context.Context, userID uuid.UUID, from enums.SubscriptionStatus, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND subscription_status = ?", userID, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ExpireTrialUser flips an expired trial user to expired state. The where
// clause re-checks every expiry condition so the write is idempotent.
func (r *Repository) ExpireTrialUser(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND is_on_trial = ? AND subscription_status = ? AND trial_end_date < ?",
			userID, true, enums.SubscriptionStatusTrial, now).
		Updates(map[string]any{
			"is_on_trial":         false,
			"subscription_status": enums.SubscriptionStatusExpired,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListExpiredTrialUsers returns trial users whose window has lapsed.
func (r *Repository) ListExpiredTrialUsers(ctx context.Context, now time.Time, limit int) ([]models.User, error) {
	query := r.db.WithContext(ctx).
		Where("is_on_trial = ? AND subscription_status = ? AND trial_end_date < ?",
			true, enums.SubscriptionStatusTrial, now).
		Order("trial_end_date")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.User
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListTrialsEndingWithin returns trial users whose window closes inside
// [now, until]. Cohorts for different windows overlap by design.
func (r *Repository) ListTrialsEndingWithin(ctx context.Context, now, until time.Time, limit int) ([]models.User, error) {
	query := r.db.WithContext(ctx).
		Where("is_on_trial = ? AND subscription_status = ? AND trial_end_date BETWEEN ? AND ?",
			true, enums.SubscriptionStatusTrial, now, until).
		Order("trial_end_date")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.User
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
