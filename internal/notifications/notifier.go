package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/awesome-pro/subtrack/pkg/db"
	"github.com/awesome-pro/subtrack/pkg/db/models"
	"github.com/awesome-pro/subtrack/pkg/enums"
	"github.com/awesome-pro/subtrack/pkg/logger"
)

// Notifier dispatches trial expiry reminders. Implementations must be
// idempotent per (user, tier, trial end): repeat calls report sent=false.
type Notifier interface {
	NotifyTrialExpiring(ctx context.Context, user *models.User, tier enums.ReminderTier, trialEnd time.Time) (bool, error)
}

// RecordingNotifier persists reminders as notification rows. Delivery over
// email or push can be layered on by wrapping this type.
type RecordingNotifier struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewRecordingNotifier builds the default notifier backed by the repo.
func NewRecordingNotifier(repo *Repository, logg *logger.Logger) (*RecordingNotifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &RecordingNotifier{repo: repo, logg: logg, now: time.Now}, nil
}

// NotifyTrialExpiring writes one reminder row; duplicates are swallowed so
// overlapping sweeps never double-notify.
func (n *RecordingNotifier) NotifyTrialExpiring(ctx context.Context, user *models.User, tier enums.ReminderTier, trialEnd time.Time) (bool, error) {
	if user == nil {
		return false, fmt.Errorf("user is required")
	}
	if !tier.IsValid() {
		return false, fmt.Errorf("invalid reminder tier %q", tier)
	}

	notification := &models.Notification{
		ID:           uuid.New(),
		UserID:       user.ID,
		Tier:         tier,
		TrialEndDate: trialEnd.UTC(),
		Message:      reminderMessage(tier, trialEnd),
		SentAt:       n.now().UTC(),
	}

	if err := n.repo.Create(ctx, notification); err != nil {
		if db.IsUniqueViolation(err, "idx_notifications_dedupe") {
			return false, nil
		}
		return false, err
	}

	notifCtx := n.logg.WithFields(ctx, map[string]any{
		"user_id": user.ID.String(),
		"tier":    tier.String(),
	})
	n.logg.Info(notifCtx, "trial expiry reminder recorded")
	return true, nil
}

func reminderMessage(tier enums.ReminderTier, trialEnd time.Time) string {
	when := trialEnd.UTC().Format(time.RFC3339)
	switch tier {
	case enums.ReminderTierThreeDay:
		return fmt.Sprintf("Your trial ends on %s. Subscribe within 3 days to keep access.", when)
	case enums.ReminderTierOneDay:
		return fmt.Sprintf("Your trial ends on %s. Only 1 day left to subscribe.", when)
	default:
		return fmt.Sprintf("Your trial ends on %s. Less than 12 hours remain.", when)
	}
}
