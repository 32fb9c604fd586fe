package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/awesome-pro/subtrack/pkg/db/models"
	"github.com/awesome-pro/subtrack/pkg/enums"
	"github.com/awesome-pro/subtrack/pkg/logger"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	notifications := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  tier TEXT NOT NULL,
  trial_end_date DATETIME NOT NULL,
  message TEXT NOT NULL,
  sent_at DATETIME NOT NULL,
  created_at DATETIME,
  UNIQUE (user_id, tier, trial_end_date)
);`
	require.NoError(t, db.Exec(notifications).Error)
	return db
}

func newTestNotifier(t *testing.T, db *gorm.DB) *RecordingNotifier {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "notifications-test"})
	notifier, err := NewRecordingNotifier(NewRepository(db), logg)
	require.NoError(t, err)
	notifier.now = func() time.Time { return time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC) }
	return notifier
}

func TestNotifyTrialExpiring_recordsOnce(t *testing.T) {
	db := setupNotificationsTestDB(t)
	notifier := newTestNotifier(t, db)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "reminder@example.com"}
	trialEnd := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)

	sent, err := notifier.NotifyTrialExpiring(ctx, user, enums.ReminderTierOneDay, trialEnd)
	require.NoError(t, err)
	assert.True(t, sent)

	// Same cohort again: dedupe index swallows the duplicate.
	sent, err = notifier.NotifyTrialExpiring(ctx, user, enums.ReminderTierOneDay, trialEnd)
	require.NoError(t, err)
	assert.False(t, sent)

	// A different tier for the same trial end is a new reminder.
	sent, err = notifier.NotifyTrialExpiring(ctx, user, enums.ReminderTierTwelveHour, trialEnd)
	require.NoError(t, err)
	assert.True(t, sent)

	rows, err := notifier.repo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, user.ID, row.UserID)
		assert.NotEmpty(t, row.Message)
	}
}

func TestNotifyTrialExpiring_rejectsInvalidTier(t *testing.T) {
	db := setupNotificationsTestDB(t)
	notifier := newTestNotifier(t, db)

	user := &models.User{ID: uuid.New()}
	_, err := notifier.NotifyTrialExpiring(context.Background(), user, enums.ReminderTier("weekly"), time.Now())
	assert.Error(t, err)
}
