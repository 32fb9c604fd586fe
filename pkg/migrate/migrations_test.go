package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/awesome-pro/subtrack/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestUsersMigrationContainsLifecycleColumns(t *testing.T) {
	content := readMigration(t, "*_create_users.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS users",
		"subscription_status subscription_status NOT NULL DEFAULT 'inactive'",
		"is_on_trial BOOLEAN NOT NULL DEFAULT FALSE",
		"trial_end_date TIMESTAMPTZ",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email",
		"DROP TABLE IF EXISTS users",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestNotificationsMigrationDedupesReminders(t *testing.T) {
	content := readMigration(t, "*_create_notifications.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS notifications",
		"FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_notifications_dedupe ON notifications (user_id, tier, trial_end_date)",
		"DROP TABLE IF EXISTS notifications",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %q found", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
