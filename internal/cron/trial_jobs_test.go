package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/awesome-pro/subtrack/internal/subscriptions"
	"github.com/awesome-pro/subtrack/pkg/logger"
)

type fakeExpirySweeper struct {
	lastNow time.Time
	report  *subscriptions.SweepReport
	err     error
	calls   int
}

func (f *fakeExpirySweeper) SweepExpirations(_ context.Context, now time.Time) (*subscriptions.SweepReport, error) {
	f.calls++
	f.lastNow = now
	return f.report, f.err
}

type fakeReminderSweeper struct {
	report *subscriptions.ReminderReport
	err    error
	calls  int
}

func (f *fakeReminderSweeper) SweepReminders(_ context.Context, _ time.Time) (*subscriptions.ReminderReport, error) {
	f.calls++
	return f.report, f.err
}

func TestTrialExpiryJobSweepsAtInjectedClock(t *testing.T) {
	now := time.Date(2025, 8, 1, 3, 0, 0, 0, time.UTC)
	sweeper := &fakeExpirySweeper{report: &subscriptions.SweepReport{Processed: 7}}

	jobIface, err := NewTrialExpiryJob(TrialExpiryJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewTrialExpiryJob: %v", err)
	}
	job, ok := jobIface.(*trialExpiryJob)
	if !ok {
		t.Fatalf("expected trialExpiryJob, got %T", jobIface)
	}
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.calls)
	}
	if !sweeper.lastNow.Equal(now) {
		t.Fatalf("expected sweep at %s, got %s", now, sweeper.lastNow)
	}
	if job.Name() != "trial-expiry" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
}

func TestTrialExpiryJobPropagatesAggregateError(t *testing.T) {
	sweeper := &fakeExpirySweeper{
		report: &subscriptions.SweepReport{Processed: 2},
		err:    errors.New("one user failed"),
	}
	jobIface, err := NewTrialExpiryJob(TrialExpiryJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewTrialExpiryJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected aggregated error")
	}
}

func TestTrialReminderJobReportsCohorts(t *testing.T) {
	sweeper := &fakeReminderSweeper{
		report: &subscriptions.ReminderReport{ThreeDay: 3, OneDay: 2, TwelveHour: 1},
	}
	jobIface, err := NewTrialReminderJob(TrialReminderJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewTrialReminderJob: %v", err)
	}
	if jobIface.Name() != "trial-reminders" {
		t.Fatalf("unexpected job name %q", jobIface.Name())
	}
	if err := jobIface.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sweeper.calls != 1 {
		t.Fatalf("expected one sweep, got %d", sweeper.calls)
	}
}

func TestTrialReminderJobPropagatesErrors(t *testing.T) {
	sweeper := &fakeReminderSweeper{err: errors.New("redis down")}
	jobIface, err := NewTrialReminderJob(TrialReminderJobParams{
		Logger:  logger.New(logger.Options{ServiceName: "cron-test"}),
		Sweeper: sweeper,
	})
	if err != nil {
		t.Fatalf("NewTrialReminderJob: %v", err)
	}
	if err := jobIface.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
