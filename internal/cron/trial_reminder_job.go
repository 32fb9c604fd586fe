package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/awesome-pro/subtrack/internal/subscriptions"
	"github.com/awesome-pro/subtrack/pkg/logger"
	"github.com/awesome-pro/subtrack/pkg/metrics"
)

const trialReminderJobName = "trial-reminders"

type reminderSweeper interface {
	SweepReminders(ctx context.Context, now time.Time) (*subscriptions.ReminderReport, error)
}

type TrialReminderJobParams struct {
	Logger  *logger.Logger
	Sweeper reminderSweeper
	Metrics *metrics.CronJobMetrics
}

// NewTrialReminderJob builds the job that warns users before trial expiry.
func NewTrialReminderJob(params TrialReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &trialReminderJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type trialReminderJob struct {
	logg    *logger.Logger
	sweeper reminderSweeper
	metrics *metrics.CronJobMetrics
	now     func() time.Time
}

func (j *trialReminderJob) Name() string { return trialReminderJobName }

func (j *trialReminderJob) Run(ctx context.Context) error {
	report, err := j.sweeper.SweepReminders(ctx, j.now().UTC())
	if report != nil {
		j.metrics.AddProcessed(trialReminderJobName, report.ThreeDay+report.OneDay+report.TwelveHour)
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"3_days_reminder":   report.ThreeDay,
			"1_day_reminder":    report.OneDay,
			"12_hours_reminder": report.TwelveHour,
		})
		j.logg.Info(logCtx, "trial reminder sweep complete")
	}
	if err != nil {
		return fmt.Errorf("trial reminder sweep: %w", err)
	}
	return nil
}
