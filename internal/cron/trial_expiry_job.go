package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/awesome-pro/subtrack/internal/subscriptions"
	"github.com/awesome-pro/subtrack/pkg/logger"
	"github.com/awesome-pro/subtrack/pkg/metrics"
)

const trialExpiryJobName = "trial-expiry"

type expirySweeper interface {
	SweepExpirations(ctx context.Context, now time.Time) (*subscriptions.SweepReport, error)
}

type TrialExpiryJobParams struct {
	Logger  *logger.Logger
	Sweeper expirySweeper
	Metrics *metrics.CronJobMetrics
}

// NewTrialExpiryJob builds the job that closes lapsed trials.
func NewTrialExpiryJob(params TrialExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &trialExpiryJob{
		logg:    params.Logger,
		sweeper: params.Sweeper,
		metrics: params.Metrics,
		now:     time.Now,
	}, nil
}

type trialExpiryJob struct {
	logg    *logger.Logger
	sweeper expirySweeper
	metrics *metrics.CronJobMetrics
	now     func() time.Time
}

func (j *trialExpiryJob) Name() string { return trialExpiryJobName }

// Run expires every lapsed trial. Per-user failures are already aggregated
// by the sweeper; the job reports them without discarding the partial work.
func (j *trialExpiryJob) Run(ctx context.Context) error {
	report, err := j.sweeper.SweepExpirations(ctx, j.now().UTC())
	if report != nil {
		j.metrics.AddProcessed(trialExpiryJobName, report.Processed)
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"processed": report.Processed,
			"failures":  len(report.Failures),
		})
		j.logg.Info(logCtx, "trial expiry sweep complete")
	}
	if err != nil {
		return fmt.Errorf("trial expiry sweep: %w", err)
	}
	return nil
}
