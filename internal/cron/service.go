package cron

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/awesome-pro/subtrack/pkg/logger"
	"github.com/awesome-pro/subtrack/pkg/metrics"
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locks    LockFactory
	Metrics  *metrics.CronJobMetrics
}

// Service runs each registered job on its own cadence. Every entry gets a
// dedicated loop: an immediate first run, then a ticker. A per-job lock
// keeps concurrent worker instances from double-running the same job.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locks    LockFactory
	metrics  *metrics.CronJobMetrics
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Locks == nil {
		return nil, fmt.Errorf("lock factory required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locks:    params.Locks,
		metrics:  params.Metrics,
	}, nil
}

// Run starts one loop per registered entry and blocks until the context is
// canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	entries := s.registry.Entries()
	if len(entries) == 0 {
		s.logg.Warn(ctx, "no cron jobs registered")
		<-ctx.Done()
		return ctx.Err()
	}

	var wg sync.WaitGroup
	for _, entry := range entries {
		wg.Add(1)
		go func(entry Entry) {
			defer wg.Done()
			s.runLoop(ctx, entry)
		}(entry)
	}
	wg.Wait()
	return ctx.Err()
}

func (s *Service) runLoop(ctx context.Context, entry Entry) {
	loopCtx := s.logg.WithJob(ctx, entry.Job.Name())
	s.runOnce(loopCtx, entry)

	ticker := time.NewTicker(entry.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(loopCtx, "cron loop stopped")
			return
		case <-ticker.C:
			s.runOnce(loopCtx, entry)
		}
	}
}

func (s *Service) runOnce(ctx context.Context, entry Entry) {
	lock, err := s.locks(entry.Job.Name(), entry.Every)
	if err != nil {
		s.logg.Error(ctx, "failed to build job lock", err)
		return
	}
	locked, err := lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "failed to acquire job lock", err)
		return
	}
	if !locked {
		s.logg.Info(ctx, "another worker holds the job lock; skipping this run")
		return
	}
	defer func() {
		if relErr := lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release job lock", relErr)
		}
	}()

	s.runJob(ctx, entry.Job)
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithField(ctx, "event", "cron.job")
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
}
