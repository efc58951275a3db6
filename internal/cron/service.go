package cron

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/asala-storefront/pkg/logger"
	"github.com/angelmondragon/asala-storefront/pkg/metrics"
)

const defaultInterval = 10 * time.Minute

// ServiceParams configure the housekeeping service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Service sweeps storefront state on a fixed cadence inside the API process.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
	cycles   atomic.Uint64
}

// CycleReport describes one housekeeping cycle. Err joins every job error.
type CycleReport struct {
	Cycle   uint64
	Skipped bool
	Ran     []string
	Failed  []string
	Err     error
}

// NewService builds a housekeeping service. Without a lock, overlapping
// cycles are prevented by a process-local one.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	lock := params.Lock
	if lock == nil {
		lock = NewLocalLock()
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run runs a cycle immediately, then one per interval until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"jobs":     s.registry.names(),
		"interval": s.interval.String(),
	}), "housekeeping started")

	s.tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(s.logg.WithField(ctx, "cycles", s.cycles.Load()), "housekeeping stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		s.logg.Error(ctx, "housekeeping cycle failed", err)
	}
}

// RunOnce runs every registered job once. A failing job does not stop the
// ones after it; cancellation does. The returned error is reserved for lock
// failures, job errors are carried in the report.
func (s *Service) RunOnce(ctx context.Context) (CycleReport, error) {
	report := CycleReport{Cycle: s.cycles.Add(1)}
	ctx = s.logg.WithField(ctx, "cycle", report.Cycle)

	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		report.Skipped = true
		s.logg.Info(ctx, "previous housekeeping cycle still running; skipping")
		return report, nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			s.logg.Error(ctx, "failed to release housekeeping lock", relErr)
		}
	}()

	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			break
		}
		report.Ran = append(report.Ran, job.Name())
		if jobErr := s.runJob(ctx, job); jobErr != nil {
			report.Failed = append(report.Failed, job.Name())
			report.Err = multierr.Append(report.Err, fmt.Errorf("%s: %w", job.Name(), jobErr))
		}
	}

	summaryCtx := s.logg.WithFields(ctx, map[string]any{
		"jobs_run":    len(report.Ran),
		"jobs_failed": report.Failed,
	})
	if report.Err != nil {
		s.logg.Warn(summaryCtx, "housekeeping cycle finished with failures")
	} else {
		s.logg.Info(summaryCtx, "housekeeping cycle complete")
	}
	return report, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "housekeeping.job",
	})
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.observeDuration(job.Name(), duration)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.recordFailure(job.Name())
		return err
	}
	s.logg.Debug(jobCtx, "job completed")
	s.recordSuccess(job.Name())
	return nil
}

func (s *Service) observeDuration(job string, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(job, duration)
}

func (s *Service) recordSuccess(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncSuccess(job)
}

func (s *Service) recordFailure(job string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncFailure(job)
}
