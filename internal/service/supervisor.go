package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lettermill/import-api/config"
	"github.com/lettermill/import-api/internal/core"
	"github.com/lettermill/import-api/internal/data"
	"github.com/lettermill/import-api/internal/domain/importjob"
	"github.com/lettermill/import-api/internal/observability/metrics"
	"github.com/lettermill/import-api/internal/observability/statsd"
)

// SupervisorServiceOptions groups dependencies for SupervisorService.
type SupervisorServiceOptions struct {
	Repo         core.SupervisorRepository // Required: sweep repository
	Registry     core.JobRegistry          // Required: job registry for stall verdicts
	Config       config.SupervisorConfig   // Required: supervisor configuration
	Logger       *slog.Logger              // Optional: structured logger
	Metrics      statsd.Sink               // Optional: metrics sink (StatsD-compatible)
	TimeProvider data.TimeProvider         // Optional: defaults to real time
}

// SupervisorService runs the periodic job sweep.
//
// This service manages:
// - Failing stuck processing jobs (the five-condition stall heuristic).
// - Zeroing stale records_per_second so snapshots never show a live rate
//   for a silent job.
// - Deleting soft-cleared job rows past their retention.
//
// The supervisor mutates status fields only, never progress counters.
type SupervisorService struct {
	repo         core.SupervisorRepository
	registry     core.JobRegistry
	config       config.SupervisorConfig
	stuck        importjob.StuckPolicy
	logger       *slog.Logger
	metrics      statsd.Sink
	timeProvider data.TimeProvider
}

// NewSupervisorService constructs a new SupervisorService.
func NewSupervisorService(opts SupervisorServiceOptions) (*SupervisorService, error) {
	if opts.Repo == nil {
		return nil, errors.New("SupervisorRepository is required")
	}
	if opts.Registry == nil {
		return nil, errors.New("JobRegistry is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	timeProvider := opts.TimeProvider
	if timeProvider == nil {
		timeProvider = &data.RealTimeProvider{}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "supervisor_service")
		logger.Debug("SupervisorService initialized",
			"interval", cfg.Interval,
			"stuck_threshold", cfg.StuckThreshold,
			"speed_stale_after", cfg.SpeedStaleAfter,
			"cleared_max_age", cfg.ClearedMaxAge,
		)
	}

	return &SupervisorService{
		repo:         opts.Repo,
		registry:     opts.Registry,
		config:       cfg,
		stuck:        importjob.NewStuckPolicy(cfg.StuckThreshold),
		logger:       logger,
		metrics:      opts.Metrics,
		timeProvider: timeProvider,
	}, nil
}

// Run starts the supervisor loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SupervisorService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting supervisor service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if err := s.runSweep(ctx); err != nil {
		s.logSweepError(err, "initial sweep")
	}

	return s.runLoop(ctx, ticker)
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *SupervisorService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}

// runLoop runs the sweep loop until context is cancelled.
func (s *SupervisorService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "supervisor service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.runSweep(ctx); err != nil {
				s.logSweepError(err, "sweep")
				// Continue running despite errors
			}
		}
	}
}

type sweepFunc func(context.Context) (int64, error)

type sweepStep struct {
	fn    sweepFunc
	name  string
	label string
}

// runSweep performs all sweep operations.
func (s *SupervisorService) runSweep(ctx context.Context) error {
	var (
		errs               []error
		allContextCanceled = true
	)

	steps := []sweepStep{
		{fn: s.failStalledJobs, name: "fail_stalled", label: "fail stalled jobs"},
		{fn: s.zeroStaleSpeeds, name: "zero_stale_speeds", label: "zero stale speeds"},
		{fn: s.deleteClearedJobs, name: "delete_cleared", label: "delete cleared jobs"},
	}

	for _, step := range steps {
		start := time.Now()
		count, err := step.fn(ctx)
		metrics.EmitSupervisorSweep(s.metrics, metrics.SweepMetric{
			Step:     step.name,
			Rows:     count,
			Duration: time.Since(start),
			Err:      suppressContextCancellation(err),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", step.label, err))
			allContextCanceled = allContextCanceled && isContextCancellation(err)
		}
	}

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allContextCanceled && isContextCancellation(joined) {
			return context.Canceled
		}
		return fmt.Errorf("sweep failed: %w", joined)
	}
	return nil
}

// failStalledJobs applies the stall heuristic to candidate jobs and fails the
// ones with every liveness signal absent. The candidate query prefilters on
// zero progress and age; the full verdict runs here as a pure function so the
// conditions stay reviewable in one place.
func (s *SupervisorService) failStalledJobs(ctx context.Context) (int64, error) {
	candidates, err := s.repo.ListStallCandidates(ctx, s.stuck.Threshold, s.config.BatchSize)
	if err != nil {
		return 0, err
	}

	now := s.timeProvider.Now()
	var failed int64
	for _, job := range candidates {
		signals := importjob.StuckSignals{
			Status:           job.Status,
			Phase:            job.Phase,
			ProcessedRecords: job.ProcessedRecords,
			RecordsPerSecond: job.RecordsPerSecond,
			Age:              now.Sub(job.UpdatedAt),
		}
		if !s.stuck.IsStuck(signals) {
			continue
		}

		var zero int64
		stalled, err := s.registry.FailJob(ctx, core.FailJobParams{
			JobID:          job.ID,
			FailedAtRecord: &zero,
			Message:        s.stuck.StallMessage(),
			Recovery:       importjob.StallRecovery(job.TotalRecords),
		})
		if err != nil {
			return failed, err
		}
		if !stalled {
			// Lost the transition to the worker or an operator; not stuck after all.
			continue
		}

		failed++
		metrics.EmitImportLifecycle(s.metrics, metrics.ImportMetric{
			Transition: "stalled",
			Method:     string(job.ProcessingMethod),
			Result:     metrics.ResultSuccess,
		})
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed stalled job",
				"job_id", job.ID,
				"list", job.ListName,
				"age", signals.Age,
				"threshold", s.stuck.Threshold,
			)
		}
	}
	return failed, nil
}

// zeroStaleSpeeds resets records_per_second on silent processing jobs.
// Loops until no more rows are affected to handle large datasets in batches.
func (s *SupervisorService) zeroStaleSpeeds(ctx context.Context) (int64, error) {
	var totalCount int64
	for {
		count, err := s.repo.ZeroStaleSpeeds(ctx, core.ZeroStaleSpeedsParams{
			StaleAfter: s.config.SpeedStaleAfter,
			BatchSize:  s.config.BatchSize,
		})
		if err != nil {
			return totalCount, err
		}
		totalCount += count
		if count == 0 {
			break
		}
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "zeroed stale job speeds",
			"count", totalCount,
			"stale_after", s.config.SpeedStaleAfter,
		)
	}
	return totalCount, nil
}

// deleteClearedJobs permanently removes soft-cleared rows past retention.
// Loops until no more rows are affected to handle large datasets in batches.
func (s *SupervisorService) deleteClearedJobs(ctx context.Context) (int64, error) {
	var totalCount int64
	for {
		count, err := s.repo.DeleteClearedJobs(ctx, core.DeleteClearedJobsParams{
			MaxAge:    s.config.ClearedMaxAge,
			BatchSize: s.config.BatchSize,
		})
		if err != nil {
			return totalCount, err
		}
		totalCount += count
		if count == 0 {
			break
		}
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "deleted cleared jobs",
			"count", totalCount,
			"max_age", s.config.ClearedMaxAge,
		)
	}
	return totalCount, nil
}

func (s *SupervisorService) logSweepError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}
	s.logger.Error(label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
