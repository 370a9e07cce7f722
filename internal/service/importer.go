// Package service implements the business logic of the import system: the
// importer (create/retry/cancel/clear operations), the chunk worker pool, and
// the periodic job supervisor.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lettermill/import-api/config"
	"github.com/lettermill/import-api/internal/core"
	"github.com/lettermill/import-api/internal/domain/importjob"
	"github.com/lettermill/import-api/internal/domain/model"
	apperrors "github.com/lettermill/import-api/internal/errors"
	"github.com/lettermill/import-api/internal/observability/metrics"
	"github.com/lettermill/import-api/internal/observability/statsd"
)

// ChunkDispatcher executes planned chunks for a job, either synchronously
// within the calling request or on the background worker pool.
type ChunkDispatcher interface {
	Dispatch(job *model.ImportJob, batch *model.StoredBatch, plan importjob.Plan)
	RunInline(
		ctx context.Context,
		job *model.ImportJob,
		batch *model.StoredBatch,
		plan importjob.Plan,
	) (*model.ImportSummary, error)
}

// ImporterServiceOptions groups dependencies for ImporterService.
type ImporterServiceOptions struct {
	Registry    core.JobRegistry           // Required: job registry
	Destination core.DestinationStore      // Required: subscriber destination store
	Pool        ChunkDispatcher            // Required: chunk execution
	Config      config.ImporterConfig      // Required: importer configuration
	Cache       *core.SnapshotCacheService // Optional: job-list snapshot cache
	Logger      *slog.Logger               // Optional: structured logger
	Metrics     statsd.Sink                // Optional: metrics sink (StatsD-compatible)
}

// ImporterService provides business logic for import operations.
//
// This service manages:
// - Creating imports: inline execution for small batches, background jobs otherwise.
// - Read models for the polling caller (snapshots, stats, list summaries).
// - Operator controls: retry, cancel, clear, clear-all-failed, destination deletion.
type ImporterService struct {
	registry    core.JobRegistry
	destination core.DestinationStore
	pool        ChunkDispatcher
	chunker     *importjob.Chunker
	cache       *core.SnapshotCacheService
	cfg         config.ImporterConfig
	logger      *slog.Logger
	metrics     statsd.Sink
}

// NewImporterService constructs a new ImporterService.
func NewImporterService(opts ImporterServiceOptions) (*ImporterService, error) {
	if opts.Registry == nil {
		return nil, errors.New("JobRegistry is required")
	}
	if opts.Destination == nil {
		return nil, errors.New("DestinationStore is required")
	}
	if opts.Pool == nil {
		return nil, errors.New("ChunkDispatcher is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "importer_service")
		logger.Debug("ImporterService initialized",
			"inline_threshold", cfg.InlineThreshold,
			"chunk_size", cfg.ChunkSize,
			"per_job_concurrency", cfg.PerJobConcurrency,
		)
	}

	return &ImporterService{
		registry:    opts.Registry,
		destination: opts.Destination,
		pool:        opts.Pool,
		chunker: importjob.NewChunker(importjob.ChunkerConfig{
			InlineThreshold: cfg.InlineThreshold,
			ChunkSize:       cfg.ChunkSize,
		}),
		cache:   opts.Cache,
		cfg:     cfg,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// CreateImport validates the request, registers a job, and either runs it
// inline (small batches) or dispatches it to the worker pool. The one-active-
// job-per-list invariant is enforced by the registry; a second create for the
// same list fails with a conflict.
func (s *ImporterService) CreateImport(
	ctx context.Context,
	req *model.CreateImportRequest,
) (*model.ImportOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	// Compile the mapping up front so a bad expression is rejected before
	// any job row exists.
	if _, err := importjob.NewResolver(req.FieldMapping); err != nil {
		return nil, apperrors.ValidationField("field_mapping", err.Error())
	}

	plan, err := s.chunker.Plan(len(req.Records))
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	method := importjob.MethodFor(plan, s.cfg.PerJobConcurrency)

	job, err := s.registry.Create(ctx, core.CreateJobParams{
		ListName:         req.ListName,
		TotalRecords:     int64(len(req.Records)),
		ChunksTotal:      len(plan.Chunks),
		ProcessingMethod: method,
		Records:          req.Records,
		FieldMapping:     req.FieldMapping,
	})
	if err != nil {
		return nil, fmt.Errorf("create import job: %w", err)
	}
	s.cache.InvalidateJobLists(ctx)
	s.emitTransition("created", method, int64(len(req.Records)), nil)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "import job created",
			"job_id", job.ID,
			"list", job.ListName,
			"records", job.TotalRecords,
			"chunks", job.ChunksTotal,
			"method", job.ProcessingMethod,
		)
	}

	batch := &model.StoredBatch{
		JobID:        job.ID,
		ListName:     job.ListName,
		Records:      req.Records,
		FieldMapping: req.FieldMapping,
	}

	if plan.Mode == importjob.ModeInline {
		summary, err := s.pool.RunInline(ctx, job, batch, plan)
		s.cache.InvalidateJobLists(ctx)
		if err != nil {
			return nil, fmt.Errorf("inline import %s: %w", job.ID, err)
		}
		if summary == nil {
			// Cancelled mid-flight; hand the caller a snapshot to poll.
			return s.pollOutcome(ctx, job.ID)
		}
		return &model.ImportOutcome{Inline: summary}, nil
	}

	s.pool.Dispatch(job, batch, plan)
	return &model.ImportOutcome{Job: job, Polling: true}, nil
}

// pollOutcome loads a fresh snapshot and wraps it as a polling outcome.
func (s *ImporterService) pollOutcome(ctx context.Context, id string) (*model.ImportOutcome, error) {
	job, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return &model.ImportOutcome{Job: job, Polling: true}, nil
}

// GetJobs returns job snapshots matching the filter. The polled unfiltered
// listing is served from the snapshot cache when available.
func (s *ImporterService) GetJobs(
	ctx context.Context,
	filter model.JobFilter,
) ([]*model.ImportJob, error) {
	if jobs, ok := s.cache.GetJobList(ctx, filter); ok {
		return jobs, nil
	}

	jobs, err := s.registry.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}
	s.cache.SetJobList(ctx, filter, jobs)
	return jobs, nil
}

// GetJob returns one job snapshot by id.
func (s *ImporterService) GetJob(ctx context.Context, id string) (*model.ImportJob, error) {
	job, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get import job %s: %w", id, err)
	}
	return job, nil
}

// Stats returns counts of jobs in each state.
func (s *ImporterService) Stats(ctx context.Context) (*model.JobStats, error) {
	stats, err := s.registry.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get import job stats: %w", err)
	}
	return stats, nil
}

// Retry creates a new job for a failed import. The failed job is never
// resurrected; when its recovery info says the replay is safe, only the
// remainder from failed_at_record onward is re-imported, otherwise the whole
// batch is replayed (the destination upsert makes either idempotent).
func (s *ImporterService) Retry(ctx context.Context, id string) (*model.ImportJob, error) {
	job, err := s.registry.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load job %s for retry: %w", id, err)
	}
	if job.Status != model.JobStatusFailed {
		return nil, apperrors.Conflictf("only failed jobs can be retried; job %q is %s", id, job.Status)
	}

	batch, err := s.registry.GetBatch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load stored batch for job %s: %w", id, err)
	}

	records := batch.Records[s.resumeOffset(job, len(batch.Records)):]
	plan, err := s.chunker.Plan(len(records))
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	method := importjob.MethodFor(plan, s.cfg.PerJobConcurrency)

	retryJob, err := s.registry.Create(ctx, core.CreateJobParams{
		ListName:         job.ListName,
		TotalRecords:     int64(len(records)),
		ChunksTotal:      len(plan.Chunks),
		ProcessingMethod: method,
		Records:          records,
		FieldMapping:     batch.FieldMapping,
	})
	if err != nil {
		return nil, fmt.Errorf("create retry job for %s: %w", id, err)
	}
	s.cache.InvalidateJobLists(ctx)
	s.emitTransition("retried", method, int64(len(records)), nil)

	if s.logger != nil {
		s.logger.InfoContext(ctx, "retry job created",
			"failed_job_id", id,
			"job_id", retryJob.ID,
			"list", retryJob.ListName,
			"records", retryJob.TotalRecords,
		)
	}

	retryBatch := &model.StoredBatch{
		JobID:        retryJob.ID,
		ListName:     retryJob.ListName,
		Records:      records,
		FieldMapping: batch.FieldMapping,
	}

	if plan.Mode == importjob.ModeInline {
		if _, err := s.pool.RunInline(ctx, retryJob, retryBatch, plan); err != nil {
			return nil, fmt.Errorf("inline retry %s: %w", retryJob.ID, err)
		}
		s.cache.InvalidateJobLists(ctx)
		return s.registry.GetByID(ctx, retryJob.ID)
	}

	s.pool.Dispatch(retryJob, retryBatch, plan)
	return retryJob, nil
}

// resumeOffset picks where a retry re-chunks from. Only a retry-safe recovery
// hint with a sane offset skips records; anything else replays the batch.
func (s *ImporterService) resumeOffset(job *model.ImportJob, total int) int {
	ri := job.RecoveryInfo
	if ri == nil || !ri.RetrySafe {
		return 0
	}
	if ri.ResumeFromRecord < 0 || ri.ResumeFromRecord >= int64(total) {
		return 0
	}
	return int(ri.ResumeFromRecord)
}

// Cancel requests cooperative cancellation of a pending or processing job.
// Workers observe the new status between sub-batches and stop; already-written
// records are never rolled back.
func (s *ImporterService) Cancel(ctx context.Context, id string) (*model.ImportJob, error) {
	cancelled, err := s.registry.Cancel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("cancel job %s: %w", id, err)
	}
	if !cancelled {
		job, err := s.registry.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("cancel job %s: %w", id, err)
		}
		return nil, apperrors.Conflictf("job %q is already %s", id, job.Status)
	}

	s.cache.InvalidateJobLists(ctx)
	s.emitTransition("cancelled", "", 0, nil)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "import job cancelled", "job_id", id)
	}

	return s.registry.GetByID(ctx, id)
}

// ClearJob soft-deletes one terminal job from the read model.
func (s *ImporterService) ClearJob(ctx context.Context, id string) error {
	if _, err := s.registry.ClearJob(ctx, id); err != nil {
		return fmt.Errorf("clear job %s: %w", id, err)
	}

	s.cache.InvalidateJobLists(ctx)
	s.emitTransition("cleared", "", 0, nil)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "import job cleared", "job_id", id)
	}
	return nil
}

// ClearAllFailed soft-deletes every failed job and returns the count.
func (s *ImporterService) ClearAllFailed(ctx context.Context) (int64, error) {
	count, err := s.registry.ClearAllFailed(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear failed jobs: %w", err)
	}

	if count > 0 {
		s.cache.InvalidateJobLists(ctx)
		if s.logger != nil {
			s.logger.InfoContext(ctx, "cleared failed jobs", "count", count)
		}
	}
	return count, nil
}

// DeleteList deletes a destination list. When the list has an active import
// job the call is rejected with a conflict naming it, unless force is set, in
// which case the job is cancelled first.
func (s *ImporterService) DeleteList(ctx context.Context, listName string, force bool) (int64, error) {
	active, err := s.registry.ActiveForList(ctx, listName)
	switch {
	case err == nil:
		if !force {
			return 0, apperrors.Conflictf(
				"list %q has an active import job %s (%s); cancel it or pass force",
				listName, active.ID, active.Status,
			)
		}
		if _, err := s.registry.Cancel(ctx, active.ID); err != nil {
			return 0, fmt.Errorf("cancel active job %s for list %s: %w", active.ID, listName, err)
		}
		s.emitTransition("cancelled", "", 0, nil)
		if s.logger != nil {
			s.logger.WarnContext(ctx, "force-cancelled active job before list deletion",
				"job_id", active.ID,
				"list", listName,
			)
		}
	case errors.Is(err, model.ErrJobNotFound):
		// List is idle.
	default:
		return 0, fmt.Errorf("check active job for list %s: %w", listName, err)
	}

	deleted, err := s.destination.DeleteList(ctx, listName)
	if err != nil {
		return 0, fmt.Errorf("delete list %s: %w", listName, err)
	}

	s.cache.InvalidateJobLists(ctx)
	if s.logger != nil {
		s.logger.InfoContext(ctx, "destination list deleted",
			"list", listName,
			"subscribers", deleted,
			"force", force,
		)
	}
	return deleted, nil
}

// ListSummaries returns per-list subscriber counts.
func (s *ImporterService) ListSummaries(ctx context.Context) ([]*model.ListSummary, error) {
	summaries, err := s.destination.ListSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	return summaries, nil
}

func (s *ImporterService) emitTransition(
	transition string,
	method model.ProcessingMethod,
	records int64,
	err error,
) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitImportLifecycle(s.metrics, metrics.ImportMetric{
		Transition: transition,
		Method:     string(method),
		Result:     result,
		Records:    records,
		Err:        err,
	})
}
