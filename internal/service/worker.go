package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/lettermill/import-api/config"
	"github.com/lettermill/import-api/internal/core"
	"github.com/lettermill/import-api/internal/domain/importjob"
	"github.com/lettermill/import-api/internal/domain/model"
	apperrors "github.com/lettermill/import-api/internal/errors"
	"github.com/lettermill/import-api/internal/observability/metrics"
	"github.com/lettermill/import-api/internal/observability/statsd"
)

// errJobCancelled aborts chunk execution when a worker observes the cancel
// flag between sub-batches. It is a control signal, not a failure: the Cancel
// transition already owns the status.
var errJobCancelled = errors.New("job cancelled")

// WorkerPoolOptions groups dependencies for WorkerPool.
type WorkerPoolOptions struct {
	Registry    core.JobRegistry      // Required: job registry
	Destination core.DestinationStore // Required: subscriber destination store
	Config      config.ImporterConfig // Required: importer configuration
	Logger      *slog.Logger          // Optional: structured logger
	Metrics     statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// WorkerPool executes import chunks with bounded parallelism: each job runs
// up to PerJobConcurrency chunks at once, and GlobalConcurrency caps chunk
// executions across all jobs. Chunk completion order is unordered; aggregate
// counters stay monotonic because every increment happens atomically in the
// registry.
type WorkerPool struct {
	registry    core.JobRegistry
	destination core.DestinationStore
	cfg         config.ImporterConfig
	retry       importjob.RetryPolicy
	slots       *semaphore.Weighted
	logger      *slog.Logger
	metrics     statsd.Sink

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWorkerPool constructs a new WorkerPool.
func NewWorkerPool(opts WorkerPoolOptions) (*WorkerPool, error) {
	if opts.Registry == nil {
		return nil, errors.New("JobRegistry is required")
	}
	if opts.Destination == nil {
		return nil, errors.New("DestinationStore is required")
	}

	cfg := opts.Config
	cfg.Sanitize()

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "worker_pool")
		logger.Debug("WorkerPool initialized",
			"per_job_concurrency", cfg.PerJobConcurrency,
			"global_concurrency", cfg.GlobalConcurrency,
			"chunk_timeout", cfg.ChunkTimeout,
			"retry_attempts", cfg.RetryAttempts,
		)
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		registry:    opts.Registry,
		destination: opts.Destination,
		cfg:         cfg,
		retry:       importjob.NewRetryPolicy(cfg.RetryAttempts, cfg.RetryBackoff),
		slots:       semaphore.NewWeighted(int64(cfg.GlobalConcurrency)),
		logger:      logger,
		metrics:     opts.Metrics,
		baseCtx:     baseCtx,
		cancel:      cancel,
	}, nil
}

// Dispatch hands a job to the pool for background execution. The job outcome
// is recorded on the registry row; callers observe it by polling.
func (p *WorkerPool) Dispatch(job *model.ImportJob, batch *model.StoredBatch, plan importjob.Plan) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if _, err := p.runJob(p.baseCtx, job, batch, plan); err != nil && p.logger != nil {
			p.logger.Error("background import failed",
				"job_id", job.ID,
				"list", job.ListName,
				"error", err,
			)
		}
	}()
}

// RunInline executes a job synchronously within the caller's request and
// returns the final summary. A nil summary with nil error means the job was
// cancelled before it finished.
func (p *WorkerPool) RunInline(
	ctx context.Context,
	job *model.ImportJob,
	batch *model.StoredBatch,
	plan importjob.Plan,
) (*model.ImportSummary, error) {
	return p.runJob(ctx, job, batch, plan)
}

// Shutdown waits for in-flight jobs to drain. If the context expires first,
// remaining jobs are cancelled cooperatively; the supervisor will fail any
// row a hard kill leaves behind.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

// jobCounters aggregates chunk outcomes across parallel executions.
type jobCounters struct {
	processed atomic.Int64
	succeeded atomic.Int64
	skipped   atomic.Int64
	errored   atomic.Int64
}

func (p *WorkerPool) runJob(
	ctx context.Context,
	job *model.ImportJob,
	batch *model.StoredBatch,
	plan importjob.Plan,
) (*model.ImportSummary, error) {
	claimed, err := p.registry.MarkProcessing(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("claim job %s: %w", job.ID, err)
	}
	if !claimed {
		// Cancelled between create and pickup.
		if p.logger != nil {
			p.logger.InfoContext(ctx, "job no longer pending, skipping", "job_id", job.ID)
		}
		return nil, nil
	}
	p.setPhase(ctx, job.ID, model.PhaseChunking)

	started := time.Now()
	p.emitLifecycle("started", job, 0, 0, nil)

	resolver, err := importjob.NewResolver(batch.FieldMapping)
	if err != nil {
		ferr := apperrors.ValidationField("field_mapping", err.Error())
		p.failJob(ctx, job, 0, ferr, false)
		return nil, ferr
	}

	p.setPhase(ctx, job.ID, model.PhaseImporting)

	counters := &jobCounters{}
	ledger := importjob.NewResumeLedger(plan)
	speed := importjob.NewSpeedWindow(p.cfg.SpeedWindow)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.PerJobConcurrency)
	for _, chunk := range plan.Chunks {
		g.Go(func() error {
			if err := p.slots.Acquire(gctx, 1); err != nil {
				return err
			}
			defer p.slots.Release(1)
			return p.executeChunkWithRetry(gctx, job, batch, chunk, resolver, counters, ledger, speed)
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, errJobCancelled) {
			if p.logger != nil {
				p.logger.InfoContext(ctx, "import job stopped on cancel",
					"job_id", job.ID,
					"processed", counters.processed.Load(),
				)
			}
			p.emitLifecycle("cancelled", job, counters.processed.Load(), time.Since(started), nil)
			return nil, nil
		}

		retrySafe := importjob.IsRetryableChunkError(err)
		p.failJob(ctx, job, ledger.SafeResume(), err, retrySafe)
		p.emitLifecycle("failed", job, counters.processed.Load(), time.Since(started), err)
		return nil, err
	}

	p.setPhase(ctx, job.ID, model.PhaseFinalizing)
	completed, err := p.registry.Complete(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	if !completed {
		// Lost the final transition to a concurrent cancel.
		if p.logger != nil {
			p.logger.InfoContext(ctx, "job cancelled before completion", "job_id", job.ID)
		}
		p.emitLifecycle("cancelled", job, counters.processed.Load(), time.Since(started), nil)
		return nil, nil
	}

	p.emitLifecycle("completed", job, counters.processed.Load(), time.Since(started), nil)
	if p.logger != nil {
		p.logger.InfoContext(ctx, "import job completed",
			"job_id", job.ID,
			"list", job.ListName,
			"records", counters.processed.Load(),
			"skipped", counters.skipped.Load(),
			"errored", counters.errored.Load(),
			"elapsed", time.Since(started),
		)
	}

	return &model.ImportSummary{
		JobID:            job.ID,
		ListName:         job.ListName,
		Status:           model.JobStatusCompleted,
		ProcessingMethod: job.ProcessingMethod,
		TotalRecords:     job.TotalRecords,
		ProcessedRecords: counters.processed.Load(),
		Succeeded:        counters.succeeded.Load(),
		Skipped:          counters.skipped.Load(),
		Errored:          counters.errored.Load(),
	}, nil
}

// executeChunkWithRetry runs one chunk under the retry policy. The cursor
// survives attempts, so a retried chunk resumes after the last sub-batch it
// already reported instead of double-counting records.
func (p *WorkerPool) executeChunkWithRetry(
	ctx context.Context,
	job *model.ImportJob,
	batch *model.StoredBatch,
	chunk importjob.Chunk,
	resolver *importjob.Resolver,
	counters *jobCounters,
	ledger *importjob.ResumeLedger,
	speed *importjob.SpeedWindow,
) error {
	cursor := chunk.Start

	var lastErr error
	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		if delay := p.retry.Delay(attempt); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := p.executeChunk(ctx, job, batch, chunk, &cursor, resolver, counters, ledger, speed)
		if err == nil {
			return p.registry.RecordProgress(ctx, core.RecordProgressParams{
				JobID:            job.ID,
				Chunks:           1,
				RecordsPerSecond: speed.Rate(),
			})
		}
		if errors.Is(err, errJobCancelled) || ctx.Err() != nil {
			return err
		}
		if !importjob.IsRetryableChunkError(err) {
			return err
		}

		lastErr = err
		if p.logger != nil {
			p.logger.WarnContext(ctx, "chunk attempt failed, retrying",
				"job_id", job.ID,
				"chunk", chunk.Index,
				"attempt", attempt,
				"max_attempts", p.retry.MaxAttempts,
				"error", err,
			)
		}
	}
	return fmt.Errorf("chunk %d exhausted %d attempts: %w", chunk.Index, p.retry.MaxAttempts, lastErr)
}

// executeChunk processes the chunk's remaining records in sub-batches,
// checking the cancel flag before each one. The per-chunk timeout converts a
// hung destination write into a retryable failure.
func (p *WorkerPool) executeChunk(
	ctx context.Context,
	job *model.ImportJob,
	batch *model.StoredBatch,
	chunk importjob.Chunk,
	cursor *int,
	resolver *importjob.Resolver,
	counters *jobCounters,
	ledger *importjob.ResumeLedger,
	speed *importjob.SpeedWindow,
) error {
	chunkCtx, cancel := context.WithTimeout(ctx, p.cfg.ChunkTimeout)
	defer cancel()

	for *cursor < chunk.End {
		status, err := p.registry.Status(chunkCtx, job.ID)
		if err == nil && status == model.JobStatusCancelled {
			return errJobCancelled
		}

		start := *cursor
		end := start + p.cfg.SubBatchSize
		if end > chunk.End {
			end = chunk.End
		}

		subs := make([]model.Subscriber, 0, end-start)
		var skipped int64
		for _, rec := range batch.Records[start:end] {
			sub, ok := resolver.Resolve(rec)
			if !ok {
				skipped++
				continue
			}
			subs = append(subs, sub)
		}

		began := time.Now()
		result, errored, err := p.upsertSubBatch(chunkCtx, batch.ListName, subs)
		if err != nil {
			return p.classifyChunkErr(ctx, chunkCtx, chunk, err)
		}
		speed.Observe(int64(end-start), time.Since(began))

		if err := p.registry.RecordProgress(chunkCtx, core.RecordProgressParams{
			JobID:            job.ID,
			Records:          int64(end - start),
			RecordsPerSecond: speed.Rate(),
		}); err != nil {
			return p.classifyChunkErr(ctx, chunkCtx, chunk, err)
		}

		// Counters move with the cursor, after the registry has the
		// sub-batch: a retried attempt re-runs from the unreported cursor
		// without double-counting.
		counters.processed.Add(int64(end - start))
		counters.succeeded.Add(result.Inserted + result.Updated)
		counters.skipped.Add(skipped)
		counters.errored.Add(errored)
		*cursor = end
		ledger.Advance(chunk.Index, end)
	}
	return nil
}

// upsertSubBatch writes one sub-batch. A validation-class rejection falls
// back to per-record upserts so one bad row does not sink its neighbours;
// rows that still fail are counted as errored (chunk-level partial success).
func (p *WorkerPool) upsertSubBatch(
	ctx context.Context,
	listName string,
	subs []model.Subscriber,
) (core.UpsertResult, int64, error) {
	result, err := p.destination.UpsertSubscribers(ctx, listName, subs)
	if err == nil {
		return result, 0, nil
	}
	if !apperrors.IsValidation(err) && !apperrors.IsConflict(err) {
		return core.UpsertResult{}, 0, err
	}

	var total core.UpsertResult
	var errored int64
	for _, sub := range subs {
		one, err := p.destination.UpsertSubscribers(ctx, listName, []model.Subscriber{sub})
		if err != nil {
			if apperrors.IsValidation(err) || apperrors.IsConflict(err) {
				errored++
				continue
			}
			return total, errored, err
		}
		total.Inserted += one.Inserted
		total.Updated += one.Updated
	}
	return total, errored, nil
}

// classifyChunkErr tags a chunk execution error as retryable or fatal. A
// chunk deadline is retryable (distinct from the whole-job stuck threshold);
// cancellation of the parent context passes through untouched.
func (p *WorkerPool) classifyChunkErr(
	parent, chunkCtx context.Context,
	chunk importjob.Chunk,
	err error,
) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(chunkCtx.Err(), context.DeadlineExceeded) {
		return importjob.RetryableChunkError(
			fmt.Errorf("chunk %d timed out after %s: %w", chunk.Index, p.cfg.ChunkTimeout, err),
		)
	}
	if apperrors.IsTransient(err) {
		return importjob.RetryableChunkError(err)
	}
	return importjob.FatalChunkError(err)
}

// failJob records the failure with a recovery hint. resume is the contiguous
// written prefix from the ledger, not the raw processed count: under parallel
// chunks a later chunk can finish while an earlier one fails, and a retry
// that trusted the count would skip the failed chunk's records.
func (p *WorkerPool) failJob(
	ctx context.Context,
	job *model.ImportJob,
	resume int64,
	cause error,
	retrySafe bool,
) {
	failed, err := p.registry.FailJob(ctx, core.FailJobParams{
		JobID:          job.ID,
		FailedAtRecord: &resume,
		Message:        cause.Error(),
		Recovery:       importjob.FailureRecovery(resume, job.TotalRecords, retrySafe),
	})
	if err != nil && p.logger != nil {
		p.logger.ErrorContext(ctx, "failed to record job failure",
			"job_id", job.ID,
			"error", err,
		)
	}
	if failed && p.logger != nil {
		p.logger.WarnContext(ctx, "import job failed",
			"job_id", job.ID,
			"list", job.ListName,
			"failed_at_record", resume,
			"error", cause,
		)
	}
}

// setPhase updates the processing phase. Phase only informs the stall
// heuristic and snapshots, so errors are logged, not propagated.
func (p *WorkerPool) setPhase(ctx context.Context, id string, phase model.JobPhase) {
	if err := p.registry.SetPhase(ctx, id, phase); err != nil && p.logger != nil {
		p.logger.WarnContext(ctx, "failed to set job phase",
			"job_id", id,
			"phase", phase,
			"error", err,
		)
	}
}

func (p *WorkerPool) emitLifecycle(
	transition string,
	job *model.ImportJob,
	records int64,
	duration time.Duration,
	err error,
) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitImportLifecycle(p.metrics, metrics.ImportMetric{
		Transition: transition,
		Method:     string(job.ProcessingMethod),
		Result:     result,
		Records:    records,
		Duration:   duration,
		Err:        err,
	})
}
