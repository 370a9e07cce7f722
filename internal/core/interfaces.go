// Package core defines the ports between the service layer and the data
// layer for the import job system.
package core

import (
	"context"
	"time"

	"github.com/lettermill/import-api/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations should depend on these interfaces, not concrete implementations.

// CreateJobParams groups parameters for JobRegistry.Create.
type CreateJobParams struct {
	ListName         string
	TotalRecords     int64
	ChunksTotal      int
	ProcessingMethod model.ProcessingMethod
	// Records is the raw batch, persisted alongside the job so a retry
	// can resume from failed_at_record after a restart.
	Records      []model.Record
	FieldMapping model.FieldMapping
}

// RecordProgressParams groups parameters for JobRegistry.RecordProgress.
type RecordProgressParams struct {
	JobID            string
	Records          int64
	Chunks           int
	RecordsPerSecond float64
}

// FailJobParams groups parameters for JobRegistry.FailJob.
type FailJobParams struct {
	JobID          string
	FailedAtRecord *int64
	Message        string
	Recovery       *model.RecoveryInfo
}

// JobRegistry defines the interface for import job data operations.
// Status transitions are compare-and-swap updates: each mutation names the
// status it expects and reports whether the row actually moved, so two
// concurrent actors can never both win the same transition.
type JobRegistry interface {
	Create(ctx context.Context, params CreateJobParams) (*model.ImportJob, error)
	GetByID(ctx context.Context, id string) (*model.ImportJob, error)
	List(ctx context.Context, filter model.JobFilter) ([]*model.ImportJob, error)
	// ActiveForList returns the pending or processing job for a list,
	// or ErrJobNotFound when the list is idle.
	ActiveForList(ctx context.Context, listName string) (*model.ImportJob, error)

	// MarkProcessing transitions pending → processing.
	MarkProcessing(ctx context.Context, id string) (bool, error)
	SetPhase(ctx context.Context, id string, phase model.JobPhase) error
	// RecordProgress atomically increments processed counters on a
	// processing job. Increments from parallel chunk workers interleave
	// safely because the addition happens in SQL.
	RecordProgress(ctx context.Context, params RecordProgressParams) error
	// Complete transitions processing → completed.
	Complete(ctx context.Context, id string) (bool, error)
	// FailJob transitions processing → failed, recording where the run
	// stopped and how a retry should resume.
	FailJob(ctx context.Context, params FailJobParams) (bool, error)
	// Cancel transitions pending or processing → cancelled.
	Cancel(ctx context.Context, id string) (bool, error)
	// Status returns just the current status, used by workers to poll
	// for cancellation between sub-batches.
	Status(ctx context.Context, id string) (model.JobStatus, error)

	// ClearJob soft-deletes a terminal job. Active jobs are refused.
	ClearJob(ctx context.Context, id string) (bool, error)
	// ClearAllFailed soft-deletes every failed job and returns the count.
	ClearAllFailed(ctx context.Context) (int64, error)

	Stats(ctx context.Context) (*model.JobStats, error)
	// GetBatch loads the stored records and field mapping for a job.
	GetBatch(ctx context.Context, id string) (*model.StoredBatch, error)
}

// ZeroStaleSpeedsParams groups parameters for SupervisorRepository.ZeroStaleSpeeds.
type ZeroStaleSpeedsParams struct {
	StaleAfter time.Duration
	BatchSize  int
}

// DeleteClearedJobsParams groups parameters for SupervisorRepository.DeleteClearedJobs.
type DeleteClearedJobsParams struct {
	MaxAge    time.Duration
	BatchSize int
}

// SupervisorRepository defines the interface for background sweep operations.
// Implementations guard each sweep with a Postgres advisory lock so that
// multiple supervisor instances never double-process the same rows.
type SupervisorRepository interface {
	// ListStallCandidates returns processing jobs older than minAge with
	// zero progress, up to batchSize rows. The supervisor applies the
	// full stall heuristic to each candidate before failing it.
	ListStallCandidates(ctx context.Context, minAge time.Duration, batchSize int) ([]*model.ImportJob, error)

	// ZeroStaleSpeeds resets records_per_second on processing jobs whose
	// last update is older than StaleAfter, so stale throughput numbers
	// do not linger in snapshots. Returns the number of rows updated.
	ZeroStaleSpeeds(ctx context.Context, params ZeroStaleSpeedsParams) (int64, error)

	// DeleteClearedJobs permanently removes cleared jobs older than
	// MaxAge, up to BatchSize rows per call. Returns the number deleted.
	DeleteClearedJobs(ctx context.Context, params DeleteClearedJobsParams) (int64, error)
}

// UpsertResult reports the outcome of a subscriber upsert.
type UpsertResult struct {
	Inserted int64
	Updated  int64
}

// DestinationStore defines the interface for the subscriber tables that
// imports write into. Upserts are keyed by (list_name, email), which is
// what makes chunk retries and remainder re-imports idempotent.
type DestinationStore interface {
	UpsertSubscribers(ctx context.Context, listName string, subs []model.Subscriber) (UpsertResult, error)
	// DeleteList removes all subscribers for a list and returns the count.
	DeleteList(ctx context.Context, listName string) (int64, error)
	ListSummaries(ctx context.Context) ([]*model.ListSummary, error)
}

// CacheRepository defines the interface for caching operations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}
