package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lettermill/import-api/config"
	"github.com/lettermill/import-api/internal/core"
	"github.com/lettermill/import-api/internal/domain/importjob"
	"github.com/lettermill/import-api/internal/domain/model"
	apperrors "github.com/lettermill/import-api/internal/errors"
	"github.com/lettermill/import-api/internal/mocks"
	"github.com/lettermill/import-api/internal/testutil"
)

// workerTestConfig keeps sub-batches small and retries fast so tests cover
// the loops without real backoff waits.
func workerTestConfig() config.ImporterConfig {
	return config.ImporterConfig{
		InlineThreshold:   10,
		ChunkSize:         10,
		PerJobConcurrency: 1,
		GlobalConcurrency: 1,
		ChunkTimeout:      10 * time.Second,
		RetryAttempts:     2,
		RetryBackoff:      time.Millisecond,
		SubBatchSize:      2,
		SpeedWindow:       30 * time.Second,
	}
}

func newTestPool(t *testing.T, registry core.JobRegistry, destination core.DestinationStore) *WorkerPool {
	t.Helper()
	return newTestPoolWithConfig(t, registry, destination, workerTestConfig())
}

func newTestPoolWithConfig(
	t *testing.T,
	registry core.JobRegistry,
	destination core.DestinationStore,
	cfg config.ImporterConfig,
) *WorkerPool {
	t.Helper()
	pool, err := NewWorkerPool(WorkerPoolOptions{
		Registry:    registry,
		Destination: destination,
		Config:      cfg,
	})
	require.NoError(t, err)
	return pool
}

func inlineJobAndBatch(records []model.Record) (*model.ImportJob, *model.StoredBatch, importjob.Plan) {
	job := &model.ImportJob{
		ID:               "job-1",
		ListName:         "newsletter",
		Status:           model.JobStatusPending,
		TotalRecords:     int64(len(records)),
		ChunksTotal:      1,
		ProcessingMethod: model.MethodInline,
	}
	batch := &model.StoredBatch{
		JobID:        job.ID,
		ListName:     job.ListName,
		Records:      records,
		FieldMapping: model.FieldMapping{"email": "email", "first_name": "first_name"},
	}
	plan := importjob.Plan{
		Mode:   importjob.ModeInline,
		Chunks: []importjob.Chunk{{Index: 0, Start: 0, End: len(records)}},
	}
	return job, batch, plan
}

func TestWorkerPool_RunInline_CompletesAndCounts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	registry := mocks.NewMockJobRegistry(ctrl)
	destination := mocks.NewMockDestinationStore(ctrl)

	records := testutil.Records(4)
	records = append(records, model.Record{"first_name": "no-email"})
	job, batch, plan := inlineJobAndBatch(records)

	registry.EXPECT().MarkProcessing(ctx, job.ID).Return(true, nil)
	registry.EXPECT().SetPhase(gomock.Any(), job.ID, gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Status(gomock.Any(), job.ID).Return(model.JobStatusProcessing, nil).AnyTimes()
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, subs []model.Subscriber) (core.UpsertResult, error) {
			return core.UpsertResult{Inserted: int64(len(subs))}, nil
		}).
		AnyTimes()
	registry.EXPECT().RecordProgress(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Complete(gomock.Any(), job.ID).Return(true, nil)

	pool := newTestPool(t, registry, destination)
	summary, err := pool.RunInline(ctx, job, batch, plan)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, model.JobStatusCompleted, summary.Status)
	assert.Equal(t, int64(5), summary.ProcessedRecords)
	assert.Equal(t, int64(4), summary.Succeeded)
	assert.Equal(t, int64(1), summary.Skipped)
	assert.Zero(t, summary.Errored)
}

func TestWorkerPool_RunInline_FatalErrorFailsJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	registry := mocks.NewMockJobRegistry(ctrl)
	destination := mocks.NewMockDestinationStore(ctrl)

	job, batch, plan := inlineJobAndBatch(testutil.Records(4))

	registry.EXPECT().MarkProcessing(ctx, job.ID).Return(true, nil)
	registry.EXPECT().SetPhase(gomock.Any(), job.ID, gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Status(gomock.Any(), job.ID).Return(model.JobStatusProcessing, nil).AnyTimes()
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Any()).
		Return(core.UpsertResult{}, apperrors.Internal("destination store unavailable"))
	registry.EXPECT().
		FailJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.FailJobParams) (bool, error) {
			assert.Equal(t, job.ID, params.JobID)
			require.NotNil(t, params.Recovery)
			assert.False(t, params.Recovery.RetrySafe)
			assert.Zero(t, params.Recovery.ResumeFromRecord)
			require.NotNil(t, params.FailedAtRecord)
			assert.Zero(t, *params.FailedAtRecord)
			return true, nil
		})

	pool := newTestPool(t, registry, destination)
	_, err := pool.RunInline(ctx, job, batch, plan)

	require.Error(t, err)
	assert.False(t, importjob.IsRetryableChunkError(err))
}

func TestWorkerPool_RunInline_RetryableExhaustsAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	registry := mocks.NewMockJobRegistry(ctrl)
	destination := mocks.NewMockDestinationStore(ctrl)

	job, batch, plan := inlineJobAndBatch(testutil.Records(4))
	transient := errors.New("write failed: connection reset by peer")

	registry.EXPECT().MarkProcessing(ctx, job.ID).Return(true, nil)
	registry.EXPECT().SetPhase(gomock.Any(), job.ID, gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Status(gomock.Any(), job.ID).Return(model.JobStatusProcessing, nil).AnyTimes()
	// Both attempts fail on the first sub-batch.
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Any()).
		Return(core.UpsertResult{}, transient).
		Times(2)
	registry.EXPECT().
		FailJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.FailJobParams) (bool, error) {
			require.NotNil(t, params.Recovery)
			assert.True(t, params.Recovery.RetrySafe)
			return true, nil
		})

	pool := newTestPool(t, registry, destination)
	_, err := pool.RunInline(ctx, job, batch, plan)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted 2 attempts")
}

func TestWorkerPool_RunInline_RetryableThenSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	registry := mocks.NewMockJobRegistry(ctrl)
	destination := mocks.NewMockDestinationStore(ctrl)

	job, batch, plan := inlineJobAndBatch(testutil.Records(4))

	registry.EXPECT().MarkProcessing(ctx, job.ID).Return(true, nil)
	registry.EXPECT().SetPhase(gomock.Any(), job.ID, gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Status(gomock.Any(), job.ID).Return(model.JobStatusProcessing, nil).AnyTimes()
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Any()).
		Return(core.UpsertResult{}, errors.New("broken pipe"))
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, subs []model.Subscriber) (core.UpsertResult, error) {
			return core.UpsertResult{Inserted: int64(len(subs))}, nil
		}).
		AnyTimes()
	registry.EXPECT().RecordProgress(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Complete(gomock.Any(), job.ID).Return(true, nil)

	pool := newTestPool(t, registry, destination)
	summary, err := pool.RunInline(ctx, job, batch, plan)

	require.NoError(t, err)
	require.NotNil(t, summary)
	// The failed attempt never advanced the cursor, so nothing double-counts.
	assert.Equal(t, int64(4), summary.ProcessedRecords)
	assert.Equal(t, int64(4), summary.Succeeded)
}

// Two chunks run in parallel; the second finishes while the first exhausts
// its retries. The recovery hint must point at the first unwritten record,
// not the processed count: trusting the count would make a retry skip the
// failed chunk's records entirely.
func TestWorkerPool_RunInline_ParallelChunkFailureResumesFromWrittenPrefix(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	registry := mocks.NewMockJobRegistry(ctrl)
	destination := mocks.NewMockDestinationStore(ctrl)

	records := testutil.Records(4)
	job := &model.ImportJob{
		ID:               "job-parallel",
		ListName:         "newsletter",
		Status:           model.JobStatusPending,
		TotalRecords:     4,
		ChunksTotal:      2,
		ProcessingMethod: model.MethodChunked,
	}
	batch := &model.StoredBatch{
		JobID:        job.ID,
		ListName:     job.ListName,
		Records:      records,
		FieldMapping: model.FieldMapping{"email": "email"},
	}
	plan := importjob.Plan{
		Mode: importjob.ModeBackground,
		Chunks: []importjob.Chunk{
			{Index: 0, Start: 0, End: 2},
			{Index: 1, Start: 2, End: 4},
		},
	}

	cfg := workerTestConfig()
	cfg.PerJobConcurrency = 2
	cfg.GlobalConcurrency = 2

	// The first chunk only fails after the second has written, so the failed
	// run really does hold a gap below its processed count.
	secondChunkDone := make(chan struct{})
	var mu sync.Mutex
	upserted := map[string]bool{}

	registry.EXPECT().MarkProcessing(ctx, job.ID).Return(true, nil)
	registry.EXPECT().SetPhase(gomock.Any(), job.ID, gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Status(gomock.Any(), job.ID).Return(model.JobStatusProcessing, nil).AnyTimes()
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Any()).
		DoAndReturn(func(upCtx context.Context, _ string, subs []model.Subscriber) (core.UpsertResult, error) {
			if subs[0].Email == "subscriber-0000@example.com" {
				select {
				case <-secondChunkDone:
				case <-upCtx.Done():
					return core.UpsertResult{}, upCtx.Err()
				}
				return core.UpsertResult{}, errors.New("write failed: connection reset by peer")
			}
			mu.Lock()
			for _, sub := range subs {
				upserted[sub.Email] = true
			}
			mu.Unlock()
			close(secondChunkDone)
			return core.UpsertResult{Inserted: int64(len(subs))}, nil
		}).
		AnyTimes()
	registry.EXPECT().RecordProgress(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	var failParams core.FailJobParams
	registry.EXPECT().
		FailJob(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.FailJobParams) (bool, error) {
			failParams = params
			return true, nil
		})

	pool := newTestPoolWithConfig(t, registry, destination, cfg)
	_, err := pool.RunInline(ctx, job, batch, plan)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted 2 attempts")

	mu.Lock()
	assert.Equal(t, map[string]bool{
		"subscriber-0002@example.com": true,
		"subscriber-0003@example.com": true,
	}, upserted)
	mu.Unlock()

	require.NotNil(t, failParams.Recovery)
	assert.True(t, failParams.Recovery.RetrySafe)
	// Records 0 and 1 never landed, so the resume offset stays at zero even
	// though two records were written further along.
	assert.Zero(t, failParams.Recovery.ResumeFromRecord)
	require.NotNil(t, failParams.FailedAtRecord)
	assert.Zero(t, *failParams.FailedAtRecord)
}

// A progress write that fails after a successful upsert retries the
// sub-batch; counters only advance with the cursor, so the replay must not
// inflate the summary past the batch size.
func TestWorkerPool_RunInline_ProgressWriteRetryDoesNotDoubleCount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	registry := mocks.NewMockJobRegistry(ctrl)
	destination := mocks.NewMockDestinationStore(ctrl)

	job, batch, plan := inlineJobAndBatch(testutil.Records(2))

	registry.EXPECT().MarkProcessing(ctx, job.ID).Return(true, nil)
	registry.EXPECT().SetPhase(gomock.Any(), job.ID, gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Status(gomock.Any(), job.ID).Return(model.JobStatusProcessing, nil).AnyTimes()
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, subs []model.Subscriber) (core.UpsertResult, error) {
			return core.UpsertResult{Inserted: int64(len(subs))}, nil
		}).
		Times(2)
	// The first progress write breaks, forcing a second chunk attempt.
	registry.EXPECT().RecordProgress(gomock.Any(), gomock.Any()).Return(errors.New("broken pipe"))
	registry.EXPECT().RecordProgress(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Complete(gomock.Any(), job.ID).Return(true, nil)

	pool := newTestPool(t, registry, destination)
	summary, err := pool.RunInline(ctx, job, batch, plan)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, int64(2), summary.ProcessedRecords)
	assert.Equal(t, int64(2), summary.Succeeded)
}

func TestWorkerPool_RunInline_ValidationFallsBackToSingles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	registry := mocks.NewMockJobRegistry(ctrl)
	destination := mocks.NewMockDestinationStore(ctrl)

	job, batch, plan := inlineJobAndBatch(testutil.Records(2))

	registry.EXPECT().MarkProcessing(ctx, job.ID).Return(true, nil)
	registry.EXPECT().SetPhase(gomock.Any(), job.ID, gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Status(gomock.Any(), job.ID).Return(model.JobStatusProcessing, nil).AnyTimes()
	// Batch write rejected, then per-record: first row lands, second is bad.
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Len(2)).
		Return(core.UpsertResult{}, apperrors.Validation("value too long"))
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Len(1)).
		Return(core.UpsertResult{Inserted: 1}, nil)
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Len(1)).
		Return(core.UpsertResult{}, apperrors.Validation("value too long"))
	registry.EXPECT().RecordProgress(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Complete(gomock.Any(), job.ID).Return(true, nil)

	pool := newTestPool(t, registry, destination)
	summary, err := pool.RunInline(ctx, job, batch, plan)

	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, int64(2), summary.ProcessedRecords)
	assert.Equal(t, int64(1), summary.Succeeded)
	assert.Equal(t, int64(1), summary.Errored)
}

func TestWorkerPool_RunInline_StopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	registry := mocks.NewMockJobRegistry(ctrl)
	destination := mocks.NewMockDestinationStore(ctrl)

	job, batch, plan := inlineJobAndBatch(testutil.Records(6))

	registry.EXPECT().MarkProcessing(ctx, job.ID).Return(true, nil)
	registry.EXPECT().SetPhase(gomock.Any(), job.ID, gomock.Any()).Return(nil).AnyTimes()
	// First sub-batch sees a live job, then the operator cancels.
	registry.EXPECT().Status(gomock.Any(), job.ID).Return(model.JobStatusProcessing, nil)
	registry.EXPECT().Status(gomock.Any(), job.ID).Return(model.JobStatusCancelled, nil).AnyTimes()
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, subs []model.Subscriber) (core.UpsertResult, error) {
			return core.UpsertResult{Inserted: int64(len(subs))}, nil
		})
	registry.EXPECT().RecordProgress(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	pool := newTestPool(t, registry, destination)
	summary, err := pool.RunInline(ctx, job, batch, plan)

	// Cancellation is not an error and produces no summary; no Complete or
	// FailJob transition is attempted.
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestWorkerPool_RunInline_SkipsJobNoLongerPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	registry := mocks.NewMockJobRegistry(ctrl)
	destination := mocks.NewMockDestinationStore(ctrl)

	job, batch, plan := inlineJobAndBatch(testutil.Records(2))
	registry.EXPECT().MarkProcessing(ctx, job.ID).Return(false, nil)

	pool := newTestPool(t, registry, destination)
	summary, err := pool.RunInline(ctx, job, batch, plan)

	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestWorkerPool_Dispatch_RunsInBackground(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	registry := mocks.NewMockJobRegistry(ctrl)
	destination := mocks.NewMockDestinationStore(ctrl)

	records := testutil.Records(4)
	job := &model.ImportJob{
		ID:               "job-bg",
		ListName:         "newsletter",
		Status:           model.JobStatusPending,
		TotalRecords:     4,
		ChunksTotal:      2,
		ProcessingMethod: model.MethodChunked,
	}
	batch := &model.StoredBatch{
		JobID:        job.ID,
		ListName:     job.ListName,
		Records:      records,
		FieldMapping: model.FieldMapping{"email": "email"},
	}
	plan := importjob.Plan{
		Mode: importjob.ModeBackground,
		Chunks: []importjob.Chunk{
			{Index: 0, Start: 0, End: 2},
			{Index: 1, Start: 2, End: 4},
		},
	}

	registry.EXPECT().MarkProcessing(gomock.Any(), job.ID).Return(true, nil)
	registry.EXPECT().SetPhase(gomock.Any(), job.ID, gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Status(gomock.Any(), job.ID).Return(model.JobStatusProcessing, nil).AnyTimes()
	destination.EXPECT().
		UpsertSubscribers(gomock.Any(), "newsletter", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, subs []model.Subscriber) (core.UpsertResult, error) {
			return core.UpsertResult{Inserted: int64(len(subs))}, nil
		}).
		AnyTimes()
	registry.EXPECT().RecordProgress(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	registry.EXPECT().Complete(gomock.Any(), job.ID).Return(true, nil)

	pool := newTestPool(t, registry, destination)
	pool.Dispatch(job, batch, plan)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pool.Shutdown(shutdownCtx))
}
