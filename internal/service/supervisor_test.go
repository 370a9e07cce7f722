package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/lettermill/import-api/config"
	"github.com/lettermill/import-api/internal/core"
	"github.com/lettermill/import-api/internal/data"
	"github.com/lettermill/import-api/internal/domain/model"
	"github.com/lettermill/import-api/internal/mocks"
)

func supervisorTestConfig() config.SupervisorConfig {
	return config.SupervisorConfig{
		Interval:        time.Minute,
		StuckThreshold:  20 * time.Minute,
		SpeedStaleAfter: 2 * time.Minute,
		ClearedMaxAge:   7 * 24 * time.Hour,
		BatchSize:       1000,
	}
}

func newTestSupervisor(
	t *testing.T,
	repo core.SupervisorRepository,
	registry core.JobRegistry,
	now time.Time,
) *SupervisorService {
	t.Helper()
	svc, err := NewSupervisorService(SupervisorServiceOptions{
		Repo:         repo,
		Registry:     registry,
		Config:       supervisorTestConfig(),
		TimeProvider: data.NewFixedTimeProvider(now),
	})
	require.NoError(t, err)
	return svc
}

func TestNewSupervisorService_RequiresDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	_, err := NewSupervisorService(SupervisorServiceOptions{
		Registry: mocks.NewMockJobRegistry(ctrl),
		Config:   supervisorTestConfig(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SupervisorRepository")

	_, err = NewSupervisorService(SupervisorServiceOptions{
		Repo:   mocks.NewMockSupervisorRepository(ctrl),
		Config: supervisorTestConfig(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JobRegistry")
}

func TestSupervisor_FailsStalledJobs(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := mocks.NewMockSupervisorRepository(ctrl)
	registry := mocks.NewMockJobRegistry(ctrl)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	stalled := &model.ImportJob{
		ID:               "job-stalled",
		ListName:         "newsletter",
		Status:           model.JobStatusProcessing,
		Phase:            model.PhaseInitializing,
		TotalRecords:     120_000,
		ProcessedRecords: 0,
		RecordsPerSecond: 0,
		ProcessingMethod: model.MethodChunkedParallel,
		UpdatedAt:        now.Add(-25 * time.Minute),
	}
	// Silent but past initializing with records on the board: still working.
	slowButAlive := &model.ImportJob{
		ID:               "job-slow",
		ListName:         "digest",
		Status:           model.JobStatusProcessing,
		Phase:            model.PhaseImporting,
		TotalRecords:     120_000,
		ProcessedRecords: 40_000,
		RecordsPerSecond: 0,
		UpdatedAt:        now.Add(-25 * time.Minute),
	}

	repo.EXPECT().
		ListStallCandidates(ctx, 20*time.Minute, 1000).
		Return([]*model.ImportJob{stalled, slowButAlive}, nil)
	registry.EXPECT().
		FailJob(ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.FailJobParams) (bool, error) {
			assert.Equal(t, "job-stalled", params.JobID)
			require.NotNil(t, params.FailedAtRecord)
			assert.Zero(t, *params.FailedAtRecord)
			assert.Contains(t, params.Message, "no progress for 20m0s")
			require.NotNil(t, params.Recovery)
			assert.True(t, params.Recovery.RetrySafe)
			assert.Zero(t, params.Recovery.ResumeFromRecord)
			return true, nil
		})
	repo.EXPECT().ZeroStaleSpeeds(ctx, gomock.Any()).Return(int64(0), nil)
	repo.EXPECT().DeleteClearedJobs(ctx, gomock.Any()).Return(int64(0), nil)

	svc := newTestSupervisor(t, repo, registry, now)
	require.NoError(t, svc.runSweep(ctx))
}

func TestSupervisor_SkipsCandidateLostToWorker(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := mocks.NewMockSupervisorRepository(ctrl)
	registry := mocks.NewMockJobRegistry(ctrl)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	candidate := &model.ImportJob{
		ID:        "job-racy",
		Status:    model.JobStatusProcessing,
		Phase:     model.PhaseInitializing,
		UpdatedAt: now.Add(-30 * time.Minute),
	}

	repo.EXPECT().
		ListStallCandidates(ctx, gomock.Any(), gomock.Any()).
		Return([]*model.ImportJob{candidate}, nil)
	// Worker or operator moved the job first; the CAS fails and the sweep
	// moves on without counting it.
	registry.EXPECT().FailJob(ctx, gomock.Any()).Return(false, nil)
	repo.EXPECT().ZeroStaleSpeeds(ctx, gomock.Any()).Return(int64(0), nil)
	repo.EXPECT().DeleteClearedJobs(ctx, gomock.Any()).Return(int64(0), nil)

	svc := newTestSupervisor(t, repo, registry, now)
	require.NoError(t, svc.runSweep(ctx))
}

func TestSupervisor_DrainsBatchedSteps(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := mocks.NewMockSupervisorRepository(ctrl)
	registry := mocks.NewMockJobRegistry(ctrl)
	now := time.Now()

	repo.EXPECT().ListStallCandidates(ctx, gomock.Any(), gomock.Any()).Return(nil, nil)

	expectedSpeeds := core.ZeroStaleSpeedsParams{StaleAfter: 2 * time.Minute, BatchSize: 1000}
	gomock.InOrder(
		repo.EXPECT().ZeroStaleSpeeds(ctx, expectedSpeeds).Return(int64(1000), nil),
		repo.EXPECT().ZeroStaleSpeeds(ctx, expectedSpeeds).Return(int64(42), nil),
		repo.EXPECT().ZeroStaleSpeeds(ctx, expectedSpeeds).Return(int64(0), nil),
	)

	expectedCleared := core.DeleteClearedJobsParams{MaxAge: 7 * 24 * time.Hour, BatchSize: 1000}
	gomock.InOrder(
		repo.EXPECT().DeleteClearedJobs(ctx, expectedCleared).Return(int64(7), nil),
		repo.EXPECT().DeleteClearedJobs(ctx, expectedCleared).Return(int64(0), nil),
	)

	svc := newTestSupervisor(t, repo, registry, now)
	require.NoError(t, svc.runSweep(ctx))
}

func TestSupervisor_SweepAggregatesStepErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx := context.Background()
	repo := mocks.NewMockSupervisorRepository(ctrl)
	registry := mocks.NewMockJobRegistry(ctrl)

	// One step failing must not stop the others from running.
	repo.EXPECT().
		ListStallCandidates(ctx, gomock.Any(), gomock.Any()).
		Return(nil, errors.New("query timeout"))
	repo.EXPECT().ZeroStaleSpeeds(ctx, gomock.Any()).Return(int64(0), nil)
	repo.EXPECT().DeleteClearedJobs(ctx, gomock.Any()).Return(int64(0), errors.New("lock not available"))

	svc := newTestSupervisor(t, repo, registry, time.Now())
	err := svc.runSweep(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fail stalled jobs")
	assert.Contains(t, err.Error(), "delete cleared jobs")
	assert.NotContains(t, err.Error(), "zero stale speeds")
}

func TestSupervisor_RunStopsCleanlyOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockSupervisorRepository(ctrl)
	registry := mocks.NewMockJobRegistry(ctrl)

	repo.EXPECT().ListStallCandidates(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	repo.EXPECT().ZeroStaleSpeeds(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()
	repo.EXPECT().DeleteClearedJobs(gomock.Any(), gomock.Any()).Return(int64(0), nil).AnyTimes()

	svc, err := NewSupervisorService(SupervisorServiceOptions{
		Repo:     repo,
		Registry: registry,
		// Interval gets floored by Sanitize; jitter stays under a second.
		Config: config.SupervisorConfig{Interval: time.Second},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}
}
