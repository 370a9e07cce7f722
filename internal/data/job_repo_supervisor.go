package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lettermill/import-api/internal/core"
	"github.com/lettermill/import-api/internal/data/pgxutil"
	"github.com/lettermill/import-api/internal/domain/model"
)

// Advisory lock namespace for supervisor sweeps.
// Using two-arg pg_try_advisory_xact_lock(major, minor) for proper namespacing.
// Major key 2000 is reserved for import supervisor operations.
const (
	advisoryLockSupervisorMajor        = 2000
	advisoryLockSupervisorZeroSpeeds   = 1 // minor key for ZeroStaleSpeeds
	advisoryLockSupervisorDeleteCleard = 2 // minor key for DeleteClearedJobs
)

// ListStallCandidates returns processing jobs at least minAge old that have
// made zero progress, up to batchSize rows. The caller applies the full
// stall heuristic and fails the jobs that meet it; this query only
// pre-filters so hot jobs never leave the database.
func (r *JobRepo) ListStallCandidates(ctx context.Context, minAge time.Duration, batchSize int) ([]*model.ImportJob, error) {
	if batchSize <= 0 {
		return nil, errors.New("batch size must be greater than zero")
	}

	cutoff := r.timeProvider.Now().Add(-minAge).UTC()
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM import_jobs
		WHERE status = 'processing'
		  AND processed_records = 0
		  AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`, cutoff, batchSize)
	if err != nil {
		return nil, fmt.Errorf("list stall candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []*model.ImportJob
	for rows.Next() {
		job, scanErr := scanJobFromRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan stall candidate: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list stall candidates: %w", err)
	}
	return jobs, nil
}

// ZeroStaleSpeeds resets records_per_second on processing jobs whose last
// update is older than StaleAfter, so a dead worker's final throughput
// number does not linger in snapshots. Uses an advisory lock so concurrent
// supervisor instances do not double-sweep. Returns the rows updated.
func (r *JobRepo) ZeroStaleSpeeds(ctx context.Context, params core.ZeroStaleSpeedsParams) (int64, error) {
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	if params.StaleAfter <= 0 {
		return 0, errors.New("stale after must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockSupervisorMajor, advisoryLockSupervisorZeroSpeeds).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			cutoff := r.timeProvider.Now().Add(-params.StaleAfter).UTC()
			res, err := tx.ExecContext(ctx, `
				UPDATE import_jobs
				SET records_per_second = 0
				WHERE id IN (
					SELECT id FROM import_jobs
					WHERE status = 'processing'
					  AND records_per_second > 0
					  AND updated_at < $1
					ORDER BY updated_at
					LIMIT $2
				)
			`, cutoff, params.BatchSize)
			if err != nil {
				return fmt.Errorf("zero stale speeds: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// DeleteClearedJobs permanently removes cleared jobs older than MaxAge.
// Processes up to BatchSize rows per call to prevent long locks and I/O
// spikes. Only cleared rows are ever deleted; uncleaned terminal jobs stay
// queryable forever, which is what makes failure states inspectable.
func (r *JobRepo) DeleteClearedJobs(ctx context.Context, params core.DeleteClearedJobsParams) (int64, error) {
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}
	if params.MaxAge <= 0 {
		return 0, errors.New("max age must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockSupervisorMajor, advisoryLockSupervisorDeleteCleard).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			cutoff := r.timeProvider.Now().Add(-params.MaxAge).UTC()
			res, err := tx.ExecContext(ctx, `
				DELETE FROM import_jobs
				WHERE id IN (
					SELECT id FROM import_jobs
					WHERE cleared
					  AND updated_at < $1
					ORDER BY updated_at
					LIMIT $2
				)
			`, cutoff, params.BatchSize)
			if err != nil {
				return fmt.Errorf("delete cleared jobs: %w", err)
			}

			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}
