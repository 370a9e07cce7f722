package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/lettermill/import-api/internal/core"
	"github.com/lettermill/import-api/internal/data/pgxutil"
	"github.com/lettermill/import-api/internal/domain/model"
	apperrors "github.com/lettermill/import-api/internal/errors"
)

// Create inserts a new import job in pending status. The partial unique
// index on (list_name) for active rows enforces the one-active-job-per-list
// rule at the database level; a violation surfaces as a Conflict error.
func (r *JobRepo) Create(ctx context.Context, params core.CreateJobParams) (*model.ImportJob, error) {
	if params.ListName == "" {
		return nil, apperrors.ValidationField("list_name", "is required and cannot be empty")
	}
	if params.TotalRecords <= 0 {
		return nil, apperrors.ValidationField("records", "is required and cannot be empty")
	}

	records, err := json.Marshal(params.Records)
	if err != nil {
		return nil, fmt.Errorf("marshal records: %w", err)
	}
	mapping := []byte(`{}`)
	if params.FieldMapping != nil {
		mapping, err = json.Marshal(params.FieldMapping)
		if err != nil {
			return nil, fmt.Errorf("marshal field mapping: %w", err)
		}
	}

	id := uuid.NewString()
	now := r.timeProvider.Now().UTC()

	var job *model.ImportJob
	txErr := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, qerr := tx.Query(ctx, `
				INSERT INTO import_jobs(
					id, list_name, status, phase, total_records, chunks_total,
					processing_method, records, field_mapping, created_at, updated_at
				)
				VALUES ($1, $2, 'pending', 'initializing', $3, $4, $5, $6, $7, $8, $8)
				RETURNING `+jobColumns,
				id, params.ListName, params.TotalRecords, params.ChunksTotal,
				params.ProcessingMethod, records, mapping, now,
			)
			if qerr != nil {
				return qerr
			}
			j, cerr := collectJobFromRows(rows)
			rows.Close()
			if cerr != nil {
				return cerr
			}
			job = j
			return nil
		},
	})
	if txErr != nil {
		return nil, apperrors.MapDBError(txErr)
	}

	return job, nil
}

// GetByID retrieves a job by its ID. Cleared jobs are invisible.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.ImportJob, error) {
	var job *model.ImportJob
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		rows, qerr := pgxConn.Query(ctx, `
			SELECT `+jobColumns+`
			FROM import_jobs
			WHERE id = $1 AND NOT cleared
		`, id)
		if qerr != nil {
			return qerr
		}
		defer rows.Close()
		job, qerr = collectJobFromRows(rows)
		return qerr
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns non-cleared jobs matching the filter, newest first.
func (r *JobRepo) List(ctx context.Context, filter model.JobFilter) ([]*model.ImportJob, error) {
	query := `SELECT ` + jobColumns + ` FROM import_jobs WHERE NOT cleared`
	args := []any{}
	if filter.ListName != "" {
		args = append(args, filter.ListName)
		query += fmt.Sprintf(" AND list_name = $%d", len(args))
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, apperrors.Validationf("invalid status filter: %q", filter.Status)
		}
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	jobs := []*model.ImportJob{}
	for rows.Next() {
		job, scanErr := scanJobFromRow(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// ActiveForList returns the pending or processing job for a list, or
// model.ErrJobNotFound when the list has no active job.
func (r *JobRepo) ActiveForList(ctx context.Context, listName string) (*model.ImportJob, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM import_jobs
		WHERE list_name = $1
		  AND status IN ('pending', 'processing')
		  AND NOT cleared
		LIMIT 1
	`, listName)

	job, err := scanJobFromRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("active job for list: %w", err)
	}
	return job, nil
}

// MarkProcessing transitions a job from pending to processing. Returns false
// when the job is missing or no longer pending.
func (r *JobRepo) MarkProcessing(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = 'processing',
		    updated_at = $2
		WHERE id = $1 AND status = 'pending' AND NOT cleared
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("mark processing: %w", err)
	}
	return oneRowAffected(res)
}

// SetPhase updates the processing phase of an active job. A zero-row update
// is not an error; it means the job left processing (cancelled or failed)
// and the worker will notice on its next cancellation check.
func (r *JobRepo) SetPhase(ctx context.Context, id string, phase model.JobPhase) error {
	if !phase.Valid() {
		return fmt.Errorf("invalid job phase: %s", phase)
	}

	now := r.timeProvider.Now().UTC()
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE import_jobs
		SET phase = $2,
		    updated_at = $3
		WHERE id = $1 AND status = 'processing'
	`, id, phase, now); err != nil {
		return fmt.Errorf("set phase: %w", err)
	}
	return nil
}

// RecordProgress atomically increments progress counters on a processing
// job. The additions happen in SQL so concurrent chunk workers interleave
// without losing updates, and processed_records is capped at total_records.
func (r *JobRepo) RecordProgress(ctx context.Context, params core.RecordProgressParams) error {
	now := r.timeProvider.Now().UTC()
	if _, err := r.DB.ExecContext(ctx, `
		UPDATE import_jobs
		SET processed_records = LEAST(total_records, processed_records + $2),
		    chunks_completed = LEAST(chunks_total, chunks_completed + $3),
		    records_per_second = $4,
		    updated_at = $5
		WHERE id = $1 AND status = 'processing'
	`, params.JobID, params.Records, params.Chunks, params.RecordsPerSecond, now); err != nil {
		return fmt.Errorf("record progress: %w", err)
	}
	return nil
}

// Complete transitions a job from processing to completed.
func (r *JobRepo) Complete(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = 'completed',
		    records_per_second = 0,
		    updated_at = $2
		WHERE id = $1 AND status = 'processing'
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	return oneRowAffected(res)
}

// FailJob transitions a job from processing to failed, recording where the
// run stopped and how a retry should resume.
func (r *JobRepo) FailJob(ctx context.Context, params core.FailJobParams) (bool, error) {
	recovery, err := model.MarshalRecoveryInfo(params.Recovery)
	if err != nil {
		return false, err
	}

	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = 'failed',
		    failed_at_record = $2,
		    error_message = $3,
		    recovery_info = $4,
		    records_per_second = 0,
		    updated_at = $5
		WHERE id = $1 AND status = 'processing'
	`, params.JobID, params.FailedAtRecord, params.Message, recovery, now)
	if err != nil {
		return false, fmt.Errorf("fail job: %w", err)
	}
	return oneRowAffected(res)
}

// Cancel transitions a pending or processing job to cancelled.
func (r *JobRepo) Cancel(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE import_jobs
		SET status = 'cancelled',
		    records_per_second = 0,
		    updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'processing') AND NOT cleared
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	return oneRowAffected(res)
}

// Status returns the current status of a job. Workers poll this between
// sub-batches to observe cancellation.
func (r *JobRepo) Status(ctx context.Context, id string) (model.JobStatus, error) {
	var status model.JobStatus
	err := r.DB.QueryRowContext(ctx, `
		SELECT status FROM import_jobs WHERE id = $1 AND NOT cleared
	`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrJobNotFound
	}
	if err != nil {
		return "", fmt.Errorf("job status: %w", err)
	}
	return status, nil
}

// ClearJob soft-deletes a terminal job so it disappears from listings while
// the row survives for the retention sweep. Active jobs are refused.
func (r *JobRepo) ClearJob(ctx context.Context, id string) (bool, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE import_jobs
		SET cleared = TRUE,
		    updated_at = $2
		WHERE id = $1
		  AND status IN ('completed', 'failed', 'cancelled')
		  AND NOT cleared
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("clear job: %w", err)
	}

	ok, err := oneRowAffected(res)
	if err != nil || ok {
		return ok, err
	}

	// Distinguish "missing" from "still active" for a useful error.
	job, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return false, getErr
	}
	if job.Status.Active() {
		return false, apperrors.Conflictf("job %q is %s; cancel it before clearing", id, job.Status)
	}
	return false, nil
}

// ClearAllFailed soft-deletes every failed job and returns the count.
func (r *JobRepo) ClearAllFailed(ctx context.Context) (int64, error) {
	now := r.timeProvider.Now().UTC()
	res, err := r.DB.ExecContext(ctx, `
		UPDATE import_jobs
		SET cleared = TRUE,
		    updated_at = $1
		WHERE status = 'failed' AND NOT cleared
	`, now)
	if err != nil {
		return 0, fmt.Errorf("clear failed jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns counts of non-cleared jobs in each state.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
	  SELECT
	    count(*) FILTER (WHERE status = 'pending')    AS pending,
	    count(*) FILTER (WHERE status = 'processing') AS processing,
	    count(*) FILTER (WHERE status = 'completed')  AS completed,
	    count(*) FILTER (WHERE status = 'failed')     AS failed,
	    count(*) FILTER (WHERE status = 'cancelled')  AS cancelled
	  FROM import_jobs
	  WHERE NOT cleared
	`).Scan(
		&s.Pending,
		&s.Processing,
		&s.Completed,
		&s.Failed,
		&s.Cancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return &s, nil
}

// GetBatch loads the stored record batch and field mapping for a job. The
// payloads can be large, so this is kept off the snapshot path.
func (r *JobRepo) GetBatch(ctx context.Context, id string) (*model.StoredBatch, error) {
	var (
		batch   model.StoredBatch
		records []byte
		mapping []byte
	)
	err := pgxutil.WithPgxConn(ctx, r.DB, func(pgxConn *pgx.Conn) error {
		return pgxConn.QueryRow(ctx, `
			SELECT id, list_name, records, field_mapping
			FROM import_jobs
			WHERE id = $1
		`, id).Scan(&batch.JobID, &batch.ListName, &records, &mapping)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}

	if err := json.Unmarshal(records, &batch.Records); err != nil {
		return nil, fmt.Errorf("unmarshal stored records: %w", err)
	}
	if len(mapping) > 0 {
		if err := json.Unmarshal(mapping, &batch.FieldMapping); err != nil {
			return nil, fmt.Errorf("unmarshal stored field mapping: %w", err)
		}
	}
	return &batch, nil
}

func oneRowAffected(res sql.Result) (bool, error) {
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// collectJobFromRows collects a single job from pgx rows.
func collectJobFromRows(rows pgx.Rows) (*model.ImportJob, error) {
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	job, err := scanJobFromRow(rows)
	if err != nil {
		return nil, err
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return job, nil
}

type jobRowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	failedAtRecord sql.NullInt64
	errorMessage   sql.NullString
	recoveryInfo   []byte
}

func (d *jobRowData) scanInto(scanner jobRowScanner, job *model.ImportJob) error {
	return scanner.Scan(
		&job.ID,
		&job.ListName,
		&job.Status,
		&job.Phase,
		&job.TotalRecords,
		&job.ProcessedRecords,
		&job.ChunksTotal,
		&job.ChunksCompleted,
		&job.ProcessingMethod,
		&job.RecordsPerSecond,
		&d.failedAtRecord,
		&d.errorMessage,
		&d.recoveryInfo,
		&job.Cleared,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
}

func (d *jobRowData) apply(job *model.ImportJob) error {
	if d.failedAtRecord.Valid {
		v := d.failedAtRecord.Int64
		job.FailedAtRecord = &v
	}
	if d.errorMessage.Valid {
		s := d.errorMessage.String
		job.ErrorMessage = &s
	}
	if len(d.recoveryInfo) > 0 {
		var ri model.RecoveryInfo
		if err := json.Unmarshal(d.recoveryInfo, &ri); err != nil {
			return fmt.Errorf("unmarshal recovery info: %w", err)
		}
		job.RecoveryInfo = &ri
	}
	return nil
}

func scanJobFromRow(scanner jobRowScanner) (*model.ImportJob, error) {
	job := &model.ImportJob{}
	var data jobRowData
	if err := data.scanInto(scanner, job); err != nil {
		return nil, err
	}
	if err := data.apply(job); err != nil {
		return nil, err
	}
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	return job, nil
}
