package data

import (
	"database/sql"
	"log/slog"
)

// RepoConfig holds configuration options for the job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// JobRepo provides database operations for import job management.
type JobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewJobRepo creates a new JobRepo instance with the given database connection and configuration.
func NewJobRepo(db *sql.DB, cfg RepoConfig) *JobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}

	return &JobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

// jobColumns lists the import_jobs columns returned by snapshot queries.
// The records and field_mapping payloads are deliberately excluded; they
// are loaded only via GetBatch.
const jobColumns = `
  id,
  list_name,
  status,
  phase,
  total_records,
  processed_records,
  chunks_total,
  chunks_completed,
  processing_method,
  records_per_second,
  failed_at_record,
  error_message,
  recovery_info,
  cleared,
  created_at,
  updated_at
`
