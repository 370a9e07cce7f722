// Package model defines the core data types and structures used throughout the lettermill import system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the current status of an import job.
type JobStatus string

// JobPhase is the internal processing phase of a job. It is distinct from the
// status: a job can sit in `processing` for a long time while the phase tells
// the supervisor whether work ever actually started.
type JobPhase string

// ProcessingMethod is a descriptive tag shown to polling clients. It drives
// display only, never behavior.
type ProcessingMethod string

const (
	// JobStatusPending indicates a job is queued and waiting for a worker.
	JobStatusPending JobStatus = "pending"
	// JobStatusProcessing indicates a worker owns the job and is executing chunks.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates all chunks finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job failed, either from a chunk error or a stall verdict.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates the job was cancelled by an operator.
	JobStatusCancelled JobStatus = "cancelled"

	// PhaseInitializing is set at creation, before any chunk has been claimed.
	PhaseInitializing JobPhase = "initializing"
	// PhaseChunking is set once a worker claims the job and enumerates chunks.
	PhaseChunking JobPhase = "chunking"
	// PhaseImporting is set once the first chunk execution begins.
	PhaseImporting JobPhase = "importing"
	// PhaseFinalizing is set after the last chunk completes, before the completed transition.
	PhaseFinalizing JobPhase = "finalizing"

	// MethodInline marks small batches processed synchronously within the request.
	MethodInline ProcessingMethod = "inline"
	// MethodChunked marks background jobs processed one chunk at a time.
	MethodChunked ProcessingMethod = "chunked"
	// MethodChunkedParallel marks background jobs with concurrent chunk execution.
	MethodChunkedParallel ProcessingMethod = "chunked+parallel"
)

// ErrJobNotFound is returned when a job is not found in the registry.
var ErrJobNotFound = errors.New("import job not found")

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusPending || s == JobStatusProcessing || s == JobStatusCompleted ||
		s == JobStatusFailed || s == JobStatusCancelled
}

// Terminal returns true for statuses that permit no further mutation.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Active returns true for statuses that block a new job on the same list.
func (s JobStatus) Active() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus to allow env and query parsing.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobStatus: %q", v)
	}
	*s = v
	return nil
}

// Valid returns true if the JobPhase is valid.
func (p JobPhase) Valid() bool {
	return p == PhaseInitializing || p == PhaseChunking || p == PhaseImporting || p == PhaseFinalizing
}

// RecoveryInfo is a structured hint attached to a failed job describing
// whether and how a retry can proceed.
type RecoveryInfo struct {
	// RetrySafe reports whether replaying records is safe. The destination
	// upsert is keyed by email, so replay is idempotent and this is true
	// unless the failure suggests the destination itself is broken.
	RetrySafe bool `json:"retry_safe"`
	// ResumeFromRecord is the offset a retry should re-chunk from when the
	// upsert is idempotent. Zero means the whole batch must be replayed.
	ResumeFromRecord int64 `json:"resume_from_record"`
	// EstimatedRecoveryMinutes is a rough operator-facing estimate.
	EstimatedRecoveryMinutes int `json:"estimated_recovery_minutes"`
}

// ImportJob is the durable registry record for one tracked bulk import.
//
// Counter invariants: 0 <= ProcessedRecords <= TotalRecords, ProcessedRecords
// never decreases, and ChunksCompleted <= ChunksTotal. Only the owning worker
// mutates counters; the supervisor mutates status fields only.
type ImportJob struct {
	ID               string           `json:"job_id"                     db:"id"`
	ListName         string           `json:"list_name"                  db:"list_name"`
	Status           JobStatus        `json:"status"                     db:"status"`
	Phase            JobPhase         `json:"phase"                      db:"phase"`
	TotalRecords     int64            `json:"total_records"              db:"total_records"`
	ProcessedRecords int64            `json:"processed_records"          db:"processed_records"`
	ChunksTotal      int              `json:"chunks_total"               db:"chunks_total"`
	ChunksCompleted  int              `json:"chunks_completed"           db:"chunks_completed"`
	ProcessingMethod ProcessingMethod `json:"processing_method"          db:"processing_method"`
	RecordsPerSecond float64          `json:"records_per_second"         db:"records_per_second"`
	FailedAtRecord   *int64           `json:"failed_at_record,omitempty" db:"failed_at_record"`
	ErrorMessage     *string          `json:"error_message,omitempty"    db:"error_message"`
	RecoveryInfo     *RecoveryInfo    `json:"recovery_info,omitempty"    db:"recovery_info"`
	Cleared          bool             `json:"-"                          db:"cleared"`
	CreatedAt        time.Time        `json:"created_at"                 db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"                 db:"updated_at"`
}

// ImportSummary is the final result returned directly for inline imports.
type ImportSummary struct {
	JobID            string           `json:"job_id"`
	ListName         string           `json:"list_name"`
	Status           JobStatus        `json:"status"`
	ProcessingMethod ProcessingMethod `json:"processing_method"`
	TotalRecords     int64            `json:"total_records"`
	ProcessedRecords int64            `json:"processed_records"`
	Succeeded        int64            `json:"succeeded"`
	Skipped          int64            `json:"skipped"`
	Errored          int64            `json:"errored"`
}

// ImportOutcome is the response of a create request: either a final inline
// summary or a job snapshot the caller should poll.
type ImportOutcome struct {
	Inline  *ImportSummary `json:"inline_result,omitempty"`
	Job     *ImportJob     `json:"job,omitempty"`
	Polling bool           `json:"polling"`
}

// JobStats represents counts of jobs in each state.
type JobStats struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// JobFilter narrows getJobs results. Zero value means no filtering.
type JobFilter struct {
	ListName string
	Status   JobStatus
}

// StoredBatch is the persisted record batch belonging to a job, loaded back
// for remainder retries.
type StoredBatch struct {
	JobID        string
	ListName     string
	Records      []Record
	FieldMapping FieldMapping
}

// MarshalRecoveryInfo serialises recovery info for jsonb storage.
func MarshalRecoveryInfo(ri *RecoveryInfo) ([]byte, error) {
	if ri == nil {
		return nil, nil
	}
	b, err := json.Marshal(ri)
	if err != nil {
		return nil, fmt.Errorf("marshal recovery info: %w", err)
	}
	return b, nil
}
