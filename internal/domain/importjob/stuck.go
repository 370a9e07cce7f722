package importjob

import (
	"fmt"
	"time"

	"github.com/lettermill/import-api/internal/domain/model"
)

// DefaultStuckThreshold is how long a processing job may stay silent before
// the supervisor considers it for a stuck verdict.
const DefaultStuckThreshold = 20 * time.Minute

// StuckSignals carries everything the stuck heuristic looks at. It is a pure
// projection of one job plus the sweep time; building it is the caller's job
// so the verdict itself needs no clock, network, or storage.
type StuckSignals struct {
	Status           model.JobStatus
	Phase            model.JobPhase
	ProcessedRecords int64
	RecordsPerSecond float64
	// Age is now minus the job's updated_at at sweep time.
	Age time.Duration
}

// StuckPolicy declares a processing job dead only when every liveness signal
// is absent at once. A naive "no update in N minutes" check flags large,
// legitimately slow chunks; requiring zero cumulative progress plus a long
// silence avoids that.
type StuckPolicy struct {
	Threshold time.Duration
}

// NewStuckPolicy constructs a policy, defaulting a non-positive threshold.
func NewStuckPolicy(threshold time.Duration) StuckPolicy {
	if threshold <= 0 {
		threshold = DefaultStuckThreshold
	}
	return StuckPolicy{Threshold: threshold}
}

// IsStuck returns true only when all five conditions hold:
//
//  1. no records ever completed,
//  2. no recent progress signal (rate is zero),
//  3. the job never left the initializing phase,
//  4. the job has been silent longer than the threshold,
//  5. the status is exactly processing.
//
// A pending job is never stuck (queueing delay is expected), and a job with
// any progress at all is presumed working even at zero current rate — it may
// simply be between chunks.
func (p StuckPolicy) IsStuck(s StuckSignals) bool {
	return s.ProcessedRecords == 0 &&
		s.RecordsPerSecond == 0 &&
		s.Phase == model.PhaseInitializing &&
		s.Age > p.Threshold &&
		s.Status == model.JobStatusProcessing
}

// StallMessage is the error message recorded on a job failed by a stuck
// verdict.
func (p StuckPolicy) StallMessage() string {
	return fmt.Sprintf("stalled: no progress for %s", p.Threshold)
}

// StallRecovery builds the recovery hint attached on a stuck failure. A
// stalled job never completed a record, so the retry replays from zero; the
// estimate is a coarse operator-facing figure derived from the batch size.
func StallRecovery(totalRecords int64) *model.RecoveryInfo {
	return &model.RecoveryInfo{
		RetrySafe:                true,
		ResumeFromRecord:         0,
		EstimatedRecoveryMinutes: estimateRecoveryMinutes(totalRecords),
	}
}

// FailureRecovery builds the recovery hint attached when a chunk error fails
// the job. resume must be a contiguous-prefix offset: every record below it
// was verifiably written, with no gaps left by chunks that finished ahead of
// a failed one. The upsert is idempotent, so a retry replays from there.
func FailureRecovery(resume, totalRecords int64, retrySafe bool) *model.RecoveryInfo {
	if !retrySafe {
		resume = 0
	}
	return &model.RecoveryInfo{
		RetrySafe:                retrySafe,
		ResumeFromRecord:         resume,
		EstimatedRecoveryMinutes: estimateRecoveryMinutes(totalRecords - resume),
	}
}

// estimateRecoveryMinutes assumes a conservative 1,000 records/sec replay
// rate and rounds up to a whole minute.
func estimateRecoveryMinutes(remaining int64) int {
	if remaining <= 0 {
		return 1
	}
	const replayPerMinute = 60_000
	minutes := (remaining + replayPerMinute - 1) / replayPerMinute
	return int(minutes)
}
