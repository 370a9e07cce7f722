package importjob

import (
	"errors"
	"time"
)

const (
	// DefaultChunkAttempts is the attempt limit for one chunk before its
	// error fails the whole job.
	DefaultChunkAttempts = 3
	// DefaultRetryBackoff is the base delay between chunk attempts; the
	// delay doubles on each subsequent attempt.
	DefaultRetryBackoff = 2 * time.Second
	// maxBackoffDoublings caps the exponential growth of the retry delay.
	maxBackoffDoublings = 5
)

// RetryPolicy governs chunk-level retries. Job-level retries are never
// automatic: they require an explicit retry call that creates a new job.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// NewRetryPolicy constructs a policy, defaulting non-positive fields.
func NewRetryPolicy(maxAttempts int, backoff time.Duration) RetryPolicy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultChunkAttempts
	}
	if backoff <= 0 {
		backoff = DefaultRetryBackoff
	}
	return RetryPolicy{MaxAttempts: maxAttempts, Backoff: backoff}
}

// Delay returns the wait before the given attempt (1-based). Attempt 1 has no
// delay; later attempts back off exponentially.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	doublings := attempt - 2
	if doublings > maxBackoffDoublings {
		doublings = maxBackoffDoublings
	}
	return p.Backoff << doublings
}

// chunkError wraps a chunk execution error with its retry classification.
type chunkError struct {
	err       error
	retryable bool
}

func (e *chunkError) Error() string { return e.err.Error() }
func (e *chunkError) Unwrap() error { return e.err }

// RetryableChunkError marks a transient chunk failure (timeout, connection
// loss) eligible for another attempt under the retry policy.
func RetryableChunkError(err error) error {
	if err == nil {
		return nil
	}
	return &chunkError{err: err, retryable: true}
}

// FatalChunkError marks a non-retryable chunk failure that fails the whole
// job immediately.
func FatalChunkError(err error) error {
	if err == nil {
		return nil
	}
	return &chunkError{err: err, retryable: false}
}

// IsRetryableChunkError reports whether the error was marked retryable.
// Unclassified errors are treated as fatal.
func IsRetryableChunkError(err error) bool {
	var ce *chunkError
	return errors.As(err, &ce) && ce.retryable
}
