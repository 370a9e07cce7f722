package importjob

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicyDelay(t *testing.T) {
	p := NewRetryPolicy(3, 2*time.Second)

	assert.Zero(t, p.Delay(1))
	assert.Equal(t, 2*time.Second, p.Delay(2))
	assert.Equal(t, 4*time.Second, p.Delay(3))
	assert.Equal(t, 8*time.Second, p.Delay(4))
}

func TestRetryPolicyDelayIsCapped(t *testing.T) {
	p := NewRetryPolicy(10, time.Second)
	assert.Equal(t, p.Delay(7), p.Delay(50))
}

func TestNewRetryPolicyDefaults(t *testing.T) {
	p := NewRetryPolicy(0, 0)
	assert.Equal(t, DefaultChunkAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultRetryBackoff, p.Backoff)
}

func TestChunkErrorClassification(t *testing.T) {
	base := errors.New("destination write timed out")

	retryable := RetryableChunkError(base)
	assert.True(t, IsRetryableChunkError(retryable))
	assert.ErrorIs(t, retryable, base)

	fatal := FatalChunkError(base)
	assert.False(t, IsRetryableChunkError(fatal))
	assert.ErrorIs(t, fatal, base)

	// Wrapping preserves the classification.
	wrapped := fmt.Errorf("chunk 3: %w", retryable)
	assert.True(t, IsRetryableChunkError(wrapped))

	assert.False(t, IsRetryableChunkError(base), "unclassified errors are fatal")
	assert.False(t, IsRetryableChunkError(nil))
	assert.NoError(t, RetryableChunkError(nil))
	assert.NoError(t, FatalChunkError(nil))
}
