package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server with the in-process worker pool.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeSupervisor runs the periodic job supervisor sweep.
	ServiceModeSupervisor ServiceMode = "supervisor"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeSupervisor,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	parts := strings.Split(servicesStr, ",")
	for _, part := range parts {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeSupervisor:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, supervisor)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// ImporterConfig contains import execution configuration: the inline
// threshold, chunk geometry, worker pool limits, and the chunk retry policy.
type ImporterConfig struct {
	// InlineThreshold is the largest batch processed synchronously
	// within the create request. Larger batches become background jobs.
	InlineThreshold int `env:"IMPORTER_INLINE_THRESHOLD" envDefault:"10000"`

	// ChunkSize is the record count per background chunk.
	ChunkSize int `env:"IMPORTER_CHUNK_SIZE" envDefault:"50000"`

	// PerJobConcurrency is the number of chunks one job executes in parallel.
	PerJobConcurrency int `env:"IMPORTER_PER_JOB_CONCURRENCY" envDefault:"4"`

	// GlobalConcurrency caps chunk executions across all jobs.
	GlobalConcurrency int `env:"IMPORTER_GLOBAL_CONCURRENCY" envDefault:"16"`

	// ChunkTimeout is the wall-clock limit on one chunk execution.
	// A timed-out chunk counts as a retryable failure.
	ChunkTimeout time.Duration `env:"IMPORTER_CHUNK_TIMEOUT" envDefault:"5m"`

	// RetryAttempts is the attempt limit for one chunk before its error
	// fails the whole job.
	RetryAttempts int `env:"IMPORTER_RETRY_ATTEMPTS" envDefault:"3"`

	// RetryBackoff is the base delay between chunk attempts.
	RetryBackoff time.Duration `env:"IMPORTER_RETRY_BACKOFF" envDefault:"2s"`

	// SubBatchSize is the record count per destination upsert statement.
	// Workers check for cancellation between sub-batches.
	SubBatchSize int `env:"IMPORTER_SUB_BATCH_SIZE" envDefault:"500"`

	// SpeedWindow is the trailing window for records_per_second.
	SpeedWindow time.Duration `env:"IMPORTER_SPEED_WINDOW" envDefault:"30s"`
}

// Sanitize applies guardrails to importer configuration values.
func (c *ImporterConfig) Sanitize() {
	if c.InlineThreshold < 1 {
		c.InlineThreshold = 10_000
	}
	if c.ChunkSize < 1 {
		c.ChunkSize = 50_000
	}
	if c.PerJobConcurrency < 1 {
		c.PerJobConcurrency = 1
	}
	if c.GlobalConcurrency < c.PerJobConcurrency {
		c.GlobalConcurrency = c.PerJobConcurrency
	}
	if c.ChunkTimeout < 10*time.Second {
		c.ChunkTimeout = 10 * time.Second
	}
	if c.RetryAttempts < 1 {
		c.RetryAttempts = 1
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2 * time.Second
	}
	if c.SubBatchSize < 1 {
		c.SubBatchSize = 500
	}
	if c.SubBatchSize > 5000 {
		c.SubBatchSize = 5000
	}
	if c.SpeedWindow <= 0 {
		c.SpeedWindow = 30 * time.Second
	}
}

// SupervisorConfig contains job supervisor service configuration.
type SupervisorConfig struct {
	// Interval is the supervisor sweep interval.
	Interval time.Duration `env:"SUPERVISOR_INTERVAL" envDefault:"1m"`

	// StuckThreshold is how long a processing job may stay silent with
	// zero progress before the supervisor fails it as stalled.
	StuckThreshold time.Duration `env:"SUPERVISOR_STUCK_THRESHOLD" envDefault:"20m"`

	// SpeedStaleAfter is how long after the last update a processing
	// job's records_per_second is zeroed so snapshots never show a live
	// rate for a silent job.
	SpeedStaleAfter time.Duration `env:"SUPERVISOR_SPEED_STALE_AFTER" envDefault:"2m"`

	// ClearedMaxAge is the retention for soft-cleared job rows before
	// the sweep deletes them permanently.
	ClearedMaxAge time.Duration `env:"SUPERVISOR_CLEARED_MAX_AGE" envDefault:"168h"` // 7 days

	// BatchSize is the maximum number of rows to process per sweep operation.
	// Batching prevents long locks and I/O spikes on large tables.
	BatchSize int `env:"SUPERVISOR_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to supervisor configuration values.
func (c *SupervisorConfig) Sanitize() {
	// Enforce minimum intervals to prevent excessive database load
	if c.Interval < 10*time.Second {
		c.Interval = 10 * time.Second
	}
	if c.StuckThreshold < time.Minute {
		c.StuckThreshold = time.Minute
	}
	if c.SpeedStaleAfter < 30*time.Second {
		c.SpeedStaleAfter = 30 * time.Second
	}
	if c.ClearedMaxAge < time.Hour {
		c.ClearedMaxAge = time.Hour
	}

	if c.BatchSize < 1 {
		c.BatchSize = 1
	}
	if c.BatchSize > 10000 {
		c.BatchSize = 10000
	}
}
