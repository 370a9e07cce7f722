// Package metrics provides standardised metric emission for import job
// lifecycle events and supervisor sweeps.
package metrics

import (
	"time"

	obserrors "github.com/lettermill/import-api/internal/observability/errors"
	"github.com/lettermill/import-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// ImportMetric captures details about an import job lifecycle event.
type ImportMetric struct {
	// Transition is the lifecycle event: created, started, completed,
	// failed, cancelled, cleared, retried, stalled.
	Transition string
	// Method tags inline vs chunked vs chunked+parallel execution.
	Method   string
	Result   string
	Records  int64
	Duration time.Duration
	Err      error
}

// EmitImportLifecycle emits standardised import lifecycle metrics.
func EmitImportLifecycle(sink statsd.Sink, in ImportMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Method != "" {
		tags["method"] = in.Method
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("import.transition", 1, tags)

	if in.Records > 0 {
		sink.Count("import.records", in.Records, CloneTags(tags))
	}
	if in.Duration > 0 {
		sink.Timing("import.duration", in.Duration, CloneTags(tags))
	}
}

// SweepMetric captures the outcome of one supervisor sweep step.
type SweepMetric struct {
	// Step is the sweep name: fail_stalled, zero_stale_speeds, delete_cleared.
	Step     string
	Rows     int64
	Duration time.Duration
	Err      error
}

// EmitSupervisorSweep emits metrics for one supervisor sweep step.
func EmitSupervisorSweep(sink statsd.Sink, in SweepMetric) {
	if sink == nil {
		return
	}

	result := ResultNoop
	switch {
	case in.Err != nil:
		result = ResultError
	case in.Rows > 0:
		result = ResultSuccess
	}

	tags := map[string]string{
		"step":   in.Step,
		"result": result,
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("supervisor.sweep", 1, tags)
	if in.Rows > 0 {
		sink.Count("supervisor.rows", in.Rows, CloneTags(tags))
	}
	if in.Duration > 0 {
		sink.Timing("supervisor.duration", in.Duration, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
