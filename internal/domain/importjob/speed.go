package importjob

import (
	"sync"
	"time"
)

// DefaultSpeedWindow is the trailing window length for the live import rate.
const DefaultSpeedWindow = 30 * time.Second

// speedSample is one (records, elapsed) observation stamped with when it was
// taken.
type speedSample struct {
	at      time.Time
	records int64
	elapsed time.Duration
}

// SpeedWindow computes records_per_second over a trailing window rather than
// as a lifetime average, so the published rate drops toward zero when a job
// stalls instead of coasting on early throughput. It is safe for concurrent
// use by parallel chunk executions.
type SpeedWindow struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	samples []speedSample
}

// NewSpeedWindow constructs a SpeedWindow with the given trailing window,
// defaulting a non-positive value.
func NewSpeedWindow(window time.Duration) *SpeedWindow {
	if window <= 0 {
		window = DefaultSpeedWindow
	}
	return &SpeedWindow{window: window, now: time.Now}
}

// Observe records that `records` records completed over `elapsed` of work.
func (w *SpeedWindow) Observe(records int64, elapsed time.Duration) {
	if records < 0 || elapsed < 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = append(w.samples, speedSample{at: w.now(), records: records, elapsed: elapsed})
	w.prune(w.now())
}

// Rate returns sum(records)/sum(elapsed) over samples still inside the
// trailing window, or 0 when the window is empty.
func (w *SpeedWindow) Rate() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.now())

	var records int64
	var elapsed time.Duration
	for _, s := range w.samples {
		records += s.records
		elapsed += s.elapsed
	}
	if elapsed <= 0 {
		return 0
	}
	return float64(records) / elapsed.Seconds()
}

// prune drops samples older than the window. Caller holds the lock.
func (w *SpeedWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	kept := w.samples[:0]
	for _, s := range w.samples {
		if s.at.After(cutoff) {
			kept = append(kept, s)
		}
	}
	w.samples = kept
}
