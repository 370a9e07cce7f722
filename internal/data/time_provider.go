package data

import "time"

// TimeProvider abstracts the clock so stall detection and retention queries
// can be tested against a controlled time.
type TimeProvider interface {
	Now() time.Time
}

// RealTimeProvider reads the system clock.
type RealTimeProvider struct{}

// Now returns the current system time.
func (r *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// FixedTimeProvider is a settable clock for tests.
type FixedTimeProvider struct {
	fixed time.Time
}

// NewFixedTimeProvider returns a provider pinned to t.
func NewFixedTimeProvider(t time.Time) *FixedTimeProvider {
	return &FixedTimeProvider{fixed: t}
}

// Now returns the pinned time.
func (f *FixedTimeProvider) Now() time.Time {
	return f.fixed
}

// SetTime pins the provider to t.
func (f *FixedTimeProvider) SetTime(t time.Time) {
	f.fixed = t
}

// AddTime advances the pinned time by d.
func (f *FixedTimeProvider) AddTime(d time.Duration) {
	f.fixed = f.fixed.Add(d)
}
