package importjob

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fixedClock lets tests drive the window's notion of now.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestWindow(window time.Duration) (*SpeedWindow, *fixedClock) {
	clock := &fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	w := NewSpeedWindow(window)
	w.now = clock.now
	return w, clock
}

func TestSpeedWindowEmptyRateIsZero(t *testing.T) {
	w, _ := newTestWindow(30 * time.Second)
	assert.Zero(t, w.Rate())
}

func TestSpeedWindowComputesWindowedRate(t *testing.T) {
	w, _ := newTestWindow(30 * time.Second)

	w.Observe(5_000, 5*time.Second)
	w.Observe(5_000, 5*time.Second)

	assert.InDelta(t, 1_000.0, w.Rate(), 0.001)
}

func TestSpeedWindowDropsOldSamples(t *testing.T) {
	w, clock := newTestWindow(30 * time.Second)

	// A blazing start that should not prop up the rate forever.
	w.Observe(100_000, 10*time.Second)
	clock.advance(31 * time.Second)

	assert.Zero(t, w.Rate(), "rate must fall to zero once the window empties")

	w.Observe(1_000, 2*time.Second)
	assert.InDelta(t, 500.0, w.Rate(), 0.001, "only fresh samples count")
}

func TestSpeedWindowIsResponsiveToSlowdown(t *testing.T) {
	w, clock := newTestWindow(30 * time.Second)

	w.Observe(60_000, 10*time.Second) // 6000 rps
	clock.advance(20 * time.Second)
	w.Observe(1_000, 10*time.Second) // slowdown

	fast := w.Rate()
	clock.advance(15 * time.Second) // first sample ages out

	slow := w.Rate()
	assert.Less(t, slow, fast, "rate must drop when early samples age out")
	assert.InDelta(t, 100.0, slow, 0.001)
}

func TestSpeedWindowIgnoresNegativeObservations(t *testing.T) {
	w, _ := newTestWindow(30 * time.Second)
	w.Observe(-5, time.Second)
	w.Observe(5, -time.Second)
	assert.Zero(t, w.Rate())
}

func TestSpeedWindowDefaultsWindow(t *testing.T) {
	w := NewSpeedWindow(0)
	assert.Equal(t, DefaultSpeedWindow, w.window)
}
