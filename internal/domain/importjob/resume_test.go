package importjob

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func threeChunkLedger() *ResumeLedger {
	return NewResumeLedger(Plan{
		Mode: ModeBackground,
		Chunks: []Chunk{
			{Index: 0, Start: 0, End: 4},
			{Index: 1, Start: 4, End: 8},
			{Index: 2, Start: 8, End: 10},
		},
	})
}

func TestResumeLedgerStartsAtZero(t *testing.T) {
	l := threeChunkLedger()
	assert.Zero(t, l.SafeResume())
}

func TestResumeLedgerIgnoresOutOfOrderCompletion(t *testing.T) {
	l := threeChunkLedger()

	// The last chunk finishing first leaves a gap, so nothing is resumable.
	l.Advance(2, 10)
	assert.Zero(t, l.SafeResume())

	// Closing the gap from the front extends the prefix past the chunks
	// already done further along.
	l.Advance(0, 4)
	assert.Equal(t, int64(4), l.SafeResume())
	l.Advance(1, 8)
	assert.Equal(t, int64(10), l.SafeResume())
}

func TestResumeLedgerCountsPartialChunkProgress(t *testing.T) {
	l := threeChunkLedger()
	l.Advance(0, 4)
	l.Advance(1, 6)
	assert.Equal(t, int64(6), l.SafeResume())
}

func TestResumeLedgerCursorNeverRegresses(t *testing.T) {
	l := threeChunkLedger()
	l.Advance(0, 4)
	l.Advance(0, 2)
	assert.Equal(t, int64(4), l.SafeResume())
}

func TestResumeLedgerEmptyPlan(t *testing.T) {
	l := NewResumeLedger(Plan{})
	assert.Zero(t, l.SafeResume())
}
