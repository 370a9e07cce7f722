package importjob

import "sync"

// ResumeLedger tracks how far each chunk of a plan has durably written.
// Chunks run in parallel and finish out of order, so the job-wide processed
// count is not a valid resume point: a later chunk may have completed while
// an earlier one failed, leaving a gap below the count. The safe resume
// offset is the end of the longest contiguous run of written records
// starting at record zero.
type ResumeLedger struct {
	mu      sync.Mutex
	chunks  []Chunk
	cursors []int
}

// NewResumeLedger builds a ledger over the plan's chunks with every cursor
// at its chunk's start.
func NewResumeLedger(plan Plan) *ResumeLedger {
	cursors := make([]int, len(plan.Chunks))
	for i, c := range plan.Chunks {
		cursors[i] = c.Start
	}
	return &ResumeLedger{chunks: plan.Chunks, cursors: cursors}
}

// Advance records that the chunk at index has written and reported every
// record up to cursor. Cursors never move backwards.
func (l *ResumeLedger) Advance(index, cursor int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 || index >= len(l.cursors) {
		return
	}
	if cursor > l.cursors[index] {
		l.cursors[index] = cursor
	}
}

// SafeResume returns the first record not known to be written: everything
// below the offset was upserted with no gaps. Records written by chunks past
// the first unfinished one get replayed on a retry; the upsert is
// idempotent, so the replay only costs time.
func (l *ResumeLedger) SafeResume() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range l.chunks {
		if l.cursors[i] < c.End {
			return int64(l.cursors[i])
		}
	}
	if n := len(l.chunks); n > 0 {
		return int64(l.chunks[n-1].End)
	}
	return 0
}
