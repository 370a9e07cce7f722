// Package importjob holds the pure domain logic of the bulk import job
// manager: chunk planning, the stuck-job heuristic, the trailing speed
// window, chunk retry policy, and field-mapping resolution. Nothing in this
// package touches the network, the database, or timers.
package importjob

import (
	"fmt"

	"github.com/lettermill/import-api/internal/domain/model"
)

const (
	// DefaultInlineThreshold is the batch size above which imports become
	// background jobs.
	DefaultInlineThreshold = 10_000
	// DefaultChunkSize is the record count per chunk for background jobs.
	DefaultChunkSize = 50_000
)

// Chunk is a contiguous sub-range of a job's records processed as one unit of
// work. Chunks are ephemeral: only the owning job's aggregate counters
// survive them.
type Chunk struct {
	Index int
	// Start and End delimit the half-open record range [Start, End).
	Start int
	End   int
}

// Size returns the number of records the chunk covers.
func (c Chunk) Size() int {
	return c.End - c.Start
}

// Mode selects the processing path for a batch.
type Mode string

const (
	// ModeInline processes the batch synchronously within the request.
	ModeInline Mode = "inline"
	// ModeBackground creates a job and hands chunks to the worker pool.
	ModeBackground Mode = "background"
)

// Plan is the chunker's output: an ordered chunk sequence covering the batch
// with no gaps or overlaps, plus the chosen processing mode.
type Plan struct {
	Mode   Mode
	Chunks []Chunk
}

// ChunkerConfig holds chunking thresholds.
type ChunkerConfig struct {
	// InlineThreshold is the largest batch processed synchronously.
	InlineThreshold int
	// ChunkSize is the record count per background chunk.
	ChunkSize int
}

// Sanitize applies defaults to zero or out-of-range values.
func (c *ChunkerConfig) Sanitize() {
	if c.InlineThreshold <= 0 {
		c.InlineThreshold = DefaultInlineThreshold
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = DefaultChunkSize
	}
}

// Chunker splits record batches into chunks and decides the processing mode.
type Chunker struct {
	cfg ChunkerConfig
}

// NewChunker constructs a Chunker, sanitizing the config.
func NewChunker(cfg ChunkerConfig) *Chunker {
	cfg.Sanitize()
	return &Chunker{cfg: cfg}
}

// Plan produces the chunk plan for a batch of n records. The caller validates
// n > 0 before planning; a non-positive n is a programming error.
func (c *Chunker) Plan(n int) (Plan, error) {
	if n <= 0 {
		return Plan{}, fmt.Errorf("cannot plan chunks for %d records", n)
	}

	if n <= c.cfg.InlineThreshold {
		return Plan{
			Mode:   ModeInline,
			Chunks: []Chunk{{Index: 0, Start: 0, End: n}},
		}, nil
	}

	chunks := make([]Chunk, 0, (n+c.cfg.ChunkSize-1)/c.cfg.ChunkSize)
	for start := 0; start < n; start += c.cfg.ChunkSize {
		end := start + c.cfg.ChunkSize
		if end > n {
			end = n
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Start: start, End: end})
	}
	return Plan{Mode: ModeBackground, Chunks: chunks}, nil
}

// MethodFor returns the display tag for a plan executed with the given
// per-job worker count.
func MethodFor(p Plan, workers int) model.ProcessingMethod {
	if p.Mode == ModeInline {
		return model.MethodInline
	}
	if len(p.Chunks) > 1 && workers > 1 {
		return model.MethodChunkedParallel
	}
	return model.MethodChunked
}
