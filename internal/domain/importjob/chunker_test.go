package importjob

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/import-api/internal/domain/model"
)

func TestChunkerPlanInline(t *testing.T) {
	c := NewChunker(ChunkerConfig{InlineThreshold: 10_000, ChunkSize: 50_000})

	plan, err := c.Plan(5)
	require.NoError(t, err)

	assert.Equal(t, ModeInline, plan.Mode)
	require.Len(t, plan.Chunks, 1)
	assert.Equal(t, 0, plan.Chunks[0].Start)
	assert.Equal(t, 5, plan.Chunks[0].End)
}

func TestChunkerPlanAtThresholdStaysInline(t *testing.T) {
	c := NewChunker(ChunkerConfig{InlineThreshold: 10_000, ChunkSize: 50_000})

	plan, err := c.Plan(10_000)
	require.NoError(t, err)
	assert.Equal(t, ModeInline, plan.Mode)
	require.Len(t, plan.Chunks, 1)
}

func TestChunkerPlanBackground(t *testing.T) {
	c := NewChunker(ChunkerConfig{InlineThreshold: 10_000, ChunkSize: 50_000})

	plan, err := c.Plan(200_000)
	require.NoError(t, err)

	assert.Equal(t, ModeBackground, plan.Mode)
	require.Len(t, plan.Chunks, 4)
	assert.Equal(t, 0, plan.Chunks[0].Start)
	assert.Equal(t, 50_000, plan.Chunks[0].End)
	assert.Equal(t, 150_000, plan.Chunks[3].Start)
	assert.Equal(t, 200_000, plan.Chunks[3].End)
}

func TestChunkerPlanRejectsEmptyBatch(t *testing.T) {
	c := NewChunker(ChunkerConfig{})

	_, err := c.Plan(0)
	assert.Error(t, err)

	_, err = c.Plan(-3)
	assert.Error(t, err)
}

// Chunk ranges must partition the batch: ordered, contiguous, no gaps or
// overlaps, sizes summing to the batch size.
func TestChunkerPlanPartitionsBatch(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		threshold := 1 + rng.Intn(5_000)
		chunkSize := 1 + rng.Intn(7_000)
		n := 1 + rng.Intn(100_000)

		c := NewChunker(ChunkerConfig{InlineThreshold: threshold, ChunkSize: chunkSize})
		plan, err := c.Plan(n)
		require.NoError(t, err)

		total := 0
		next := 0
		for idx, chunk := range plan.Chunks {
			assert.Equal(t, idx, chunk.Index)
			assert.Equal(t, next, chunk.Start, "chunks must be contiguous")
			assert.Greater(t, chunk.End, chunk.Start)
			total += chunk.Size()
			next = chunk.End
		}
		assert.Equal(t, n, total, "chunk sizes must sum to the batch size")
		assert.Equal(t, n, next, "last chunk must end at the batch size")
	}
}

func TestChunkerConfigSanitize(t *testing.T) {
	cfg := ChunkerConfig{}
	cfg.Sanitize()
	assert.Equal(t, DefaultInlineThreshold, cfg.InlineThreshold)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
}

func TestMethodFor(t *testing.T) {
	inline := Plan{Mode: ModeInline, Chunks: []Chunk{{End: 5}}}
	assert.Equal(t, model.MethodInline, MethodFor(inline, 4))

	single := Plan{Mode: ModeBackground, Chunks: []Chunk{{End: 20_000}}}
	assert.Equal(t, model.MethodChunked, MethodFor(single, 4))

	multi := Plan{Mode: ModeBackground, Chunks: []Chunk{{End: 50_000}, {Start: 50_000, End: 90_000}}}
	assert.Equal(t, model.MethodChunkedParallel, MethodFor(multi, 4))
	assert.Equal(t, model.MethodChunked, MethodFor(multi, 1))
}
