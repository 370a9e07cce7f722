package data

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettermill/import-api/internal/testutil"
)

func TestRedisCacheRepo_SetGetDelete(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "imports:list", []byte(`[{"job_id":"x"}]`), time.Minute))

	got, err := repo.Get(ctx, "imports:list")
	require.NoError(t, err)
	assert.Equal(t, `[{"job_id":"x"}]`, string(got))

	deleted, err := repo.Delete(ctx, "imports:list")
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = repo.Get(ctx, "imports:list")
	require.NoError(t, err)
	assert.Nil(t, got, "missing key reads as nil, not an error")

	deleted, err = repo.Delete(ctx, "imports:list")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRedisCacheRepo_TTLExpiry(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "imports:list", []byte("snapshot"), 100*time.Millisecond))
	time.Sleep(200 * time.Millisecond)

	got, err := repo.Get(ctx, "imports:list")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCacheRepo_EmptyKeyRejected(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	repo := NewRedisCacheRepo(client)
	ctx := context.Background()

	assert.Error(t, repo.Set(ctx, "", []byte("x"), time.Minute))
	_, err := repo.Get(ctx, "")
	assert.Error(t, err)
	_, err = repo.Delete(ctx, "")
	assert.Error(t, err)
}

func TestRedisCacheRepo_Health(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer func() { _ = client.Close() }()

	repo := NewRedisCacheRepo(client)
	assert.NoError(t, repo.Health(context.Background()))
}
