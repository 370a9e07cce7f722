package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lettermill/import-api/internal/domain/model"
)

// SnapshotCacheService caches job listing snapshots for the polling path.
// Dashboards poll GET /api/imports every few seconds; a short TTL absorbs
// that read load without letting snapshots go meaningfully stale.
type SnapshotCacheService struct {
	cache CacheRepository
	ttl   time.Duration
}

// SnapshotCacheConfig holds configuration for snapshot caching.
type SnapshotCacheConfig struct {
	TTL time.Duration `json:"ttl"`
}

// SnapshotCacheServiceOptions bundles dependencies for NewSnapshotCacheService.
type SnapshotCacheServiceOptions struct {
	Cache  CacheRepository
	Config SnapshotCacheConfig
}

// DefaultSnapshotCacheConfig returns a SnapshotCacheConfig with sensible defaults.
func DefaultSnapshotCacheConfig() SnapshotCacheConfig {
	return SnapshotCacheConfig{
		TTL: 2 * time.Second,
	}
}

// NewSnapshotCacheService creates a new SnapshotCacheService.
func NewSnapshotCacheService(opts SnapshotCacheServiceOptions) *SnapshotCacheService {
	ttl := opts.Config.TTL
	if ttl <= 0 {
		ttl = DefaultSnapshotCacheConfig().TTL
	}
	return &SnapshotCacheService{
		cache: opts.Cache,
		ttl:   ttl,
	}
}

// GetJobList returns a cached job listing for the filter, or (nil, false)
// on a miss. Cache errors degrade to a miss so the database stays the
// source of truth when Redis is unavailable.
func (s *SnapshotCacheService) GetJobList(ctx context.Context, filter model.JobFilter) ([]*model.ImportJob, bool) {
	if s == nil || s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, s.listKey(filter))
	if err != nil || len(raw) == 0 {
		return nil, false
	}

	var jobs []*model.ImportJob
	if err := json.Unmarshal(raw, &jobs); err != nil {
		return nil, false
	}
	return jobs, true
}

// SetJobList caches a job listing for the filter. Failures are ignored;
// the next poll simply hits the database.
func (s *SnapshotCacheService) SetJobList(ctx context.Context, filter model.JobFilter, jobs []*model.ImportJob) {
	if s == nil || s.cache == nil {
		return
	}

	raw, err := json.Marshal(jobs)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, s.listKey(filter), raw, s.ttl)
}

// InvalidateJobLists drops the unfiltered listing after a mutation so the
// next poll reflects it immediately. Filtered variants age out via TTL.
func (s *SnapshotCacheService) InvalidateJobLists(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	_, _ = s.cache.Delete(ctx, s.listKey(model.JobFilter{}))
}

// listKey generates a cache key for a job listing filter.
func (s *SnapshotCacheService) listKey(filter model.JobFilter) string {
	key := "imports:list"
	if filter.ListName != "" {
		key += ":list=" + filter.ListName
	}
	if filter.Status != "" {
		key += ":status=" + string(filter.Status)
	}
	return key
}
