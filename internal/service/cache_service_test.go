package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/fleet-mx-api/internal/models"
	appErrors "github.com/noah-isme/fleet-mx-api/pkg/errors"
)

type cacheRepoStub struct {
	values   map[string][]models.MaintenanceRecord
	getErr   error
	setTTL   time.Duration
	patterns []string
}

func (c *cacheRepoStub) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	value, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*[]models.MaintenanceRecord)) = value
	return nil
}

func (c *cacheRepoStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.values == nil {
		c.values = map[string][]models.MaintenanceRecord{}
	}
	c.values[key] = value.([]models.MaintenanceRecord)
	c.setTTL = ttl
	return nil
}

func (c *cacheRepoStub) DeleteByPattern(ctx context.Context, pattern string) error {
	c.patterns = append(c.patterns, pattern)
	return nil
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	repo := &cacheRepoStub{}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	var dest []models.MaintenanceRecord

	hit, err := svc.Get(ctx, "mx:schedule:ac-1:20250310:20250315", &dest)
	require.NoError(t, err)
	assert.False(t, hit)

	records := []models.MaintenanceRecord{testRecord("d-11", models.TierDaily, day(11), 180)}
	require.NoError(t, svc.Set(ctx, "mx:schedule:ac-1:20250310:20250315", records, 0))
	assert.Equal(t, time.Minute, repo.setTTL)

	hit, err = svc.Get(ctx, "mx:schedule:ac-1:20250310:20250315", &dest)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, records, dest)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("miss")))
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := &cacheRepoStub{getErr: errors.New("connection refused")}
	svc := NewCacheService(repo, nil, 0, nil, true)
	var dest []models.MaintenanceRecord

	hit, err := svc.Get(context.Background(), "key", &dest)
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &cacheRepoStub{}
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), false)
	ctx := context.Background()

	assert.False(t, svc.Enabled())
	require.NoError(t, svc.Set(ctx, "key", []models.MaintenanceRecord{}, time.Minute))
	require.NoError(t, svc.Invalidate(ctx, "mx:schedule:ac-1:*"))
	assert.Empty(t, repo.values)
	assert.Empty(t, repo.patterns)

	var nilService *CacheService
	assert.False(t, nilService.Enabled())
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := &cacheRepoStub{}
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	require.NoError(t, svc.Invalidate(context.Background(), scheduleCachePattern("ac-1")))
	assert.Equal(t, []string{"mx:schedule:ac-1:*"}, repo.patterns)
}
