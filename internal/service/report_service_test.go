package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/thpt-conduct-api/internal/catalog"
	"github.com/noah-isme/thpt-conduct-api/internal/models"
	appErrors "github.com/noah-isme/thpt-conduct-api/pkg/errors"
)

// memSummaryCache is a JSON round-tripping cache double matching the redis
// repository's serialization behavior.
type memSummaryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	hits    int
}

func newMemSummaryCache() *memSummaryCache {
	return &memSummaryCache{entries: make(map[string][]byte)}
}

func (c *memSummaryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	c.hits++
	return json.Unmarshal(raw, dest)
}

func (c *memSummaryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	c.sets++
	return nil
}

func seedReportData(t *testing.T, store *memViolationStore) {
	t.Helper()
	day := localDate(2026, time.March, 9, 8, 0, 0)
	an := "Nguyễn Văn An"

	// 10A1: one medium (5) and one light (2) violation, total 7.
	seedViolation(t, store, "10A1", "Mất trật tự", models.TargetClass, nil, day)
	seedViolation(t, store, "10A1", "Không đồng phục", models.TargetStudent, &an, day.AddDate(0, 0, 1))
	// 10A10: one attendance record (3).
	seedViolation(t, store, "10A10", catalog.AbsenceExcusedType, models.TargetStudent, &an, day)
	// 10A2: one severe (10).
	seedViolation(t, store, "10A2", "Đánh nhau", models.TargetClass, nil, day)
}

func TestReportAggregateTotalsAndOrdering(t *testing.T) {
	store := newMemViolationStore()
	seedReportData(t, store)
	svc := NewReportService(store, nil, nil, 0, nil)

	from := localDate(2026, time.March, 9, 0, 0, 0)
	to := localDate(2026, time.March, 10, 23, 59, 59)
	summaries, cached, err := svc.Aggregate(context.Background(), from, to, nil)

	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, summaries, 3)

	// Numeric-aware class ordering: 10A2 before 10A10.
	assert.Equal(t, "10A1", summaries[0].ClassName)
	assert.Equal(t, "10A2", summaries[1].ClassName)
	assert.Equal(t, "10A10", summaries[2].ClassName)

	assert.Equal(t, 7, summaries[0].TotalPoints)
	assert.Equal(t, 10, summaries[1].TotalPoints)
	assert.Equal(t, 3, summaries[2].TotalPoints)
	require.Len(t, summaries[0].Violations, 2)
	// Per-class itemization is date-ordered.
	assert.Equal(t, "Mất trật tự", summaries[0].Violations[0].ViolationType)
}

func TestReportAggregateZeroFillsRequestedClasses(t *testing.T) {
	store := newMemViolationStore()
	seedReportData(t, store)
	svc := NewReportService(store, nil, nil, 0, nil)

	from := localDate(2026, time.March, 9, 0, 0, 0)
	to := localDate(2026, time.March, 10, 23, 59, 59)
	summaries, _, err := svc.Aggregate(context.Background(), from, to, []string{"10A1", "11B3"})

	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "10A1", summaries[0].ClassName)
	assert.Equal(t, "11B3", summaries[1].ClassName)
	assert.Equal(t, 0, summaries[1].TotalPoints)
	assert.NotNil(t, summaries[1].Violations)
	assert.Empty(t, summaries[1].Violations)
}

func TestReportAggregateRangeExcludesOutsideDays(t *testing.T) {
	store := newMemViolationStore()
	seedReportData(t, store)
	svc := NewReportService(store, nil, nil, 0, nil)

	// Only March 9: the March 10 record for 10A1 is excluded.
	from := localDate(2026, time.March, 9, 0, 0, 0)
	to := localDate(2026, time.March, 9, 23, 59, 59)
	summaries, _, err := svc.Aggregate(context.Background(), from, to, []string{"10A1"})

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 5, summaries[0].TotalPoints)
	assert.Len(t, summaries[0].Violations, 1)
}

func TestReportAggregateCatalogRepricing(t *testing.T) {
	store := newMemViolationStore()
	day := localDate(2026, time.March, 9, 8, 0, 0)
	seedViolation(t, store, "10A1", "Mất trật tự", models.TargetClass, nil, day)

	repriced := catalog.New([]catalog.Tier{
		{Name: "Trung bình", Points: 8, Types: []string{"Mất trật tự"}},
	})
	svc := NewReportService(store, repriced, nil, 0, nil)

	from := localDate(2026, time.March, 9, 0, 0, 0)
	to := localDate(2026, time.March, 9, 23, 59, 59)
	summaries, _, err := svc.Aggregate(context.Background(), from, to, []string{"10A1"})

	require.NoError(t, err)
	// The stored record carries no points; the new catalog reprices it.
	assert.Equal(t, 8, summaries[0].TotalPoints)
}

func TestReportAggregateCaching(t *testing.T) {
	store := newMemViolationStore()
	seedReportData(t, store)
	cache := newMemSummaryCache()
	svc := NewReportService(store, nil, cache, time.Minute, nil)

	from := localDate(2026, time.March, 9, 0, 0, 0)
	to := localDate(2026, time.March, 10, 23, 59, 59)

	first, cached, err := svc.Aggregate(context.Background(), from, to, nil)
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 1, cache.sets)

	second, cached, err := svc.Aggregate(context.Background(), from, to, nil)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 1, cache.hits)
	require.Len(t, second, len(first))
	assert.Equal(t, first[0].ClassName, second[0].ClassName)
	assert.Equal(t, first[0].TotalPoints, second[0].TotalPoints)

	// A different class set is a different cache key.
	_, cached, err = svc.Aggregate(context.Background(), from, to, []string{"10A1"})
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, 2, cache.sets)
}
