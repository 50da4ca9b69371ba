package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(10)

	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()
	m.RecordStoreQuery()
	m.RecordDegradedSearch()
	m.RecordInvalidation()

	s := m.GetSnapshot()
	assert.Equal(t, int64(3), s.CacheHits)
	assert.Equal(t, int64(1), s.CacheMisses)
	assert.InDelta(t, 0.75, s.HitRate, 0.001)
	assert.Equal(t, int64(1), s.StoreQueries)
	assert.Equal(t, int64(1), s.DegradedSearches)
	assert.Equal(t, int64(1), s.Invalidations)
}

func TestMetricsDurations(t *testing.T) {
	m := NewMetrics(100)
	for i := 1; i <= 100; i++ {
		m.RecordResolveDuration(time.Duration(i) * time.Millisecond)
	}

	s := m.GetSnapshot()
	assert.Equal(t, 100, s.SampleCount)
	assert.Equal(t, int64(50), s.AvgResolveMs)
	assert.Equal(t, int64(96), s.P95ResolveMs)
}

func TestMetricsDurationWindow(t *testing.T) {
	m := NewMetrics(5)
	for i := 0; i < 20; i++ {
		m.RecordResolveDuration(time.Millisecond)
	}
	assert.Equal(t, 5, m.GetSnapshot().SampleCount)
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics(10)
	m.RecordCacheHit()
	m.RecordResolveDuration(time.Millisecond)
	m.Reset()

	s := m.GetSnapshot()
	assert.Zero(t, s.CacheHits)
	assert.Zero(t, s.SampleCount)
	assert.Zero(t, s.HitRate)
}
